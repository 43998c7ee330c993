package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/pagestream/pkg/pagination"
	"github.com/Sternrassler/pagestream/pkg/source"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrNegativeIndex is returned by Get for an index below zero.
var ErrNegativeIndex = errors.New("index must not be negative")

// PrefetchError reports a failed prefetch run. Nothing of the run was installed.
type PrefetchError struct {
	FirstPage int
	Pages     int
	Err       error
}

// Error implements the error interface.
func (e *PrefetchError) Error() string {
	return fmt.Sprintf("prefetch pages %d-%d: %v", e.FirstPage, e.FirstPage+e.Pages-1, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *PrefetchError) Unwrap() error {
	return e.Err
}

// Cache holds a bounded window of pages of one source and resolves elements
// by absolute index.
type Cache[T any] struct {
	mu sync.Mutex

	src     source.Source[T]
	config  Config
	fetcher *pagination.BatchFetcher[T] // nil without prefetching
	logger  zerolog.Logger

	pages map[int][]T
	order []int // page numbers, oldest insertion first

	// endPage is the first page number known to hold no data, 0 while unknown.
	endPage int

	state     State
	delivered int
}

// New creates a cache over src.
func New[T any](src source.Source[T], cfg Config) (*Cache[T], error) {
	if src == nil {
		return nil, ErrNilSource
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Cache[T]{
		src:    src,
		config: cfg,
		logger: log.With().Str("component", "page-cache").Logger(),
		pages:  make(map[int][]T, cfg.WindowSize),
		order:  make([]int, 0, cfg.WindowSize+cfg.Concurrency),
	}

	if cfg.Concurrency > 1 {
		fetcher, err := pagination.NewBatchFetcher[T](pagination.Config{Concurrency: cfg.Concurrency})
		if err != nil {
			return nil, err
		}
		c.fetcher = fetcher
	}

	return c, nil
}

// Get returns the element at index and whether a following element exists.
// ok is false when index lies beyond the end of the source.
//
// Get must be called with increasing indexes starting at 0. The first call
// notifies the source before anything is fetched; the call that detects the
// end notifies it once more. After that Get answers ok=false without calling
// the source again.
//
// Fetch errors and notification errors are returned as they are, except for
// prefetch runs whose failures are wrapped in a *PrefetchError.
func (c *Cache[T]) Get(ctx context.Context, index int) (el Element[T], ok bool, err error) {
	if index < 0 {
		return el, false, fmt.Errorf("%w: %d", ErrNegativeIndex, index)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateExhausted:
		return el, false, nil
	case StateUnstarted:
		c.state = StateStreaming
		if err := source.NotifyBeforeFirstRead(ctx, c.src); err != nil {
			return el, false, err
		}
	}

	pageNum := PageNumber(index, c.config.PageSize)
	items, found, err := c.loadPage(ctx, pageNum)
	if err != nil {
		return el, false, err
	}

	offset := OffsetInPage(index, c.config.PageSize)
	if !found || offset >= len(items) {
		return el, false, c.finish(ctx, pageNum, index)
	}

	hasNext := offset+1 < len(items)
	if PageNumber(index+1, c.config.PageSize) != pageNum {
		next, nextFound, err := c.loadPage(ctx, pageNum+1)
		if err != nil {
			return el, false, err
		}
		hasNext = nextFound && len(next) > 0
	}

	c.delivered = index + 1
	el = Element[T]{Value: items[offset], Index: index, HasNext: hasNext}

	if !hasNext {
		if err := c.finish(ctx, pageNum, c.delivered); err != nil {
			// A failed after-last-read hook fails the read of the last element too.
			return Element[T]{}, false, err
		}
	}

	return el, true, nil
}

// loadPage returns the page from the window, fetching it on a miss.
// found is false for pages at or beyond the known end of the source.
func (c *Cache[T]) loadPage(ctx context.Context, pageNum int) (items []T, found bool, err error) {
	if c.endPage != 0 && pageNum >= c.endPage {
		return nil, false, nil
	}
	if items, ok := c.pages[pageNum]; ok {
		return items, true, nil
	}

	if c.fetcher != nil {
		return c.prefetch(ctx, pageNum)
	}

	start := time.Now()
	items, err = c.src.FetchPage(ctx, pageNum, c.config.PageSize)
	FetchDuration.WithLabelValues(modeSingle).Observe(time.Since(start).Seconds())
	if err != nil {
		FetchErrors.WithLabelValues(modeSingle).Inc()
		c.logger.Warn().Err(err).Int("page", pageNum).Msg("Page fetch failed")
		return nil, false, err
	}

	if !c.accept(pageNum, items) {
		return nil, false, nil
	}
	c.install(map[int][]T{pageNum: items}, []int{pageNum})
	PagesFetched.WithLabelValues(modeSingle).Inc()

	return items, true, nil
}

// prefetch fetches a run of pages starting at firstPage and installs every
// page of the run up to the end of the source in one step.
func (c *Cache[T]) prefetch(ctx context.Context, firstPage int) ([]T, bool, error) {
	start := time.Now()
	run, err := c.fetcher.FetchRun(ctx, c.src.FetchPage, firstPage, c.config.PageSize)
	FetchDuration.WithLabelValues(modePrefetch).Observe(time.Since(start).Seconds())
	if err != nil {
		FetchErrors.WithLabelValues(modePrefetch).Inc()
		return nil, false, &PrefetchError{FirstPage: firstPage, Pages: c.fetcher.Concurrency(), Err: err}
	}

	fetched := make(map[int][]T, len(run))
	order := make([]int, 0, len(run))
	for i, items := range run {
		pageNum := firstPage + i
		if !c.accept(pageNum, items) {
			break
		}
		if _, cached := c.pages[pageNum]; !cached {
			fetched[pageNum] = items
			order = append(order, pageNum)
		}
		if len(items) < c.config.PageSize {
			break
		}
	}

	if len(order) > 0 {
		c.install(fetched, order)
		PagesFetched.WithLabelValues(modePrefetch).Add(float64(len(order)))
	}

	if len(run[0]) == 0 {
		return nil, false, nil
	}
	return run[0], true, nil
}

// accept records what a fetched page says about the end of the source and
// reports whether the page holds data. A page shorter than the page size is
// the last one.
func (c *Cache[T]) accept(pageNum int, items []T) bool {
	switch {
	case len(items) == 0:
		c.markEnd(pageNum)
		return false
	case len(items) < c.config.PageSize:
		c.markEnd(pageNum + 1)
	}
	return true
}

func (c *Cache[T]) markEnd(pageNum int) {
	if c.endPage == 0 || pageNum < c.endPage {
		c.endPage = pageNum
	}
}

// install adds pages in the given order and evicts the oldest pages until
// the window bound holds again.
func (c *Cache[T]) install(pages map[int][]T, order []int) {
	for _, pageNum := range order {
		c.pages[pageNum] = pages[pageNum]
		c.order = append(c.order, pageNum)
	}

	for len(c.pages) > c.config.WindowSize {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.pages, oldest)
		PageEvictions.Inc()
		c.logger.Debug().Int("page", oldest).Msg("Page evicted")
	}

	c.logger.Debug().
		Ints("installed", order).
		Int("resident", len(c.pages)).
		Msg("Pages installed")
}

// finish moves the cache to StateExhausted, drops the window and notifies
// the source.
func (c *Cache[T]) finish(ctx context.Context, pageNum, count int) error {
	c.state = StateExhausted
	c.pages = make(map[int][]T)
	c.order = nil
	SourcesExhausted.Inc()

	c.logger.Info().
		Int("page", pageNum).
		Int("page_size", c.config.PageSize).
		Int("count", count).
		Msg("Source exhausted")

	return source.NotifyAfterLastRead(ctx, c.src, pageNum, c.config.PageSize, count)
}

// Resident returns the resident page numbers, oldest first.
func (c *Cache[T]) Resident() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.order...)
}

// State returns the lifecycle state.
func (c *Cache[T]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Delivered returns the number of elements handed out so far.
func (c *Cache[T]) Delivered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.delivered
}

// Config returns the cache configuration.
func (c *Cache[T]) Config() Config {
	return c.config
}
