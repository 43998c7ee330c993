// Package pagination provides parallel fetching of consecutive page runs
package pagination

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidConcurrency is returned for a non-positive concurrency.
var ErrInvalidConcurrency = errors.New("concurrency must be a positive integer")

// Config holds batch fetcher configuration
type Config struct {
	// Concurrency is the number of consecutive pages fetched per run,
	// each in its own goroutine
	Concurrency int
}

// DefaultConfig returns a configuration without parallelism
func DefaultConfig() Config {
	return Config{
		Concurrency: 1,
	}
}

// FetchFunc fetches a single page
type FetchFunc[T any] func(ctx context.Context, pageNumber, pageSize int) ([]T, error)

// PageError reports the page whose fetch failed a run
type PageError struct {
	PageNumber int
	Err        error
}

// Error implements the error interface.
func (e *PageError) Error() string {
	return fmt.Sprintf("fetch page %d: %v", e.PageNumber, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *PageError) Unwrap() error {
	return e.Err
}

// BatchFetcher fetches runs of consecutive pages in parallel
type BatchFetcher[T any] struct {
	config Config
	logger zerolog.Logger
}

// NewBatchFetcher creates a new batch fetcher.
// A non-positive concurrency is rejected rather than replaced by a default.
func NewBatchFetcher[T any](config Config) (*BatchFetcher[T], error) {
	if config.Concurrency <= 0 {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidConcurrency, config.Concurrency)
	}

	return &BatchFetcher[T]{
		config: config,
		logger: log.With().Str("component", "batch-fetcher").Logger(),
	}, nil
}

// Concurrency returns the run length.
func (bf *BatchFetcher[T]) Concurrency() int {
	return bf.config.Concurrency
}

// FetchRun fetches pages firstPage .. firstPage+Concurrency-1 in parallel and
// waits for all of them. Pages are returned in page order; result[i] belongs
// to page firstPage+i.
//
// If any fetch fails, the context handed to the other fetches is cancelled and
// the first failure is returned as a *PageError. No partial result is returned.
func (bf *BatchFetcher[T]) FetchRun(ctx context.Context, fetch FetchFunc[T], firstPage, pageSize int) ([][]T, error) {
	start := time.Now()
	pages := make([][]T, bf.config.Concurrency)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bf.config.Concurrency)

	for i := range pages {
		pageNum := firstPage + i
		g.Go(func() error {
			data, err := fetch(gctx, pageNum, pageSize)
			if err != nil {
				bf.logger.Warn().
					Err(err).
					Int("page", pageNum).
					Msg("Page fetch failed")
				return &PageError{PageNumber: pageNum, Err: err}
			}
			// slot i is written by this goroutine only
			pages[i] = data
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	bf.logger.Debug().
		Int("first_page", firstPage).
		Int("pages", len(pages)).
		Dur("duration", time.Since(start)).
		Msg("Fetch run complete")

	return pages, nil
}
