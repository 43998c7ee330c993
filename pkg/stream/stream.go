// Package stream chains page window caches into one flat, single-pass
// sequence and groups that sequence into batches.
package stream

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/Sternrassler/pagestream/pkg/cache"
	"github.com/Sternrassler/pagestream/pkg/source"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrOutOfBounds is returned by Next when no element is left. It means the
// caller did not respect HasNext; running out of elements is not an error.
var ErrOutOfBounds = errors.New("iterator out of bounds")

// Stream iterates the elements of several sources in configured order.
// A Stream is read once, by one reader.
type Stream[T any] struct {
	id       uuid.UUID
	caches   []*cache.Cache[T]
	pageSize int
	logger   zerolog.Logger

	cursor   int // index into caches of the source being drained
	current  *reader[T]
	position int
	finished bool
}

// reader drains one cache, holding the element resolved by the last
// lookahead until Next hands it out.
type reader[T any] struct {
	cache   *cache.Cache[T]
	index   int
	pending *cache.Element[T]
	done    bool
}

func (r *reader[T]) hasNext(ctx context.Context) (bool, error) {
	if r.pending != nil {
		return true, nil
	}
	if r.done {
		return false, nil
	}

	el, ok, err := r.cache.Get(ctx, r.index)
	if err != nil {
		return false, err
	}
	if !ok {
		r.done = true
		return false, nil
	}
	r.pending = &el
	return true, nil
}

func (r *reader[T]) next() T {
	el := r.pending
	r.pending = nil
	r.index++
	if !el.HasNext {
		r.done = true
	}
	return el.Value
}

// Connect creates a stream over sources, each behind its own page window
// cache built from cfg. Nil sources are skipped.
func Connect[T any](cfg cache.Config, sources ...source.Source[T]) (*Stream[T], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	caches := make([]*cache.Cache[T], 0, len(sources))
	for i, src := range sources {
		if src == nil {
			continue
		}
		c, err := cache.New(src, cfg)
		if err != nil {
			return nil, fmt.Errorf("source %d: %w", i, err)
		}
		caches = append(caches, c)
	}

	return newStream(cfg.PageSize, caches), nil
}

// New creates a stream over already built caches. The page size of the first
// cache becomes the default batch size.
func New[T any](caches ...*cache.Cache[T]) *Stream[T] {
	pageSize := cache.DefaultPageSize
	kept := make([]*cache.Cache[T], 0, len(caches))
	for _, c := range caches {
		if c == nil {
			continue
		}
		if len(kept) == 0 {
			pageSize = c.Config().PageSize
		}
		kept = append(kept, c)
	}
	return newStream(pageSize, kept)
}

func newStream[T any](pageSize int, caches []*cache.Cache[T]) *Stream[T] {
	id := uuid.New()
	return &Stream[T]{
		id:       id,
		caches:   caches,
		pageSize: pageSize,
		cursor:   -1,
		logger: log.With().
			Str("component", "stream").
			Str("stream_id", id.String()).
			Logger(),
	}
}

// HasNext reports whether Next has an element to return. It only reads as
// far as needed to answer and may be called repeatedly.
func (s *Stream[T]) HasNext(ctx context.Context) (bool, error) {
	for {
		if s.current != nil {
			ok, err := s.current.hasNext(ctx)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}

		if s.cursor+1 >= len(s.caches) {
			if !s.finished {
				s.finished = true
				s.logger.Info().
					Int("sources", len(s.caches)).
					Int("elements", s.position).
					Msg("Stream complete")
			}
			return false, nil
		}

		s.cursor++
		s.current = &reader[T]{cache: s.caches[s.cursor]}
		s.logger.Debug().
			Int("source", s.cursor).
			Int("position", s.position).
			Msg("Switching source")
	}
}

// Next returns the next element, or ErrOutOfBounds when none is left.
func (s *Stream[T]) Next(ctx context.Context) (T, error) {
	var zero T

	ok, err := s.HasNext(ctx)
	if err != nil {
		return zero, err
	}
	if !ok {
		return zero, fmt.Errorf("%w: position %d", ErrOutOfBounds, s.position)
	}

	v := s.current.next()
	s.position++
	ElementsDelivered.Inc()
	return v, nil
}

// All returns the remaining elements as a range-over-func sequence. Iteration
// stops after the first error, which is yielded with the zero value.
func (s *Stream[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for {
			ok, err := s.HasNext(ctx)
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			if !ok {
				return
			}

			v, err := s.Next(ctx)
			if !yield(v, err) || err != nil {
				return
			}
		}
	}
}

// PageSize returns the configured page size.
func (s *Stream[T]) PageSize() int {
	return s.pageSize
}

// Position returns the number of elements returned so far.
func (s *Stream[T]) Position() int {
	return s.position
}

// Sources returns the number of sources the stream reads.
func (s *Stream[T]) Sources() int {
	return len(s.caches)
}

// ID returns the identifier used in the stream's log lines.
func (s *Stream[T]) ID() string {
	return s.id.String()
}
