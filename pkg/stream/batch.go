package stream

import (
	"context"
	"errors"
	"fmt"
	"iter"
)

var (
	// ErrInvalidBatchSize is returned for a non-positive batch size.
	ErrInvalidBatchSize = errors.New("batch size must be a positive integer")

	// ErrNilStream is returned when grouping without a stream.
	ErrNilStream = errors.New("stream cannot be nil")

	// ErrNilReducer is returned when grouping without a reducer.
	ErrNilReducer = errors.New("reducer cannot be nil")
)

// Batches groups consecutive stream elements into batches of up to size
// elements, each folded through a Reducer. Only the last batch may be smaller.
type Batches[T, A, R any] struct {
	stream  *Stream[T]
	size    int
	reducer Reducer[T, A, R]
	emitted int
}

// GroupBy creates a batch iterator over s.
func GroupBy[T, A, R any](s *Stream[T], size int, r Reducer[T, A, R]) (*Batches[T, A, R], error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidBatchSize, size)
	}
	if s == nil {
		return nil, ErrNilStream
	}
	if r == nil {
		return nil, ErrNilReducer
	}
	return &Batches[T, A, R]{stream: s, size: size, reducer: r}, nil
}

// GroupByPage creates a batch iterator whose batch size is the stream's page size.
func GroupByPage[T, A, R any](s *Stream[T], r Reducer[T, A, R]) (*Batches[T, A, R], error) {
	if s == nil {
		return nil, ErrNilStream
	}
	return GroupBy(s, s.PageSize(), r)
}

// HasNext reports whether another batch can be started.
func (b *Batches[T, A, R]) HasNext(ctx context.Context) (bool, error) {
	return b.stream.HasNext(ctx)
}

// Next folds the next batch. It returns ErrOutOfBounds when the stream has no
// element left.
func (b *Batches[T, A, R]) Next(ctx context.Context) (R, error) {
	var zero R

	ok, err := b.stream.HasNext(ctx)
	if err != nil {
		return zero, err
	}
	if !ok {
		return zero, fmt.Errorf("%w: batch %d", ErrOutOfBounds, b.emitted)
	}

	acc := b.reducer.Supply()
	for i := 0; i < b.size; i++ {
		ok, err := b.stream.HasNext(ctx)
		if err != nil {
			return zero, err
		}
		if !ok {
			break
		}
		v, err := b.stream.Next(ctx)
		if err != nil {
			return zero, err
		}
		acc = b.reducer.Add(acc, v)
	}

	b.emitted++
	BatchesEmitted.Inc()
	return b.reducer.Finish(acc), nil
}

// All returns the remaining batches as a range-over-func sequence.
func (b *Batches[T, A, R]) All(ctx context.Context) iter.Seq2[R, error] {
	return func(yield func(R, error) bool) {
		for {
			ok, err := b.HasNext(ctx)
			if err != nil {
				var zero R
				yield(zero, err)
				return
			}
			if !ok {
				return
			}

			batch, err := b.Next(ctx)
			if !yield(batch, err) || err != nil {
				return
			}
		}
	}
}

// Size returns the batch size.
func (b *Batches[T, A, R]) Size() int {
	return b.size
}
