package stream

import "context"

// Collect folds every remaining element of s into one result.
func Collect[T, A, R any](ctx context.Context, s *Stream[T], r Reducer[T, A, R]) (R, error) {
	acc := r.Supply()
	for v, err := range s.All(ctx) {
		if err != nil {
			var zero R
			return zero, err
		}
		acc = r.Add(acc, v)
	}
	return r.Finish(acc), nil
}

// CollectSlice returns every remaining element of s in order.
func CollectSlice[T any](ctx context.Context, s *Stream[T]) ([]T, error) {
	return Collect(ctx, s, ToSlice[T]())
}

// CollectSet returns the distinct remaining elements of s.
func CollectSet[T comparable](ctx context.Context, s *Stream[T]) (map[T]struct{}, error) {
	return Collect(ctx, s, ToSet[T]())
}
