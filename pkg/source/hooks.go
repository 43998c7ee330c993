package source

import "context"

// BeforeFunc is called before the first page is fetched.
type BeforeFunc func(ctx context.Context) error

// AfterFunc is called once the last element has been read.
type AfterFunc func(ctx context.Context, pageNumber, pageSize, count int) error

// hooked decorates a Source with lifecycle callbacks.
type hooked[T any] struct {
	Source[T]
	before BeforeFunc
	after  AfterFunc
}

// WithHooks returns src decorated with the given lifecycle callbacks.
// Either callback may be nil.
func WithHooks[T any](src Source[T], before BeforeFunc, after AfterFunc) Source[T] {
	return &hooked[T]{Source: src, before: before, after: after}
}

func (h *hooked[T]) OnBeforeFirstRead(ctx context.Context) error {
	if err := NotifyBeforeFirstRead(ctx, h.Source); err != nil {
		return err
	}
	if h.before != nil {
		return h.before(ctx)
	}
	return nil
}

func (h *hooked[T]) OnAfterLastRead(ctx context.Context, pageNumber, pageSize, count int) error {
	if err := NotifyAfterLastRead(ctx, h.Source, pageNumber, pageSize, count); err != nil {
		return err
	}
	if h.after != nil {
		return h.after(ctx, pageNumber, pageSize, count)
	}
	return nil
}
