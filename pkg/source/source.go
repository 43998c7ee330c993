// Package source defines the contract a paged data provider implements to be
// streamed by pagestream.
//
// A provider only has to answer page requests. Page numbers are 1-based and a
// page covers the element range [(page-1)*size, page*size). An empty page means
// the provider has no data from that page number onward, so providers must
// answer page numbers past the end with an empty result rather than an error.
//
// Two optional lifecycle notifications are detected by type assertion:
//
//   - BeforeFirstReader is notified once, before the first page is fetched.
//   - AfterLastReader is notified once, when the reader detects the end.
package source

import "context"

// Source fetches pages of elements.
//
// Implementations used with concurrent prefetching must be safe for
// concurrent FetchPage calls.
type Source[T any] interface {
	// FetchPage returns the elements of page pageNumber in source order.
	FetchPage(ctx context.Context, pageNumber, pageSize int) ([]T, error)
}

// BeforeFirstReader is implemented by sources that want to be notified before
// their first page is requested.
type BeforeFirstReader interface {
	OnBeforeFirstRead(ctx context.Context) error
}

// AfterLastReader is implemented by sources that want to be notified once the
// last element has been read. pageNumber is the page the reader stopped on and
// count the number of elements delivered from this source.
type AfterLastReader interface {
	OnAfterLastRead(ctx context.Context, pageNumber, pageSize, count int) error
}

// Func adapts a plain function to the Source interface.
type Func[T any] func(ctx context.Context, pageNumber, pageSize int) ([]T, error)

// FetchPage calls f.
func (f Func[T]) FetchPage(ctx context.Context, pageNumber, pageSize int) ([]T, error) {
	return f(ctx, pageNumber, pageSize)
}

// NotifyBeforeFirstRead calls OnBeforeFirstRead if src implements it.
func NotifyBeforeFirstRead[T any](ctx context.Context, src Source[T]) error {
	if h, ok := src.(BeforeFirstReader); ok {
		return h.OnBeforeFirstRead(ctx)
	}
	return nil
}

// NotifyAfterLastRead calls OnAfterLastRead if src implements it.
func NotifyAfterLastRead[T any](ctx context.Context, src Source[T], pageNumber, pageSize, count int) error {
	if h, ok := src.(AfterLastReader); ok {
		return h.OnAfterLastRead(ctx, pageNumber, pageSize, count)
	}
	return nil
}
