package source

import "context"

// Slice serves an in-memory slice page by page.
type Slice[T any] []T

// FetchPage returns the elements of the requested page, or nil past the end.
func (s Slice[T]) FetchPage(_ context.Context, pageNumber, pageSize int) ([]T, error) {
	start := (pageNumber - 1) * pageSize
	if pageNumber < 1 || pageSize < 1 || start >= len(s) {
		return nil, nil
	}
	end := min(start+pageSize, len(s))
	page := make([]T, end-start)
	copy(page, s[start:end])
	return page, nil
}
