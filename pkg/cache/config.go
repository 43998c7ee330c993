package cache

import (
	"errors"
	"fmt"
)

const (
	// DefaultPageSize is the number of elements requested per page.
	DefaultPageSize = 100

	// DefaultWindowSize is the number of pages kept resident without prefetching.
	DefaultWindowSize = 2
)

var (
	// ErrInvalidConfig indicates a non-positive or inconsistent setting.
	ErrInvalidConfig = errors.New("invalid cache config")

	// ErrNilSource indicates a cache was created without a source.
	ErrNilSource = errors.New("source cannot be nil")
)

// Config holds the page window configuration. It is immutable once a cache
// has been created from it.
type Config struct {
	// PageSize is the number of elements per page.
	PageSize int

	// WindowSize is the maximum number of resident pages.
	WindowSize int

	// Concurrency is the number of consecutive pages fetched in parallel on
	// a miss. 1 disables prefetching.
	Concurrency int
}

// DefaultConfig returns a non-prefetching configuration.
func DefaultConfig() Config {
	return Config{
		PageSize:    DefaultPageSize,
		WindowSize:  DefaultWindowSize,
		Concurrency: 1,
	}
}

// PrefetchConfig returns a configuration fetching concurrency pages per miss,
// with a window one page larger than a prefetched run.
func PrefetchConfig(pageSize, concurrency int) Config {
	return Config{
		PageSize:    pageSize,
		WindowSize:  concurrency + 1,
		Concurrency: concurrency,
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.PageSize <= 0 {
		return fmt.Errorf("%w: page size must be a positive integer (got %d)", ErrInvalidConfig, c.PageSize)
	}
	if c.WindowSize <= 0 {
		return fmt.Errorf("%w: window size must be a positive integer (got %d)", ErrInvalidConfig, c.WindowSize)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("%w: concurrency must be a positive integer (got %d)", ErrInvalidConfig, c.Concurrency)
	}
	// A prefetched run must fit into the window.
	if c.WindowSize < c.Concurrency {
		return fmt.Errorf("%w: window size %d is smaller than concurrency %d", ErrInvalidConfig, c.WindowSize, c.Concurrency)
	}
	return nil
}
