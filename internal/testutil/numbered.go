// Package testutil provides test fixtures for pagestream.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// AfterCall records one after-last-read notification.
type AfterCall struct {
	PageNumber int
	PageSize   int
	Count      int
}

// NumberedSource is a paged source over generated elements "0<tip>",
// "1<tip>", ... that records every call made to it.
type NumberedSource struct {
	mu   sync.Mutex
	tip  string
	data []string

	// Delay is applied to every fetch.
	Delay time.Duration

	failures map[int]error
	hookErr  error

	events   []string
	fetches  []int
	before   int
	afters   []AfterCall
	inFlight int
	peak     int
}

// NewNumberedSource creates a source holding count elements.
func NewNumberedSource(tip string, count int) *NumberedSource {
	data := make([]string, count)
	for i := range data {
		data[i] = fmt.Sprintf("%d%s", i, tip)
	}
	return &NumberedSource{
		tip:      tip,
		data:     data,
		failures: make(map[int]error),
	}
}

// Data returns the elements the source serves, in order.
func (s *NumberedSource) Data() []string {
	return append([]string(nil), s.data...)
}

// FailPage makes every fetch of pageNumber return err.
func (s *NumberedSource) FailPage(pageNumber int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[pageNumber] = err
}

// FailHooks makes both lifecycle notifications return err.
func (s *NumberedSource) FailHooks(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hookErr = err
}

// FetchPage serves one page of the generated data.
func (s *NumberedSource) FetchPage(ctx context.Context, pageNumber, pageSize int) ([]string, error) {
	s.mu.Lock()
	s.fetches = append(s.fetches, pageNumber)
	s.events = append(s.events, fmt.Sprintf("fetch:%d", pageNumber))
	s.inFlight++
	s.peak = max(s.peak, s.inFlight)
	err := s.failures[pageNumber]
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()

	if s.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.Delay):
		}
	}
	if err != nil {
		return nil, err
	}

	start := (pageNumber - 1) * pageSize
	if start >= len(s.data) {
		return nil, nil
	}
	end := min(start+pageSize, len(s.data))
	return append([]string(nil), s.data[start:end]...), nil
}

// OnBeforeFirstRead records the notification.
func (s *NumberedSource) OnBeforeFirstRead(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.before++
	s.events = append(s.events, "before")
	return s.hookErr
}

// OnAfterLastRead records the notification.
func (s *NumberedSource) OnAfterLastRead(_ context.Context, pageNumber, pageSize, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.afters = append(s.afters, AfterCall{PageNumber: pageNumber, PageSize: pageSize, Count: count})
	s.events = append(s.events, "after")
	return s.hookErr
}

// Fetches returns the requested page numbers in call order.
func (s *NumberedSource) Fetches() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.fetches...)
}

// Events returns fetches and notifications in call order.
func (s *NumberedSource) Events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

// BeforeCalls returns how often OnBeforeFirstRead was called.
func (s *NumberedSource) BeforeCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.before
}

// AfterCalls returns the recorded after-last-read notifications.
func (s *NumberedSource) AfterCalls() []AfterCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]AfterCall(nil), s.afters...)
}

// PeakInFlight returns the highest number of concurrent fetches seen.
func (s *NumberedSource) PeakInFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peak
}
