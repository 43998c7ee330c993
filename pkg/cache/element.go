package cache

import "fmt"

// Element is an element resolved by Get.
type Element[T any] struct {
	// Value is the element itself
	Value T

	// Index is the absolute position of the element in its source
	Index int

	// HasNext reports whether the element at Index+1 exists
	HasNext bool
}

// State is the lifecycle state of a cache.
type State int

const (
	// StateUnstarted means Get was never called.
	StateUnstarted State = iota

	// StateStreaming means the before-first-read notification has fired
	// and the end of the source was not reached yet.
	StateStreaming

	// StateExhausted means the end of the source was detected and the
	// after-last-read notification has fired.
	StateExhausted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StateStreaming:
		return "streaming"
	case StateExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}
