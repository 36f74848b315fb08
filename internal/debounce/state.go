package debounce

import (
	"errors"
	"fmt"
)

var (
	// ErrCancelled is the outcome of a call cancelled before it completed.
	ErrCancelled = errors.New("debounce: cancelled")
	// ErrSuperseded is the outcome of a call replaced by a newer one.
	ErrSuperseded = fmt.Errorf("%w: superseded by a newer call", ErrCancelled)
	// ErrClosed is returned by calls issued after Close.
	ErrClosed = errors.New("debounce: closed")
)

// IsCancelled reports whether err is a cancellation outcome rather than a
// failure.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// Status is the lifecycle of the current call.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusFailed
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// State is the observable state of a Call.
//
// Result holds the last successful result; it survives later failures
// and cancellations. Err is set for StatusFailed and StatusCancelled.
type State[R any] struct {
	Status     Status
	Result     R
	Err        error
	Generation int64
}

// Loading reports whether a call is in flight.
func (s State[R]) Loading() bool {
	return s.Status == StatusLoading
}
