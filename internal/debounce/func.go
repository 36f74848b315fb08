package debounce

import (
	"sync"
	"time"

	"github.com/roach88/chefconnect/internal/clock"
)

// Func runs fn with the latest argument once delay has passed without a
// new Trigger.
//
// Thread-safety: Func is safe for concurrent use. fn runs on the timer's
// goroutine (or the caller's, for Flush) without any lock held.
type Func[A any] struct {
	fn    func(A)
	delay time.Duration
	clock clock.Clock

	mu      sync.Mutex
	token   uint64
	timer   clock.Timer
	arg     A
	pending bool
	closed  bool
}

// NewFunc creates a debounced fn.
func NewFunc[A any](fn func(A), delay time.Duration, opts ...Option) *Func[A] {
	cfg := newConfig(opts)
	return &Func[A]{fn: fn, delay: delay, clock: cfg.clock}
}

// Trigger schedules fn(arg), replacing any pending invocation.
func (f *Func[A]) Trigger(arg A) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.stopLocked()
	token := f.token
	f.arg = arg
	f.pending = true
	f.timer = f.clock.AfterFunc(f.delay, func() { f.fire(token) })
}

// Pending reports whether an invocation is scheduled.
func (f *Func[A]) Pending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending
}

// Cancel drops the pending invocation. Returns whether there was one.
func (f *Func[A]) Cancel() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	was := f.pending
	f.stopLocked()
	return was
}

// Flush runs the pending invocation now. Returns whether there was one.
func (f *Func[A]) Flush() bool {
	f.mu.Lock()
	if !f.pending || f.closed {
		f.mu.Unlock()
		return false
	}
	arg := f.arg
	f.stopLocked()
	f.mu.Unlock()

	f.fn(arg)
	return true
}

// Close cancels the pending invocation; later Triggers are ignored.
func (f *Func[A]) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopLocked()
	f.closed = true
}

func (f *Func[A]) fire(token uint64) {
	f.mu.Lock()
	// A timer that lost the race with Stop still fires; the token says
	// whether it is still the scheduled one.
	if f.closed || !f.pending || token != f.token {
		f.mu.Unlock()
		return
	}
	arg := f.arg
	var zero A
	f.arg = zero
	f.pending = false
	f.timer = nil
	f.token++
	f.mu.Unlock()

	f.fn(arg)
}

func (f *Func[A]) stopLocked() {
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	var zero A
	f.arg = zero
	f.pending = false
	f.token++
}
