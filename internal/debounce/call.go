package debounce

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/roach88/chefconnect/internal/clock"
)

// AsyncFunc is the operation a Call coordinates. It must honour ctx.
type AsyncFunc[A, R any] func(ctx context.Context, arg A) (R, error)

type request struct {
	gen    int64
	cancel context.CancelFunc
	// reason is set when the request is displaced.
	reason error
}

// Call is a debounced asynchronous call with at most one current request.
//
// Issuing a request (when the debounce timer fires, or via Run) cancels
// the context of the previous in-flight request and takes a new
// generation. When a request completes, its outcome is applied to State
// only if its generation is still current; otherwise it is dropped and
// reported to the Observer.
//
// Thread-safety: Call is safe for concurrent use. Watchers run without
// the lock held, on the goroutine that produced the transition.
type Call[A, R any] struct {
	fn      AsyncFunc[A, R]
	trigger *Func[A]
	seq     *clock.Sequence
	log     *slog.Logger
	obs     Observer
	name    string

	mu       sync.Mutex
	state    State[R]
	inflight *request
	watchers map[int]func(State[R])
	nextID   int
	closed   bool
}

// NewCall creates a Call around fn with the given quiet period.
func NewCall[A, R any](fn AsyncFunc[A, R], delay time.Duration, opts ...Option) *Call[A, R] {
	cfg := newConfig(opts)
	c := &Call[A, R]{
		fn:       fn,
		seq:      clock.NewSequence(),
		log:      cfg.log,
		obs:      cfg.observer,
		name:     cfg.name,
		watchers: make(map[int]func(State[R])),
	}
	c.trigger = NewFunc(c.issueAsync, delay, opts...)
	return c
}

// Call schedules fn(arg) after the quiet period, replacing any pending
// call. The in-flight request, if any, is cancelled when the new one is
// issued.
func (c *Call[A, R]) Call(arg A) {
	c.trigger.Trigger(arg)
}

// Run issues fn(arg) immediately, superseding pending and in-flight
// calls, and waits for its outcome. A superseded run returns
// ErrSuperseded; a cancelled one returns ErrCancelled.
func (c *Call[A, R]) Run(ctx context.Context, arg A) (R, error) {
	c.trigger.Cancel()
	req, rctx, err := c.issue(ctx)
	if err != nil {
		var zero R
		return zero, err
	}
	return c.execute(rctx, req, arg)
}

// Settle issues the pending call, if any, without waiting out the quiet
// period, then blocks until no request is in flight. It returns the
// resulting state, or ctx.Err() if ctx ends first.
func (c *Call[A, R]) Settle(ctx context.Context) (State[R], error) {
	changed := make(chan struct{}, 1)
	stop := c.Watch(func(State[R]) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer stop()

	c.trigger.Flush()
	for {
		st := c.State()
		if !st.Loading() {
			return st, nil
		}
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-changed:
		}
	}
}

// State returns the current state.
func (c *Call[A, R]) State() State[R] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Watch registers fn for every state transition.
func (c *Call[A, R]) Watch(fn func(State[R])) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.watchers[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.watchers, id)
	}
}

// Cancel drops the pending call and cancels the in-flight one. Returns
// whether anything was cancelled. A cancelled in-flight request moves the
// state to StatusCancelled.
func (c *Call[A, R]) Cancel() bool {
	pending := c.trigger.Cancel()

	c.mu.Lock()
	req := c.displaceLocked(ErrCancelled)
	if req == nil {
		c.mu.Unlock()
		return pending
	}
	st := State[R]{Status: StatusCancelled, Result: c.state.Result, Err: ErrCancelled, Generation: req.gen}
	watchers := c.setLocked(st)
	c.mu.Unlock()

	notify(watchers, st)
	return true
}

// Reset cancels everything and returns the state to idle with no result.
func (c *Call[A, R]) Reset() {
	c.trigger.Cancel()

	c.mu.Lock()
	c.displaceLocked(ErrCancelled)
	st := State[R]{Status: StatusIdle, Generation: c.seq.Current()}
	watchers := c.setLocked(st)
	c.mu.Unlock()

	notify(watchers, st)
}

// Close cancels everything. Later calls are ignored and Run returns
// ErrClosed.
func (c *Call[A, R]) Close() {
	c.trigger.Close()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.displaceLocked(ErrCancelled)
	c.closed = true
	c.watchers = make(map[int]func(State[R]))
}

func (c *Call[A, R]) issueAsync(arg A) {
	req, ctx, err := c.issue(context.Background())
	if err != nil {
		return
	}
	go func() {
		_, _ = c.execute(ctx, req, arg)
	}()
}

// issue supersedes the in-flight request and starts a new generation.
func (c *Call[A, R]) issue(parent context.Context) (*request, context.Context, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, nil, ErrClosed
	}
	c.displaceLocked(ErrSuperseded)
	ctx, cancel := context.WithCancel(parent)
	req := &request{gen: c.seq.Next(), cancel: cancel}
	c.inflight = req
	st := State[R]{Status: StatusLoading, Result: c.state.Result, Generation: req.gen}
	watchers := c.setLocked(st)
	c.mu.Unlock()

	notify(watchers, st)
	return req, ctx, nil
}

func (c *Call[A, R]) execute(ctx context.Context, req *request, arg A) (R, error) {
	result, err := c.fn(ctx, arg)
	var zero R

	c.mu.Lock()
	if c.inflight != req || !c.seq.IsCurrent(req.gen) {
		reason := req.reason
		c.mu.Unlock()
		if reason == nil {
			reason = ErrSuperseded
		}
		if reason == ErrSuperseded {
			c.log.Debug("debounce: dropped stale result", "stream", c.name, "generation", req.gen)
			if c.obs != nil {
				c.obs.ObserveStale(c.name)
			}
		}
		return zero, reason
	}
	c.inflight = nil
	ctxErr := ctx.Err()
	req.cancel()

	var st State[R]
	switch {
	case err == nil:
		st = State[R]{Status: StatusSuccess, Result: result, Generation: req.gen}
	case ctxErr != nil:
		// The caller's context ended the request.
		err = ErrCancelled
		st = State[R]{Status: StatusCancelled, Result: c.state.Result, Err: err, Generation: req.gen}
		result = zero
	default:
		st = State[R]{Status: StatusFailed, Result: c.state.Result, Err: err, Generation: req.gen}
		result = zero
	}
	watchers := c.setLocked(st)
	c.mu.Unlock()

	notify(watchers, st)
	return result, err
}

// displaceLocked cancels the in-flight request, if any, and invalidates
// its generation.
func (c *Call[A, R]) displaceLocked(reason error) *request {
	req := c.inflight
	if req == nil {
		return nil
	}
	req.reason = reason
	req.cancel()
	c.inflight = nil
	c.seq.Next()
	return req
}

func (c *Call[A, R]) setLocked(st State[R]) []func(State[R]) {
	c.state = st
	ids := make([]int, 0, len(c.watchers))
	for id := range c.watchers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]func(State[R]), 0, len(ids))
	for _, id := range ids {
		out = append(out, c.watchers[id])
	}
	return out
}

func notify[S any](watchers []func(S), st S) {
	for _, w := range watchers {
		w(st)
	}
}
