package debounce

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chefconnect/internal/testutil"
)

const delay = 100 * time.Millisecond

// gatedFn returns an AsyncFunc whose call for n blocks until gate(n) is
// closed. When honourCtx is false the call ignores cancellation, like a
// server that answers anyway.
type gatedFn struct {
	mu        sync.Mutex
	gates     map[int]chan struct{}
	started   chan int
	honourCtx bool
	fail      map[int]error
}

func newGated(honourCtx bool) *gatedFn {
	return &gatedFn{
		gates:     make(map[int]chan struct{}),
		started:   make(chan int, 16),
		honourCtx: honourCtx,
		fail:      make(map[int]error),
	}
}

func (g *gatedFn) gate(n int) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[n]
	if !ok {
		ch = make(chan struct{})
		g.gates[n] = ch
	}
	return ch
}

func (g *gatedFn) release(n int) {
	close(g.gate(n))
}

func (g *gatedFn) call(ctx context.Context, n int) (int, error) {
	gate := g.gate(n)
	g.started <- n
	if g.honourCtx {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-gate:
		}
	} else {
		<-gate
	}
	g.mu.Lock()
	err := g.fail[n]
	g.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return n * 10, nil
}

func (g *gatedFn) awaitStart(t *testing.T) int {
	t.Helper()
	select {
	case n := <-g.started:
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("call never started")
		return 0
	}
}

type staleObserver struct {
	ch chan string
}

func (o *staleObserver) ObserveStale(stream string) {
	o.ch <- stream
}

// states records every transition of a Call.
func watchStates[R any](c *Call[int, R]) chan State[R] {
	ch := make(chan State[R], 64)
	c.Watch(func(s State[R]) { ch <- s })
	return ch
}

func awaitState[R any](t *testing.T, ch chan State[R], want Status) State[R] {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case s := <-ch:
			if s.Status == want {
				return s
			}
		case <-timeout:
			t.Fatalf("never reached %s", want)
		}
	}
}

func TestCall_StaleResultNeverApplied(t *testing.T) {
	fc := testutil.NewFakeClock(epoch)
	g := newGated(false)
	obs := &staleObserver{ch: make(chan string, 4)}
	c := NewCall(g.call, delay, WithClock(fc), WithObserver(obs), WithName("recipes"), WithLogger(quiet()))
	defer c.Close()
	states := watchStates(c)

	// A is issued at t=100ms, B at t=250ms; B resolves first.
	c.Call(1)
	fc.Advance(delay)
	require.Equal(t, 1, g.awaitStart(t))
	first := awaitState(t, states, StatusLoading)

	fc.Advance(50 * time.Millisecond)
	c.Call(2)
	fc.Advance(delay)
	require.Equal(t, 2, g.awaitStart(t))
	second := awaitState(t, states, StatusLoading)
	assert.Greater(t, second.Generation, first.Generation)

	g.release(2)
	done := awaitState(t, states, StatusSuccess)
	assert.Equal(t, 20, done.Result)

	g.release(1)
	select {
	case stream := <-obs.ch:
		assert.Equal(t, "recipes", stream)
	case <-time.After(2 * time.Second):
		t.Fatal("stale result was not reported")
	}

	st := c.State()
	assert.Equal(t, StatusSuccess, st.Status)
	assert.Equal(t, 20, st.Result)
	assert.Equal(t, second.Generation, st.Generation)
}

func TestCall_DebouncedCallsCollapse(t *testing.T) {
	fc := testutil.NewFakeClock(epoch)
	g := newGated(true)
	c := NewCall(g.call, delay, WithClock(fc))
	defer c.Close()

	c.Call(1)
	fc.Advance(50 * time.Millisecond)
	c.Call(2)
	fc.Advance(40 * time.Millisecond)
	c.Call(3)
	fc.Advance(delay)

	assert.Equal(t, 3, g.awaitStart(t))
	select {
	case n := <-g.started:
		t.Fatalf("unexpected call for %d", n)
	default:
	}
}

func TestCall_RunSuperseded(t *testing.T) {
	g := newGated(false)
	c := NewCall(g.call, delay, WithLogger(quiet()))
	defer c.Close()

	type outcome struct {
		v   int
		err error
	}
	firstDone := make(chan outcome, 1)
	go func() {
		v, err := c.Run(context.Background(), 1)
		firstDone <- outcome{v, err}
	}()
	g.awaitStart(t)

	secondDone := make(chan outcome, 1)
	go func() {
		v, err := c.Run(context.Background(), 2)
		secondDone <- outcome{v, err}
	}()
	g.awaitStart(t)

	g.release(2)
	second := <-secondDone
	require.NoError(t, second.err)
	assert.Equal(t, 20, second.v)

	g.release(1)
	first := <-firstDone
	assert.ErrorIs(t, first.err, ErrSuperseded)
	assert.True(t, IsCancelled(first.err))
	assert.Equal(t, 20, c.State().Result)
}

func TestCall_CancelInFlightIsDistinctFromFailure(t *testing.T) {
	g := newGated(true)
	c := NewCall(g.call, delay)
	defer c.Close()
	states := watchStates(c)

	done := make(chan error, 1)
	go func() {
		_, err := c.Run(context.Background(), 1)
		done <- err
	}()
	g.awaitStart(t)

	assert.True(t, c.Cancel())
	st := awaitState(t, states, StatusCancelled)
	assert.ErrorIs(t, st.Err, ErrCancelled)

	err := <-done
	assert.ErrorIs(t, err, ErrCancelled)
	assert.NotErrorIs(t, err, ErrSuperseded)
	assert.Equal(t, StatusCancelled, c.State().Status)
}

func TestCall_CallerContextCancellation(t *testing.T) {
	g := newGated(true)
	c := NewCall(g.call, delay)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Run(ctx, 1)
		done <- err
	}()
	g.awaitStart(t)
	cancel()

	assert.ErrorIs(t, <-done, ErrCancelled)
	assert.Equal(t, StatusCancelled, c.State().Status)
}

func TestCall_FailureKeepsLastResult(t *testing.T) {
	g := newGated(true)
	boom := errors.New("boom")
	g.fail[2] = boom
	g.release(1)
	g.release(2)
	c := NewCall(g.call, delay)
	defer c.Close()

	v, err := c.Run(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 10, v)

	_, err = c.Run(context.Background(), 2)
	assert.ErrorIs(t, err, boom)
	assert.False(t, IsCancelled(err))

	st := c.State()
	assert.Equal(t, StatusFailed, st.Status)
	assert.Equal(t, 10, st.Result)
}

func TestCall_CancelPendingAndReset(t *testing.T) {
	fc := testutil.NewFakeClock(epoch)
	g := newGated(true)
	g.release(1)
	c := NewCall(g.call, delay, WithClock(fc))
	defer c.Close()

	assert.False(t, c.Cancel())
	c.Call(1)
	assert.True(t, c.Cancel())
	fc.Advance(time.Second)
	assert.Zero(t, fc.Pending())
	assert.Equal(t, StatusIdle, c.State().Status)

	_, err := c.Run(context.Background(), 1)
	require.NoError(t, err)
	c.Reset()
	st := c.State()
	assert.Equal(t, StatusIdle, st.Status)
	assert.Zero(t, st.Result)
}

func TestCall_Closed(t *testing.T) {
	fc := testutil.NewFakeClock(epoch)
	g := newGated(true)
	c := NewCall(g.call, delay, WithClock(fc))
	c.Call(1)
	c.Close()
	fc.Advance(time.Second)

	_, err := c.Run(context.Background(), 1)
	assert.ErrorIs(t, err, ErrClosed)
	select {
	case n := <-g.started:
		t.Fatalf("unexpected call for %d", n)
	default:
	}
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "cancelled", StatusCancelled.String())
	assert.Equal(t, "Status(42)", Status(42).String())
}

func TestCall_SettleFlushesPendingAndWaits(t *testing.T) {
	fc := testutil.NewFakeClock(epoch)
	g := newGated(true)
	c := NewCall(g.call, delay, WithClock(fc))
	defer c.Close()

	c.Call(4)
	done := make(chan State[int], 1)
	go func() {
		st, err := c.Settle(context.Background())
		assert.NoError(t, err)
		done <- st
	}()

	require.Equal(t, 4, g.awaitStart(t))
	g.release(4)
	select {
	case st := <-done:
		assert.Equal(t, StatusSuccess, st.Status)
		assert.Equal(t, 40, st.Result)
	case <-time.After(2 * time.Second):
		t.Fatal("settle never returned")
	}
	assert.Equal(t, 0, fc.Pending())
}

func TestCall_SettleIdle(t *testing.T) {
	c := NewCall(newGated(true).call, delay, WithClock(testutil.NewFakeClock(epoch)))
	defer c.Close()

	st, err := c.Settle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusIdle, st.Status)
}

func TestCall_SettleHonoursContext(t *testing.T) {
	g := newGated(false)
	c := NewCall(g.call, delay, WithClock(testutil.NewFakeClock(epoch)))
	defer c.Close()
	defer g.release(1)

	c.Call(1)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		g.awaitStart(t)
		cancel()
	}()
	st, err := c.Settle(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, st.Loading())
}
