package clock_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chefconnect/internal/clock"
	"github.com/roach88/chefconnect/internal/testutil"
)

func TestSleep_CompletesWhenClockAdvances(t *testing.T) {
	fc := testutil.NewFakeClock(time.Unix(0, 0))
	done := make(chan error, 1)
	go func() { done <- clock.Sleep(context.Background(), fc, 500*time.Millisecond) }()

	require.Eventually(t, func() bool { return fc.Pending() == 1 }, time.Second, time.Millisecond)
	fc.Advance(499 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("sleep returned before its deadline")
	default:
	}
	fc.Advance(time.Millisecond)
	assert.NoError(t, <-done)
}

func TestSleep_CancelledContext(t *testing.T) {
	fc := testutil.NewFakeClock(time.Unix(0, 0))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- clock.Sleep(ctx, fc, time.Second) }()

	require.Eventually(t, func() bool { return fc.Pending() == 1 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, 0, fc.Pending(), "cancelled sleep must stop its timer")
}

func TestSleep_ZeroDuration(t *testing.T) {
	assert.NoError(t, clock.Sleep(context.Background(), clock.Real{}, 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, clock.Sleep(ctx, clock.Real{}, 0), context.Canceled)
}

func TestOr(t *testing.T) {
	assert.IsType(t, clock.Real{}, clock.Or(nil))
	fc := testutil.NewFakeClock(time.Unix(0, 0))
	assert.Same(t, fc, clock.Or(fc))
}
