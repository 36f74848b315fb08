package debounce

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chefconnect/internal/testutil"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type firing struct {
	arg int
	at  time.Time
}

type recorder struct {
	mu    sync.Mutex
	clock *testutil.FakeClock
	got   []firing
}

func (r *recorder) fn(arg int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, firing{arg: arg, at: r.clock.Now()})
}

func (r *recorder) firings() []firing {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]firing(nil), r.got...)
}

func TestFunc_CollapsesRapidTriggers(t *testing.T) {
	fc := testutil.NewFakeClock(epoch)
	rec := &recorder{clock: fc}
	f := NewFunc(rec.fn, 100*time.Millisecond, WithClock(fc))
	defer f.Close()

	f.Trigger(1)
	fc.Advance(50 * time.Millisecond)
	f.Trigger(2)
	fc.Advance(40 * time.Millisecond)
	f.Trigger(3)

	fc.Advance(99 * time.Millisecond)
	assert.Empty(t, rec.firings())
	assert.True(t, f.Pending())

	fc.Advance(time.Millisecond)
	got := rec.firings()
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].arg)
	assert.Equal(t, epoch.Add(190*time.Millisecond), got[0].at)
	assert.False(t, f.Pending())

	fc.Advance(time.Second)
	assert.Len(t, rec.firings(), 1)
}

func TestFunc_Cancel(t *testing.T) {
	fc := testutil.NewFakeClock(epoch)
	rec := &recorder{clock: fc}
	f := NewFunc(rec.fn, 100*time.Millisecond, WithClock(fc))

	assert.False(t, f.Cancel())
	f.Trigger(1)
	assert.True(t, f.Cancel())
	fc.Advance(time.Second)

	assert.Empty(t, rec.firings())
	assert.Zero(t, fc.Pending())
}

func TestFunc_CloseDropsPendingAndLaterTriggers(t *testing.T) {
	fc := testutil.NewFakeClock(epoch)
	rec := &recorder{clock: fc}
	f := NewFunc(rec.fn, 100*time.Millisecond, WithClock(fc))

	f.Trigger(1)
	f.Close()
	f.Trigger(2)
	fc.Advance(time.Second)

	assert.Empty(t, rec.firings())
	assert.Zero(t, fc.Pending())
	assert.False(t, f.Flush())
}

func TestFunc_Flush(t *testing.T) {
	fc := testutil.NewFakeClock(epoch)
	rec := &recorder{clock: fc}
	f := NewFunc(rec.fn, 100*time.Millisecond, WithClock(fc))
	defer f.Close()

	f.Trigger(7)
	assert.True(t, f.Flush())
	assert.False(t, f.Flush())
	fc.Advance(time.Second)

	got := rec.firings()
	require.Len(t, got, 1)
	assert.Equal(t, 7, got[0].arg)
	assert.Equal(t, epoch, got[0].at)
}

func TestValue_SettlesAfterQuietPeriod(t *testing.T) {
	fc := testutil.NewFakeClock(epoch)
	v := NewValue("", 300*time.Millisecond, WithClock(fc))
	defer v.Close()

	var settled []string
	v.OnSettle(func(s string) { settled = append(settled, s) })

	v.Set("p")
	fc.Advance(100 * time.Millisecond)
	v.Set("pa")
	fc.Advance(100 * time.Millisecond)
	v.Set("pasta")

	assert.Equal(t, "", v.Get())
	assert.Equal(t, "pasta", v.Latest())

	fc.Advance(300 * time.Millisecond)
	assert.Equal(t, "pasta", v.Get())
	assert.Equal(t, []string{"pasta"}, settled)
}

func TestValue_CancelledWatcher(t *testing.T) {
	fc := testutil.NewFakeClock(epoch)
	v := NewValue(0, time.Millisecond, WithClock(fc))
	defer v.Close()

	calls := 0
	cancel := v.OnSettle(func(int) { calls++ })
	cancel()

	v.Set(1)
	fc.Advance(time.Millisecond)
	assert.Equal(t, 1, v.Get())
	assert.Zero(t, calls)
}
