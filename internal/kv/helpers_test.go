package kv

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/roach88/chefconnect/internal/testutil"
)

var epoch = time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestStore creates a store over a fresh Memory backend.
func newTestStore(t *testing.T, opts ...Option) (*Store, *Memory, *testutil.FakeClock) {
	t.Helper()
	mem := NewMemory(0)
	fc := testutil.NewFakeClock(epoch)
	opts = append([]Option{WithClock(fc), WithLogger(quietLogger())}, opts...)
	s := New(context.Background(), mem, opts...)
	t.Cleanup(s.Close)
	return s, mem, fc
}

// brokenBackend fails every operation.
type brokenBackend struct{}

var errBroken = errors.New("disk on fire")

func (brokenBackend) GetItem(context.Context, string) (string, bool, error) {
	return "", false, errBroken
}
func (brokenBackend) SetItem(context.Context, string, string) error { return errBroken }
func (brokenBackend) RemoveItem(context.Context, string) error      { return errBroken }
func (brokenBackend) Clear(context.Context) error                   { return errBroken }
func (brokenBackend) Keys(context.Context) ([]string, error)        { return nil, errBroken }

// flakyBackend wraps Memory and fails writes to selected keys.
type flakyBackend struct {
	*Memory
	failKeys map[string]bool
}

func (f *flakyBackend) SetItem(ctx context.Context, key, value string) error {
	if f.failKeys[key] {
		return errBroken
	}
	return f.Memory.SetItem(ctx, key, value)
}

// recordingObserver captures observer callbacks.
type recordingObserver struct {
	mu         sync.Mutex
	ops        map[string]int
	recoveries []bool
}

func (r *recordingObserver) ObserveOp(op string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ops == nil {
		r.ops = make(map[string]int)
	}
	if ok {
		r.ops[op+":ok"]++
	} else {
		r.ops[op+":fail"]++
	}
}

func (r *recordingObserver) ObserveQuotaRecovery(_ int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recoveries = append(r.recoveries, ok)
}

// collector gathers changes delivered to a subscriber.
type collector struct {
	mu      sync.Mutex
	changes []Change
}

func (c *collector) add(ch Change) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.changes = append(c.changes, ch)
}

func (c *collector) snapshot() []Change {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Change(nil), c.changes...)
}
