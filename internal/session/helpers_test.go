package session

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/roach88/chefconnect/internal/kv"
	"github.com/roach88/chefconnect/internal/testutil"
)

var epoch = time.Date(2024, 2, 10, 8, 0, 0, 0, time.UTC)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type harness struct {
	t     *testing.T
	store *kv.Store
	fc    *testutil.FakeClock
	ids   *testutil.SequentialIDs
	obs   *transitions
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	s := kv.New(context.Background(), kv.NewMemory(0), kv.WithLogger(quiet()))
	t.Cleanup(s.Close)
	return &harness{
		t:     t,
		store: s,
		fc:    testutil.NewFakeClock(epoch),
		ids:   testutil.NewSequentialIDs("user"),
		obs:   &transitions{},
	}
}

func (h *harness) options() Options {
	return Options{
		Clock:      h.fc,
		Logger:     quiet(),
		Secret:     []byte("test-secret"),
		BcryptCost: bcrypt.MinCost,
		IDs:        h.ids,
		Observer:   h.obs,
	}
}

func (h *harness) manager(store kv.Storage) *Manager {
	h.t.Helper()
	m := New(context.Background(), store, h.options())
	h.t.Cleanup(m.Close)
	return m
}

// await runs fn on another goroutine and advances the fake clock whenever
// fn is waiting on a timer.
func await[T any](h *harness, fn func() T) T {
	h.t.Helper()
	done := make(chan T, 1)
	go func() { done <- fn() }()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case v := <-done:
			return v
		case <-deadline:
			h.t.Fatal("call never returned")
		default:
			if h.fc.Pending() > 0 {
				h.fc.Advance(time.Second)
			} else {
				time.Sleep(time.Millisecond)
			}
		}
	}
}

// waitPending blocks until something sleeps on the fake clock.
func (h *harness) waitPending() {
	h.t.Helper()
	h.waitTimers(1)
}

// waitTimers blocks until n timers are scheduled on the fake clock.
func (h *harness) waitTimers(n int) {
	h.t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for h.fc.Pending() < n {
		if time.Now().After(deadline) {
			h.t.Fatalf("never reached %d waiting timers", n)
		}
		time.Sleep(time.Millisecond)
	}
}

type transitions struct {
	mu  sync.Mutex
	got [][2]State
}

func (r *transitions) ObserveTransition(from, to State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, [2]State{from, to})
}

func (r *transitions) all() [][2]State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][2]State(nil), r.got...)
}
