package userdata

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/roach88/chefconnect/internal/kv"
	"github.com/roach88/chefconnect/internal/testutil"
)

var epoch = time.Date(2024, 3, 4, 18, 30, 0, 0, time.UTC)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	store *kv.Store
	clock *testutil.FakeClock
	opts  Options
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := kv.New(context.Background(), kv.NewMemory(0), kv.WithLogger(quiet()))
	t.Cleanup(s.Close)
	fc := testutil.NewFakeClock(epoch)
	return &fixture{
		store: s,
		clock: fc,
		opts:  Options{Clock: fc, IDs: testutil.NewSequentialIDs("item"), Logger: quiet()},
	}
}

func (f *fixture) open(t *testing.T) *Collections {
	t.Helper()
	c := Open(context.Background(), f.store, f.opts)
	t.Cleanup(c.Close)
	return c
}
