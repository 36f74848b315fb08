package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chefconnect/internal/kv"
)

func TestChanges_CrossProcessNotification(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shared.db")
	opts := Options{PollInterval: 5 * time.Millisecond}

	dbA, err := Open(path, opts)
	require.NoError(t, err)
	defer dbA.Close()
	dbB, err := Open(path, opts)
	require.NoError(t, err)
	defer dbB.Close()

	a := kv.New(ctx, dbA, kv.WithBroadcaster(dbA), kv.WithOrigin("proc-a"))
	b := kv.New(ctx, dbB, kv.WithBroadcaster(dbB), kv.WithOrigin("proc-b"))
	defer a.Close()
	defer b.Close()

	var (
		mu  sync.Mutex
		got []kv.Change
	)
	b.Subscribe(func(c kv.Change) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, c)
	})

	require.True(t, a.Set(ctx, kv.KeyTheme, "dark"))
	require.True(t, b.Set(ctx, kv.KeyTheme, "light"))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, kv.KeyTheme, got[0].Key)
	assert.Equal(t, "dark", *got[0].NewValue)
	assert.Equal(t, "proc-a", got[0].Origin)
	assert.Equal(t, "dark", kv.GetAs(ctx, b, kv.KeyTheme, ""), "both processes see the same items")
}

func TestChanges_PruneKeepsTail(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, Options{ChangeLogMax: 3})

	for i := 0; i < 10; i++ {
		v := "v"
		require.NoError(t, s.Publish(ctx, kv.Change{Key: "k", NewValue: &v, Origin: "o"}))
	}

	var count, minSeq int64
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*), MIN(seq) FROM changes`).Scan(&count, &minSeq))
	assert.Equal(t, int64(3), count)
	assert.Equal(t, int64(8), minSeq)
}

func TestChanges_ListenStartsAtCurrentTail(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, Options{PollInterval: 5 * time.Millisecond})
	require.NoError(t, s.Publish(ctx, kv.Change{Key: "before", Origin: "o"}))

	var (
		mu   sync.Mutex
		keys []string
	)
	stop, err := s.Listen(ctx, func(c kv.Change) {
		mu.Lock()
		defer mu.Unlock()
		keys = append(keys, c.Key)
	})
	require.NoError(t, err)
	defer stop()

	require.NoError(t, s.Publish(ctx, kv.Change{Key: "after", Origin: "o"}))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(keys) == 1
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"after"}, keys)
}
