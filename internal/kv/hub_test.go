package kv

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSharedStores(t *testing.T) (a, b *Store, hub *MemoryHub) {
	t.Helper()
	ctx := context.Background()
	mem := NewMemory(0)
	hub = NewMemoryHub()
	a = New(ctx, mem, WithBroadcaster(hub), WithOrigin("tab-a"), WithLogger(quietLogger()))
	b = New(ctx, mem, WithBroadcaster(hub), WithOrigin("tab-b"), WithLogger(quietLogger()))
	t.Cleanup(a.Close)
	t.Cleanup(b.Close)
	return a, b, hub
}

func TestSubscribe_DeliversOtherContextChanges(t *testing.T) {
	ctx := context.Background()
	a, b, _ := newSharedStores(t)

	var got collector
	b.Subscribe(got.add)

	require.True(t, a.Set(ctx, "theme", "dark"))
	require.True(t, a.Set(ctx, "theme", "light"))
	require.True(t, a.Remove(ctx, "theme"))

	require.Eventually(t, func() bool { return len(got.snapshot()) == 3 }, time.Second, time.Millisecond)
	changes := got.snapshot()

	assert.Equal(t, "theme", changes[0].Key)
	assert.Nil(t, changes[0].OldValue)
	assert.Equal(t, "dark", *changes[0].NewValue)
	assert.Equal(t, "dark", *changes[1].OldValue)
	assert.Equal(t, "light", *changes[1].NewValue)
	assert.Equal(t, "light", *changes[2].OldValue)
	assert.Nil(t, changes[2].NewValue)
	for _, c := range changes {
		assert.Equal(t, "tab-a", c.Origin)
	}
}

func TestSubscribe_NoSelfNotification(t *testing.T) {
	ctx := context.Background()
	a, b, _ := newSharedStores(t)

	var own, other collector
	a.Subscribe(own.add)
	b.Subscribe(other.add)

	require.True(t, a.Set(ctx, "k", 1))
	require.Eventually(t, func() bool { return len(other.snapshot()) == 1 }, time.Second, time.Millisecond)
	assert.Empty(t, own.snapshot())
}

func TestSubscribe_ClearIsBroadcast(t *testing.T) {
	ctx := context.Background()
	a, b, _ := newSharedStores(t)

	var got collector
	b.Subscribe(got.add)
	require.True(t, a.Clear(ctx))

	require.Eventually(t, func() bool { return len(got.snapshot()) == 1 }, time.Second, time.Millisecond)
	assert.True(t, got.snapshot()[0].Cleared())
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	ctx := context.Background()
	a, b, _ := newSharedStores(t)

	var first, second collector
	unsub := b.Subscribe(first.add)
	b.Subscribe(second.add)
	unsub()

	require.True(t, a.Set(ctx, "k", 1))
	require.Eventually(t, func() bool { return len(second.snapshot()) == 1 }, time.Second, time.Millisecond)
	assert.Empty(t, first.snapshot())
}

func TestScoped_SubscribeFiltersNamespace(t *testing.T) {
	ctx := context.Background()
	a, b, _ := newSharedStores(t)

	var got collector
	b.Namespace("cart").Subscribe(got.add)

	require.True(t, a.Set(ctx, "other", 1))
	require.True(t, a.Namespace("cart").Set(ctx, "items", 2))

	require.Eventually(t, func() bool { return len(got.snapshot()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, "items", got.snapshot()[0].Key)
}

func TestMemoryHub_CloseStopsListener(t *testing.T) {
	a, _, hub := newSharedStores(t)
	a.Subscribe(func(Change) {})
	require.Equal(t, 1, hub.Listeners())

	a.Close()
	assert.Eventually(t, func() bool { return hub.Listeners() == 0 }, time.Second, time.Millisecond)
}

func TestChangeQueue_FIFO(t *testing.T) {
	q := newChangeQueue()
	assert.True(t, q.Enqueue(Change{Key: "a"}))
	assert.True(t, q.Enqueue(Change{Key: "b"}))
	assert.Equal(t, 2, q.Len())

	c, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, "a", c.Key)
	c, ok = q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, "b", c.Key)
	_, ok = q.TryDequeue()
	assert.False(t, ok)
	<-q.Wait()

	q.Close()
	assert.False(t, q.Enqueue(Change{Key: "c"}))
	_, open := <-q.Wait()
	assert.False(t, open)
}
