package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackup_Format(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)
	require.True(t, s.Set(ctx, "b", map[string]any{"n": 1}))
	require.True(t, s.Set(ctx, "a", "plain text"))

	assert.JSONEq(t, `{"a":"plain text","b":{"n":1}}`, s.Backup(ctx))
}

func TestBackup_RestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	src, _, _ := newTestStore(t)
	require.True(t, src.Set(ctx, "favorites", []string{"1", "2"}))
	require.True(t, src.Set(ctx, "token", "mock-jwt-token-5"))
	backup := src.Backup(ctx)

	dst, _, _ := newTestStore(t)
	require.True(t, dst.Set(ctx, "stale", true))
	require.True(t, dst.Restore(ctx, backup, true))

	assert.Equal(t, []string{"favorites", "token"}, dst.Keys(ctx))
	assert.Equal(t, []string{"1", "2"}, GetAs(ctx, dst, "favorites", []string(nil)))
	v, _ := dst.Lookup(ctx, "token")
	assert.Equal(t, Value{Kind: KindRaw, Text: "mock-jwt-token-5"}, v)
}

func TestRestore_MergeKeepsExisting(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)
	require.True(t, s.Set(ctx, "keep", 1))

	require.True(t, s.Restore(ctx, `{"new":2}`, false))
	assert.Equal(t, []string{"keep", "new"}, s.Keys(ctx))
}

func TestRestore_ParseFailureWritesNothing(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)
	require.True(t, s.Set(ctx, "keep", 1))

	assert.False(t, s.Restore(ctx, `{"a":1,`, true))
	assert.Equal(t, []string{"keep"}, s.Keys(ctx), "clearFirst must not run when parsing fails")
}

func TestRestore_PartialFailureIsNotRolledBack(t *testing.T) {
	ctx := context.Background()
	flaky := &flakyBackend{Memory: NewMemory(0), failKeys: map[string]bool{"b": true}}
	s := New(ctx, flaky, WithLogger(quietLogger()))

	assert.False(t, s.Restore(ctx, `{"a":1,"b":2,"c":3}`, false))
	assert.Equal(t, []string{"a", "c"}, s.Keys(ctx))
}
