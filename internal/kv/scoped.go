package kv

import (
	"context"
	"strings"
	"time"
)

// Scoped is a view of a Store whose keys are implicitly prefixed with
// "<prefix>_".
type Scoped struct {
	store  *Store
	prefix string
}

var _ Storage = (*Scoped)(nil)

// Namespace returns a view that prepends prefix+"_" to every key.
func (s *Store) Namespace(prefix string) *Scoped {
	return &Scoped{store: s, prefix: prefix + "_"}
}

func (n *Scoped) key(k string) string {
	return n.prefix + k
}

// Lookup returns the classified value for the scoped key.
func (n *Scoped) Lookup(ctx context.Context, key string) (Value, bool) {
	return n.store.Lookup(ctx, n.key(key))
}

// Get returns the decoded value for the scoped key, or def.
func (n *Scoped) Get(ctx context.Context, key string, def any) any {
	return n.store.Get(ctx, n.key(key), def)
}

// Set writes the scoped key.
func (n *Scoped) Set(ctx context.Context, key string, v any) bool {
	return n.store.Set(ctx, n.key(key), v)
}

// SetWithExpiry writes the scoped key with a TTL.
func (n *Scoped) SetWithExpiry(ctx context.Context, key string, v any, ttl time.Duration) bool {
	return n.store.SetWithExpiry(ctx, n.key(key), v, ttl)
}

// GetWithExpiry reads an expiring scoped key.
func (n *Scoped) GetWithExpiry(ctx context.Context, key string, def any) any {
	return n.store.GetWithExpiry(ctx, n.key(key), def)
}

// Remove deletes the scoped key.
func (n *Scoped) Remove(ctx context.Context, key string) bool {
	return n.store.Remove(ctx, n.key(key))
}

// Exists reports whether the scoped key is present.
func (n *Scoped) Exists(ctx context.Context, key string) bool {
	return n.store.Exists(ctx, n.key(key))
}

// Keys returns the keys inside the namespace with the prefix stripped.
func (n *Scoped) Keys(ctx context.Context) []string {
	var out []string
	for _, k := range n.store.Keys(ctx) {
		if rest, ok := strings.CutPrefix(k, n.prefix); ok {
			out = append(out, rest)
		}
	}
	return out
}

// Clear removes only the keys inside the namespace.
func (n *Scoped) Clear(ctx context.Context) bool {
	ok := true
	for _, k := range n.Keys(ctx) {
		if !n.Remove(ctx, k) {
			ok = false
		}
	}
	return ok
}

// Subscribe delivers external changes to keys inside the namespace, with
// the prefix stripped. A full clear is delivered with an empty key.
func (n *Scoped) Subscribe(fn func(Change)) (unsubscribe func()) {
	return n.store.Subscribe(func(c Change) {
		if c.Cleared() {
			fn(c)
			return
		}
		rest, ok := strings.CutPrefix(c.Key, n.prefix)
		if !ok {
			return
		}
		c.Key = rest
		fn(c)
	})
}
