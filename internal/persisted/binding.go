// Package persisted mirrors a piece of in-memory state to one store key.
//
// A Binding applies local writes synchronously and persists them in the
// same critical section, and applies changes made by other contexts
// (delivered through kv.Storage.Subscribe) by overwriting its state:
// last writer wins, no merge.
//
// Values are treated as immutable. Update functions must return a new
// value rather than mutating the one they are given.
package persisted

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/roach88/chefconnect/internal/kv"
)

// Source says where a new value came from.
type Source int

const (
	// Local changes were made through this Binding.
	Local Source = iota + 1
	// External changes arrived from another context.
	External
)

func (s Source) String() string {
	switch s {
	case Local:
		return "local"
	case External:
		return "external"
	default:
		return "unknown"
	}
}

// Binding holds the current value for one key.
//
// Thread-safety: Binding is safe for concurrent use. Watchers run on the
// goroutine that caused the change, after the lock is released.
type Binding[T any] struct {
	store   kv.Storage
	key     string
	initial T
	log     *slog.Logger

	mu       sync.Mutex
	value    T
	watchers map[int]func(T, Source)
	nextID   int

	unsubscribe func()
}

// Option configures a Binding.
type Option func(*options)

type options struct {
	log *slog.Logger
}

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// Bind loads key from store, falling back to initial, and starts applying
// external changes to it.
func Bind[T any](ctx context.Context, store kv.Storage, key string, initial T, opts ...Option) *Binding[T] {
	o := options{log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	b := &Binding[T]{
		store:    store,
		key:      key,
		initial:  initial,
		log:      o.log,
		value:    kv.GetAs(ctx, store, key, initial),
		watchers: make(map[int]func(T, Source)),
	}
	b.unsubscribe = store.Subscribe(func(c kv.Change) {
		if c.Cleared() || c.Key == key {
			b.ApplyExternal(c)
		}
	})
	return b
}

// Key returns the bound store key.
func (b *Binding[T]) Key() string {
	return b.key
}

// Get returns the current value.
func (b *Binding[T]) Get() T {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.value
}

// Set replaces the value and persists it. The in-memory value is updated
// even when persistence fails; that failure is only logged.
func (b *Binding[T]) Set(ctx context.Context, v T) {
	b.Modify(ctx, func(T) (T, bool) { return v, true })
}

// Update computes the next value from the current one and persists it.
func (b *Binding[T]) Update(ctx context.Context, fn func(prev T) T) T {
	var out T
	b.Modify(ctx, func(prev T) (T, bool) {
		out = fn(prev)
		return out, true
	})
	return out
}

// Modify is Update with an opt-out: when fn reports changed=false nothing
// is written and watchers are not notified. Returns changed.
func (b *Binding[T]) Modify(ctx context.Context, fn func(prev T) (next T, changed bool)) bool {
	b.mu.Lock()
	next, changed := fn(b.value)
	if !changed {
		b.mu.Unlock()
		return false
	}
	b.value = next
	if !b.store.Set(ctx, b.key, next) {
		b.log.Warn("persisted: value kept in memory only", "key", b.key)
	}
	watchers := b.watchersLocked()
	b.mu.Unlock()

	notify(watchers, next, Local)
	return true
}

// Reset restores the initial value and removes the key from the store.
func (b *Binding[T]) Reset(ctx context.Context) {
	b.mu.Lock()
	b.value = b.initial
	b.store.Remove(ctx, b.key)
	watchers := b.watchersLocked()
	b.mu.Unlock()

	notify(watchers, b.initial, Local)
}

// ApplyExternal overwrites the value from a change made elsewhere.
// Removal or a full clear restores the initial value. A change whose
// payload does not decode is logged and ignored.
func (b *Binding[T]) ApplyExternal(c kv.Change) {
	next := b.initial
	if !c.Cleared() && c.NewValue != nil {
		var decoded T
		if err := kv.Classify(*c.NewValue).Decode(&decoded); err != nil {
			b.log.Warn("persisted: ignoring undecodable external change", "key", b.key, "error", err)
			return
		}
		next = decoded
	}

	b.mu.Lock()
	b.value = next
	watchers := b.watchersLocked()
	b.mu.Unlock()

	notify(watchers, next, External)
}

// Watch registers fn to run after every change. Returns a cancel function.
func (b *Binding[T]) Watch(fn func(v T, src Source)) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.watchers[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.watchers, id)
	}
}

// Close stops applying external changes.
func (b *Binding[T]) Close() {
	if b.unsubscribe != nil {
		b.unsubscribe()
	}
}

func (b *Binding[T]) watchersLocked() []func(T, Source) {
	ids := make([]int, 0, len(b.watchers))
	for id := range b.watchers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]func(T, Source), 0, len(ids))
	for _, id := range ids {
		out = append(out, b.watchers[id])
	}
	return out
}

func notify[T any](watchers []func(T, Source), v T, src Source) {
	for _, w := range watchers {
		w(v, src)
	}
}
