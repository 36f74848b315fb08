package kv

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/chefconnect/internal/clock"
)

// Observer receives operation outcomes, e.g. for metrics.
type Observer interface {
	ObserveOp(op string, ok bool)
	ObserveQuotaRecovery(purged int, ok bool)
}

// Reader is the read side shared by Store and Scoped.
type Reader interface {
	Lookup(ctx context.Context, key string) (Value, bool)
}

// Storage is the surface persisted bindings are built on.
type Storage interface {
	Reader
	Set(ctx context.Context, key string, v any) bool
	Remove(ctx context.Context, key string) bool
	Subscribe(fn func(Change)) (unsubscribe func())
}

// Store is the key-value store adapter. All methods are total: faults are
// logged and reported through boolean results or defaults.
//
// Thread-safety: Store is safe for concurrent use; consistency of
// individual keys is delegated to the backend.
type Store struct {
	backend     Backend
	broadcaster Broadcaster
	clock       clock.Clock
	log         *slog.Logger
	observer    Observer
	origin      string
	capacity    int64
	available   bool

	mu         sync.Mutex
	subs       map[int]func(Change)
	nextSub    int
	stopListen func()
}

// Option configures a Store.
type Option func(*Store)

// WithBroadcaster enables cross-context change notification.
func WithBroadcaster(b Broadcaster) Option {
	return func(s *Store) { s.broadcaster = b }
}

// WithClock overrides the clock used for expiry.
func WithClock(c clock.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithObserver attaches an operation observer.
func WithObserver(o Observer) Option {
	return func(s *Store) { s.observer = o }
}

// WithOrigin sets the id stamped on published changes. Changes carrying
// this origin are never delivered back to this Store's subscribers.
func WithOrigin(origin string) Option {
	return func(s *Store) { s.origin = origin }
}

// WithCapacity sets the nominal size used by Info.
func WithCapacity(bytes int64) Option {
	return func(s *Store) { s.capacity = bytes }
}

// New wraps backend. A probe write/delete decides once whether the backend
// is usable; when it is not, every operation degrades to its default.
func New(ctx context.Context, backend Backend, opts ...Option) *Store {
	s := &Store{
		backend:  backend,
		clock:    clock.Real{},
		log:      slog.Default(),
		capacity: DefaultCapacity,
		subs:     make(map[int]func(Change)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.origin == "" {
		s.origin = newOrigin()
	}
	s.available = s.probe(ctx)
	return s
}

func newOrigin() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (s *Store) probe(ctx context.Context) bool {
	if s.backend == nil {
		s.log.Warn("kv: no backend configured, persistence disabled")
		return false
	}
	if err := s.backend.SetItem(ctx, probeKey, probeKey); err != nil {
		s.log.Warn("kv: storage unavailable, persistence disabled", "error", err)
		return false
	}
	if err := s.backend.RemoveItem(ctx, probeKey); err != nil {
		s.log.Warn("kv: storage unavailable, persistence disabled", "error", err)
		return false
	}
	return true
}

// Available reports whether the startup probe succeeded.
func (s *Store) Available() bool {
	return s.available
}

// Origin returns the id this Store stamps on its changes.
func (s *Store) Origin() string {
	return s.origin
}

// Lookup returns the classified value stored at key.
func (s *Store) Lookup(ctx context.Context, key string) (Value, bool) {
	text, ok := s.getText(ctx, key)
	if !ok {
		return Value{}, false
	}
	return Classify(text), true
}

// Get returns the decoded value at key, the raw string if it is not JSON,
// or def when absent or on any failure.
func (s *Store) Get(ctx context.Context, key string, def any) any {
	v, ok := s.Lookup(ctx, key)
	if !ok {
		return def
	}
	return v.Any()
}

// GetAs decodes the value at key into T, returning def when the key is
// absent or does not decode.
func GetAs[T any](ctx context.Context, r Reader, key string, def T) T {
	v, ok := r.Lookup(ctx, key)
	if !ok {
		return def
	}
	var out T
	if err := v.Decode(&out); err != nil {
		slog.Warn("kv: stored value does not decode", "key", key, "kind", v.Kind.String(), "error", err)
		return def
	}
	return out
}

// Set serializes v and writes it. Strings are stored unmodified.
// On quota exhaustion expired entries are purged and the write retried once.
func (s *Store) Set(ctx context.Context, key string, v any) bool {
	if !s.available {
		return false
	}
	text, err := Encode(v)
	if err != nil {
		s.log.Error("kv: value is not serializable", "key", key, "error", err)
		s.observe("set", false)
		return false
	}
	return s.writeText(ctx, key, text)
}

// Remove deletes key.
func (s *Store) Remove(ctx context.Context, key string) bool {
	if !s.available {
		return false
	}
	old, had := s.getText(ctx, key)
	if err := s.backend.RemoveItem(ctx, key); err != nil {
		s.log.Error("kv: remove failed", "key", key, "error", err)
		s.observe("remove", false)
		return false
	}
	s.observe("remove", true)
	if had {
		s.publish(ctx, Change{Key: key, OldValue: strPtr(old)})
	}
	return true
}

// Clear deletes every key.
func (s *Store) Clear(ctx context.Context) bool {
	if !s.available {
		return false
	}
	if err := s.backend.Clear(ctx); err != nil {
		s.log.Error("kv: clear failed", "error", err)
		s.observe("clear", false)
		return false
	}
	s.observe("clear", true)
	s.publish(ctx, Change{})
	return true
}

// Exists reports whether key is present.
func (s *Store) Exists(ctx context.Context, key string) bool {
	_, ok := s.getText(ctx, key)
	return ok
}

// Keys returns all keys in sorted order.
func (s *Store) Keys(ctx context.Context) []string {
	if !s.available {
		return nil
	}
	keys, err := s.backend.Keys(ctx)
	if err != nil {
		s.log.Error("kv: list keys failed", "error", err)
		s.observe("keys", false)
		return nil
	}
	keys = slices.DeleteFunc(keys, func(k string) bool { return k == probeKey })
	slices.Sort(keys)
	return keys
}

// GetMultiple reads several keys, substituting def for absent ones.
func (s *Store) GetMultiple(ctx context.Context, keys []string, def any) map[string]any {
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		out[k] = s.Get(ctx, k, def)
	}
	return out
}

// SetMultiple writes every entry, in key order. Returns false if any write failed.
func (s *Store) SetMultiple(ctx context.Context, values map[string]any) bool {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	ok := true
	for _, k := range keys {
		if !s.Set(ctx, k, values[k]) {
			ok = false
		}
	}
	return ok
}

// Subscribe registers fn for changes made by other Stores sharing the
// broadcaster. Changes made through this Store are not delivered.
func (s *Store) Subscribe(fn func(Change)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	if s.broadcaster != nil && s.stopListen == nil {
		ctx, cancel := context.WithCancel(context.Background())
		stop, err := s.broadcaster.Listen(ctx, s.dispatch)
		if err != nil {
			cancel()
			s.log.Warn("kv: change notifications unavailable", "error", err)
		} else {
			s.stopListen = func() {
				stop()
				cancel()
			}
		}
	}

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Close stops change notification delivery.
func (s *Store) Close() {
	s.mu.Lock()
	stop := s.stopListen
	s.stopListen = nil
	s.subs = make(map[int]func(Change))
	s.mu.Unlock()
	if stop != nil {
		stop()
	}
}

func (s *Store) dispatch(c Change) {
	if c.Origin == s.origin {
		return
	}
	s.mu.Lock()
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(Change), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.subs[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}

func (s *Store) getText(ctx context.Context, key string) (string, bool) {
	if !s.available {
		return "", false
	}
	text, ok, err := s.backend.GetItem(ctx, key)
	if err != nil {
		s.log.Error("kv: get failed", "key", key, "error", err)
		s.observe("get", false)
		return "", false
	}
	s.observe("get", true)
	return text, ok
}

func (s *Store) writeText(ctx context.Context, key, text string) bool {
	old, had := s.getText(ctx, key)

	err := s.backend.SetItem(ctx, key, text)
	if errors.Is(err, ErrQuotaExceeded) {
		purged := s.ClearExpired(ctx)
		s.log.Warn("kv: quota exceeded, purged expired entries", "key", key, "purged", purged)
		err = s.backend.SetItem(ctx, key, text)
		if s.observer != nil {
			s.observer.ObserveQuotaRecovery(purged, err == nil)
		}
	}
	if err != nil {
		s.log.Error("kv: set failed", "key", key, "error", err)
		s.observe("set", false)
		return false
	}
	s.observe("set", true)

	c := Change{Key: key, NewValue: strPtr(text)}
	if had {
		c.OldValue = strPtr(old)
	}
	s.publish(ctx, c)
	return true
}

func (s *Store) publish(ctx context.Context, c Change) {
	if s.broadcaster == nil {
		return
	}
	c.Origin = s.origin
	if err := s.broadcaster.Publish(ctx, c); err != nil {
		s.log.Warn("kv: publish change failed", "key", c.Key, "error", err)
	}
}

func (s *Store) observe(op string, ok bool) {
	if s.observer != nil {
		s.observer.ObserveOp(op, ok)
	}
}
