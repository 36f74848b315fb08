package debounce

import (
	"slices"
	"sync"
	"time"
)

// Value is a value whose settled reading only advances after delay has
// passed without another Set.
type Value[T any] struct {
	f *Func[T]

	mu       sync.Mutex
	settled  T
	latest   T
	watchers map[int]func(T)
	nextID   int
}

// NewValue creates a debounced value starting at initial.
func NewValue[T any](initial T, delay time.Duration, opts ...Option) *Value[T] {
	v := &Value[T]{settled: initial, latest: initial, watchers: make(map[int]func(T))}
	v.f = NewFunc(v.settle, delay, opts...)
	return v
}

// Set records x and restarts the quiet period.
func (v *Value[T]) Set(x T) {
	v.mu.Lock()
	v.latest = x
	v.mu.Unlock()
	v.f.Trigger(x)
}

// Get returns the settled value.
func (v *Value[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.settled
}

// Latest returns the most recently Set value, settled or not.
func (v *Value[T]) Latest() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.latest
}

// OnSettle registers fn to run each time the value settles.
func (v *Value[T]) OnSettle(fn func(T)) (cancel func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	id := v.nextID
	v.nextID++
	v.watchers[id] = fn
	return func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		delete(v.watchers, id)
	}
}

// Flush settles the pending value immediately.
func (v *Value[T]) Flush() bool {
	return v.f.Flush()
}

// Close drops any pending settle.
func (v *Value[T]) Close() {
	v.f.Close()
}

func (v *Value[T]) settle(x T) {
	v.mu.Lock()
	v.settled = x
	ids := make([]int, 0, len(v.watchers))
	for id := range v.watchers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(T), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, v.watchers[id])
	}
	v.mu.Unlock()

	for _, fn := range fns {
		fn(x)
	}
}
