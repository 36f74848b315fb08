package kv

import (
	"context"
	"sync"
)

// MemoryHub is an in-process Broadcaster. Each listener gets its own
// unbounded queue drained by a dedicated goroutine, so a slow listener
// never blocks Publish.
type MemoryHub struct {
	mu        sync.Mutex
	listeners map[int]*changeQueue
	next      int
}

var _ Broadcaster = (*MemoryHub)(nil)

// NewMemoryHub creates a hub with no listeners.
func NewMemoryHub() *MemoryHub {
	return &MemoryHub{listeners: make(map[int]*changeQueue)}
}

// Publish enqueues c for every registered listener, including the
// publisher's own; Stores filter their own origin.
func (h *MemoryHub) Publish(_ context.Context, c Change) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, q := range h.listeners {
		q.Enqueue(c)
	}
	return nil
}

// Listen registers fn. Delivery stops when stop is called or ctx is done.
func (h *MemoryHub) Listen(ctx context.Context, fn func(Change)) (func(), error) {
	q := newChangeQueue()

	h.mu.Lock()
	id := h.next
	h.next++
	h.listeners[id] = q
	h.mu.Unlock()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.listeners, id)
			h.mu.Unlock()
			q.Close()
		})
	}

	go func() {
		defer stop()
		for {
			for {
				c, ok := q.TryDequeue()
				if !ok {
					break
				}
				fn(c)
			}
			select {
			case <-ctx.Done():
				return
			case _, open := <-q.Wait():
				if !open {
					return
				}
			}
		}
	}()

	return stop, nil
}

// Listeners returns the number of active listeners.
func (h *MemoryHub) Listeners() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners)
}

// changeQueue is a thread-safe FIFO of changes.
//
// The queue is unbounded so publishers never block on slow listeners.
// A buffered signal channel of size 1 coalesces wakeups for context-aware
// waiting in the drain loop.
type changeQueue struct {
	mu      sync.Mutex
	changes []Change
	closed  bool
	signal  chan struct{}
}

func newChangeQueue() *changeQueue {
	return &changeQueue{
		changes: make([]Change, 0, 16),
		signal:  make(chan struct{}, 1),
	}
}

// Enqueue appends c. Returns false if the queue is closed.
func (q *changeQueue) Enqueue(c Change) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.changes = append(q.changes, c)
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front change without blocking.
func (q *changeQueue) TryDequeue() (Change, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.changes) == 0 {
		return Change{}, false
	}
	c := q.changes[0]
	// Release the pointers held by the slot.
	q.changes[0] = Change{}
	if len(q.changes) == 1 {
		q.changes = q.changes[:0]
	} else {
		q.changes = q.changes[1:]
	}
	return c, true
}

// Wait returns a channel that signals when changes may be available.
// It is closed by Close.
func (q *changeQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued changes.
func (q *changeQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.changes)
}

// Close wakes the drain loop and rejects further enqueues.
func (q *changeQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
