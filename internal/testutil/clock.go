package testutil

import (
	"sync"
	"time"

	"github.com/roach88/chefconnect/internal/clock"
)

// FakeClock is a manually advanced clock for tests.
//
// Timers never fire on their own; Advance moves time forward and runs every
// timer whose deadline has been reached, earliest first, ties in scheduling
// order. Callbacks run on the goroutine calling Advance, outside the lock,
// so they may schedule or stop other timers.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	nextID int64
	timers map[int64]*fakeTimer
}

type fakeTimer struct {
	c  *FakeClock
	id int64
	at time.Time
	f  func()
}

var _ clock.Clock = (*FakeClock)(nil)

// NewFakeClock creates a fake clock reading start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start, timers: make(map[int64]*fakeTimer)}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc schedules f to run once the clock has advanced by d.
func (c *FakeClock) AfterFunc(d time.Duration, f func()) clock.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	t := &fakeTimer{c: c, id: c.nextID, at: c.now.Add(d), f: f}
	c.timers[t.id] = t
	return t
}

// Stop removes the timer if it has not fired yet.
func (t *fakeTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	if _, ok := t.c.timers[t.id]; !ok {
		return false
	}
	delete(t.c.timers, t.id)
	return true
}

// Advance moves the clock forward by d, firing due timers in deadline order.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.earliestLocked(target)
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		delete(c.timers, next.id)
		c.now = next.at
		c.mu.Unlock()

		next.f()
	}
}

// Pending returns the number of scheduled timers that have not fired.
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

func (c *FakeClock) earliestLocked(limit time.Time) *fakeTimer {
	var best *fakeTimer
	for _, t := range c.timers {
		if t.at.After(limit) {
			continue
		}
		if best == nil || t.at.Before(best.at) || (t.at.Equal(best.at) && t.id < best.id) {
			best = t
		}
	}
	return best
}
