package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeClock_NowAdvances(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewFakeClock(start)
	assert.Equal(t, start, c.Now())

	c.Advance(90 * time.Second)
	assert.Equal(t, start.Add(90*time.Second), c.Now())
}

func TestFakeClock_FiresInDeadlineOrder(t *testing.T) {
	c := NewFakeClock(time.Unix(0, 0))
	var order []string
	c.AfterFunc(300*time.Millisecond, func() { order = append(order, "c") })
	c.AfterFunc(100*time.Millisecond, func() { order = append(order, "a") })
	c.AfterFunc(100*time.Millisecond, func() { order = append(order, "b") })

	c.Advance(200 * time.Millisecond)
	assert.Equal(t, []string{"a", "b"}, order)
	assert.Equal(t, 1, c.Pending())

	c.Advance(100 * time.Millisecond)
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, 0, c.Pending())
}

func TestFakeClock_CallbackSeesDeadlineTime(t *testing.T) {
	start := time.Unix(0, 0)
	c := NewFakeClock(start)
	var seen time.Time
	c.AfterFunc(50*time.Millisecond, func() { seen = c.Now() })

	c.Advance(time.Second)
	assert.Equal(t, start.Add(50*time.Millisecond), seen)
	assert.Equal(t, start.Add(time.Second), c.Now())
}

func TestFakeClock_StopPreventsFiring(t *testing.T) {
	c := NewFakeClock(time.Unix(0, 0))
	fired := false
	timer := c.AfterFunc(time.Second, func() { fired = true })

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop(), "second stop reports already stopped")
	c.Advance(2 * time.Second)
	assert.False(t, fired)
}

func TestFakeClock_TimerScheduledByCallback(t *testing.T) {
	c := NewFakeClock(time.Unix(0, 0))
	count := 0
	c.AfterFunc(10*time.Millisecond, func() {
		count++
		c.AfterFunc(10*time.Millisecond, func() { count++ })
	})

	c.Advance(20 * time.Millisecond)
	assert.Equal(t, 2, count, "chained timer within the window fires in the same advance")
}

func TestSequentialIDs(t *testing.T) {
	g := NewSequentialIDs("item")
	assert.Equal(t, "item-1", g.Generate())
	assert.Equal(t, "item-2", g.Generate())

	assert.Equal(t, "id-1", NewSequentialIDs("").Generate())
	assert.Equal(t, "x", FixedID("x").Generate())
}
