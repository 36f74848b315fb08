package clock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequence_StartsAtZero(t *testing.T) {
	s := NewSequence()
	assert.Equal(t, int64(0), s.Current())
}

func TestSequence_NewSequenceAt(t *testing.T) {
	s := NewSequenceAt(100)
	assert.Equal(t, int64(100), s.Current())
	assert.Equal(t, int64(101), s.Next())
}

func TestSequence_IsCurrent(t *testing.T) {
	s := NewSequence()
	first := s.Next()
	assert.True(t, s.IsCurrent(first))

	second := s.Next()
	assert.False(t, s.IsCurrent(first), "superseded generation must not be current")
	assert.True(t, s.IsCurrent(second))
}

func TestSequence_ThreadSafe(t *testing.T) {
	s := NewSequence()
	const goroutines = 50
	const calls = 100

	var wg sync.WaitGroup
	seen := make(chan int64, goroutines*calls)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < calls; j++ {
				seen <- s.Next()
			}
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[int64]bool)
	for v := range seen {
		assert.False(t, unique[v], "generation %d issued twice", v)
		unique[v] = true
	}
	assert.Len(t, unique, goroutines*calls)
	assert.Equal(t, int64(goroutines*calls), s.Current())
}
