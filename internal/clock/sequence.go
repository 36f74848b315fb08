package clock

import "sync/atomic"

// Sequence is a monotonic generation counter.
//
// Every issued request is stamped with a strictly increasing number from a
// Sequence, so staleness is judged by issue order rather than by the order
// in which results arrive.
//
// Thread-safety: Sequence is safe for concurrent use (atomic operations).
type Sequence struct {
	seq atomic.Int64
}

// NewSequence creates a sequence starting at 0.
func NewSequence() *Sequence {
	return &Sequence{}
}

// NewSequenceAt creates a sequence starting at a specific number.
// Used to resume numbering, e.g. for ids after loading a seed dataset.
func NewSequenceAt(start int64) *Sequence {
	s := &Sequence{}
	s.seq.Store(start)
	return s
}

// Next returns the next number and advances the sequence.
// Calls are linearizable - each call returns a unique, increasing value.
func (s *Sequence) Next() int64 {
	return s.seq.Add(1)
}

// Current returns the most recently issued number without advancing.
func (s *Sequence) Current() int64 {
	return s.seq.Load()
}

// IsCurrent reports whether gen is the most recently issued number.
func (s *Sequence) IsCurrent(gen int64) bool {
	return s.seq.Load() == gen
}
