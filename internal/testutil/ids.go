package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates predictable ids: "<prefix>-1", "<prefix>-2", ...
//
// This keeps golden output and assertions stable where production code
// would use ULIDs or UUIDv7.
//
// Thread-safety: SequentialIDs is safe for concurrent use.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDs creates a generator. An empty prefix defaults to "id".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "id"
	}
	return &SequentialIDs{prefix: prefix}
}

// Generate returns the next id.
func (g *SequentialIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// FixedID always returns the same id.
type FixedID string

// Generate returns the fixed id.
func (f FixedID) Generate() string {
	return string(f)
}
