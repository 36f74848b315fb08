package kv

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-process Backend with an optional byte quota.
//
// Several Stores may share one Memory (and one MemoryHub) to model
// independent contexts over the same underlying storage.
type Memory struct {
	mu    sync.RWMutex
	items map[string]string
	limit int64
	used  int64
}

var _ Backend = (*Memory)(nil)

// NewMemory creates an empty backend. limit <= 0 disables the quota.
func NewMemory(limit int64) *Memory {
	return &Memory{items: make(map[string]string), limit: limit}
}

// GetItem returns the value at key.
func (m *Memory) GetItem(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	return v, ok, nil
}

// SetItem stores value, failing with ErrQuotaExceeded if the estimated
// usage would exceed the limit.
func (m *Memory) SetItem(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.used + EntrySize(key, value)
	if old, ok := m.items[key]; ok {
		next -= EntrySize(key, old)
	}
	if m.limit > 0 && next > m.limit {
		return fmt.Errorf("set %q: %w", key, ErrQuotaExceeded)
	}
	m.items[key] = value
	m.used = next
	return nil
}

// RemoveItem deletes key.
func (m *Memory) RemoveItem(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.items[key]; ok {
		m.used -= EntrySize(key, old)
		delete(m.items, key)
	}
	return nil
}

// Clear deletes everything.
func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]string)
	m.used = 0
	return nil
}

// Keys returns all keys in unspecified order.
func (m *Memory) Keys(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	return keys, nil
}

// Used returns the current estimated usage in bytes.
func (m *Memory) Used() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.used
}
