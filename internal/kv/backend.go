package kv

import (
	"context"
	"errors"
	"unicode/utf16"
)

// ErrQuotaExceeded is wrapped by backends when a write would exceed capacity.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// ErrUnavailable is wrapped by backends that cannot be reached at all.
var ErrUnavailable = errors.New("storage unavailable")

// Backend is the underlying flat key-value store.
type Backend interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Keys(ctx context.Context) ([]string, error)
}

// Change describes a write made by some Store.
//
// Key is empty when the whole store was cleared. OldValue/NewValue are nil
// when the key was absent before/after the change.
type Change struct {
	Key      string  `json:"key"`
	OldValue *string `json:"oldValue,omitempty"`
	NewValue *string `json:"newValue,omitempty"`
	Origin   string  `json:"origin"`
}

// Cleared reports whether the change represents a full clear.
func (c Change) Cleared() bool {
	return c.Key == ""
}

// Broadcaster carries changes between contexts sharing one backend.
//
// Listen registers fn and returns once the registration is active, so any
// Publish that happens after Listen returns is delivered. Delivery is
// asynchronous. The returned stop function unregisters fn; it is also
// unregistered when ctx is done.
type Broadcaster interface {
	Publish(ctx context.Context, c Change) error
	Listen(ctx context.Context, fn func(Change)) (stop func(), err error)
}

// EntrySize estimates the bytes an entry occupies, counting UTF-16 code
// units at two bytes each for both key and value.
func EntrySize(key, value string) int64 {
	return int64(2 * (utf16Len(key) + utf16Len(value)))
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

func strPtr(s string) *string {
	return &s
}
