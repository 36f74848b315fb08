package kv

import (
	"context"
	"encoding/json"
	"time"
)

// expiringEntry is the stored envelope for values written with a TTL.
type expiringEntry struct {
	Value  json.RawMessage `json:"value"`
	Expiry *int64          `json:"expiry"`
}

// parseExpiring returns the envelope if text carries expiry metadata.
func parseExpiring(text string) (expiringEntry, bool) {
	var e expiringEntry
	if err := json.Unmarshal([]byte(text), &e); err != nil {
		return e, false
	}
	if e.Expiry == nil || e.Value == nil {
		return e, false
	}
	return e, true
}

// SetWithExpiry stores v wrapped with an absolute expiry of now+ttl.
func (s *Store) SetWithExpiry(ctx context.Context, key string, v any, ttl time.Duration) bool {
	raw, err := json.Marshal(v)
	if err != nil {
		s.log.Error("kv: value is not serializable", "key", key, "error", err)
		s.observe("set", false)
		return false
	}
	expiry := s.clock.Now().Add(ttl).UnixMilli()
	return s.Set(ctx, key, expiringEntry{Value: raw, Expiry: &expiry})
}

// LookupWithExpiry returns the wrapped value if present and not expired.
// An expired entry is removed from the backend before returning.
func (s *Store) LookupWithExpiry(ctx context.Context, key string) (Value, bool) {
	text, ok := s.getText(ctx, key)
	if !ok {
		return Value{}, false
	}
	e, ok := parseExpiring(text)
	if !ok {
		return Value{}, false
	}
	if s.clock.Now().UnixMilli() > *e.Expiry {
		s.Remove(ctx, key)
		return Value{}, false
	}
	return Value{Kind: KindJSON, Text: string(e.Value)}, true
}

// GetWithExpiry returns the wrapped value, or def when absent, not an
// expiring entry, or expired.
func (s *Store) GetWithExpiry(ctx context.Context, key string, def any) any {
	v, ok := s.LookupWithExpiry(ctx, key)
	if !ok {
		return def
	}
	return v.Any()
}

// GetWithExpiryAs decodes the wrapped value into T.
func GetWithExpiryAs[T any](ctx context.Context, s *Store, key string, def T) T {
	v, ok := s.LookupWithExpiry(ctx, key)
	if !ok {
		return def
	}
	var out T
	if err := v.Decode(&out); err != nil {
		s.log.Warn("kv: expiring value does not decode", "key", key, "error", err)
		return def
	}
	return out
}

// ClearExpired removes every entry whose expiry has passed and returns how
// many were removed. Entries without expiry metadata are untouched.
func (s *Store) ClearExpired(ctx context.Context) int {
	if !s.available {
		return 0
	}
	keys, err := s.backend.Keys(ctx)
	if err != nil {
		s.log.Error("kv: list keys failed", "error", err)
		return 0
	}
	now := s.clock.Now().UnixMilli()
	removed := 0
	for _, key := range keys {
		text, ok, err := s.backend.GetItem(ctx, key)
		if err != nil || !ok {
			continue
		}
		e, ok := parseExpiring(text)
		if !ok || now <= *e.Expiry {
			continue
		}
		if s.Remove(ctx, key) {
			removed++
		}
	}
	if removed > 0 {
		s.log.Info("kv: cleared expired entries", "count", removed)
	}
	return removed
}
