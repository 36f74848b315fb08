package kv

import (
	"context"
	"encoding/json"
	"slices"
)

// Backup exports every entry as a JSON object. JSON values are embedded
// as-is and raw values as JSON strings. Returns "" on failure.
func (s *Store) Backup(ctx context.Context) string {
	data := make(map[string]json.RawMessage)
	for _, key := range s.Keys(ctx) {
		v, ok := s.Lookup(ctx, key)
		if !ok {
			continue
		}
		if v.Kind == KindJSON {
			data[key] = json.RawMessage(v.Text)
			continue
		}
		quoted, err := json.Marshal(v.Text)
		if err != nil {
			continue
		}
		data[key] = quoted
	}
	out, err := json.Marshal(data)
	if err != nil {
		s.log.Error("kv: backup failed", "error", err)
		return ""
	}
	return string(out)
}

// Restore imports a Backup. The input is parsed before anything is
// written, so malformed input changes nothing. Writes are best-effort:
// a failure partway through is logged, later keys are still attempted,
// and nothing is rolled back. Returns true only if every write succeeded.
func (s *Store) Restore(ctx context.Context, backup string, clearFirst bool) bool {
	var data map[string]json.RawMessage
	if err := json.Unmarshal([]byte(backup), &data); err != nil {
		s.log.Error("kv: restore input is not a backup", "error", err)
		return false
	}
	if !s.available {
		return false
	}
	if clearFirst && !s.Clear(ctx) {
		return false
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	ok := true
	for _, key := range keys {
		raw := data[key]
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			text = string(raw)
		}
		if !s.writeText(ctx, key, text) {
			ok = false
		}
	}
	return ok
}

// Info summarises estimated storage usage.
type Info struct {
	Used      int64   `json:"used"`
	Capacity  int64   `json:"capacity"`
	Available int64   `json:"available"`
	Percent   float64 `json:"percentage"`
	Keys      int     `json:"keys"`
}

// Info estimates usage as two bytes per UTF-16 code unit of every key and
// value, against the nominal capacity.
func (s *Store) Info(ctx context.Context) Info {
	info := Info{Capacity: s.capacity}
	for _, key := range s.Keys(ctx) {
		text, ok := s.getText(ctx, key)
		if !ok {
			continue
		}
		info.Used += EntrySize(key, text)
		info.Keys++
	}
	info.Available = max(info.Capacity-info.Used, 0)
	if info.Capacity > 0 {
		info.Percent = float64(info.Used) / float64(info.Capacity) * 100
	}
	return info
}
