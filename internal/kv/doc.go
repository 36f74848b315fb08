// Package kv adapts a flat string-keyed, string-valued backend into the
// application's persistence layer.
//
// The Store never returns errors to its callers. Every storage fault
// (quota exceeded, backend unavailable, corrupt data) is logged and
// surfaced only through a boolean result or the caller-supplied default,
// so the application keeps working in memory when persistence is gone.
//
// Values are stored as text. On read the text is classified into a tagged
// Value: KindJSON when it parses as JSON, KindRaw otherwise. Strings are
// written through unmodified; everything else is JSON encoded.
//
// Layers:
//   - Backend: the physical store (Memory, sqlite, rediskv)
//   - Broadcaster: cross-context change notification (MemoryHub, sqlite, rediskv)
//   - Store: JSON codec, expiry envelopes, quota recovery, backup/restore
//   - Scoped: a namespaced view over a Store
package kv
