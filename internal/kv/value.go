package kv

import (
	"encoding/json"
	"fmt"
)

// Kind tags how a stored string was interpreted on read.
type Kind int

const (
	// KindJSON means the stored text parsed as JSON.
	KindJSON Kind = iota + 1
	// KindRaw means the stored text is not JSON and is returned as a string.
	KindRaw
)

func (k Kind) String() string {
	switch k {
	case KindJSON:
		return "json"
	case KindRaw:
		return "raw"
	default:
		return "unknown"
	}
}

// Value is a stored string together with its interpretation.
type Value struct {
	Kind Kind
	Text string
}

// Classify tags raw text as JSON or a plain string.
func Classify(text string) Value {
	if json.Valid([]byte(text)) {
		return Value{Kind: KindJSON, Text: text}
	}
	return Value{Kind: KindRaw, Text: text}
}

// Any returns the decoded JSON value, or the text itself for raw values.
func (v Value) Any() any {
	if v.Kind != KindJSON {
		return v.Text
	}
	var out any
	if err := json.Unmarshal([]byte(v.Text), &out); err != nil {
		return v.Text
	}
	return out
}

// Decode unmarshals the value into dst.
//
// A string destination always succeeds: JSON strings are unquoted and any
// other text is copied as-is. Raw values cannot decode into non-string
// destinations.
func (v Value) Decode(dst any) error {
	if sp, ok := dst.(*string); ok {
		if v.Kind == KindJSON {
			var s string
			if err := json.Unmarshal([]byte(v.Text), &s); err == nil {
				*sp = s
				return nil
			}
		}
		*sp = v.Text
		return nil
	}
	if v.Kind != KindJSON {
		return fmt.Errorf("decode raw value into %T: not JSON", dst)
	}
	if err := json.Unmarshal([]byte(v.Text), dst); err != nil {
		return fmt.Errorf("decode value: %w", err)
	}
	return nil
}

// Encode serializes v for storage. Strings pass through unmodified.
func Encode(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case Value:
		return t.Text, nil
	case json.RawMessage:
		return string(t), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode value: %w", err)
	}
	return string(b), nil
}
