package userdata

import (
	"slices"
	"strconv"
	"strings"
)

// field binds one named key to a typed struct field.
type field[S any] struct {
	get func(*S) string
	set func(*S, string) error
}

func stringField[S any](key string, ptr func(*S) *string, allowed ...string) field[S] {
	return field[S]{
		get: func(s *S) string { return *ptr(s) },
		set: func(s *S, raw string) error {
			v := strings.TrimSpace(raw)
			if v == "" || (len(allowed) > 0 && !slices.Contains(allowed, v)) {
				return &ValueError{Key: key, Value: raw, Allowed: allowed}
			}
			*ptr(s) = v
			return nil
		},
	}
}

func boolField[S any](key string, ptr func(*S) *bool) field[S] {
	return field[S]{
		get: func(s *S) string { return strconv.FormatBool(*ptr(s)) },
		set: func(s *S, raw string) error {
			v, err := strconv.ParseBool(strings.TrimSpace(raw))
			if err != nil {
				return &ValueError{Key: key, Value: raw}
			}
			*ptr(s) = v
			return nil
		},
	}
}

func intField[S any](key string, ptr func(*S) *int, lo, hi int) field[S] {
	return field[S]{
		get: func(s *S) string { return strconv.Itoa(*ptr(s)) },
		set: func(s *S, raw string) error {
			v, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil || v < lo || v > hi {
				return &ValueError{Key: key, Value: raw}
			}
			*ptr(s) = v
			return nil
		},
	}
}
