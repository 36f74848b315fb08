package userdata

import (
	"errors"
	"fmt"
)

// ErrUnknownKey is returned for a preference or setting name that does
// not exist.
var ErrUnknownKey = errors.New("unknown key")

// ValueError reports a value that does not fit its key.
type ValueError struct {
	Key     string
	Value   string
	Allowed []string
}

func (e *ValueError) Error() string {
	if len(e.Allowed) > 0 {
		return fmt.Sprintf("invalid value %q for %s (allowed: %v)", e.Value, e.Key, e.Allowed)
	}
	return fmt.Sprintf("invalid value %q for %s", e.Value, e.Key)
}

// IsInvalidValue reports whether err is a *ValueError.
func IsInvalidValue(err error) bool {
	var ve *ValueError
	return errors.As(err, &ve)
}
