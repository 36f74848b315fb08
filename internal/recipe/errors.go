package recipe

import (
	"errors"
	"fmt"
)

// QueryErrorCode categorizes query errors.
type QueryErrorCode string

const (
	// ErrCodeInvalidQuery indicates a caller contract violation such as a
	// non-positive page or page size.
	ErrCodeInvalidQuery QueryErrorCode = "INVALID_QUERY"
)

// QueryError is returned when a Spec is rejected before any filtering.
type QueryError struct {
	Code    QueryErrorCode
	Field   string
	Message string
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field=%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsInvalidQuery returns true if err is an invalid-query error.
// Uses errors.As to handle wrapped errors.
func IsInvalidQuery(err error) bool {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Code == ErrCodeInvalidQuery
	}
	return false
}

func invalid(field, format string, args ...any) *QueryError {
	return &QueryError{
		Code:    ErrCodeInvalidQuery,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}
