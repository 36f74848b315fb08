package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrTimeout is wrapped by the APIError of a request that exceeded the
// client timeout.
var ErrTimeout = errors.New("api: request timeout")

// APIError is a failed request. Status 0 means the request never got a
// response.
type APIError struct {
	Status  int
	Message string
	// Code is the machine-readable code from the error body, if any.
	Code string
	// Body is the raw response body.
	Body []byte
	Err  error
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api: %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// IsNetworkError reports a request that got no response.
func (e *APIError) IsNetworkError() bool { return e.Status == 0 }

// IsServerError reports a 5xx response.
func (e *APIError) IsServerError() bool { return e.Status >= 500 }

// IsClientError reports a 4xx response, including timeouts (408).
func (e *APIError) IsClientError() bool { return e.Status >= 400 && e.Status < 500 }

// IsAuthError reports 401 and 403.
func (e *APIError) IsAuthError() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// IsNotFound reports 404.
func (e *APIError) IsNotFound() bool { return e.Status == http.StatusNotFound }

// IsTimeout reports 408.
func (e *APIError) IsTimeout() bool { return e.Status == http.StatusRequestTimeout }

// AsAPIError extracts the *APIError from err's chain.
func AsAPIError(err error) (*APIError, bool) {
	var ae *APIError
	ok := errors.As(err, &ae)
	return ae, ok
}

func classify(err error, pred func(*APIError) bool) bool {
	ae, ok := AsAPIError(err)
	return ok && pred(ae)
}

// IsNetworkError reports whether err is a request that got no response.
func IsNetworkError(err error) bool { return classify(err, (*APIError).IsNetworkError) }

// IsServerError reports whether err is a 5xx response.
func IsServerError(err error) bool { return classify(err, (*APIError).IsServerError) }

// IsClientError reports whether err is a 4xx response.
func IsClientError(err error) bool { return classify(err, (*APIError).IsClientError) }

// IsAuthError reports whether err is a 401 or 403 response.
func IsAuthError(err error) bool { return classify(err, (*APIError).IsAuthError) }

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool { return classify(err, (*APIError).IsNotFound) }

// IsTimeout reports whether err is a client-side timeout.
func IsTimeout(err error) bool { return classify(err, (*APIError).IsTimeout) }
