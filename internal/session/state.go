package session

import (
	"errors"
	"fmt"
)

// State is the authentication lifecycle state.
type State int

const (
	Anonymous State = iota
	Authenticating
	Authenticated
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var (
	// ErrBusy is returned while a login or registration is in flight.
	ErrBusy = errors.New("session: authentication already in progress")
	// ErrNotAuthenticated is returned by operations that need a user.
	ErrNotAuthenticated = errors.New("session: not authenticated")
	// ErrInvalidCredentials is returned for a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrWrongPassword is returned when the current password does not match.
	ErrWrongPassword = errors.New("current password is incorrect")
	// ErrSuperseded is returned when a logout overtook an in-flight login.
	ErrSuperseded = errors.New("session: superseded by logout")
	// ErrValidation marks a Result that failed field validation.
	ErrValidation = errors.New("please fix the highlighted fields")
)

// Result is the outcome of a session operation. Field-level validation
// failures are reported in FieldErrors with Err set to ErrValidation;
// anything else is a general error.
type Result struct {
	Success     bool        `json:"success"`
	User        *User       `json:"user,omitempty"`
	Error       string      `json:"error,omitempty"`
	FieldErrors FieldErrors `json:"fieldErrors,omitempty"`
	// ResetToken is the mock-delivered token from ForgotPassword.
	ResetToken string `json:"resetToken,omitempty"`

	Err error `json:"-"`
}

func ok(u *User) Result {
	return Result{Success: true, User: u}
}

func failed(err error) Result {
	return Result{Error: err.Error(), Err: err}
}

func invalid(fields FieldErrors) Result {
	return Result{Error: ErrValidation.Error(), FieldErrors: fields, Err: ErrValidation}
}

// TransitionObserver is told about every state change.
type TransitionObserver interface {
	ObserveTransition(from, to State)
}
