// Package apperr defines the error taxonomy shared by every service.
//
// Services return these values; the HTTP layer maps them to status codes
// (see httpx.WriteError). Anything not recognised here is treated as an
// internal error and redacted before it reaches the client.
package apperr

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Use errors.Is against these.
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("already exists")
	ErrUnavailable     = errors.New("service not available")
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("forbidden")
)

// Error carries a user-facing message for one of the sentinel kinds.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }
func (e *Error) Unwrap() error { return e.Kind }

// NotFound returns an ErrNotFound with a user-facing message.
func NotFound(msg string) error { return &Error{Kind: ErrNotFound, Msg: msg} }

// Conflict returns an ErrConflict with a user-facing message.
func Conflict(msg string) error { return &Error{Kind: ErrConflict, Msg: msg} }

// Unavailable signals a collaborator that is not configured or unreachable.
func Unavailable(msg string) error { return &Error{Kind: ErrUnavailable, Msg: msg} }

// Unauthenticated signals a missing, invalid or expired credential.
func Unauthenticated(msg string) error { return &Error{Kind: ErrUnauthenticated, Msg: msg} }

// Forbidden signals a valid identity that may not perform the action.
func Forbidden(msg string) error { return &Error{Kind: ErrForbidden, Msg: msg} }

// ValidationError wraps a user-facing validation message. Details names the
// offending field(s).
type ValidationError struct {
	Msg     string
	Details string
}

func (e *ValidationError) Error() string {
	if e.Details == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Msg, e.Details)
}

// Invalid builds a *ValidationError.
func Invalid(msg, details string) error {
	return &ValidationError{Msg: msg, Details: details}
}

// Message returns the user-facing message of a taxonomy error, or "" when err
// is not one.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Msg
	}
	return ""
}
