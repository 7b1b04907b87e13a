package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized means credentials were missing or did not match.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means the credential scope does not allow the request.
	ErrForbidden = errors.New("forbidden")
	// ErrValidation marks malformed caller input.
	ErrValidation = errors.New("invalid argument")
	// ErrUpstreamUnavailable wraps failures of the session store or catalog.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrMutationRejected is returned when the live cart refuses a change.
	ErrMutationRejected = errors.New("mutation rejected")
)

// Error pairs one of the sentinel kinds with a caller-facing message.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// Errorf builds an *Error of the given kind.
func Errorf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Unavailable wraps a store failure so callers can match ErrUpstreamUnavailable
// while the driver error stays reachable through errors.As.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUpstreamUnavailable, err)
}
