package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy. Every error surfaced by the core wraps exactly one of these,
// so callers classify with errors.Is.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("access forbidden")
	ErrNotFound        = errors.New("not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrConflict        = errors.New("conflict")
	ErrTimeout         = errors.New("timeout")
	ErrUnavailable     = errors.New("unavailable")
)

var (
	ErrFeedbackNotFound   = fmt.Errorf("feedback %w", ErrNotFound)
	ErrUserNotFound       = fmt.Errorf("user %w", ErrNotFound)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)
	ErrUserExists         = fmt.Errorf("%w: user already exists", ErrConflict)
	ErrVersionMismatch    = fmt.Errorf("%w: feedback was modified concurrently", ErrConflict)
	ErrNotDirectReport    = fmt.Errorf("%w: you can only submit feedback for your own team members", ErrForbidden)
	ErrImmutableField     = fmt.Errorf("%w: field cannot be changed", ErrInvalidInput)
)

// Invalid wraps a field-level validation message as ErrInvalidInput.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// IsTransient reports whether err is a store or collaborator failure that a
// read-only aggregation may recover from locally.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrUnavailable)
}

// Kind returns a short, stable label for the taxonomy class of err. It is
// used as a metric label and never shown to clients.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	default:
		return "internal"
	}
}
