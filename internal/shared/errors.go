package shared

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure. The wording is
	// intentionally generic so unknown-email and wrong-password cases are
	// indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrConflict indicates a uniqueness violation (duplicate email, slug).
	ErrConflict = errors.New("already exists")
	// ErrUnauthorized indicates a missing or invalid session.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates the authenticated user lacks permission.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError carries the complete list of violated rules for a request,
// not just the first one found.
type ValidationError struct {
	Violations []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return "validation failed"
	}
	return "validation failed: " + strings.Join(e.Violations, "; ")
}

// NewValidationError builds a ValidationError from violations, returning nil
// when the list is empty.
func NewValidationError(violations []string) error {
	if len(violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: violations}
}

// UserSafeMessage returns a message safe to expose to API clients. Validation
// and domain errors pass through; anything else collapses to a generic string
// so storage details never cross the boundary.
func UserSafeMessage(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &verr):
		return verr.Error()
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrForbidden):
		return err.Error()
	default:
		return "internal error"
	}
}
