package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for unknown item or user identifiers.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict is returned by a conditional write that lost a race;
	// callers re-fetch and retry.
	ErrVersionConflict = errors.New("version conflict")

	// ErrStoreUnavailable wraps transient store failures. The caller may
	// retry; no partial state was written.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrConflictRetryExhausted is returned when a bid kept losing the
	// conditional write beyond the retry budget.
	ErrConflictRetryExhausted = errors.New("bid conflict retries exhausted")

	ErrNotAuthorized      = errors.New("admin role required")
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenInvalid       = errors.New("invalid token")
)

// ValidationError reports a rejected creation or signup field. No mutation
// happened.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
