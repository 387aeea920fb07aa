// Package fault defines the error taxonomy shared across chatbridge.
//
// Callers discriminate with errors.Is / errors.As rather than string
// matching, so wrapped causes stay inspectable.
package fault

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a referenced id does not resolve.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState indicates an operation is not permitted in the
	// entry's current state (e.g. cancelling a sent delivery).
	ErrInvalidState = errors.New("invalid state")

	// ErrAccessDenied indicates the underlying store or directory is
	// unreachable due to permissions.
	ErrAccessDenied = errors.New("access denied")

	// ErrTransportFailure indicates both delivery channels failed.
	ErrTransportFailure = errors.New("transport failure")

	// ErrPersistence indicates the schedule log could not be written.
	ErrPersistence = errors.New("persistence failure")

	// ErrValidation is the target for ValidationError values.
	ErrValidation = errors.New("validation failed")
)

// ValidationError reports malformed or out-of-range caller input.
// It is detected before any external call and never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// Is makes ValidationError match fault.ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid constructs a ValidationError for a field.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
