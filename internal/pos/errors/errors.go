package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = fmt.Errorf("not found")
	ErrDuplicate    = fmt.Errorf("duplicate")
	ErrInvalidInput = fmt.Errorf("invalid input")

	// Scope errors. Callers should send the user back to company selection.
	ErrUninitialized = fmt.Errorf("company scope not resolved")
	ErrNoMembership  = fmt.Errorf("user has no company membership")
	ErrNoSchema      = fmt.Errorf("company has no schema")
	ErrNotMember     = fmt.Errorf("user is not a member of the company")
	ErrStaleScope    = fmt.Errorf("company scope changed during the request")

	ErrPartialSubmit = fmt.Errorf("sale persisted without its line items")
	ErrDraftBusy     = fmt.Errorf("draft is being submitted")
)

// ValidationError reports a rejected field. It matches ErrInvalidInput.
type ValidationError struct {
	Field  string
	Reason string
}

func (v *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidInput, v.Field, v.Reason)
}

func (v *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// Invalid is shorthand for a *ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsScopeError reports whether err means no usable company scope.
func IsScopeError(err error) bool {
	return errors.Is(err, ErrUninitialized) ||
		errors.Is(err, ErrNoMembership) ||
		errors.Is(err, ErrNoSchema) ||
		errors.Is(err, ErrNotMember) ||
		errors.Is(err, ErrStaleScope)
}
