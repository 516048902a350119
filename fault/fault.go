// Package fault defines the error kinds shared by the ledger core.
// Callers classify failures with errors.Is against the sentinels below;
// the constructors attach a human-readable message via %w wrapping.
package fault

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed input: empty names, bad percentages, negative sizes.
	ErrValidation = errors.New("validation error")
	// ErrPermission marks an actor lacking the required role for an operation.
	ErrPermission = errors.New("permission denied")
	// ErrNotFound marks a referenced project, track or collaborator that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState marks an operation illegal for the current lifecycle state.
	ErrInvalidState = errors.New("invalid state")
	// ErrAlreadyMember marks a duplicate collaborator invite.
	ErrAlreadyMember = errors.New("already a member")
)

// Validationf wraps ErrValidation with a formatted message.
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrValidation}, args...)...)
}

// Permissionf wraps ErrPermission with a formatted message.
func Permissionf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrPermission}, args...)...)
}

// NotFoundf wraps ErrNotFound with a formatted message.
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrNotFound}, args...)...)
}

// InvalidStatef wraps ErrInvalidState with a formatted message.
func InvalidStatef(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrInvalidState}, args...)...)
}

// AlreadyMemberf wraps ErrAlreadyMember with a formatted message.
func AlreadyMemberf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrAlreadyMember}, args...)...)
}

// Kind returns the machine-readable error kind for API envelopes.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrPermission):
		return "permission_error"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrAlreadyMember):
		return "already_member"
	default:
		return "storage_error"
	}
}
