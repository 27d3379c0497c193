package provisioning

import (
	"errors"
	"fmt"
)

// Kind classifies a failed registration.
type Kind int

const (
	// InvalidInput: a required field was missing or malformed. No external call was made.
	InvalidInput Kind = iota + 1
	// IdentityCreationFailed: the credential store rejected the identity. Nothing to undo.
	IdentityCreationFailed
	// ProfileCreationFailed: the profile insert failed and the identity was deleted again.
	ProfileCreationFailed
	// CompensationFailed: the profile insert failed and deleting the identity failed too,
	// leaving an orphan identity that needs an operator.
	CompensationFailed
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "invalid_input"
	case IdentityCreationFailed:
		return "identity_creation_failed"
	case ProfileCreationFailed:
		return "profile_creation_failed"
	case CompensationFailed:
		return "compensation_failed"
	default:
		return "unknown"
	}
}

// Error is the typed failure of Register.
type Error struct {
	Kind Kind
	// IdentityID is set once the identity was created.
	IdentityID string
	// Err is the input, identity or profile error that caused the failure.
	Err error
	// CompensationErr is the delete-identity error for CompensationFailed.
	CompensationErr error
}

func (e *Error) Error() string {
	if e.CompensationErr != nil {
		return fmt.Sprintf("%s: %v (compensation: %v)", e.Kind, e.Err, e.CompensationErr)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.CompensationErr != nil {
		return []error{e.Err, e.CompensationErr}
	}
	return []error{e.Err}
}

// KindOf returns the Kind of err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return 0
}

func invalid(msg string) *Error {
	return &Error{Kind: InvalidInput, Err: errors.New(msg)}
}
