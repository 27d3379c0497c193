package repository

import (
	"context"
	"errors"

	"servicehub/backend/internal/identity/domain"
)

// ErrDuplicateEmail is returned by Create when another identity already uses the email.
var ErrDuplicateEmail = errors.New("identity email already exists")

// Record is an identity row of the local credential store, including its password hash.
type Record struct {
	domain.Identity
	PasswordHash string
}

// Repository defines persistence for identities of the local credential store.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Record, error)
	GetByEmail(ctx context.Context, email string) (*Record, error)
	Create(ctx context.Context, r *Record) error
	// Delete removes the identity and reports whether a row existed.
	Delete(ctx context.Context, id string) (bool, error)
}
