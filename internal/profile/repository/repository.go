package repository

import (
	"context"
	"errors"

	"servicehub/backend/internal/profile/domain"
)

// ErrProfileExists is returned by Create when the identity already has a profile.
var ErrProfileExists = errors.New("profile already exists")

// Repository defines persistence for profiles.
type Repository interface {
	Create(ctx context.Context, p *domain.Profile) error
	// GetByID returns the profile of identityID, or nil if there is none.
	GetByID(ctx context.Context, identityID string) (*domain.Profile, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Profile, error)
	// Update replaces the mutable fields and reports whether the profile existed.
	Update(ctx context.Context, p *domain.Profile) (bool, error)
	Delete(ctx context.Context, identityID string) (bool, error)
}
