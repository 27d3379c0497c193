package repository

import (
	"context"
	"errors"

	"servicehub/backend/internal/catalog/domain"
)

// ErrDuplicateName is returned when another service already has the name.
var ErrDuplicateName = errors.New("service name already exists")

// Repository defines persistence for catalog services.
type Repository interface {
	// GetByID returns the service, or nil if there is none.
	GetByID(ctx context.Context, id string) (*domain.Service, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Service, error)
	Create(ctx context.Context, s *domain.Service) error
	Update(ctx context.Context, s *domain.Service) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}
