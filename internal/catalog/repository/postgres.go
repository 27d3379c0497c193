package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"servicehub/backend/internal/catalog/domain"
	"servicehub/backend/internal/db"
)

// PostgresRepository stores services in the services table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a catalog repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectService = `SELECT id, name, description, category, price_cents, active, created_at, updated_at FROM services`

// GetByID returns the service for id, or nil if not found. Ids that are not UUIDs are not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Service, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	s, err := scanService(r.db.QueryRowContext(ctx, selectService+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

// List returns services ordered by name.
func (r *PostgresRepository) List(ctx context.Context, limit, offset int) ([]*domain.Service, error) {
	rows, err := r.db.QueryContext(ctx, selectService+` ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*domain.Service, 0, limit)
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Create inserts s, assigning an id when empty.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Service) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO services (id, name, description, category, price_cents, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID, s.Name, s.Description, s.Category, s.PriceCents, s.Active, s.CreatedAt, s.UpdatedAt,
	)
	if db.IsUniqueViolation(err) {
		return ErrDuplicateName
	}
	return err
}

// Update writes the mutable fields of s.
func (r *PostgresRepository) Update(ctx context.Context, s *domain.Service) (bool, error) {
	s.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE services SET name = $2, description = $3, category = $4, price_cents = $5, active = $6, updated_at = $7
		 WHERE id = $1`,
		s.ID, s.Name, s.Description, s.Category, s.PriceCents, s.Active, s.UpdatedAt,
	)
	if db.IsUniqueViolation(err) {
		return false, ErrDuplicateName
	}
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Delete removes the service with id.
func (r *PostgresRepository) Delete(ctx context.Context, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// UpsertByName inserts s unless a service with the same name exists. Used by the seeder.
func (r *PostgresRepository) UpsertByName(ctx context.Context, s *domain.Service) (bool, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO services (id, name, description, category, price_cents, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		 ON CONFLICT (name) DO NOTHING`,
		s.ID, s.Name, s.Description, s.Category, s.PriceCents, s.Active, now,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func scanService(row interface{ Scan(...any) error }) (*domain.Service, error) {
	var s domain.Service
	if err := row.Scan(&s.ID, &s.Name, &s.Description, &s.Category, &s.PriceCents, &s.Active, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}
