package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"servicehub/backend/internal/db"
	"servicehub/backend/internal/profile/domain"
)

// PostgresRepository stores profiles in the profiles table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a profile repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectProfile = `SELECT identity_id, display_name, surname1, surname2, birth_date, email, created_at, updated_at FROM profiles`

// Create inserts p. The identity id is the primary key; a second insert yields ErrProfileExists.
func (r *PostgresRepository) Create(ctx context.Context, p *domain.Profile) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = p.CreatedAt
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (identity_id, display_name, surname1, surname2, birth_date, email, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.IdentityID, p.DisplayName, p.Surname1, nullString(p.Surname2), p.BirthDate, p.Email, p.CreatedAt, p.UpdatedAt,
	)
	if db.IsUniqueViolation(err) {
		return ErrProfileExists
	}
	return err
}

// GetByID returns the profile for identityID, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, identityID string) (*domain.Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx, selectProfile+` WHERE identity_id = $1`, identityID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// List returns profiles ordered by creation time.
func (r *PostgresRepository) List(ctx context.Context, limit, offset int) ([]*domain.Profile, error) {
	rows, err := r.db.QueryContext(ctx, selectProfile+` ORDER BY created_at, identity_id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*domain.Profile, 0, limit)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Update writes the mutable fields of p.
func (r *PostgresRepository) Update(ctx context.Context, p *domain.Profile) (bool, error) {
	p.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET display_name = $2, surname1 = $3, surname2 = $4, birth_date = $5, updated_at = $6
		 WHERE identity_id = $1`,
		p.IdentityID, p.DisplayName, p.Surname1, nullString(p.Surname2), p.BirthDate, p.UpdatedAt,
	)
	return affected(res, err)
}

// Delete removes the profile of identityID.
func (r *PostgresRepository) Delete(ctx context.Context, identityID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM profiles WHERE identity_id = $1`, identityID)
	return affected(res, err)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(s scanner) (*domain.Profile, error) {
	var (
		p        domain.Profile
		surname2 sql.NullString
	)
	if err := s.Scan(&p.IdentityID, &p.DisplayName, &p.Surname1, &surname2, &p.BirthDate, &p.Email, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if surname2.Valid {
		p.Surname2 = &surname2.String
	}
	return &p, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func affected(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
