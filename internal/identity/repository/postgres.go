package repository

import (
	"context"
	"database/sql"
	"errors"

	"servicehub/backend/internal/db"
	"servicehub/backend/internal/identity/domain"
)

// PostgresRepository stores identities in the identities table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an identity repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectIdentity = `SELECT id, email, password_hash, display_name, confirmed, created_at FROM identities`

// GetByID returns the identity for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Record, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, selectIdentity+` WHERE id = $1`, id))
}

// GetByEmail returns the identity whose email matches case-insensitively, or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*Record, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, selectIdentity+` WHERE lower(email) = lower($1)`, email))
}

// Create inserts rec. A unique violation on the email index yields ErrDuplicateEmail.
func (r *PostgresRepository) Create(ctx context.Context, rec *Record) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO identities (id, email, password_hash, display_name, confirmed, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.Email, rec.PasswordHash, rec.DisplayName, rec.Confirmed, rec.CreatedAt,
	)
	if db.IsUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	return err
}

// Delete removes the identity with id.
func (r *PostgresRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM identities WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.Email, &rec.PasswordHash, &rec.DisplayName, &rec.Confirmed, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	rec.Provider = domain.ProviderLocal
	return &rec, nil
}
