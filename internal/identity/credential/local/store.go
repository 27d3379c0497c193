// Package local is the built-in credential store: identities in Postgres, bcrypt password
// hashes and self-issued JWT access tokens.
package local

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"servicehub/backend/internal/identity/credential"
	"servicehub/backend/internal/identity/domain"
	"servicehub/backend/internal/identity/repository"
	"servicehub/backend/internal/security"
)

// IdentityRepo is the persistence the local store needs.
type IdentityRepo interface {
	GetByID(ctx context.Context, id string) (*repository.Record, error)
	GetByEmail(ctx context.Context, email string) (*repository.Record, error)
	Create(ctx context.Context, r *repository.Record) error
	Delete(ctx context.Context, id string) (bool, error)
}

// Store implements credential.Store.
type Store struct {
	repo   IdentityRepo
	hasher *security.PasswordHasher
	tokens *security.TokenProvider
	now    func() time.Time
}

var _ credential.Store = (*Store)(nil)

// NewStore returns a local credential store.
func NewStore(repo IdentityRepo, hasher *security.PasswordHasher, tokens *security.TokenProvider) *Store {
	return &Store{repo: repo, hasher: hasher, tokens: tokens, now: time.Now}
}

// CreateIdentity hashes the password and inserts a new identity with a random UUID id.
func (s *Store) CreateIdentity(ctx context.Context, p credential.CreateIdentityParams) (*domain.Identity, error) {
	email := credential.NormalizeEmail(p.Email)
	if email == "" || p.Password == "" {
		return nil, errors.New("email and password are required")
	}
	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, unavailable(err)
	}
	if existing != nil {
		return nil, credential.ErrEmailTaken
	}
	hash, err := s.hasher.Hash(p.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	rec := &repository.Record{
		Identity: domain.Identity{
			ID:          uuid.New().String(),
			Email:       email,
			DisplayName: p.DisplayName,
			Confirmed:   p.Confirmed,
			Provider:    domain.ProviderLocal,
			CreatedAt:   s.now().UTC(),
		},
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, credential.ErrEmailTaken
		}
		return nil, unavailable(err)
	}
	id := rec.Identity
	return &id, nil
}

// DeleteIdentity removes the identity. Tokens already issued to it stop verifying immediately.
func (s *Store) DeleteIdentity(ctx context.Context, id string) error {
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return unavailable(err)
	}
	if !ok {
		return credential.ErrIdentityNotFound
	}
	return nil
}

// VerifyToken validates the JWT and re-reads the identity it names.
func (s *Store) VerifyToken(ctx context.Context, token string) (*domain.Identity, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, credential.ErrInvalidToken
	}
	rec, err := s.repo.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, unavailable(err)
	}
	if rec == nil {
		return nil, credential.ErrInvalidToken
	}
	id := rec.Identity
	return &id, nil
}

// PasswordAuthenticate checks the password and issues an access token. Unknown emails and
// wrong passwords both yield ErrInvalidCredentials after the same bcrypt work.
func (s *Store) PasswordAuthenticate(ctx context.Context, email, password string) (*domain.AccessToken, error) {
	rec, err := s.repo.GetByEmail(ctx, credential.NormalizeEmail(email))
	if err != nil {
		return nil, unavailable(err)
	}
	if rec == nil {
		_ = s.hasher.VerifyUnknown(password)
		return nil, credential.ErrInvalidCredentials
	}
	if err := s.hasher.Verify(rec.PasswordHash, password); err != nil {
		return nil, credential.ErrInvalidCredentials
	}
	token, _, err := s.tokens.Issue(rec.ID, rec.Email)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &domain.AccessToken{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int64(s.tokens.TTL() / time.Second),
	}, nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", credential.ErrProviderUnavailable, err)
}
