// Package credential defines the contract of the identity provider that owns password
// credentials and bearer tokens. Adapters live in the local and keycloak subpackages.
package credential

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"servicehub/backend/internal/identity/domain"
)

// Sentinel errors shared by every adapter. Adapters wrap provider detail with %w.
var (
	ErrEmailTaken          = errors.New("email already registered")
	ErrIdentityNotFound    = errors.New("identity not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidToken        = errors.New("invalid or expired token")
	ErrProviderUnavailable = errors.New("identity provider unavailable")
)

// CreateIdentityParams describes a new identity. DisplayName is stored as provider metadata.
type CreateIdentityParams struct {
	Email       string
	Password    string
	DisplayName string
	// Confirmed creates the identity with its email already verified.
	Confirmed bool
}

// Store is an identity provider. Implementations are constructed once at startup and are
// safe for concurrent use; they hold no per-request state.
type Store interface {
	CreateIdentity(ctx context.Context, p CreateIdentityParams) (*domain.Identity, error)
	DeleteIdentity(ctx context.Context, id string) error
	// VerifyToken resolves a bearer token to its identity. It is called on every request.
	VerifyToken(ctx context.Context, token string) (*domain.Identity, error)
	PasswordAuthenticate(ctx context.Context, email, password string) (*domain.AccessToken, error)
}

// NormalizeEmail lower-cases and trims email. Emails are unique case-insensitively.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail checks that a normalized email has a plausible address shape.
func ValidateEmail(email string) error {
	if email == "" {
		return errors.New("email is required")
	}
	if !emailPattern.MatchString(email) {
		return errors.New("invalid email format")
	}
	return nil
}
