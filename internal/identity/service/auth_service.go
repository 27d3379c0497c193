// Package service implements the login flow over a credential store.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	auditdomain "servicehub/backend/internal/audit/domain"
	"servicehub/backend/internal/identity/credential"
	"servicehub/backend/internal/identity/domain"
)

// Sentinel errors for auth service; handler maps them to HTTP status codes.
var (
	ErrMissingFields      = errors.New("email and password are required")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrProviderFailure    = errors.New("identity provider unavailable")
)

// AuditLogger records login failures. Best-effort.
type AuditLogger interface {
	LogEvent(ctx context.Context, userID, action, resource string, metadata map[string]string)
}

// FailureCounter counts rejected credentials by kind.
type FailureCounter interface {
	AuthFailure(kind string)
}

// AuthService implements password login against the configured credential store.
type AuthService struct {
	store  credential.Store
	audit  AuditLogger
	counts FailureCounter
	log    *slog.Logger
}

// NewAuthService returns an AuthService with the given dependencies. audit and counts may be nil.
func NewAuthService(store credential.Store, audit AuditLogger, counts FailureCounter, log *slog.Logger) *AuthService {
	if log == nil {
		log = slog.Default()
	}
	return &AuthService{store: store, audit: audit, counts: counts, log: log}
}

// Login exchanges email and password for an access token. The token is passed through
// from the credential store untouched.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.AccessToken, error) {
	email = credential.NormalizeEmail(email)
	if email == "" || strings.TrimSpace(password) == "" {
		return nil, ErrMissingFields
	}
	tok, err := s.store.PasswordAuthenticate(ctx, email, password)
	switch {
	case err == nil:
		return tok, nil
	case errors.Is(err, credential.ErrInvalidCredentials):
		s.fail(ctx, "invalid_credentials", email)
		return nil, ErrInvalidCredentials
	default:
		s.log.ErrorContext(ctx, "auth.login_provider_error", slog.Any("error", err))
		s.fail(ctx, "provider_error", email)
		return nil, errors.Join(ErrProviderFailure, err)
	}
}

func (s *AuthService) fail(ctx context.Context, kind, email string) {
	if s.counts != nil {
		s.counts.AuthFailure(kind)
	}
	if s.audit != nil {
		s.audit.LogEvent(ctx, "", auditdomain.ActionLoginFailure, "identity", map[string]string{"email": email, "reason": kind})
	}
}
