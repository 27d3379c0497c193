package middleware

import (
	"context"
	"strings"

	"servicehub/backend/internal/identity/domain"
)

// AuthErrorKind classifies a rejected credential. Both kinds map to HTTP 401.
type AuthErrorKind string

const (
	MissingCredential          AuthErrorKind = "missing_credential"
	InvalidOrExpiredCredential AuthErrorKind = "invalid_or_expired_credential"
)

// Sentinels for errors.Is matching on kind.
var (
	ErrMissingCredential          = &AuthError{Kind: MissingCredential}
	ErrInvalidOrExpiredCredential = &AuthError{Kind: InvalidOrExpiredCredential}
)

// AuthError is returned by SessionGuard.Authenticate. Err holds the provider error, if any.
type AuthError struct {
	Kind AuthErrorKind
	Err  error
}

func (e *AuthError) Error() string {
	msg := "missing bearer credential"
	if e.Kind == InvalidOrExpiredCredential {
		msg = "invalid or expired bearer credential"
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *AuthError) Unwrap() error { return e.Err }

// Is matches any AuthError of the same kind.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	return ok && t.Kind == e.Kind
}

// TokenVerifier resolves a bearer token to an identity. credential.Store satisfies it.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*domain.Identity, error)
}

// SessionGuard verifies bearer tokens on every request. It keeps no state between requests.
type SessionGuard struct {
	verifier TokenVerifier
}

// NewSessionGuard returns a guard verifying tokens with verifier.
func NewSessionGuard(verifier TokenVerifier) *SessionGuard {
	return &SessionGuard{verifier: verifier}
}

// Authenticate resolves the raw Authorization header value to an identity.
func (g *SessionGuard) Authenticate(ctx context.Context, header string) (*domain.Identity, error) {
	token := bearerToken(header)
	if token == "" {
		return nil, ErrMissingCredential
	}
	id, err := g.verifier.VerifyToken(ctx, token)
	if err != nil {
		return nil, &AuthError{Kind: InvalidOrExpiredCredential, Err: err}
	}
	if id == nil || id.ID == "" {
		return nil, ErrInvalidOrExpiredCredential
	}
	return id, nil
}

// bearerToken splits header on whitespace and returns the second field when the first is
// the Bearer scheme, or "" otherwise.
func bearerToken(header string) string {
	fields := strings.Fields(header)
	if len(fields) < 2 || !strings.EqualFold(fields[0], "Bearer") {
		return ""
	}
	return fields[1]
}
