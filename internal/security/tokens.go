package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned when a token is malformed, expired or fails claim checks.
var ErrInvalidToken = errors.New("invalid token")

// AccessClaims is the claim set of a locally issued access token.
type AccessClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// TokenProvider signs and validates bearer access tokens. There is no refresh
// token; clients log in again once expires_in has elapsed.
type TokenProvider struct {
	keys     KeyPair
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// NewTokenProvider returns a provider signing with keys. issuer and audience are
// stamped on every token and required on validation.
func NewTokenProvider(keys KeyPair, issuer, audience string, ttl time.Duration) *TokenProvider {
	return &TokenProvider{
		keys:     keys,
		issuer:   issuer,
		audience: audience,
		ttl:      ttl,
		now:      time.Now,
	}
}

// TTL is the lifetime of issued tokens.
func (p *TokenProvider) TTL() time.Duration { return p.ttl }

// Issue returns a signed token for subject (the identity id) and its expiry.
func (p *TokenProvider) Issue(subject, email string) (string, time.Time, error) {
	method := jwt.GetSigningMethod(p.keys.Alg)
	if method == nil {
		return "", time.Time{}, ErrInvalidKey
	}
	now := p.now().UTC()
	expiresAt := now.Add(p.ttl)
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email: email,
	}
	signed, err := jwt.NewWithClaims(method, claims).SignedString(p.keys.Signer)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Validate checks signature, algorithm, expiry, issuer and audience and returns the claims.
// Every failure is reported as ErrInvalidToken.
func (p *TokenProvider) Validate(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return p.keys.Public, nil
	},
		jwt.WithValidMethods([]string{p.keys.Alg}),
		jwt.WithIssuer(p.issuer),
		jwt.WithAudience(p.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
