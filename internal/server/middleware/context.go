package middleware

import (
	"context"

	"servicehub/backend/internal/identity/domain"
	"servicehub/backend/internal/platform/requestctx"
)

type contextKey struct{ name string }

var identityKey = contextKey{"identity"}

// WithIdentity returns a context carrying the identity resolved by the Session Guard.
// Handlers read it via IdentityFromContext.
func WithIdentity(ctx context.Context, id *domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the resolved identity and true if set; otherwise nil, false.
func IdentityFromContext(ctx context.Context) (*domain.Identity, bool) {
	v, ok := ctx.Value(identityKey).(*domain.Identity)
	return v, ok && v != nil
}

// WithRequestID returns a context with the request id set.
func WithRequestID(ctx context.Context, id string) context.Context {
	return requestctx.WithRequestID(ctx, id)
}

// RequestIDFromContext returns the request id, or "" if unset.
func RequestIDFromContext(ctx context.Context) string { return requestctx.RequestID(ctx) }

// WithClientIP returns a context with the client IP set.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return requestctx.WithClientIP(ctx, ip)
}

// ClientIPFromContext returns the client IP, or "" if unset.
func ClientIPFromContext(ctx context.Context) string { return requestctx.ClientIP(ctx) }
