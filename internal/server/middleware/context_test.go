package middleware

import (
	"context"
	"testing"

	"servicehub/backend/internal/identity/domain"
)

func TestWithIdentity_RoundTrip(t *testing.T) {
	ctx := WithIdentity(context.Background(), &domain.Identity{ID: "id-1", Email: "a@example.com"})

	id, ok := IdentityFromContext(ctx)
	if !ok {
		t.Fatal("IdentityFromContext should return true")
	}
	if id.ID != "id-1" {
		t.Errorf("id = %q, want %q", id.ID, "id-1")
	}
}

func TestIdentityFromContext_Unset(t *testing.T) {
	if _, ok := IdentityFromContext(context.Background()); ok {
		t.Error("IdentityFromContext should return false when unset")
	}
	if _, ok := IdentityFromContext(WithIdentity(context.Background(), nil)); ok {
		t.Error("IdentityFromContext should return false for a nil identity")
	}
}

func TestRequestIDAndClientIP(t *testing.T) {
	ctx := WithClientIP(WithRequestID(context.Background(), "req-1"), "10.0.0.1")
	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Errorf("request id = %q, want req-1", got)
	}
	if got := ClientIPFromContext(ctx); got != "10.0.0.1" {
		t.Errorf("client ip = %q, want 10.0.0.1", got)
	}
	if RequestIDFromContext(context.Background()) != "" || ClientIPFromContext(context.Background()) != "" {
		t.Error("unset values should be empty")
	}
}
