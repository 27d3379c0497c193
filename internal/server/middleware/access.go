package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"servicehub/backend/internal/identity/domain"
	policydomain "servicehub/backend/internal/policy/domain"
	"servicehub/backend/internal/policy/engine"
)

// OwnerFunc returns the owner id of the resource a request targets.
type OwnerFunc func(c *gin.Context, id *domain.Identity) string

// OwnerSelf targets the caller's own resources (GET /me).
func OwnerSelf(_ *gin.Context, id *domain.Identity) string {
	if id == nil {
		return ""
	}
	return id.ID
}

// OwnerParam targets the resource named by path parameter name.
func OwnerParam(name string) OwnerFunc {
	return func(c *gin.Context, _ *domain.Identity) string { return c.Param(name) }
}

// FailureCounter counts rejected credentials by kind.
type FailureCounter interface {
	AuthFailure(kind string)
}

// Access combines the Session Guard with the authorization policy.
type Access struct {
	guard  *SessionGuard
	policy engine.Evaluator
	counts FailureCounter
	log    *slog.Logger
}

// NewAccess returns an Access. counts may be nil.
func NewAccess(guard *SessionGuard, policy engine.Evaluator, counts FailureCounter, log *slog.Logger) *Access {
	if log == nil {
		log = slog.Default()
	}
	return &Access{guard: guard, policy: policy, counts: counts, log: log}
}

// RequireAccess returns a handler enforcing the requirement of op. Public operations skip
// the Session Guard; the others authenticate first and attach the identity to the request
// context. owner may be nil for operations without an ownership check.
func (a *Access) RequireAccess(op policydomain.Operation, owner OwnerFunc) gin.HandlerFunc {
	req := policydomain.RequirementFor(op)
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		in := policydomain.Input{Requirement: req}

		var id *domain.Identity
		if req != policydomain.RequirePublic {
			var err error
			id, err = a.guard.Authenticate(ctx, c.GetHeader("Authorization"))
			if err != nil {
				a.unauthorized(c, err)
				return
			}
			ctx = WithIdentity(ctx, id)
			c.Request = c.Request.WithContext(ctx)
			in.IdentityID = id.ID
		}
		if owner != nil {
			in.TargetID = owner(c, id)
		}

		d, err := a.policy.Evaluate(ctx, in)
		if err != nil {
			a.log.ErrorContext(ctx, "policy.evaluation_error", slog.String("operation", string(op)), slog.Any("error", err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "authorization unavailable"})
			return
		}
		if !d.Allow {
			if d.Reason == policydomain.ReasonUnauthorized {
				a.unauthorized(c, ErrMissingCredential)
				return
			}
			a.log.WarnContext(ctx, "policy.forbidden",
				slog.String("operation", string(op)),
				slog.String("identity_id", in.IdentityID),
				slog.String("target_id", in.TargetID),
			)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden", "code": "forbidden"})
			return
		}
		c.Next()
	}
}

func (a *Access) unauthorized(c *gin.Context, err error) {
	kind := MissingCredential
	var authErr *AuthError
	if errors.As(err, &authErr) {
		kind = authErr.Kind
	}
	if a.counts != nil {
		a.counts.AuthFailure(string(kind))
	}
	a.log.InfoContext(c.Request.Context(), "auth.rejected", slog.String("kind", string(kind)), slog.String("path", c.Request.URL.Path))
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": string(kind)})
}
