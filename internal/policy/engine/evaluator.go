package engine

import (
	"context"

	"servicehub/backend/internal/policy/domain"
)

// Evaluator decides whether a request may proceed.
type Evaluator interface {
	Evaluate(ctx context.Context, in domain.Input) (domain.Decision, error)
}

// Static evaluates the access rules in Go. It is the fallback of OPAEvaluator and the
// evaluator used when POLICY_ENGINE=static.
type Static struct{}

// Evaluate: public always allows; authenticated allows any resolved identity; owner allows
// only when the identity id equals the target id. A missing identity is Unauthorized,
// any other denial is Forbidden.
func (Static) Evaluate(_ context.Context, in domain.Input) (domain.Decision, error) {
	return decide(in), nil
}

func decide(in domain.Input) domain.Decision {
	if in.Requirement == domain.RequirePublic {
		return domain.Allowed()
	}
	if in.IdentityID == "" {
		return domain.Denied(domain.ReasonUnauthorized)
	}
	switch in.Requirement {
	case domain.RequireAuthenticated:
		return domain.Allowed()
	case domain.RequireOwner:
		if in.IdentityID == in.TargetID {
			return domain.Allowed()
		}
	}
	return domain.Denied(domain.ReasonForbidden)
}
