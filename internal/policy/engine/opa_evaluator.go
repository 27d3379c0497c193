package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	"servicehub/backend/internal/policy/domain"
)

const decisionQuery = "data.servicehub.authz.decision"

// DefaultPolicy encodes the same rules as Static.
const DefaultPolicy = `package servicehub.authz

default allow := false

allow if input.requirement == "public"

allow if {
	input.requirement == "authenticated"
	input.identity_id != ""
}

allow if {
	input.requirement == "owner"
	input.identity_id != ""
	input.identity_id == input.target_id
}

default reason := "unauthorized"

reason := "" if allow

reason := "forbidden" if {
	not allow
	input.identity_id != ""
}

decision := {"allow": allow, "reason": reason}
`

// OPAEvaluator evaluates authorization with an OPA Rego policy compiled once at construction.
// Evaluation errors fall back to Static so a broken policy never opens or closes the API
// by accident.
type OPAEvaluator struct {
	query    rego.PreparedEvalQuery
	fallback Static
	logger   *slog.Logger
}

// NewOPAEvaluator compiles policy (DefaultPolicy when empty) and prepares the decision query.
func NewOPAEvaluator(ctx context.Context, policy string, logger *slog.Logger) (*OPAEvaluator, error) {
	if policy == "" {
		policy = DefaultPolicy
	}
	if logger == nil {
		logger = slog.Default()
	}
	compiler, err := ast.CompileModules(map[string]string{"authz.rego": policy})
	if err != nil {
		return nil, fmt.Errorf("compile policy: %w", err)
	}
	pq, err := rego.New(rego.Query(decisionQuery), rego.Compiler(compiler)).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare policy: %w", err)
	}
	return &OPAEvaluator{query: pq, logger: logger}, nil
}

// Evaluate runs the policy for in.
func (e *OPAEvaluator) Evaluate(ctx context.Context, in domain.Input) (domain.Decision, error) {
	d, err := e.eval(ctx, in)
	if err != nil {
		e.logger.WarnContext(ctx, "policy.evaluation_failed",
			slog.String("requirement", string(in.Requirement)),
			slog.Any("error", err),
		)
		return e.fallback.Evaluate(ctx, in)
	}
	return d, nil
}

// HealthCheck evaluates a public request and expects it to be allowed.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	d, err := e.eval(ctx, domain.Input{Requirement: domain.RequirePublic})
	if err != nil {
		return err
	}
	if !d.Allow {
		return errors.New("policy denies public access")
	}
	return nil
}

func (e *OPAEvaluator) eval(ctx context.Context, in domain.Input) (domain.Decision, error) {
	input := map[string]interface{}{
		"requirement": string(in.Requirement),
		"identity_id": in.IdentityID,
		"target_id":   in.TargetID,
	}
	rs, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return domain.Decision{}, fmt.Errorf("eval policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return domain.Decision{}, errors.New("policy query returned no result")
	}
	obj, ok := rs[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return domain.Decision{}, fmt.Errorf("policy decision has type %T", rs[0].Expressions[0].Value)
	}
	allow, ok := obj["allow"].(bool)
	if !ok {
		return domain.Decision{}, errors.New("policy decision has no boolean allow")
	}
	reason, _ := obj["reason"].(string)
	if allow {
		return domain.Allowed(), nil
	}
	if reason == "" {
		reason = string(domain.ReasonForbidden)
	}
	return domain.Denied(domain.DenyReason(reason)), nil
}
