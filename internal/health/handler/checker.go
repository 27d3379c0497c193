// Package handler reports liveness and readiness over HTTP and grpc.health.v1.
package handler

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const checkTimeout = 2 * time.Second

// Pinger checks the database. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker checks the policy engine. *engine.OPAEvaluator satisfies it.
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Checker evaluates readiness. Nil dependencies are skipped.
type Checker struct {
	pinger Pinger
	policy PolicyChecker
}

// NewChecker returns a Checker over pinger and policy; either may be nil.
func NewChecker(pinger Pinger, policy PolicyChecker) *Checker {
	return &Checker{pinger: pinger, policy: policy}
}

// Ready returns nil when every configured dependency answers within the check timeout.
func (c *Checker) Ready(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	var errs []error
	if c.pinger != nil {
		if err := c.pinger.PingContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	}
	if c.policy != nil {
		if err := c.policy.HealthCheck(ctx); err != nil {
			errs = append(errs, fmt.Errorf("policy engine: %w", err))
		}
	}
	return errors.Join(errs...)
}
