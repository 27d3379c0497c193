// Package telemetry defines operator-facing events. The otel subpackage exports them as
// OTel log records; the metrics subpackage holds the Prometheus collector.
package telemetry

import (
	"context"
	"time"
)

// Severity of an operator event.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarn
	SeverityError
)

// Event is a structured operator event, e.g. a failed compensation that left an orphan identity.
type Event struct {
	// Type is a dotted event name such as "provisioning.compensation_failed".
	Type       string
	Severity   Severity
	IdentityID string
	RequestID  string
	Attributes map[string]string
	// Time defaults to now when zero.
	Time time.Time
}

// EventEmitter emits operator events. Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event Event) error
}

// Noop discards events.
type Noop struct{}

// Emit implements EventEmitter.
func (Noop) Emit(context.Context, Event) error { return nil }
