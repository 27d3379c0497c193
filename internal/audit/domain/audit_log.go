package domain

import "time"

// Audit actions recorded by the API.
const (
	ActionIdentityRegistered         = "identity.registered"
	ActionIdentityCompensated        = "identity.compensated"
	ActionIdentityCompensationFailed = "identity.compensation_failed"
	ActionLoginFailure               = "auth.login_failure"
)

// AuditLog represents an audit event.
type AuditLog struct {
	ID     string
	UserID string
	Action string
	// Resource is the affected record, e.g. "identity" or "profile".
	Resource string
	IP       string
	// Metadata is a JSON object, or empty.
	Metadata  string
	CreatedAt time.Time
}
