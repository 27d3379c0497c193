// Package provisioning registers users across the credential store and the profile store,
// deleting the identity again when the profile cannot be written.
package provisioning

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	auditdomain "servicehub/backend/internal/audit/domain"
	"servicehub/backend/internal/identity/credential"
	identitydomain "servicehub/backend/internal/identity/domain"
	"servicehub/backend/internal/platform/requestctx"
	profiledomain "servicehub/backend/internal/profile/domain"
	"servicehub/backend/internal/telemetry"
	"servicehub/backend/internal/telemetry/metrics"
)

// IdentityStore is the part of credential.Store the coordinator uses.
type IdentityStore interface {
	CreateIdentity(ctx context.Context, p credential.CreateIdentityParams) (*identitydomain.Identity, error)
	DeleteIdentity(ctx context.Context, id string) error
}

// ProfileRepo is the minimal profile repository needed by the coordinator.
type ProfileRepo interface {
	Create(ctx context.Context, p *profiledomain.Profile) error
}

// AuditLogger records provisioning outcomes. Best-effort.
type AuditLogger interface {
	LogEvent(ctx context.Context, userID, action, resource string, metadata map[string]string)
}

// OutcomeCounter counts registrations by outcome.
type OutcomeCounter interface {
	ProvisioningOutcome(outcome string)
}

// RegisterRequest is the input of Register.
type RegisterRequest struct {
	Email       string
	Password    string
	DisplayName string
	Surname1    string
	Surname2    *string
	// BirthDate is YYYY-MM-DD.
	BirthDate string
}

// Coordinator creates an identity and its profile as one logical operation.
type Coordinator struct {
	identities IdentityStore
	profiles   ProfileRepo
	audit      AuditLogger
	counts     OutcomeCounter
	events     telemetry.EventEmitter
	log        *slog.Logger
	now        func() time.Time
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithAudit records outcomes in the audit log.
func WithAudit(a AuditLogger) Option { return func(c *Coordinator) { c.audit = a } }

// WithOutcomeCounter counts outcomes.
func WithOutcomeCounter(o OutcomeCounter) Option { return func(c *Coordinator) { c.counts = o } }

// WithEventEmitter sends operator events for failed compensations.
func WithEventEmitter(e telemetry.EventEmitter) Option { return func(c *Coordinator) { c.events = e } }

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(l *slog.Logger) Option { return func(c *Coordinator) { c.log = l } }

// NewCoordinator returns a Coordinator. Both stores are process-scoped clients built at startup.
func NewCoordinator(identities IdentityStore, profiles ProfileRepo, opts ...Option) *Coordinator {
	c := &Coordinator{
		identities: identities,
		profiles:   profiles,
		events:     telemetry.Noop{},
		log:        slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register creates the identity (pre-confirmed, display name "{displayName} {surname1}"),
// then the profile keyed by the new identity id. A failed profile insert deletes the
// identity again. Request cancellation is not propagated: once input is valid the calls run
// to completion bounded by the client timeouts.
func (c *Coordinator) Register(ctx context.Context, req RegisterRequest) (string, error) {
	p, err := c.validate(req)
	if err != nil {
		c.count(InvalidInput)
		return "", err
	}
	ctx = context.WithoutCancel(ctx)

	ident, err := c.identities.CreateIdentity(ctx, credential.CreateIdentityParams{
		Email:       p.Email,
		Password:    req.Password,
		DisplayName: p.FullName(),
		Confirmed:   true,
	})
	if err == nil && (ident == nil || ident.ID == "") {
		err = errors.New("credential store returned no identity id")
	}
	if err != nil {
		c.log.WarnContext(ctx, "provisioning.identity_failed", slog.Any("error", err))
		c.count(IdentityCreationFailed)
		return "", &Error{Kind: IdentityCreationFailed, Err: err}
	}

	p.IdentityID = ident.ID
	if err := c.profiles.Create(ctx, p); err != nil {
		return "", c.compensate(ctx, ident.ID, err)
	}

	c.log.InfoContext(ctx, "provisioning.registered", slog.String("identity_id", ident.ID))
	c.count(0)
	c.auditEvent(ctx, ident.ID, auditdomain.ActionIdentityRegistered, map[string]string{"email": p.Email})
	return ident.ID, nil
}

func (c *Coordinator) compensate(ctx context.Context, identityID string, profileErr error) error {
	delErr := c.identities.DeleteIdentity(ctx, identityID)
	if delErr == nil || errors.Is(delErr, credential.ErrIdentityNotFound) {
		c.log.WarnContext(ctx, "provisioning.compensated",
			slog.String("identity_id", identityID),
			slog.Any("profile_error", profileErr),
		)
		c.count(ProfileCreationFailed)
		c.auditEvent(ctx, identityID, auditdomain.ActionIdentityCompensated, map[string]string{"profile_error": profileErr.Error()})
		return &Error{Kind: ProfileCreationFailed, IdentityID: identityID, Err: profileErr}
	}

	c.log.ErrorContext(ctx, "provisioning.compensation_failed",
		slog.String("identity_id", identityID),
		slog.Any("profile_error", profileErr),
		slog.Any("compensation_error", delErr),
	)
	c.count(CompensationFailed)
	attrs := map[string]string{
		"profile_error":      profileErr.Error(),
		"compensation_error": delErr.Error(),
	}
	c.auditEvent(ctx, identityID, auditdomain.ActionIdentityCompensationFailed, attrs)
	if err := c.events.Emit(ctx, telemetry.Event{
		Type:       auditdomain.ActionIdentityCompensationFailed,
		Severity:   telemetry.SeverityError,
		IdentityID: identityID,
		RequestID:  requestctx.RequestID(ctx),
		Attributes: attrs,
		Time:       c.now().UTC(),
	}); err != nil {
		c.log.WarnContext(ctx, "provisioning.event_emit_failed", slog.Any("error", err))
	}
	return &Error{Kind: CompensationFailed, IdentityID: identityID, Err: profileErr, CompensationErr: delErr}
}

// validate checks every precondition before any external call and builds the profile.
func (c *Coordinator) validate(req RegisterRequest) (*profiledomain.Profile, error) {
	email := credential.NormalizeEmail(req.Email)
	displayName := strings.TrimSpace(req.DisplayName)
	surname1 := strings.TrimSpace(req.Surname1)
	switch {
	case email == "":
		return nil, invalid("email is required")
	case req.Password == "":
		return nil, invalid("password is required")
	case displayName == "":
		return nil, invalid("display name is required")
	case surname1 == "":
		return nil, invalid("surname1 is required")
	case strings.TrimSpace(req.BirthDate) == "":
		return nil, invalid("birth date is required")
	}
	if err := credential.ValidateEmail(email); err != nil {
		return nil, &Error{Kind: InvalidInput, Err: err}
	}
	birth, err := profiledomain.ParseBirthDate(req.BirthDate, c.now())
	if err != nil {
		return nil, &Error{Kind: InvalidInput, Err: err}
	}
	p := &profiledomain.Profile{
		DisplayName: displayName,
		Surname1:    surname1,
		BirthDate:   birth,
		Email:       email,
	}
	if req.Surname2 != nil {
		if s := strings.TrimSpace(*req.Surname2); s != "" {
			p.Surname2 = &s
		}
	}
	return p, nil
}

func (c *Coordinator) count(k Kind) {
	if c.counts == nil {
		return
	}
	if k == 0 {
		c.counts.ProvisioningOutcome(metrics.OutcomeSuccess)
		return
	}
	c.counts.ProvisioningOutcome(k.String())
}

func (c *Coordinator) auditEvent(ctx context.Context, identityID, action string, meta map[string]string) {
	if c.audit != nil {
		c.audit.LogEvent(ctx, identityID, action, "identity", meta)
	}
}
