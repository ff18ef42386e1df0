package storefront

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// AuditAction tags the privileged change an audit entry describes.
type AuditAction string

const (
	AuditActionUserLogin         AuditAction = "user.login"
	AuditActionUserLoginFailed   AuditAction = "user.login.failed"
	AuditActionUserBlacklisted   AuditAction = "user.blacklisted"
	AuditActionUserUnblacklisted AuditAction = "user.unblacklisted"
	AuditActionPasswordChanged   AuditAction = "user.password.changed"
	AuditActionEmailVerified     AuditAction = "user.email.verified"
	AuditActionOrderPaid         AuditAction = "order.payment.confirmed"
	AuditActionOrderPaymentFail  AuditAction = "order.payment.failed"
	AuditActionOrderFulfillment  AuditAction = "order.fulfillment.advanced"
)

// Resource kinds referenced by audit entries.
const (
	AuditResourceUser  = "user"
	AuditResourceOrder = "order"
)

// ActorRef identifies who triggered a privileged change.
type ActorRef struct {
	ID    uuid.UUID
	Email string
	Type  string
}

// SystemActor attributes changes with no acting principal.
func SystemActor() ActorRef {
	return ActorRef{Type: "system"}
}

// ActorFromUser snapshots the acting principal for attribution. The email is
// copied so the record stays meaningful if the principal is later deleted.
func ActorFromUser(u *User) ActorRef {
	if u == nil {
		return ActorRef{Type: "unknown"}
	}
	return ActorRef{
		ID:    u.ID,
		Email: u.Email,
		Type:  "user",
	}
}

// RequestContext carries caller provenance into audit entries.
type RequestContext struct {
	IP        string
	UserAgent string
}

const provenanceUnknown = "unknown"

// ProvenanceFromRequest extracts caller provenance from forwarding headers,
// falling back to "unknown" rather than omitting the fields.
func ProvenanceFromRequest(c router.Context) RequestContext {
	rc := RequestContext{IP: provenanceUnknown, UserAgent: provenanceUnknown}
	if c == nil {
		return rc
	}

	if fwd := c.GetString(fiber.HeaderXForwardedFor, ""); fwd != "" {
		// first hop is the originating client
		rc.IP = strings.TrimSpace(strings.Split(fwd, ",")[0])
	} else if real := c.GetString("X-Real-IP", ""); real != "" {
		rc.IP = strings.TrimSpace(real)
	}

	if ua := c.GetString(fiber.HeaderUserAgent, ""); ua != "" {
		rc.UserAgent = ua
	}

	return rc
}

// AuditEntry is the write-side shape handed to the trail.
type AuditEntry struct {
	Action       AuditAction
	ResourceKind string
	ResourceID   string
	Actor        ActorRef
	Changes      map[string]any
	Metadata     map[string]any
	Request      RequestContext
	OccurredAt   time.Time
}

// AuditTrail records privileged changes best-effort. Record never reports
// failure to the caller: the triggering operation has already completed and
// must not be rolled back or blocked by bookkeeping.
type AuditTrail struct {
	store    AuditRecords
	logger   Logger
	reporter ErrorReporter
	now      func() time.Time
	sync     bool
	timeout  time.Duration
}

// AuditTrailOption customizes trail construction.
type AuditTrailOption func(*AuditTrail)

// WithAuditLogger overrides the diagnostic logger.
func WithAuditLogger(logger Logger) AuditTrailOption {
	return func(t *AuditTrail) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithAuditErrorReporter forwards swallowed write failures to telemetry.
func WithAuditErrorReporter(reporter ErrorReporter) AuditTrailOption {
	return func(t *AuditTrail) {
		if reporter != nil {
			t.reporter = reporter
		}
	}
}

// WithAuditClock injects a custom clock (useful for tests).
func WithAuditClock(clock func() time.Time) AuditTrailOption {
	return func(t *AuditTrail) {
		if clock != nil {
			t.now = clock
		}
	}
}

// WithSynchronousWrites performs writes inline instead of detaching them.
// Use in tests and shutdown paths where the write must land before return;
// failures are still swallowed.
func WithSynchronousWrites() AuditTrailOption {
	return func(t *AuditTrail) {
		t.sync = true
	}
}

// NewAuditTrail returns a trail writing through the given store.
func NewAuditTrail(store AuditRecords, opts ...AuditTrailOption) *AuditTrail {
	t := &AuditTrail{
		store:    store,
		logger:   defLogger{},
		reporter: noopErrorReporter{},
		now:      time.Now,
		timeout:  5 * time.Second,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}

	return t
}

// Record appends an audit entry. The write is detached from the caller's
// context: a cancelled request must not lose the record for work it already
// committed, and a failed write must not surface.
func (t *AuditTrail) Record(ctx context.Context, entry AuditEntry) {
	if t == nil || t.store == nil {
		return
	}

	record := t.buildRecord(entry)

	if t.sync {
		t.write(record)
		return
	}

	go t.write(record)
}

func (t *AuditTrail) buildRecord(entry AuditEntry) *AuditRecord {
	occurred := entry.OccurredAt
	if occurred.IsZero() {
		occurred = t.now()
	}

	actor := entry.Actor
	if actor == (ActorRef{}) {
		actor = SystemActor()
	}

	ip := entry.Request.IP
	if ip == "" {
		ip = provenanceUnknown
	}
	ua := entry.Request.UserAgent
	if ua == "" {
		ua = provenanceUnknown
	}

	return &AuditRecord{
		ID:           uuid.New(),
		Action:       string(entry.Action),
		ResourceKind: entry.ResourceKind,
		ResourceID:   entry.ResourceID,
		ActorID:      actor.ID,
		ActorEmail:   actor.Email,
		Changes:      entry.Changes,
		Metadata:     entry.Metadata,
		IP:           ip,
		UserAgent:    ua,
		CreatedAt:    &occurred,
	}
}

func (t *AuditTrail) write(record *AuditRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	if _, err := t.store.Create(ctx, record); err != nil {
		t.logger.Warn("audit trail write error: %v", err)
		t.reporter.Report(err, map[string]any{
			"action":        record.Action,
			"resource_kind": record.ResourceKind,
			"resource_id":   record.ResourceID,
		})
	}
}
