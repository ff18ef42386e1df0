package storefront

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

type BlacklistUserMessage struct {
	TargetID uuid.UUID      `json:"-"`
	Reason   string         `json:"reason"`
	Actor    *User          `json:"-"`
	Request  RequestContext `json:"-"`
}

func (e BlacklistUserMessage) Type() string { return "user.blacklist" }

// BlacklistUserHandler suspends an account. The role check runs against the
// freshly resolved acting principal, not the session claim.
type BlacklistUserHandler struct {
	repo   RepositoryManager
	audit  *AuditTrail
	logger Logger
	now    func() time.Time
}

func NewBlacklistUserHandler(repo RepositoryManager) *BlacklistUserHandler {
	return &BlacklistUserHandler{
		repo:   repo,
		logger: defLogger{},
		now:    time.Now,
	}
}

func (h *BlacklistUserHandler) WithAuditTrail(trail *AuditTrail) *BlacklistUserHandler {
	h.audit = trail
	return h
}

func (h *BlacklistUserHandler) WithLogger(logger Logger) *BlacklistUserHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *BlacklistUserHandler) WithClock(clock func() time.Time) *BlacklistUserHandler {
	if clock != nil {
		h.now = clock
	}
	return h
}

func (h *BlacklistUserHandler) Execute(ctx context.Context, event BlacklistUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user blacklisting",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *BlacklistUserHandler) execute(ctx context.Context, event BlacklistUserMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := RequireAdmin(event.Actor); err != nil {
		return err
	}

	at := h.now()

	user, err := h.repo.Users().SetBlacklist(ctx, event.TargetID, event.Actor.ID, event.Reason, at)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return goerrors.New("user not found", goerrors.CategoryNotFound).
				WithCode(goerrors.CodeNotFound)
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to blacklist user")
	}

	h.logger.Info("user %s blacklisted by %s", user.ID.String(), event.Actor.ID.String())

	h.audit.Record(ctx, AuditEntry{
		Action:       AuditActionUserBlacklisted,
		ResourceKind: AuditResourceUser,
		ResourceID:   user.ID.String(),
		Actor:        ActorFromUser(event.Actor),
		Changes: map[string]any{
			"is_blacklisted": true,
			"reason":         event.Reason,
		},
		Request:    event.Request,
		OccurredAt: at,
	})

	return nil
}

type UnblacklistUserMessage struct {
	TargetID uuid.UUID      `json:"-"`
	Actor    *User          `json:"-"`
	Request  RequestContext `json:"-"`
}

func (e UnblacklistUserMessage) Type() string { return "user.unblacklist" }

type UnblacklistUserHandler struct {
	repo   RepositoryManager
	audit  *AuditTrail
	logger Logger
}

func NewUnblacklistUserHandler(repo RepositoryManager) *UnblacklistUserHandler {
	return &UnblacklistUserHandler{
		repo:   repo,
		logger: defLogger{},
	}
}

func (h *UnblacklistUserHandler) WithAuditTrail(trail *AuditTrail) *UnblacklistUserHandler {
	h.audit = trail
	return h
}

func (h *UnblacklistUserHandler) WithLogger(logger Logger) *UnblacklistUserHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *UnblacklistUserHandler) Execute(ctx context.Context, event UnblacklistUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user unblacklisting",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *UnblacklistUserHandler) execute(ctx context.Context, event UnblacklistUserMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := RequireAdmin(event.Actor); err != nil {
		return err
	}

	user, err := h.repo.Users().ClearBlacklist(ctx, event.TargetID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return goerrors.New("user not found", goerrors.CategoryNotFound).
				WithCode(goerrors.CodeNotFound)
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to unblacklist user")
	}

	h.logger.Info("user %s unblacklisted by %s", user.ID.String(), event.Actor.ID.String())

	h.audit.Record(ctx, AuditEntry{
		Action:       AuditActionUserUnblacklisted,
		ResourceKind: AuditResourceUser,
		ResourceID:   user.ID.String(),
		Actor:        ActorFromUser(event.Actor),
		Changes: map[string]any{
			"is_blacklisted": false,
		},
		Request: event.Request,
	})

	return nil
}
