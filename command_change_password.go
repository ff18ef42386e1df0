package storefront

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// ChangePasswordMessage carries the credential rotation request for an
// already authenticated principal. The plaintext values never leave this
// message and are never logged.
type ChangePasswordMessage struct {
	UserID          uuid.UUID `json:"-"`
	CurrentPassword string    `json:"current_password"`
	NewPassword     string    `json:"new_password"`
}

func (e ChangePasswordMessage) Type() string { return "user.password.change" }

type ChangePasswordHandler struct {
	repo   RepositoryManager
	audit  *AuditTrail
	logger Logger
}

func NewChangePasswordHandler(repo RepositoryManager) *ChangePasswordHandler {
	return &ChangePasswordHandler{
		repo:   repo,
		logger: defLogger{},
	}
}

func (h *ChangePasswordHandler) WithAuditTrail(trail *AuditTrail) *ChangePasswordHandler {
	h.audit = trail
	return h
}

func (h *ChangePasswordHandler) WithLogger(logger Logger) *ChangePasswordHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ChangePasswordHandler) Execute(ctx context.Context, event ChangePasswordMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password change",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ChangePasswordHandler) execute(ctx context.Context, event ChangePasswordMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	// the stored hash is re-fetched at execution time, the session claim
	// alone is not enough to rotate a credential
	secret, err := h.repo.Users().GetSecret(ctx, event.UserID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return ErrPrincipalNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not load stored credentials")
	}

	if err := ComparePasswordAndHash(event.CurrentPassword, secret); err != nil {
		return ErrMismatchedHashAndPassword
	}

	if err := ValidatePasswordPolicy(event.NewPassword); err != nil {
		return err
	}

	hash, err := HashPassword(event.NewPassword)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash new password")
	}

	if err := h.repo.Users().UpdatePassword(ctx, event.UserID, hash); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist new password")
	}

	h.logger.Info("password rotated for user %s", event.UserID.String())

	h.audit.Record(ctx, AuditEntry{
		Action:       AuditActionPasswordChanged,
		ResourceKind: AuditResourceUser,
		ResourceID:   event.UserID.String(),
		Actor:        ActorRef{ID: event.UserID, Type: "user"},
	})

	return nil
}
