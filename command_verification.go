package storefront

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// resendCooldown is how long a principal must wait between verification
// emails. The token itself stays valid for the full VerificationTTL.
const resendCooldown = "1m"

type RequestVerificationMessage struct {
	UserID uuid.UUID `json:"-"`
}

func (e RequestVerificationMessage) Type() string { return "user.verification.request" }

// RequestVerificationHandler issues a fresh verification token and mails it.
// A newly issued token supersedes any prior outstanding token.
type RequestVerificationHandler struct {
	repo   RepositoryManager
	mailer VerificationMailer
	logger Logger
}

func NewRequestVerificationHandler(repo RepositoryManager, mailer VerificationMailer) *RequestVerificationHandler {
	return &RequestVerificationHandler{
		repo:   repo,
		mailer: mailer,
		logger: defLogger{},
	}
}

func (h *RequestVerificationHandler) WithLogger(logger Logger) *RequestVerificationHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RequestVerificationHandler) Execute(ctx context.Context, event RequestVerificationMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during verification request",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RequestVerificationHandler) execute(ctx context.Context, event RequestVerificationMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	user, err := h.repo.Users().GetByID(ctx, event.UserID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return ErrPrincipalNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not load user account")
	}

	if user.EmailVerified {
		return ErrAlreadyVerified
	}

	// the transport is checked before any state changes so a
	// misconfiguration fails loudly instead of silently dropping mail
	if h.mailer == nil {
		return ErrMailerNotConfigured
	}

	if user.VerificationExpiresAt != nil {
		issuedAt := user.VerificationExpiresAt.Add(-VerificationTTL)
		if recent, err := IsWithinThresholdPeriod(issuedAt, resendCooldown); err == nil && recent {
			return ErrVerificationThrottled
		}
	}

	token, expiresAt, err := NewVerificationToken()
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate verification token")
	}

	user, err = h.repo.Users().StoreVerificationToken(ctx, user.ID, token, expiresAt)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store verification token")
	}

	if err := h.mailer.SendVerification(ctx, user.Email, user.Name, token); err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to send verification email")
	}

	h.logger.Info("verification email sent to user %s", user.ID.String())

	return nil
}

type ConfirmVerificationMessage struct {
	Token string `json:"token"`
}

func (e ConfirmVerificationMessage) Type() string { return "user.verification.confirm" }

// ConfirmVerificationHandler consumes a verification token. Unknown,
// already consumed, and expired tokens are indistinguishable to the caller.
type ConfirmVerificationHandler struct {
	repo  RepositoryManager
	audit *AuditTrail
}

func NewConfirmVerificationHandler(repo RepositoryManager) *ConfirmVerificationHandler {
	return &ConfirmVerificationHandler{repo: repo}
}

func (h *ConfirmVerificationHandler) WithAuditTrail(trail *AuditTrail) *ConfirmVerificationHandler {
	h.audit = trail
	return h
}

func (h *ConfirmVerificationHandler) Execute(ctx context.Context, event ConfirmVerificationMessage) (*User, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during verification confirmation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ConfirmVerificationHandler) execute(ctx context.Context, event ConfirmVerificationMessage) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if event.Token == "" {
		return nil, ErrVerificationInvalid
	}

	user, err := h.repo.Users().ConsumeVerificationToken(ctx, event.Token)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrVerificationInvalid
		}
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to consume verification token")
	}

	h.audit.Record(ctx, AuditEntry{
		Action:       AuditActionEmailVerified,
		ResourceKind: AuditResourceUser,
		ResourceID:   user.ID.String(),
		Actor:        ActorFromUser(user),
	})

	return user, nil
}
