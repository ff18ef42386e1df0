package storefront

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// SessionGuard is the gate every protected operation passes through: token
// claims in, resolved principal out. It has no side effects.
type SessionGuard struct {
	tokens TokenService
	users  Users
	logger Logger
	audit  *AuditTrail
}

// NewSessionGuard builds a guard over the token service and credential store.
func NewSessionGuard(tokens TokenService, users Users) *SessionGuard {
	return &SessionGuard{
		tokens: tokens,
		users:  users,
		logger: defLogger{},
	}
}

func (g *SessionGuard) WithLogger(logger Logger) *SessionGuard {
	if logger != nil {
		g.logger = logger
	}
	return g
}

// TokenService returns the token service backing this guard.
func (g *SessionGuard) TokenService() TokenService {
	return g.tokens
}

// WithAuditTrail emits login activity through the given trail.
func (g *SessionGuard) WithAuditTrail(trail *AuditTrail) *SessionGuard {
	g.audit = trail
	return g
}

// Login verifies credentials against the stored hash and issues a signed
// session token. Blacklisted principals cannot log in even with valid
// credentials.
func (g *SessionGuard) Login(ctx context.Context, identifier, password string) (string, error) {
	user, err := g.users.GetByIdentifier(ctx, identifier)
	if err != nil {
		if repository.IsRecordNotFound(err) || errors.IsNotFound(err) {
			g.recordLogin(ctx, AuditActionUserLoginFailed, nil, map[string]any{
				"identifier": identifier,
				"reason":     "unknown identifier",
			})
			return "", ErrMismatchedHashAndPassword
		}
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to resolve identifier")
	}

	if user.IsBlacklisted {
		g.recordLogin(ctx, AuditActionUserLoginFailed, user, map[string]any{
			"identifier": identifier,
			"reason":     "blacklisted",
		})
		return "", ErrPrincipalBlacklisted
	}

	secret, err := g.users.GetSecret(ctx, user.ID)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to load credentials")
	}

	if err := ComparePasswordAndHash(password, secret); err != nil {
		g.recordLogin(ctx, AuditActionUserLoginFailed, user, map[string]any{
			"identifier": identifier,
			"reason":     "credential mismatch",
		})
		return "", err
	}

	token, err := g.tokens.Generate(user.Identity())
	if err != nil {
		return "", err
	}

	g.recordLogin(ctx, AuditActionUserLogin, user, nil)

	return token, nil
}

func (g *SessionGuard) recordLogin(ctx context.Context, action AuditAction, user *User, metadata map[string]any) {
	if g.audit == nil {
		return
	}

	resourceID := ""
	if user != nil {
		resourceID = user.ID.String()
	}

	g.audit.Record(ctx, AuditEntry{
		Action:       action,
		ResourceKind: AuditResourceUser,
		ResourceID:   resourceID,
		Actor:        ActorFromUser(user),
		Metadata:     metadata,
	})
}

// Authenticate verifies a raw token and resolves the acting principal.
// Steps, in order: validate signature/expiry, parse the subject, load the
// principal, reject blacklisted principals. A token for a deleted principal
// is not trusted.
func (g *SessionGuard) Authenticate(ctx context.Context, rawToken string) (*User, error) {
	if rawToken == "" {
		return nil, ErrUnableToFindSession
	}

	claims, err := g.tokens.Validate(rawToken)
	if err != nil {
		return nil, err
	}

	return g.ResolvePrincipal(ctx, claims)
}

// ResolvePrincipal resolves already-validated claims to a live principal,
// applying the blacklist check. This is mandatory on every protected path,
// not only login.
func (g *SessionGuard) ResolvePrincipal(ctx context.Context, claims AuthClaims) (*User, error) {
	if claims == nil {
		return nil, ErrTokenMalformed
	}

	id, err := uuid.Parse(claims.UserID())
	if err != nil {
		return nil, ErrTokenMalformed
	}

	user, err := g.users.GetByID(ctx, id)
	if err != nil {
		if repository.IsRecordNotFound(err) || errors.IsNotFound(err) {
			g.logger.Warn("session references missing principal %s", id.String())
			return nil, ErrPrincipalNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to resolve principal")
	}

	if user.IsBlacklisted {
		g.logger.Info("rejected blacklisted principal %s", id.String())
		return nil, ErrPrincipalBlacklisted
	}

	return user, nil
}

// RequireAdmin layers the administrator role check on top of guard success.
func RequireAdmin(user *User) error {
	if user == nil {
		return ErrPrincipalNotFound
	}

	if user.Role != RoleAdmin {
		return ErrAdminOnly
	}

	return nil
}

// RequireOwner enforces strict resource ownership.
func RequireOwner(user *User, ownerID uuid.UUID) error {
	if user == nil {
		return ErrPrincipalNotFound
	}

	if user.ID != ownerID {
		return ErrNotResourceOwner
	}

	return nil
}
