package storefront

import (
	"context"
	"net/mail"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var userSecretSQL = `SELECT "usr"."password_hash" AS "password_hash", "usr"."id" AS "id"
FROM "users" AS "usr"
WHERE
	"usr"."deleted_at" IS NULL
AND (
	"usr"."id" = ?
) LIMIT 1;`

var updateUserPasswordSQL = `UPDATE "users" AS "usr"
SET
	"password_hash" = ?
WHERE
	"usr"."deleted_at" IS NULL
AND (
	"usr"."id" = ?
) RETURNING *;`

var storeVerificationTokenSQL = `UPDATE "users" AS "usr"
SET
	"verification_token" = ?,
	"verification_expires_at" = ?
WHERE
	"usr"."deleted_at" IS NULL
AND (
	"usr"."id" = ?
) RETURNING *;`

// consumeVerificationTokenSQL is the single-statement consume: it matches the
// exact token and a live expiry, so a token can be redeemed at most once even
// under concurrent requests. Zero rows means unknown, used, or expired.
var consumeVerificationTokenSQL = `UPDATE "users" AS "usr"
SET
	"is_email_verified" = TRUE,
	"verification_token" = NULL,
	"verification_expires_at" = NULL
WHERE
	"usr"."deleted_at" IS NULL
AND "usr"."verification_token" = ?
AND "usr"."verification_expires_at" > ?
RETURNING *;`

var setBlacklistSQL = `UPDATE "users" AS "usr"
SET
	"is_blacklisted" = TRUE,
	"blacklisted_by" = ?,
	"blacklisted_at" = ?,
	"blacklist_reason" = ?
WHERE
	"usr"."deleted_at" IS NULL
AND (
	"usr"."id" = ?
) RETURNING *;`

var clearBlacklistSQL = `UPDATE "users" AS "usr"
SET
	"is_blacklisted" = FALSE,
	"blacklisted_by" = NULL,
	"blacklisted_at" = NULL,
	"blacklist_reason" = ''
WHERE
	"usr"."deleted_at" IS NULL
AND (
	"usr"."id" = ?
) RETURNING *;`

// Users is the credential store. Reads return records without surfacing the
// secret to callers; GetSecret is the explicit internal-only projection.
type Users interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)
	Register(ctx context.Context, user *User) (*User, error)

	GetSecret(ctx context.Context, id uuid.UUID) (string, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error

	StoreVerificationToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) (*User, error)
	ConsumeVerificationToken(ctx context.Context, token string) (*User, error)

	SetBlacklist(ctx context.Context, id uuid.UUID, by uuid.UUID, reason string, at time.Time) (*User, error)
	ClearBlacklist(ctx context.Context, id uuid.UUID) (*User, error)
}

type users struct {
	repo repository.Repository[*User]
	db   *bun.DB
}

var _ Users = (*users)(nil)

// NewUsersRepository returns the bun-backed credential store.
func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		repo: repo,
		db:   db,
	}
}

func (a *users) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return a.repo.GetByID(ctx, id.String())
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Where("lower(?TableAlias.email) = ?", NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"email": email})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) GetByIdentifier(ctx context.Context, identifier string) (*User, error) {
	options := resolveUserIdentifier(identifier)
	if len(options) == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{"identifier": identifier})
	}

	for _, opt := range options {
		record := &User{}
		err := a.db.NewSelect().
			Model(record).
			Where("?TableAlias."+opt.column+" = ?", opt.value).
			Limit(1).
			Scan(ctx)

		if err != nil {
			if repository.IsRecordNotFound(err) {
				continue
			}
			return nil, err
		}

		return record, nil
	}

	return nil, repository.NewRecordNotFound().
		WithMetadata(map[string]any{
			"identifier": identifier,
		})
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	prepareUserDefaults(user)

	if _, err := a.GetByEmail(ctx, user.Email); err == nil {
		return nil, goerrors.New("email address is already registered", goerrors.CategoryConflict).
			WithCode(goerrors.CodeConflict).
			WithMetadata(map[string]any{"email": user.Email})
	} else if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	return a.repo.Create(ctx, user)
}

func (a *users) GetSecret(ctx context.Context, id uuid.UUID) (string, error) {
	res, err := a.repo.RawTx(ctx, a.db, userSecretSQL, id.String())
	if err != nil {
		return "", err
	}

	if len(res) == 0 {
		return "", repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id.String()})
	}

	return res[0].PasswordHash, nil
}

func (a *users) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	res, err := a.repo.RawTx(ctx, a.db, updateUserPasswordSQL, passwordHash, id.String())
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id.String()})
	}

	return nil
}

func (a *users) StoreVerificationToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) (*User, error) {
	res, err := a.repo.RawTx(ctx, a.db, storeVerificationTokenSQL, token, expiresAt, id.String())
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id.String()})
	}

	return res[0], nil
}

func (a *users) ConsumeVerificationToken(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrVerificationInvalid
	}

	res, err := a.repo.RawTx(ctx, a.db, consumeVerificationTokenSQL, token, time.Now())
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, ErrVerificationInvalid
	}

	return res[0], nil
}

func (a *users) SetBlacklist(ctx context.Context, id uuid.UUID, by uuid.UUID, reason string, at time.Time) (*User, error) {
	res, err := a.repo.RawTx(ctx, a.db, setBlacklistSQL, by.String(), at, reason, id.String())
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id.String()})
	}

	return res[0], nil
}

func (a *users) ClearBlacklist(ctx context.Context, id uuid.UUID) (*User, error) {
	res, err := a.repo.RawTx(ctx, a.db, clearBlacklistSQL, id.String())
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id.String()})
	}

	return res[0], nil
}

// NormalizeEmail lower-cases and trims an address so uniqueness is
// case-insensitive process-wide.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.Role == "" {
		record.Role = RoleStandard
	}

	record.Email = NormalizeEmail(record.Email)

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}

type identifierOption struct {
	column string
	value  string
}

func resolveUserIdentifier(identifier string) []identifierOption {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return nil
	}

	options := make([]identifierOption, 0, 3)

	if isUUID(trimmed) {
		options = append(options, identifierOption{
			column: "id",
			value:  trimmed,
		})
	}

	if isEmail(trimmed) {
		options = append(options, identifierOption{
			column: "email",
			value:  strings.ToLower(trimmed),
		})
	}

	options = append(options, identifierOption{
		column: "username",
		value:  trimmed,
	})

	return options
}

func isEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

func isUUID(identifier string) bool {
	_, err := uuid.Parse(identifier)
	return err == nil
}
