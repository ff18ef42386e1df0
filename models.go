package storefront

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the principal model. PasswordHash is excluded from JSON and from
// the public projection; read it explicitly through Users.GetSecret.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID             uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role           UserRole  `bun:"user_role,notnull" json:"user_role,omitempty"`
	Name           string    `bun:"name,notnull" json:"name,omitempty"`
	Username       string    `bun:"username,unique,nullzero" json:"username,omitempty"`
	Email          string    `bun:"email,notnull,unique" json:"email,omitempty"`
	ProfilePicture string    `bun:"profile_picture" json:"profile_picture,omitempty"`
	PasswordHash   string    `bun:"password_hash" json:"-"`

	EmailVerified         bool       `bun:"is_email_verified" json:"is_email_verified,omitempty"`
	VerificationToken     *string    `bun:"verification_token,nullzero" json:"-"`
	VerificationExpiresAt *time.Time `bun:"verification_expires_at,nullzero" json:"-"`

	IsBlacklisted   bool       `bun:"is_blacklisted" json:"is_blacklisted,omitempty"`
	BlacklistedBy   *uuid.UUID `bun:"blacklisted_by,nullzero" json:"blacklisted_by,omitempty"`
	BlacklistedAt   *time.Time `bun:"blacklisted_at,nullzero" json:"blacklisted_at,omitempty"`
	BlacklistReason string     `bun:"blacklist_reason" json:"blacklist_reason,omitempty"`

	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// PublicProfile is the read shape exposed to callers. It can never leak the
// secret because the secret is not part of the struct.
type PublicProfile struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Role           UserRole  `json:"role"`
	EmailVerified  bool      `json:"emailVerified"`
	ProfilePicture string    `json:"profilePicture,omitempty"`
}

// Public returns the caller-facing projection of the principal.
func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		Role:           u.Role,
		EmailVerified:  u.EmailVerified,
		ProfilePicture: u.ProfilePicture,
	}
}

// Identity adapts the user for token issuance.
func (u *User) Identity() Identity {
	return userIdentity{user: u}
}

type userIdentity struct {
	user *User
}

func (i userIdentity) ID() string    { return i.user.ID.String() }
func (i userIdentity) Email() string { return i.user.Email }
func (i userIdentity) Role() string  { return i.user.Role }

// PaymentStatus is the payment sub-state of an order
type PaymentStatus = string

const (
	// PaymentPending is the initial payment state
	PaymentPending PaymentStatus = "pending"
	// PaymentPaid is terminal for payment purposes
	PaymentPaid PaymentStatus = "paid"
	// PaymentFailed is retryable, a later callback may still pay
	PaymentFailed PaymentStatus = "failed"
)

// OrderStatus is the fulfillment state of an order
type OrderStatus = string

const (
	OrderCreated    OrderStatus = "created"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// Order is the order model. UserID is the owning principal and is immutable
// after creation; PaidAt is written exactly once, on the transition to paid.
type Order struct {
	bun.BaseModel `bun:"table:orders,alias:ord"`

	ID     uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID uuid.UUID `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	Total  float64   `bun:"total,notnull" json:"total,omitempty"`

	PaymentID     *string       `bun:"payment_id,nullzero" json:"payment_id,omitempty"`
	PaymentStatus PaymentStatus `bun:"payment_status,notnull" json:"payment_status,omitempty"`
	IsPaid        bool          `bun:"is_paid" json:"is_paid,omitempty"`
	PaidAt        *time.Time    `bun:"paid_at,nullzero" json:"paid_at,omitempty"`

	Status OrderStatus `bun:"order_status,notnull" json:"order_status,omitempty"`

	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// PaymentReceipt is the payment-facing view returned by ConfirmPayment.
// Callers never see the full order internals.
type PaymentReceipt struct {
	OrderID       uuid.UUID     `json:"order_id"`
	PaymentID     *string       `json:"payment_id,omitempty"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	IsPaid        bool          `json:"is_paid"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`
	OrderStatus   OrderStatus   `json:"order_status"`
}

// Receipt projects the payment-facing fields of the order.
func (o *Order) Receipt() *PaymentReceipt {
	return &PaymentReceipt{
		OrderID:       o.ID,
		PaymentID:     o.PaymentID,
		PaymentStatus: o.PaymentStatus,
		IsPaid:        o.IsPaid,
		PaidAt:        o.PaidAt,
		OrderStatus:   o.Status,
	}
}

// AuditRecord is immutable once written. Resource deletion does not cascade;
// history outlives the records it describes.
type AuditRecord struct {
	bun.BaseModel `bun:"table:audit_records,alias:aud"`

	ID           uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Action       string         `bun:"action,notnull" json:"action,omitempty"`
	ResourceKind string         `bun:"resource_kind,notnull" json:"resource_kind,omitempty"`
	ResourceID   string         `bun:"resource_id,notnull" json:"resource_id,omitempty"`
	ActorID      uuid.UUID      `bun:"actor_id,type:uuid" json:"actor_id,omitempty"`
	ActorEmail   string         `bun:"actor_email" json:"actor_email,omitempty"`
	Changes      map[string]any `bun:"changes,type:jsonb" json:"changes,omitempty"`
	Metadata     map[string]any `bun:"metadata,type:jsonb" json:"metadata,omitempty"`
	IP           string         `bun:"ip" json:"ip,omitempty"`
	UserAgent    string         `bun:"user_agent" json:"user_agent,omitempty"`
	CreatedAt    *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}
