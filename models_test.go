package storefront_test

import (
	"encoding/json"
	"testing"
	"time"

	storefront "github.com/PlainAnoyn/go-storefront"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserJSONNeverLeaksSecrets(t *testing.T) {
	token := "verification-token"
	expires := time.Now().Add(time.Hour)

	user := &storefront.User{
		ID:                    uuid.New(),
		Name:                  "Test Shopper",
		Email:                 "shopper@example.com",
		Role:                  storefront.RoleStandard,
		PasswordHash:          "$2a$14$notarealhash",
		VerificationToken:     &token,
		VerificationExpiresAt: &expires,
	}

	raw, err := json.Marshal(user)
	require.NoError(t, err)

	payload := string(raw)
	assert.NotContains(t, payload, "notarealhash")
	assert.NotContains(t, payload, "verification-token")
	assert.NotContains(t, payload, "password_hash")
	assert.Contains(t, payload, "shopper@example.com")
}

func TestUserPublic(t *testing.T) {
	user := &storefront.User{
		ID:             uuid.New(),
		Name:           "Test Shopper",
		Email:          "shopper@example.com",
		Role:           storefront.RoleModerator,
		EmailVerified:  true,
		ProfilePicture: "https://cdn.example.com/p.png",
		PasswordHash:   "$2a$14$notarealhash",
	}

	profile := user.Public()
	assert.Equal(t, user.ID, profile.ID)
	assert.Equal(t, "Test Shopper", profile.Name)
	assert.Equal(t, "shopper@example.com", profile.Email)
	assert.Equal(t, storefront.RoleModerator, profile.Role)
	assert.True(t, profile.EmailVerified)
	assert.Equal(t, "https://cdn.example.com/p.png", profile.ProfilePicture)
}

func TestUserIdentity(t *testing.T) {
	user := &storefront.User{
		ID:    uuid.New(),
		Email: "shopper@example.com",
		Role:  storefront.RoleAdmin,
	}

	identity := user.Identity()
	assert.Equal(t, user.ID.String(), identity.ID())
	assert.Equal(t, "shopper@example.com", identity.Email())
	assert.Equal(t, storefront.RoleAdmin, identity.Role())
}

func TestOrderReceipt(t *testing.T) {
	paidAt := time.Now()
	paymentID := "pay_456"
	order := &storefront.Order{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		Total:         120.50,
		PaymentID:     &paymentID,
		PaymentStatus: storefront.PaymentPaid,
		IsPaid:        true,
		PaidAt:        &paidAt,
		Status:        storefront.OrderProcessing,
	}

	receipt := order.Receipt()
	assert.Equal(t, order.ID, receipt.OrderID)
	assert.Equal(t, &paymentID, receipt.PaymentID)
	assert.Equal(t, storefront.PaymentPaid, receipt.PaymentStatus)
	assert.True(t, receipt.IsPaid)
	assert.Equal(t, &paidAt, receipt.PaidAt)
	assert.Equal(t, storefront.OrderProcessing, receipt.OrderStatus)

	raw, err := json.Marshal(receipt)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "user_id")
	assert.NotContains(t, string(raw), "total")
}
