package storefront_test

import (
	"context"
	"testing"
	"time"

	storefront "github.com/PlainAnoyn/go-storefront"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strptr(s string) *string { return &s }

func seedOrder(owner *storefront.User) *storefront.Order {
	return &storefront.Order{
		ID:            uuid.New(),
		UserID:        owner.ID,
		Total:         49.99,
		PaymentStatus: storefront.PaymentPending,
		Status:        storefront.OrderCreated,
	}
}

func newLifecycleFixture() (*fakeOrders, *fakeAuditRecords, *storefront.OrderLifecycle) {
	orders := newFakeOrders()
	audit := &fakeAuditRecords{}
	trail := storefront.NewAuditTrail(audit, storefront.WithSynchronousWrites())
	lifecycle := storefront.NewOrderLifecycle(orders, storefront.WithLifecycleAuditTrail(trail))
	return orders, audit, lifecycle
}

func TestConfirmPayment(t *testing.T) {
	ctx := context.Background()
	owner := &storefront.User{ID: uuid.New(), Email: "owner@example.com", Role: storefront.RoleStandard}
	stranger := &storefront.User{ID: uuid.New(), Email: "other@example.com", Role: storefront.RoleStandard}
	admin := &storefront.User{ID: uuid.New(), Email: "admin@example.com", Role: storefront.RoleAdmin}

	t.Run("success callback pays the order", func(t *testing.T) {
		orders, audit, lifecycle := newLifecycleFixture()
		order := seedOrder(owner)
		orders.orders[order.ID] = order

		receipt, err := lifecycle.ConfirmPayment(ctx, owner, order.ID, storefront.PaymentUpdate{
			PaymentID: strptr("pay_123"),
			Status:    "success",
		}, storefront.RequestContext{})
		require.NoError(t, err)

		assert.Equal(t, storefront.PaymentPaid, receipt.PaymentStatus)
		assert.True(t, receipt.IsPaid)
		require.NotNil(t, receipt.PaidAt)
		require.NotNil(t, receipt.PaymentID)
		assert.Equal(t, "pay_123", *receipt.PaymentID)
		assert.Equal(t, storefront.OrderProcessing, receipt.OrderStatus)

		require.Equal(t, 1, audit.count())
		assert.Equal(t, string(storefront.AuditActionOrderPaid), audit.last().Action)
	})

	t.Run("paid is accepted as a success status", func(t *testing.T) {
		orders, _, lifecycle := newLifecycleFixture()
		order := seedOrder(owner)
		orders.orders[order.ID] = order

		receipt, err := lifecycle.ConfirmPayment(ctx, owner, order.ID, storefront.PaymentUpdate{
			Status: "PAID",
		}, storefront.RequestContext{})
		require.NoError(t, err)
		assert.True(t, receipt.IsPaid)
	})

	t.Run("replayed success callback is a no-op", func(t *testing.T) {
		orders, audit, lifecycle := newLifecycleFixture()
		order := seedOrder(owner)
		orders.orders[order.ID] = order

		first, err := lifecycle.ConfirmPayment(ctx, owner, order.ID, storefront.PaymentUpdate{
			Status: "success",
		}, storefront.RequestContext{})
		require.NoError(t, err)
		require.NotNil(t, first.PaidAt)
		firstPaidAt := *first.PaidAt

		time.Sleep(5 * time.Millisecond)

		second, err := lifecycle.ConfirmPayment(ctx, owner, order.ID, storefront.PaymentUpdate{
			Status: "success",
		}, storefront.RequestContext{})
		require.NoError(t, err)

		require.NotNil(t, second.PaidAt)
		assert.Equal(t, firstPaidAt, *second.PaidAt)
		assert.Equal(t, storefront.PaymentPaid, second.PaymentStatus)

		// only the applied transition is audited
		assert.Equal(t, 1, audit.count())
	})

	t.Run("failed callback marks payment failed only", func(t *testing.T) {
		orders, audit, lifecycle := newLifecycleFixture()
		order := seedOrder(owner)
		orders.orders[order.ID] = order

		receipt, err := lifecycle.ConfirmPayment(ctx, owner, order.ID, storefront.PaymentUpdate{
			Status: "failed",
		}, storefront.RequestContext{})
		require.NoError(t, err)

		assert.Equal(t, storefront.PaymentFailed, receipt.PaymentStatus)
		assert.False(t, receipt.IsPaid)
		assert.Nil(t, receipt.PaidAt)
		assert.Equal(t, storefront.OrderCreated, receipt.OrderStatus)
		assert.Equal(t, 1, audit.count())
	})

	t.Run("failed callback after paid leaves the order paid", func(t *testing.T) {
		orders, _, lifecycle := newLifecycleFixture()
		order := seedOrder(owner)
		orders.orders[order.ID] = order

		_, err := lifecycle.ConfirmPayment(ctx, owner, order.ID, storefront.PaymentUpdate{
			Status: "success",
		}, storefront.RequestContext{})
		require.NoError(t, err)

		receipt, err := lifecycle.ConfirmPayment(ctx, owner, order.ID, storefront.PaymentUpdate{
			Status: "failed",
		}, storefront.RequestContext{})
		require.NoError(t, err)
		assert.Equal(t, storefront.PaymentPaid, receipt.PaymentStatus)
		assert.True(t, receipt.IsPaid)
	})

	t.Run("unknown status causes no transition", func(t *testing.T) {
		orders, audit, lifecycle := newLifecycleFixture()
		order := seedOrder(owner)
		orders.orders[order.ID] = order

		receipt, err := lifecycle.ConfirmPayment(ctx, owner, order.ID, storefront.PaymentUpdate{
			Status: "refunded",
		}, storefront.RequestContext{})
		require.NoError(t, err)

		assert.Equal(t, storefront.PaymentPending, receipt.PaymentStatus)
		assert.False(t, receipt.IsPaid)
		assert.Equal(t, 0, audit.count())
	})

	t.Run("non-owner is forbidden, state unchanged", func(t *testing.T) {
		orders, audit, lifecycle := newLifecycleFixture()
		order := seedOrder(owner)
		orders.orders[order.ID] = order

		receipt, err := lifecycle.ConfirmPayment(ctx, stranger, order.ID, storefront.PaymentUpdate{
			Status: "success",
		}, storefront.RequestContext{})
		assert.Nil(t, receipt)
		assert.ErrorIs(t, err, storefront.ErrNotResourceOwner)

		assert.Equal(t, storefront.PaymentPending, order.PaymentStatus)
		assert.Equal(t, 0, audit.count())
	})

	t.Run("administrators get no ownership override", func(t *testing.T) {
		orders, _, lifecycle := newLifecycleFixture()
		order := seedOrder(owner)
		orders.orders[order.ID] = order

		_, err := lifecycle.ConfirmPayment(ctx, admin, order.ID, storefront.PaymentUpdate{
			Status: "success",
		}, storefront.RequestContext{})
		assert.ErrorIs(t, err, storefront.ErrNotResourceOwner)
	})

	t.Run("unknown order", func(t *testing.T) {
		_, _, lifecycle := newLifecycleFixture()

		receipt, err := lifecycle.ConfirmPayment(ctx, owner, uuid.New(), storefront.PaymentUpdate{
			Status: "success",
		}, storefront.RequestContext{})
		assert.Nil(t, receipt)
		assert.ErrorIs(t, err, storefront.ErrOrderNotFound)
	})
}

func TestAdvanceFulfillment(t *testing.T) {
	ctx := context.Background()
	owner := &storefront.User{ID: uuid.New(), Role: storefront.RoleStandard}
	admin := &storefront.User{ID: uuid.New(), Email: "admin@example.com", Role: storefront.RoleAdmin}

	t.Run("admin advances along the allowed path", func(t *testing.T) {
		orders, audit, lifecycle := newLifecycleFixture()
		order := seedOrder(owner)
		order.Status = storefront.OrderProcessing
		orders.orders[order.ID] = order

		updated, err := lifecycle.AdvanceFulfillment(ctx, admin, order.ID, storefront.OrderShipped, storefront.RequestContext{})
		require.NoError(t, err)
		assert.Equal(t, storefront.OrderShipped, updated.Status)

		updated, err = lifecycle.AdvanceFulfillment(ctx, admin, order.ID, storefront.OrderDelivered, storefront.RequestContext{})
		require.NoError(t, err)
		assert.Equal(t, storefront.OrderDelivered, updated.Status)

		assert.Equal(t, 2, audit.count())
		assert.Equal(t, string(storefront.AuditActionOrderFulfillment), audit.last().Action)
	})

	t.Run("invalid transition is rejected", func(t *testing.T) {
		orders, _, lifecycle := newLifecycleFixture()
		order := seedOrder(owner)
		orders.orders[order.ID] = order

		_, err := lifecycle.AdvanceFulfillment(ctx, admin, order.ID, storefront.OrderDelivered, storefront.RequestContext{})
		assert.ErrorIs(t, err, storefront.ErrInvalidTransition)
	})

	t.Run("terminal states stay terminal", func(t *testing.T) {
		orders, _, lifecycle := newLifecycleFixture()
		order := seedOrder(owner)
		order.Status = storefront.OrderDelivered
		orders.orders[order.ID] = order

		_, err := lifecycle.AdvanceFulfillment(ctx, admin, order.ID, storefront.OrderCancelled, storefront.RequestContext{})
		assert.ErrorIs(t, err, storefront.ErrInvalidTransition)
	})

	t.Run("same status is a no-op", func(t *testing.T) {
		orders, audit, lifecycle := newLifecycleFixture()
		order := seedOrder(owner)
		orders.orders[order.ID] = order

		updated, err := lifecycle.AdvanceFulfillment(ctx, admin, order.ID, storefront.OrderCreated, storefront.RequestContext{})
		require.NoError(t, err)
		assert.Equal(t, storefront.OrderCreated, updated.Status)
		assert.Equal(t, 0, audit.count())
	})

	t.Run("non-admin is rejected", func(t *testing.T) {
		orders, _, lifecycle := newLifecycleFixture()
		order := seedOrder(owner)
		orders.orders[order.ID] = order

		_, err := lifecycle.AdvanceFulfillment(ctx, owner, order.ID, storefront.OrderProcessing, storefront.RequestContext{})
		assert.ErrorIs(t, err, storefront.ErrAdminOnly)
	})
}
