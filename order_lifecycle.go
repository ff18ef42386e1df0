package storefront

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// ErrInvalidTransition is returned when a requested fulfillment change is not allowed.
var ErrInvalidTransition = goerrors.New("invalid order state transition", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// ErrOrderNotFound is returned when the order id resolves to nothing.
var ErrOrderNotFound = goerrors.New("order not found", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound)

// PaymentUpdate is the inbound shape of a payment gateway callback. Status
// values are matched case-insensitively; anything outside the known set
// causes no transition.
type PaymentUpdate struct {
	PaymentID *string `json:"payment_id"`
	Status    string  `json:"status"`
}

// OrderLifecycleOption customizes lifecycle construction.
type OrderLifecycleOption func(*OrderLifecycle)

// WithLifecycleClock injects a custom clock (useful for tests).
func WithLifecycleClock(clock func() time.Time) OrderLifecycleOption {
	return func(l *OrderLifecycle) {
		if clock != nil {
			l.now = clock
		}
	}
}

// WithLifecycleAuditTrail sets the trail that records applied transitions.
func WithLifecycleAuditTrail(trail *AuditTrail) OrderLifecycleOption {
	return func(l *OrderLifecycle) {
		l.audit = trail
	}
}

// WithLifecycleLogger overrides the logger.
func WithLifecycleLogger(logger Logger) OrderLifecycleOption {
	return func(l *OrderLifecycle) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// OrderLifecycle arbitrates payment confirmation and fulfillment. All state
// changes go through conditional store updates so concurrent callbacks
// cannot double-apply a transition.
type OrderLifecycle struct {
	orders      Orders
	transitions map[OrderStatus]map[OrderStatus]struct{}
	now         func() time.Time
	audit       *AuditTrail
	logger      Logger
}

// NewOrderLifecycle returns a lifecycle backed by the provided repository.
func NewOrderLifecycle(orders Orders, opts ...OrderLifecycleOption) *OrderLifecycle {
	l := &OrderLifecycle{
		orders: orders,
		transitions: map[OrderStatus]map[OrderStatus]struct{}{
			OrderCreated: {
				OrderProcessing: {},
				OrderCancelled:  {},
			},
			OrderProcessing: {
				OrderShipped:   {},
				OrderCancelled: {},
			},
			OrderShipped: {
				OrderDelivered: {},
			},
		},
		now:    time.Now,
		logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}

	return l
}

// ConfirmPayment applies a payment gateway callback to an order on behalf of
// the calling principal. Ownership is strict: administrators confirm nothing
// they do not own. A repeated success callback is a no-op returning the
// current receipt; paid_at is never restamped.
func (l *OrderLifecycle) ConfirmPayment(ctx context.Context, caller *User, orderID uuid.UUID, update PaymentUpdate, req RequestContext) (*PaymentReceipt, error) {
	order, err := l.orders.GetByID(ctx, orderID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrOrderNotFound.WithMetadata(map[string]any{"order_id": orderID.String()})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load order")
	}

	if err := RequireOwner(caller, order.UserID); err != nil {
		return nil, err
	}

	if update.PaymentID != nil && *update.PaymentID != "" {
		if order, err = l.orders.SetPaymentID(ctx, orderID, *update.PaymentID); err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to record payment id")
		}
	}

	switch strings.ToLower(strings.TrimSpace(update.Status)) {
	case "success", "paid":
		paidAt := l.now()
		record, applied, err := l.orders.MarkPaid(ctx, orderID, paidAt)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to confirm payment")
		}

		if applied {
			l.recordTransition(ctx, AuditActionOrderPaid, caller, record, req, map[string]any{
				"payment_status": string(PaymentPaid),
				"order_status":   string(record.Status),
				"paid_at":        paidAt,
			})
		} else {
			l.logger.Info("payment confirmation replay ignored for order %s", orderID.String())
		}

		return record.Receipt(), nil

	case "failed":
		record, err := l.orders.MarkFailed(ctx, orderID)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to record payment failure")
		}

		if record.PaymentStatus == PaymentFailed {
			l.recordTransition(ctx, AuditActionOrderPaymentFail, caller, record, req, map[string]any{
				"payment_status": string(PaymentFailed),
			})
		}

		return record.Receipt(), nil

	default:
		l.logger.Warn("unknown payment status %q for order %s, no transition applied", update.Status, orderID.String())
		return order.Receipt(), nil
	}
}

// AdvanceFulfillment moves an order along the fulfillment path. This is an
// administrator action; payment confirmation only ever reaches processing.
func (l *OrderLifecycle) AdvanceFulfillment(ctx context.Context, caller *User, orderID uuid.UUID, target OrderStatus, req RequestContext) (*Order, error) {
	if err := RequireAdmin(caller); err != nil {
		return nil, err
	}

	order, err := l.orders.GetByID(ctx, orderID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrOrderNotFound.WithMetadata(map[string]any{"order_id": orderID.String()})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load order")
	}

	from := order.Status
	if from == target {
		return order, nil
	}

	if !l.canTransition(from, target) {
		return nil, ErrInvalidTransition.WithMetadata(map[string]any{
			"from": string(from),
			"to":   string(target),
		})
	}

	updated, err := l.orders.SetStatus(ctx, orderID, target)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to advance fulfillment")
	}

	l.recordTransition(ctx, AuditActionOrderFulfillment, caller, updated, req, map[string]any{
		"from": string(from),
		"to":   string(target),
	})

	return updated, nil
}

func (l *OrderLifecycle) canTransition(from, to OrderStatus) bool {
	targets, ok := l.transitions[from]
	if !ok {
		return false
	}
	_, ok = targets[to]
	return ok
}

func (l *OrderLifecycle) recordTransition(ctx context.Context, action AuditAction, caller *User, order *Order, req RequestContext, changes map[string]any) {
	if l.audit == nil {
		return
	}

	l.audit.Record(ctx, AuditEntry{
		Action:       action,
		ResourceKind: AuditResourceOrder,
		ResourceID:   order.ID.String(),
		Actor:        ActorFromUser(caller),
		Changes:      changes,
		Request:      req,
		OccurredAt:   l.now(),
	})
}
