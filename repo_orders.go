package storefront

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// markOrderPaidSQL is the compare-and-swap for the paid transition. The
// payment_status guard means exactly one of any number of racing or replayed
// success callbacks performs the write, so paid_at is set exactly once and
// order_status never regresses through the payment path.
var markOrderPaidSQL = `UPDATE "orders" AS "ord"
SET
	"payment_status" = 'paid',
	"is_paid" = TRUE,
	"paid_at" = ?,
	"order_status" = CASE WHEN "ord"."order_status" = 'created' THEN 'processing' ELSE "ord"."order_status" END
WHERE
	"ord"."id" = ?
AND "ord"."payment_status" <> 'paid'
RETURNING *;`

// markOrderFailedSQL records a failed callback without touching is_paid,
// paid_at, or the fulfillment status. A paid order stays paid.
var markOrderFailedSQL = `UPDATE "orders" AS "ord"
SET
	"payment_status" = 'failed'
WHERE
	"ord"."id" = ?
AND "ord"."payment_status" <> 'paid'
RETURNING *;`

var setOrderPaymentIDSQL = `UPDATE "orders" AS "ord"
SET
	"payment_id" = ?
WHERE
	"ord"."id" = ?
RETURNING *;`

var setOrderStatusSQL = `UPDATE "orders" AS "ord"
SET
	"order_status" = ?
WHERE
	"ord"."id" = ?
RETURNING *;`

// Orders is the order store consumed by the lifecycle. Orders are created by
// the checkout flow and never deleted here.
type Orders interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	Create(ctx context.Context, order *Order) (*Order, error)

	// MarkPaid applies the conditional paid transition. The bool reports
	// whether this call performed the write; false means the order was
	// already paid (or missing, which GetByID distinguishes).
	MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time) (*Order, bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID) (*Order, error)
	SetPaymentID(ctx context.Context, id uuid.UUID, paymentID string) (*Order, error)
	SetStatus(ctx context.Context, id uuid.UUID, status OrderStatus) (*Order, error)
}

type orders struct {
	repo repository.Repository[*Order]
	db   *bun.DB
}

var _ Orders = (*orders)(nil)

// NewOrdersRepository returns the bun-backed order store.
func NewOrdersRepository(db *bun.DB) Orders {
	repo := repository.NewRepository[*Order](db, repository.ModelHandlers[*Order]{
		NewRecord: func() *Order { return &Order{} },
		GetID: func(o *Order) uuid.UUID {
			if o == nil {
				return uuid.Nil
			}
			return o.ID
		},
		SetID: func(o *Order, id uuid.UUID) {
			if o != nil {
				o.ID = id
			}
		},
	})

	return &orders{
		repo: repo,
		db:   db,
	}
}

func (a *orders) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	return a.repo.GetByID(ctx, id.String())
}

func (a *orders) Create(ctx context.Context, order *Order) (*Order, error) {
	prepareOrderDefaults(order)
	return a.repo.Create(ctx, order)
}

func (a *orders) MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time) (*Order, bool, error) {
	res, err := a.repo.RawTx(ctx, a.db, markOrderPaidSQL, paidAt, id.String())
	if err != nil {
		return nil, false, err
	}

	if len(res) == 0 {
		// nothing matched: either already paid (replay) or unknown id
		record, err := a.GetByID(ctx, id)
		if err != nil {
			return nil, false, err
		}
		return record, false, nil
	}

	return res[0], true, nil
}

func (a *orders) MarkFailed(ctx context.Context, id uuid.UUID) (*Order, error) {
	res, err := a.repo.RawTx(ctx, a.db, markOrderFailedSQL, id.String())
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return a.GetByID(ctx, id)
	}

	return res[0], nil
}

func (a *orders) SetPaymentID(ctx context.Context, id uuid.UUID, paymentID string) (*Order, error) {
	res, err := a.repo.RawTx(ctx, a.db, setOrderPaymentIDSQL, paymentID, id.String())
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id.String()})
	}

	return res[0], nil
}

func (a *orders) SetStatus(ctx context.Context, id uuid.UUID, status OrderStatus) (*Order, error) {
	res, err := a.repo.RawTx(ctx, a.db, setOrderStatusSQL, status, id.String())
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id.String()})
	}

	return res[0], nil
}

func prepareOrderDefaults(record *Order) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	if record.PaymentStatus == "" {
		record.PaymentStatus = PaymentPending
	}

	if record.Status == "" {
		record.Status = OrderCreated
	}
}
