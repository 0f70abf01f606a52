package ports

import (
	"context"
	"errors"

	"github.com/goodslice/pizza-fulfillment/internal/domain/delivery"
	"github.com/goodslice/pizza-fulfillment/internal/domain/kitchen"
	"github.com/goodslice/pizza-fulfillment/internal/domain/loyalty"
	"github.com/goodslice/pizza-fulfillment/internal/domain/orders"
)

// ErrNotFound is returned when an aggregate has no prior record. Event
// handlers surface it so the broker requeues the message: the creating event
// may simply not have been processed yet.
var ErrNotFound = errors.New("aggregate not found")

// ErrDuplicate is returned by Add when the aggregate already exists. Handlers
// catch it and treat the create as already done, which is how creation-side
// idempotency works.
var ErrDuplicate = errors.New("aggregate already exists")

// UnitOfWork wraps a function in a DB transaction.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// OrderRepository persists the orders service's Order aggregate.
type OrderRepository interface {
	Add(ctx context.Context, o *orders.Order) error
	Retrieve(ctx context.Context, orderID string) (*orders.Order, error)
	Update(ctx context.Context, o *orders.Order) error
}

// KitchenRepository persists the kitchen's Request aggregate.
type KitchenRepository interface {
	Add(ctx context.Context, r *kitchen.Request) error
	Retrieve(ctx context.Context, orderID string) (*kitchen.Request, error)
	Update(ctx context.Context, r *kitchen.Request) error
}

// LoyaltyRepository persists the points ledger and the applied-event log
// that makes accrual idempotent under redelivery.
type LoyaltyRepository interface {
	Add(ctx context.Context, a *loyalty.Account) error
	Retrieve(ctx context.Context, customerID string) (*loyalty.Account, error)
	Update(ctx context.Context, a *loyalty.Account) error
	HasAppliedEvent(ctx context.Context, customerID, sourceEventID string) (bool, error)
	RecordAppliedEvent(ctx context.Context, customerID, sourceEventID string) error
}

// DeliveryRepository persists the delivery service's local aggregate.
type DeliveryRepository interface {
	Add(ctx context.Context, d *delivery.Delivery) error
	Retrieve(ctx context.Context, orderID string) (*delivery.Delivery, error)
	Update(ctx context.Context, d *delivery.Delivery) error
	ListAwaiting(ctx context.Context) ([]delivery.Delivery, error)
}

// RecipeLookup resolves a recipe snapshot. Returns ErrNotFound for unknown
// identifiers.
type RecipeLookup interface {
	GetRecipe(ctx context.Context, recipeID string) (*kitchen.RecipeSnapshot, error)
}

// BalanceCache is the best-effort loyalty balance projection. It may be
// briefly stale and must never decide a spend.
type BalanceCache interface {
	SetBalance(ctx context.Context, customerID string, balance int64) error
	GetBalance(ctx context.Context, customerID string) (int64, bool, error)
}

// Publisher wraps a domain event in an envelope and publishes it to the
// broker. Fire-and-forget: it never blocks on downstream processing.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
}
