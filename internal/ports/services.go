package ports

import (
	"context"

	"github.com/goodslice/pizza-fulfillment/internal/domain/delivery"
	"github.com/goodslice/pizza-fulfillment/internal/domain/orders"
	"github.com/goodslice/pizza-fulfillment/internal/shared/events"
)

// ItemInput is one requested item on an incoming order command.
type ItemInput struct {
	RecipeID string
	Quantity int
}

// CreateOrderCommand starts a new order in 'created' status.
type CreateOrderCommand struct {
	CustomerID string
	Type       orders.OrderType
	Items      []ItemInput
}

// OrderService owns the Order lifecycle: customer commands plus the event
// handlers that react to the kitchen, delivery, and loyalty services.
type OrderService interface {
	CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*orders.Order, error)
	AddItem(ctx context.Context, orderID string, item ItemInput) (*orders.Order, error)
	SubmitOrder(ctx context.Context, orderID string) (*orders.Order, error)
	CollectOrder(ctx context.Context, orderID string) (*orders.Order, error)
	GetOrder(ctx context.Context, orderID string) (*orders.Order, error)

	HandleKitchenStage(ctx context.Context, eventType string, evt events.KitchenStage) error
	HandleDriverEvent(ctx context.Context, eventType string, evt events.DriverOrder) error
	HandleLoyaltyUpdated(ctx context.Context, evt events.LoyaltyPointsUpdated) error
}

// KitchenService creates preparation requests and walks them through the
// pipeline, publishing a stage event after each committed advance.
type KitchenService interface {
	HandleOrderConfirmed(ctx context.Context, evt events.OrderConfirmed) error
	MarkPrepComplete(ctx context.Context, orderID string) error
	MarkBakeComplete(ctx context.Context, orderID string) error
	MarkQualityChecked(ctx context.Context, orderID string) error
}

// LoyaltyService accrues and spends points. Accrual is idempotent per source
// event; spend checks the authoritative store, never the cache.
type LoyaltyService interface {
	HandleOrderCompleted(ctx context.Context, sourceEventID string, evt events.OrderCompleted) error
	Spend(ctx context.Context, customerID string, points int64) (balance int64, err error)
	Balance(ctx context.Context, customerID string) (int64, error)
}

// DeliveryService registers deliverable orders and drives the driver
// hand-off, publishing a driver event after each committed change.
type DeliveryService interface {
	HandleQualityChecked(ctx context.Context, evt events.KitchenStage) error
	AssignDriver(ctx context.Context, orderID, driverName string) error
	MarkCollected(ctx context.Context, orderID string) error
	MarkDelivered(ctx context.Context, orderID string) error
	ListAwaiting(ctx context.Context) ([]delivery.Delivery, error)
}
