package orderservice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/goodslice/pizza-fulfillment/internal/domain/orders"
	"github.com/goodslice/pizza-fulfillment/internal/ports"
	"github.com/goodslice/pizza-fulfillment/internal/shared/events"
	"github.com/goodslice/pizza-fulfillment/internal/shared/logger"
)

// Service implements ports.OrderService: the customer-facing commands plus
// the event handlers that move the order through the saga.
type Service struct {
	uow       ports.UnitOfWork
	repo      ports.OrderRepository
	recipes   ports.RecipeLookup
	publisher ports.Publisher
	cache     ports.BalanceCache
	logger    *logger.Logger

	now func() time.Time
}

// Ensure Service implements the interface at compile time.
var _ ports.OrderService = (*Service)(nil)

// New creates the order service with its dependencies.
func New(uow ports.UnitOfWork, repo ports.OrderRepository, recipes ports.RecipeLookup, publisher ports.Publisher, cache ports.BalanceCache, logger *logger.Logger) *Service {
	return &Service{
		uow:       uow,
		repo:      repo,
		recipes:   recipes,
		publisher: publisher,
		cache:     cache,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrder validates input, prices each item from the recipe catalogue,
// and persists a new order in 'created' status.
func (service *Service) CreateOrder(ctx context.Context, cmd ports.CreateOrderCommand) (*orders.Order, error) {
	cmd.CustomerID = strings.TrimSpace(cmd.CustomerID)
	if cmd.CustomerID == "" {
		return nil, errors.New("customer identifier is required")
	}
	if cmd.Type != orders.OrderTypePickup && cmd.Type != orders.OrderTypeDelivery {
		return nil, errors.New("order type must be 'pickup' or 'delivery'")
	}
	if len(cmd.Items) == 0 {
		return nil, errors.New("order must contain at least one item")
	}

	now := service.now()
	order := orders.NewOrder(uuid.NewString(), cmd.CustomerID, cmd.Type, now)

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		for _, item := range cmd.Items {
			if err := service.appendItem(txCtx, order, item, now); err != nil {
				return err
			}
		}
		return service.repo.Add(txCtx, order)
	})
	if err != nil {
		return nil, err
	}

	service.logger.Debug(ctx, "order_created", "Order created", map[string]any{
		"order_id":    order.ID,
		"customer_id": order.CustomerID,
		"items_count": len(order.Items),
	})

	return order, nil
}

// AddItem appends one item while the order is still in 'created' status.
func (service *Service) AddItem(ctx context.Context, orderID string, item ports.ItemInput) (*orders.Order, error) {
	var order *orders.Order

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		order, err = service.repo.Retrieve(txCtx, orderID)
		if err != nil {
			return err
		}
		if err := service.appendItem(txCtx, order, item, service.now()); err != nil {
			return err
		}
		return service.repo.Update(txCtx, order)
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// appendItem resolves the recipe for its name and price, then adds the line.
func (service *Service) appendItem(txCtx context.Context, order *orders.Order, item ports.ItemInput, now time.Time) error {
	if item.Quantity <= 0 {
		return errors.New("item quantity must be > 0")
	}
	snap, err := service.recipes.GetRecipe(txCtx, item.RecipeID)
	if err != nil {
		return fmt.Errorf("resolve recipe %q: %w", item.RecipeID, err)
	}
	return order.AddItem(snap.RecipeID, snap.Name, item.Quantity, orders.Money(snap.Price), now)
}

// SubmitOrder locks the order and announces it to the kitchen. The confirmed
// event goes out only after the status change commits. A resubmit is a no-op.
func (service *Service) SubmitOrder(ctx context.Context, orderID string) (*orders.Order, error) {
	var order *orders.Order
	var submitted bool

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		order, err = service.repo.Retrieve(txCtx, orderID)
		if err != nil {
			return err
		}
		if submitted = order.Submit(service.now()); !submitted {
			return nil
		}
		return service.repo.Update(txCtx, order)
	})
	if err != nil {
		return nil, err
	}
	if !submitted {
		return order, nil
	}

	items := make([]events.OrderItemLine, len(order.Items))
	for i, it := range order.Items {
		items[i] = events.OrderItemLine{RecipeIdentifier: it.RecipeID, Quantity: it.Quantity}
	}
	service.publish(ctx, events.TypeOrderConfirmed, events.OrderConfirmed{
		OrderIdentifier: order.ID,
		OrderType:       string(order.Type),
		Items:           items,
	})

	return order, nil
}

// CollectOrder completes a pickup order that is awaiting collection.
func (service *Service) CollectOrder(ctx context.Context, orderID string) (*orders.Order, error) {
	var order *orders.Order
	var collected bool

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		order, err = service.repo.Retrieve(txCtx, orderID)
		if err != nil {
			return err
		}
		if collected = order.Collect(service.now()); !collected {
			return nil
		}
		return service.repo.Update(txCtx, order)
	})
	if err != nil {
		return nil, err
	}
	if collected {
		service.publishCompleted(ctx, order)
	}

	return order, nil
}

// GetOrder returns the current aggregate state for external query.
func (service *Service) GetOrder(ctx context.Context, orderID string) (*orders.Order, error) {
	var order *orders.Order
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		order, err = service.repo.Retrieve(txCtx, orderID)
		return err
	})
	return order, err
}

// HandleKitchenStage advances the order for one of the kitchen pipeline
// events. A stage that does not match the current status is a no-op and must
// be acknowledged, not requeued.
func (service *Service) HandleKitchenStage(ctx context.Context, eventType string, evt events.KitchenStage) error {
	return service.transition(ctx, evt.OrderIdentifier, func(order *orders.Order, now time.Time) bool {
		switch eventType {
		case events.TypeOrderPreparing:
			return order.MarkPreparing(now)
		case events.TypeOrderPrepComplete:
			return order.MarkPrepComplete(now)
		case events.TypeOrderBakeComplete:
			return order.MarkBakeComplete(now)
		case events.TypeOrderQualityChecked:
			return order.MarkQualityChecked(now)
		default:
			return false
		}
	}, nil)
}

// HandleDriverEvent advances the order for driver assignment and hand-off.
// Delivery completion also announces the completed order for loyalty accrual.
func (service *Service) HandleDriverEvent(ctx context.Context, eventType string, evt events.DriverOrder) error {
	afterCommit := func(order *orders.Order) {}
	if eventType == events.TypeDriverDeliveredOrder {
		afterCommit = func(order *orders.Order) { service.publishCompleted(ctx, order) }
	}

	return service.transition(ctx, evt.OrderIdentifier, func(order *orders.Order, now time.Time) bool {
		switch eventType {
		case events.TypeDriverAssignedOrder:
			return order.AssignDriver(evt.DriverName, now)
		case events.TypeDriverCollectedOrder:
			return order.MarkDriverCollected(now)
		case events.TypeDriverDeliveredOrder:
			return order.MarkDelivered(now)
		default:
			return false
		}
	}, afterCommit)
}

// HandleLoyaltyUpdated refreshes the cached balance projection.
func (service *Service) HandleLoyaltyUpdated(ctx context.Context, evt events.LoyaltyPointsUpdated) error {
	return service.cache.SetBalance(ctx, evt.CustomerIdentifier, int64(evt.PointsTotal))
}

// transition runs a guarded mutation inside a transaction. Retrieval failures
// surface so the broker requeues (the creating event may still be in flight);
// a guard returning false leaves state untouched and acks the message.
func (service *Service) transition(ctx context.Context, orderID string, apply func(*orders.Order, time.Time) bool, afterCommit func(*orders.Order)) error {
	var order *orders.Order
	var updated bool

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		order, err = service.repo.Retrieve(txCtx, orderID)
		if err != nil {
			return err
		}
		if updated = apply(order, service.now()); !updated {
			return nil
		}
		return service.repo.Update(txCtx, order)
	})
	if err != nil {
		return err
	}

	if !updated {
		service.logger.Debug(ctx, "transition_noop", "Event did not match current status; acknowledged as no-op", map[string]any{
			"order_id": orderID,
			"status":   string(order.Status),
		})
		return nil
	}

	if afterCommit != nil {
		afterCommit(order)
	}
	return nil
}

// publishCompleted announces a terminal order so loyalty can accrue points.
func (service *Service) publishCompleted(ctx context.Context, order *orders.Order) {
	service.publish(ctx, events.TypeOrderCompleted, events.OrderCompleted{
		OrderIdentifier:    order.ID,
		CustomerIdentifier: order.CustomerID,
		OrderValue:         order.TotalAmount().ToFloat2(),
	})
}

// publish sends an event after a successful commit. The write already
// landed, so a publish failure is logged and the saga relies on redelivery
// or operator replay rather than failing the caller.
func (service *Service) publish(ctx context.Context, eventType string, payload any) {
	if err := service.publisher.Publish(ctx, eventType, payload); err != nil {
		service.logger.Error(ctx, "event_publish_failed", "Failed to publish "+eventType, err)
	}
}
