package deliveryservice

import (
	"context"
	"errors"
	"time"

	"github.com/goodslice/pizza-fulfillment/internal/domain/delivery"
	"github.com/goodslice/pizza-fulfillment/internal/ports"
	"github.com/goodslice/pizza-fulfillment/internal/shared/events"
	"github.com/goodslice/pizza-fulfillment/internal/shared/logger"
)

// Service implements ports.DeliveryService. It keeps its own delivery record
// per order and tells the rest of the system about driver progress through
// events published after each commit.
type Service struct {
	uow       ports.UnitOfWork
	repo      ports.DeliveryRepository
	publisher ports.Publisher
	logger    *logger.Logger

	now func() time.Time
}

var _ ports.DeliveryService = (*Service)(nil)

func New(uow ports.UnitOfWork, repo ports.DeliveryRepository, publisher ports.Publisher, logger *logger.Logger) *Service {
	return &Service{
		uow:       uow,
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// HandleQualityChecked registers the order as awaiting a driver. A duplicate
// quality-checked event finds the existing record and drops out.
func (service *Service) HandleQualityChecked(ctx context.Context, evt events.KitchenStage) error {
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		d := delivery.NewDelivery(evt.OrderIdentifier, service.now())
		if err := service.repo.Add(txCtx, d); err != nil {
			if errors.Is(err, ports.ErrDuplicate) {
				return nil
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	service.logger.Info(ctx, "delivery_registered", "Order awaiting driver", map[string]any{
		"order_id": evt.OrderIdentifier,
	})
	return nil
}

// AssignDriver attaches a driver to a waiting delivery and announces it.
func (service *Service) AssignDriver(ctx context.Context, orderID, driverName string) error {
	return service.advance(ctx, orderID, events.TypeDriverAssignedOrder, func(d *delivery.Delivery) bool {
		return d.Assign(driverName, service.now())
	})
}

// MarkCollected records the pickup and announces it.
func (service *Service) MarkCollected(ctx context.Context, orderID string) error {
	return service.advance(ctx, orderID, events.TypeDriverCollectedOrder, func(d *delivery.Delivery) bool {
		return d.MarkCollected(service.now())
	})
}

// MarkDelivered records the hand-off to the customer and announces it.
func (service *Service) MarkDelivered(ctx context.Context, orderID string) error {
	return service.advance(ctx, orderID, events.TypeDriverDeliveredOrder, func(d *delivery.Delivery) bool {
		return d.MarkDelivered(service.now())
	})
}

// ListAwaiting returns the deliveries still waiting for a driver.
func (service *Service) ListAwaiting(ctx context.Context) ([]delivery.Delivery, error) {
	var out []delivery.Delivery
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		out, err = service.repo.ListAwaiting(txCtx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// advance applies a guarded state change; the driver event publishes only
// after the commit, carrying whatever driver ended up on the record.
func (service *Service) advance(ctx context.Context, orderID, eventType string, apply func(*delivery.Delivery) bool) error {
	var (
		applied bool
		driver  string
	)

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		d, err := service.repo.Retrieve(txCtx, orderID)
		if err != nil {
			return err
		}
		if applied = apply(d); !applied {
			return nil
		}
		driver = d.Driver
		return service.repo.Update(txCtx, d)
	})
	if err != nil {
		return err
	}
	if !applied {
		service.logger.Debug(ctx, "delivery_noop", "State change did not match delivery position", map[string]any{
			"order_id": orderID,
			"event":    eventType,
		})
		return nil
	}

	pubErr := service.publisher.Publish(ctx, eventType, events.DriverOrder{
		OrderIdentifier: orderID,
		DriverName:      driver,
	})
	if pubErr != nil {
		service.logger.Error(ctx, "event_publish_failed", "Failed to publish "+eventType, pubErr)
	}
	return nil
}
