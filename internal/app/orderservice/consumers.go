package orderservice

import (
	"context"
	"errors"

	"github.com/goodslice/pizza-fulfillment/internal/ports"
	"github.com/goodslice/pizza-fulfillment/internal/shared/events"
	"github.com/goodslice/pizza-fulfillment/internal/shared/logger"
	"github.com/goodslice/pizza-fulfillment/internal/shared/rabbitmq"
)

// KitchenEventsHandler consumes the kitchen pipeline events and advances the
// order. KitchenOrderConfirmedEvent is informational only.
func KitchenEventsHandler(svc ports.OrderService, log *logger.Logger) rabbitmq.HandlerFunc {
	return func(ctx context.Context, env events.Envelope) error {
		if env.EventType == events.TypeKitchenOrderConfirmed {
			var evt events.KitchenOrderConfirmed
			if err := env.Open(&evt); err != nil {
				return rabbitmq.Rejected(err)
			}
			log.Debug(ctx, "kitchen_confirmed", "Kitchen accepted order", map[string]any{
				"order_id": evt.OrderIdentifier,
			})
			return nil
		}

		var evt events.KitchenStage
		if err := env.Open(&evt); err != nil {
			return rabbitmq.Rejected(err)
		}
		if evt.OrderIdentifier == "" {
			return rabbitmq.Rejected(errors.New("kitchen stage event without order identifier"))
		}
		return svc.HandleKitchenStage(ctx, env.EventType, evt)
	}
}

// DriverEventsHandler consumes driver assignment and hand-off events.
func DriverEventsHandler(svc ports.OrderService) rabbitmq.HandlerFunc {
	return func(ctx context.Context, env events.Envelope) error {
		var evt events.DriverOrder
		if err := env.Open(&evt); err != nil {
			return rabbitmq.Rejected(err)
		}
		if evt.OrderIdentifier == "" {
			return rabbitmq.Rejected(errors.New("driver event without order identifier"))
		}
		return svc.HandleDriverEvent(ctx, env.EventType, evt)
	}
}

// LoyaltyUpdatedHandler refreshes the cached points projection.
func LoyaltyUpdatedHandler(svc ports.OrderService) rabbitmq.HandlerFunc {
	return func(ctx context.Context, env events.Envelope) error {
		var evt events.LoyaltyPointsUpdated
		if err := env.Open(&evt); err != nil {
			return rabbitmq.Rejected(err)
		}
		if evt.CustomerIdentifier == "" {
			return rabbitmq.Rejected(errors.New("loyalty event without customer identifier"))
		}
		return svc.HandleLoyaltyUpdated(ctx, evt)
	}
}
