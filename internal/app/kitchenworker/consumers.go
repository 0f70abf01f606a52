package kitchenworker

import (
	"context"
	"fmt"

	"github.com/goodslice/pizza-fulfillment/internal/ports"
	"github.com/goodslice/pizza-fulfillment/internal/shared/events"
	"github.com/goodslice/pizza-fulfillment/internal/shared/rabbitmq"
)

// OrderConfirmedHandler consumes submitted orders and starts preparation.
func OrderConfirmedHandler(service ports.KitchenService) rabbitmq.HandlerFunc {
	return func(ctx context.Context, env events.Envelope) error {
		var payload events.OrderConfirmed
		if err := env.Open(&payload); err != nil {
			return rabbitmq.Rejected(fmt.Errorf("decode order confirmed: %w", err))
		}
		if payload.OrderIdentifier == "" {
			return rabbitmq.Rejected(fmt.Errorf("order confirmed event without order identifier"))
		}
		if len(payload.Items) == 0 {
			return rabbitmq.Rejected(fmt.Errorf("order %s confirmed with no items", payload.OrderIdentifier))
		}
		return service.HandleOrderConfirmed(ctx, payload)
	}
}
