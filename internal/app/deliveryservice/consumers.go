package deliveryservice

import (
	"context"
	"fmt"

	"github.com/goodslice/pizza-fulfillment/internal/ports"
	"github.com/goodslice/pizza-fulfillment/internal/shared/events"
	"github.com/goodslice/pizza-fulfillment/internal/shared/rabbitmq"
)

// QualityCheckedHandler consumes quality-checked kitchen events and registers
// the order for delivery.
func QualityCheckedHandler(service ports.DeliveryService) rabbitmq.HandlerFunc {
	return func(ctx context.Context, env events.Envelope) error {
		if env.EventType != events.TypeOrderQualityChecked {
			return rabbitmq.Rejected(fmt.Errorf("unexpected event type %q", env.EventType))
		}
		var payload events.KitchenStage
		if err := env.Open(&payload); err != nil {
			return rabbitmq.Rejected(fmt.Errorf("decode quality checked: %w", err))
		}
		if payload.OrderIdentifier == "" {
			return rabbitmq.Rejected(fmt.Errorf("quality checked event without order identifier"))
		}
		return service.HandleQualityChecked(ctx, payload)
	}
}
