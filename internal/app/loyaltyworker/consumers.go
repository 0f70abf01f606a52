package loyaltyworker

import (
	"context"
	"fmt"

	"github.com/goodslice/pizza-fulfillment/internal/ports"
	"github.com/goodslice/pizza-fulfillment/internal/shared/events"
	"github.com/goodslice/pizza-fulfillment/internal/shared/rabbitmq"
)

// OrderCompletedHandler consumes completed orders and accrues points. The
// envelope's event ID doubles as the idempotency key for the accrual.
func OrderCompletedHandler(service ports.LoyaltyService) rabbitmq.HandlerFunc {
	return func(ctx context.Context, env events.Envelope) error {
		var payload events.OrderCompleted
		if err := env.Open(&payload); err != nil {
			return rabbitmq.Rejected(fmt.Errorf("decode order completed: %w", err))
		}
		if payload.CustomerIdentifier == "" {
			return rabbitmq.Rejected(fmt.Errorf("order completed event without customer identifier"))
		}
		if payload.OrderValue < 0 {
			return rabbitmq.Rejected(fmt.Errorf("order %s completed with negative value", payload.OrderIdentifier))
		}
		return service.HandleOrderCompleted(ctx, env.EventID, payload)
	}
}
