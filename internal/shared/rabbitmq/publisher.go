package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/goodslice/pizza-fulfillment/internal/ports"
	"github.com/goodslice/pizza-fulfillment/internal/shared/events"
)

// Publisher wraps domain events in envelopes and publishes them to the topic
// exchange. Callers publish only after their own store write commits.
type Publisher struct {
	Client *Client

	now func() time.Time // test hook
}

var _ ports.Publisher = (*Publisher)(nil)

// NewPublisher creates a Publisher over an established client.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{Client: client, now: func() time.Time { return time.Now().UTC() }}
}

// Publish envelopes the payload and sends it with the event type's routing
// key. Fire-and-forget from the caller's perspective.
func (p *Publisher) Publish(ctx context.Context, eventType string, payload any) error {
	key, ok := events.RoutingKey(eventType)
	if !ok {
		return fmt.Errorf("rabbitmq: no routing key registered for event type %q", eventType)
	}

	env, err := events.Wrap(ctx, eventType, payload, p.now())
	if err != nil {
		return err
	}

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("rabbitmq: marshal envelope: %w", err)
	}

	return p.Client.PublishMessage(events.Exchange, key, body, nil)
}
