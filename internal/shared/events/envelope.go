package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Envelope wraps a published domain event with delivery metadata. TraceParent
// links the consumer's processing span to the producer; EnqueuedAt lets a
// consumer compute how long the message sat on the queue.
type Envelope struct {
	EventID     string          `json:"event_id"`
	EventType   string          `json:"event_type"`
	TraceParent string          `json:"trace_parent,omitempty"`
	EnqueuedAt  time.Time       `json:"enqueued_at"`
	Payload     json.RawMessage `json:"payload"`
}

// Wrap builds an envelope around a payload, stamping it with a fresh event id,
// the enqueue time, and the caller's W3C trace context.
func Wrap(ctx context.Context, eventType string, payload any, now time.Time) (Envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("events: marshal %s payload: %w", eventType, err)
	}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	return Envelope{
		EventID:     uuid.NewString(),
		EventType:   eventType,
		TraceParent: carrier.Get("traceparent"),
		EnqueuedAt:  now.UTC(),
		Payload:     body,
	}, nil
}

// Open unmarshals the payload into dst.
func (e Envelope) Open(dst any) error {
	if err := json.Unmarshal(e.Payload, dst); err != nil {
		return fmt.Errorf("events: decode %s payload: %w", e.EventType, err)
	}
	return nil
}

// QueueLatency is the time the message spent waiting to be consumed.
func (e Envelope) QueueLatency(now time.Time) time.Duration {
	if e.EnqueuedAt.IsZero() {
		return 0
	}
	return now.Sub(e.EnqueuedAt)
}

// ExtractTrace returns a context carrying the producer's trace context, so
// the consumer's span shows up as a child of the publishing span.
func (e Envelope) ExtractTrace(ctx context.Context) context.Context {
	if e.TraceParent == "" {
		return ctx
	}
	carrier := propagation.MapCarrier{"traceparent": e.TraceParent}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
