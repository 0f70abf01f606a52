package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/goodslice/pizza-fulfillment/internal/shared/events"
	"github.com/goodslice/pizza-fulfillment/internal/shared/logger"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// HandlerFunc processes one delivered envelope. A nil return acknowledges the
// message; a no-op (already applied) must also return nil so duplicates are
// acked instead of looping. Any other error triggers a bounded retry.
type HandlerFunc func(ctx context.Context, env events.Envelope) error

// attemptsHeader counts redeliveries across the republish-based retry.
const attemptsHeader = "x-attempts"

const (
	retryBaseDelay = time.Second
	retryMaxDelay  = 30 * time.Second
)

type rejectedError struct {
	err error
}

func (e rejectedError) Error() string { return e.err.Error() }
func (e rejectedError) Unwrap() error { return e.err }

// Rejected marks an error as a terminal business rejection: the message is
// acknowledged with a recorded outcome instead of being retried.
func Rejected(err error) error {
	if err == nil {
		return nil
	}
	return rejectedError{err: err}
}

// IsRejected reports whether the error is a terminal business rejection.
func IsRejected(err error) bool {
	var r rejectedError
	return errors.As(err, &r)
}

// Consumer runs resilient consume loops against the client.
type Consumer struct {
	client      *Client
	logger      *logger.Logger
	prefetch    int
	maxAttempts int
}

// NewConsumer configures consumption with the given QoS prefetch and retry
// budget. After maxAttempts failed deliveries a message dead-letters.
func NewConsumer(client *Client, log *logger.Logger, prefetch, maxAttempts int) *Consumer {
	return &Consumer{client: client, logger: log, prefetch: prefetch, maxAttempts: maxAttempts}
}

// Consume continuously (re)creates a channel and consumes from the durable
// queue until ctx is cancelled. Each delivery is decoded, traced, handled,
// then acked or retried per the error taxonomy.
func (c *Consumer) Consume(ctx context.Context, queue string, handler HandlerFunc) {
	backoff := retryBaseDelay
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		ch, err := c.client.NewConsumerChannel(c.prefetch)
		if err != nil {
			c.logger.Error(ctx, "rabbitmq_channel_open_failed", "Failed to open consumer channel", err)
			if !sleepWithContext(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, retryMaxDelay)
			continue
		}

		backoff = retryBaseDelay

		deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
		if err != nil {
			_ = ch.Close()
			c.logger.Error(ctx, "rabbitmq_consume_failed", "Failed to start consuming from "+queue, err)
			if !sleepWithContext(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, retryMaxDelay)
			continue
		}

		closed := ch.NotifyClose(make(chan *amqp.Error, 1))

	consumption:
		for {
			select {
			case <-ctx.Done():
				_ = ch.Close()
				return

			case amqpErr := <-closed:
				if amqpErr != nil {
					c.logger.Error(ctx, "rabbitmq_channel_closed", "Consumer channel closed", amqpErr)
				}
				break consumption

			case d, ok := <-deliveries:
				if !ok {
					break consumption
				}
				c.handleDelivery(ctx, queue, handler, d)
			}
		}

		if !sleepWithContext(ctx, backoff) {
			return
		}
		backoff = nextBackoff(backoff, retryMaxDelay)
	}
}

// handleDelivery decodes, traces, processes, and acks/nacks a single message.
func (c *Consumer) handleDelivery(ctx context.Context, queue string, handler HandlerFunc, d amqp.Delivery) {
	var env events.Envelope
	if err := json.Unmarshal(d.Body, &env); err != nil {
		c.logger.Error(ctx, "message_decode_failed", "Failed to decode event envelope", err)
		_ = d.Nack(false, false) // malformed JSON cannot recover by redelivery
		return
	}

	now := time.Now().UTC()
	procCtx := env.ExtractTrace(ctx)
	procCtx, span := otel.Tracer("consumer").Start(procCtx, "process "+env.EventType,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.destination.name", queue),
			attribute.String("event.id", env.EventID),
			attribute.Int64("messaging.queue_time_ms", env.QueueLatency(now).Milliseconds()),
		))
	defer span.End()

	procCtx = c.logger.WithRequestID(procCtx, env.EventID)

	err := handler(procCtx, env)
	switch {
	case err == nil:
		_ = d.Ack(false)

	case IsRejected(err):
		// terminal business rejection: record and ack, never retry
		c.logger.Warn(procCtx, "message_rejected", "Business rule rejected message: "+err.Error(), map[string]any{
			"queue":      queue,
			"event_type": env.EventType,
		})
		_ = d.Ack(false)

	default:
		c.retryOrDeadLetter(procCtx, queue, d, env, err)
	}
}

// retryOrDeadLetter republishes the message with an incremented attempt
// counter, or dead-letters it once the retry budget is spent. Republishing
// instead of a plain requeue keeps the attempt count on the message. Each
// attempt waits out a doubling delay first so a recovering dependency is not
// hammered; the wait runs on the consume loop, which throttles the queue.
func (c *Consumer) retryOrDeadLetter(ctx context.Context, queue string, d amqp.Delivery, env events.Envelope, cause error) {
	attempt := attemptFrom(d.Headers) + 1

	if attempt >= c.maxAttempts {
		c.logger.Error(ctx, "message_dead_lettered",
			"Retry budget exhausted; routing to dead-letter queue", cause)
		_ = d.Nack(false, false)
		return
	}

	if !sleepWithContext(ctx, retryDelay(attempt)) {
		// shutting down; hand the message back unacked
		_ = d.Nack(false, true)
		return
	}

	headers := amqp.Table{attemptsHeader: int32(attempt)}
	if err := c.client.PublishMessage("", queue, d.Body, headers); err != nil {
		// could not republish; fall back to broker requeue
		c.logger.Error(ctx, "message_requeue_fallback", "Republish failed; requeueing in place", err)
		_ = d.Nack(false, true)
		return
	}

	c.logger.Warn(ctx, "message_retry_scheduled", "Processing failed; retrying", map[string]any{
		"queue":      queue,
		"event_type": env.EventType,
		"attempt":    attempt,
		"cause":      cause.Error(),
	})
	_ = d.Ack(false)
}

// retryDelay is the wait before retry attempt n: base doubled per prior
// attempt, capped at retryMaxDelay.
func retryDelay(attempt int) time.Duration {
	d := retryBaseDelay
	for i := 1; i < attempt; i++ {
		d = nextBackoff(d, retryMaxDelay)
	}
	return d
}

func attemptFrom(headers amqp.Table) int {
	switch v := headers[attemptsHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	default:
		return 0
	}
}

// sleepWithContext sleeps for the given duration or returns early if ctx is done.
func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// nextBackoff calculates the next backoff duration with exponential growth capped at max.
func nextBackoff(curr, cap time.Duration) time.Duration {
	n := curr * 2
	if n > cap {
		return cap
	}
	return n
}
