package broker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/drblury/orderflow/internal/event"
	"github.com/drblury/orderflow/internal/ids"
)

// Publisher sends one envelope per call over a short-lived connection. No
// pooling: each Publish dials, declares the durable queue, publishes against
// the default exchange with the queue name as routing key, and tears the
// connection down again. Callers treat failures as best-effort — the order
// API logs them and returns its own result regardless.
type Publisher struct {
	url   string
	queue string
	log   *slog.Logger
}

// NewPublisher returns a publisher for the given broker URL and queue.
func NewPublisher(url, queue string, log *slog.Logger) (*Publisher, error) {
	if queue == "" {
		return nil, ErrQueueRequired
	}
	return &Publisher{url: url, queue: queue, log: log}, nil
}

// Publish delivers a single envelope with at-least-once semantics. The message
// is persistent so it survives a broker restart together with the durable
// queue. A declare mismatch (queue exists with different flags) surfaces as an
// error like any other publish failure.
func (p *Publisher) Publish(ctx context.Context, env event.Envelope) error {
	body, err := env.Encode()
	if err != nil {
		publishErrors.Inc()
		return fmt.Errorf("broker: encode envelope: %w", err)
	}

	conn, err := DialFactory(p.url)
	if err != nil {
		publishErrors.Inc()
		return fmt.Errorf("broker: dial: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		publishErrors.Inc()
		return fmt.Errorf("broker: open channel: %w", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		publishErrors.Inc()
		return fmt.Errorf("broker: declare queue %q: %w", p.queue, err)
	}

	msgID := ids.CreateULID()
	err = ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msgID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		publishErrors.Inc()
		return fmt.Errorf("broker: publish: %w", err)
	}

	eventsPublished.WithLabelValues(string(env.Action)).Inc()
	p.log.Debug("event published", "queue", p.queue, "action", string(env.Action), "message_id", msgID)
	return nil
}
