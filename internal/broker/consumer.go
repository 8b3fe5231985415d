package broker

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/drblury/orderflow/internal/event"
)

// consume pulls deliveries one at a time, in arrival order, until the context
// is cancelled or the connection dies. Cancellation is cooperative: the loop
// observes it between messages, transitions to Draining, and unwinds without
// acking whatever the broker may still have in flight.
func (s *Supervisor) consume(ctx context.Context, sess *session) error {
	for {
		select {
		case <-ctx.Done():
			s.setState(StateDraining)
			return ctx.Err()
		case amqpErr, ok := <-sess.closed:
			if !ok || amqpErr == nil {
				return ErrConnectionClosed
			}
			return fmt.Errorf("broker: connection closed: %w", amqpErr)
		case d, ok := <-sess.deliveries:
			if !ok {
				return ErrConnectionClosed
			}
			s.handleDelivery(ctx, d)
		}
	}
}

// handleDelivery runs the per-message protocol: decode, dispatch, ack. The
// ack is not conditioned on handler success — a failed handler is logged and
// the message is completed anyway, so a single bad message can never wedge
// the queue. Undecodable payloads are poison messages: acked and dropped
// rather than requeued into an infinite redelivery loop.
func (s *Supervisor) handleDelivery(ctx context.Context, d amqp.Delivery) {
	env, err := event.Decode(d.Body)
	if err != nil {
		decodeFailures.WithLabelValues(s.cfg.Service).Inc()
		s.log.Error("dropping undecodable message", "error", err, "message_id", d.MessageId)
		if ackErr := d.Ack(false); ackErr != nil {
			s.log.Error("ack failed", "error", ackErr, "message_id", d.MessageId)
		}
		return
	}

	if err := s.dispatch(ctx, env); err != nil {
		handlerErrors.WithLabelValues(s.cfg.Service).Inc()
		s.log.Error("handler failed", "error", err, "action", string(env.Action), "message_id", d.MessageId)
	}

	messagesConsumed.WithLabelValues(s.cfg.Service, string(env.Action)).Inc()
	if err := d.Ack(false); err != nil {
		s.log.Error("ack failed", "error", err, "message_id", d.MessageId)
	}
}

// dispatch invokes the handler, converting a panic into an error so a buggy
// handler cannot kill the consumption loop.
func (s *Supervisor) dispatch(ctx context.Context, env event.Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("broker: handler panic: %v", r)
		}
	}()
	return s.handler.Handle(ctx, env)
}
