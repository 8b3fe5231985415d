// Package delivery reacts to order lifecycle events with delivery-side
// effects.
package delivery

import (
	"context"
	"log/slog"

	"github.com/drblury/orderflow/internal/event"
)

// Notifier receives the delivery-side effect of each event. The default
// implementation logs; tests substitute a recorder.
type Notifier interface {
	DeliveryStarted(ctx context.Context, order event.Order)
	DeliveryRescheduled(ctx context.Context, order event.Order)
	DeliveryCancelled(ctx context.Context, orderID int64)
}

// Handler routes envelopes by action, mirroring the payment dispatcher with
// delivery-specific effects.
type Handler struct {
	notifier Notifier
}

// NewHandler builds the delivery dispatcher. A nil notifier falls back to
// slog-based notifications.
func NewHandler(notifier Notifier, log *slog.Logger) *Handler {
	if notifier == nil {
		notifier = &logNotifier{log: log}
	}
	return &Handler{notifier: notifier}
}

// Handle dispatches one envelope.
func (h *Handler) Handle(ctx context.Context, env event.Envelope) error {
	switch env.Action {
	case event.ActionUpdate:
		h.notifier.DeliveryRescheduled(ctx, orderOrZero(env.Order))
	case event.ActionDelete:
		h.notifier.DeliveryCancelled(ctx, env.OrderID)
	default:
		h.notifier.DeliveryStarted(ctx, orderOrZero(env.Order))
	}
	return nil
}

func orderOrZero(o *event.Order) event.Order {
	if o == nil {
		return event.Order{}
	}
	return *o
}

type logNotifier struct {
	log *slog.Logger
}

func (n *logNotifier) DeliveryStarted(_ context.Context, o event.Order) {
	n.log.Info("delivery started",
		"order_id", o.ID,
		"product", o.Product,
		"recipient", o.UserName,
	)
}

func (n *logNotifier) DeliveryRescheduled(_ context.Context, o event.Order) {
	n.log.Info("delivery rescheduled", "order_id", o.ID)
}

func (n *logNotifier) DeliveryCancelled(_ context.Context, orderID int64) {
	n.log.Info("delivery cancelled", "order_id", orderID)
}
