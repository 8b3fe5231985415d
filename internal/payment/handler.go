// Package payment reacts to order lifecycle events with payment-side effects.
package payment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/drblury/orderflow/internal/event"
)

// Notifier receives the payment-side effect of each event. The default
// implementation logs; tests substitute a recorder. In a fuller system this
// would talk to a payment gateway.
type Notifier interface {
	OrderProcessing(ctx context.Context, order event.Order)
	OrderUpdated(ctx context.Context, order event.Order)
	OrderRefunded(ctx context.Context, orderID int64)
}

// Handler routes envelopes by action. Stateless; safe for reuse across
// messages.
type Handler struct {
	notifier Notifier
}

// NewHandler builds the payment dispatcher. A nil notifier falls back to
// slog-based notifications.
func NewHandler(notifier Notifier, log *slog.Logger) *Handler {
	if notifier == nil {
		notifier = &logNotifier{log: log}
	}
	return &Handler{notifier: notifier}
}

// Handle dispatches one envelope. Unrecognised actions have already been
// normalised to create by the decoder.
func (h *Handler) Handle(ctx context.Context, env event.Envelope) error {
	switch env.Action {
	case event.ActionUpdate:
		h.notifier.OrderUpdated(ctx, orderOrZero(env.Order))
	case event.ActionDelete:
		h.notifier.OrderRefunded(ctx, env.OrderID)
	default:
		h.notifier.OrderProcessing(ctx, orderOrZero(env.Order))
	}
	return nil
}

// orderOrZero tolerates envelopes whose order payload was absent.
func orderOrZero(o *event.Order) event.Order {
	if o == nil {
		return event.Order{}
	}
	return *o
}

type logNotifier struct {
	log *slog.Logger
}

func (n *logNotifier) OrderProcessing(_ context.Context, o event.Order) {
	n.log.Info("payment processing",
		"order_id", o.ID,
		"product", o.Product,
		"amount", fmt.Sprintf("$%.2f", o.Price),
	)
}

func (n *logNotifier) OrderUpdated(_ context.Context, o event.Order) {
	n.log.Info("payment updated", "order_id", o.ID)
}

func (n *logNotifier) OrderRefunded(_ context.Context, orderID int64) {
	n.log.Info("payment refund, order cancelled", "order_id", orderID)
}
