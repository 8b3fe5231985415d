// Package event defines the envelope exchanged over the orders queue and its
// wire codec.
//
// The wire format is schema-free JSON with no version header. Consumers must
// tolerate additive and missing fields, so decoding is deliberately lenient:
// unknown fields are ignored and a missing or unrecognised action falls back
// to ActionCreate.
package event

import (
	"errors"
	"fmt"

	"github.com/drblury/orderflow/internal/jsoncodec"
)

// Action identifies the lifecycle operation an envelope describes.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Order is the payload carried by create and update envelopes. PriceEUR and
// ExchangeRate are derived by the producer at create time and absent
// otherwise.
type Order struct {
	ID           int64   `json:"id"`
	UserName     string  `json:"user_name"`
	Product      string  `json:"product"`
	Price        float64 `json:"price"`
	PriceEUR     float64 `json:"price_eur,omitempty"`
	ExchangeRate float64 `json:"exchange_rate,omitempty"`
}

// Envelope is a tagged variant over the three lifecycle actions. Exactly one
// of Order and OrderID is meaningful: Order for create/update, OrderID for
// delete.
type Envelope struct {
	Action  Action
	Order   *Order
	OrderID int64
}

// ErrEmptyPayload is returned when decoding input that holds no JSON value.
var ErrEmptyPayload = errors.New("event: empty payload")

// NewCreate builds a create envelope for a just-persisted order.
func NewCreate(o Order) Envelope {
	return Envelope{Action: ActionCreate, Order: &o}
}

// NewUpdate builds an update envelope for a just-updated order.
func NewUpdate(o Order) Envelope {
	return Envelope{Action: ActionUpdate, Order: &o}
}

// NewDelete builds a delete envelope for a just-deleted order row.
func NewDelete(orderID int64) Envelope {
	return Envelope{Action: ActionDelete, OrderID: orderID}
}

// orderWire mirrors Order on the wire. The producer historically wrote
// user_name while one consumer generation read user, so both keys are written
// on encode and accepted on decode.
type orderWire struct {
	ID           int64   `json:"id"`
	UserName     string  `json:"user_name,omitempty"`
	User         string  `json:"user,omitempty"`
	Product      string  `json:"product"`
	Price        float64 `json:"price"`
	PriceEUR     float64 `json:"price_eur,omitempty"`
	ExchangeRate float64 `json:"exchange_rate,omitempty"`
}

type envelopeWire struct {
	Action  string     `json:"action,omitempty"`
	Order   *orderWire `json:"order,omitempty"`
	OrderID *int64     `json:"order_id,omitempty"`
}

// Encode serialises the envelope to its wire form.
func (e Envelope) Encode() ([]byte, error) {
	w := envelopeWire{Action: string(e.Action)}
	switch e.Action {
	case ActionDelete:
		id := e.OrderID
		w.OrderID = &id
	default:
		if e.Order == nil {
			return nil, fmt.Errorf("event: %s envelope requires an order payload", e.Action)
		}
		w.Order = &orderWire{
			ID:           e.Order.ID,
			UserName:     e.Order.UserName,
			User:         e.Order.UserName,
			Product:      e.Order.Product,
			Price:        e.Order.Price,
			PriceEUR:     e.Order.PriceEUR,
			ExchangeRate: e.Order.ExchangeRate,
		}
	}
	return jsoncodec.Marshal(w)
}

// Decode parses wire bytes into an Envelope. Malformed JSON returns an error;
// the consumption loop treats that as a poison message. A missing or unknown
// action decodes as ActionCreate, and an action whose expected payload field
// is absent keeps the zero value rather than failing, matching the tolerant
// policy producers are decoded under.
func Decode(data []byte) (Envelope, error) {
	if len(data) == 0 {
		return Envelope{}, ErrEmptyPayload
	}

	var w envelopeWire
	if err := jsoncodec.Unmarshal(data, &w); err != nil {
		return Envelope{}, fmt.Errorf("event: decode: %w", err)
	}

	action := Action(w.Action)
	switch action {
	case ActionCreate, ActionUpdate, ActionDelete:
	default:
		action = ActionCreate
	}

	env := Envelope{Action: action}
	if action == ActionDelete {
		if w.OrderID != nil {
			env.OrderID = *w.OrderID
		}
		return env, nil
	}

	if w.Order != nil {
		name := w.Order.UserName
		if name == "" {
			name = w.Order.User
		}
		env.Order = &Order{
			ID:           w.Order.ID,
			UserName:     name,
			Product:      w.Order.Product,
			Price:        w.Order.Price,
			PriceEUR:     w.Order.PriceEUR,
			ExchangeRate: w.Order.ExchangeRate,
		}
	}
	return env, nil
}
