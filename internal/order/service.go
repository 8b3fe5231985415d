// Package order implements the producing side: order persistence plus one
// lifecycle event published per mutating call.
package order

import (
	"context"
	"log/slog"
	"math"

	"github.com/drblury/orderflow/internal/event"
	"github.com/drblury/orderflow/internal/order/rates"
)

// Publisher sends one envelope to the orders queue. *broker.Publisher
// satisfies it.
type Publisher interface {
	Publish(ctx context.Context, env event.Envelope) error
}

// Service coordinates persistence, rate lookup, and event publication.
//
// Publication is best-effort and fire-and-forget relative to the API caller:
// a failed publish is logged and the business operation still returns its own
// result. An order can therefore exist without any event ever reaching
// consumers; that gap is accepted, not fixed here.
type Service struct {
	store       Store
	rates       rates.Source
	publisher   Publisher
	defaultRate float64
	log         *slog.Logger
}

// NewService wires an order service.
func NewService(store Store, rateSource rates.Source, publisher Publisher, defaultRate float64, log *slog.Logger) *Service {
	return &Service{
		store:       store,
		rates:       rateSource,
		publisher:   publisher,
		defaultRate: defaultRate,
		log:         log,
	}
}

// Create persists an order and publishes a create event enriched with the
// derived EUR price.
func (s *Service) Create(ctx context.Context, userName, product string, price float64) (Order, error) {
	o, err := s.store.Insert(ctx, userName, product, price)
	if err != nil {
		return Order{}, err
	}

	rate := s.exchangeRate(ctx)
	s.publish(ctx, event.NewCreate(event.Order{
		ID:           o.ID,
		UserName:     o.UserName,
		Product:      o.Product,
		Price:        o.Price,
		PriceEUR:     round2(o.Price * rate),
		ExchangeRate: rate,
	}))
	return o, nil
}

// List returns all orders.
func (s *Service) List(ctx context.Context) ([]Order, error) {
	return s.store.List(ctx)
}

// Get returns one order by id.
func (s *Service) Get(ctx context.Context, id int64) (Order, error) {
	return s.store.Get(ctx, id)
}

// Update replaces an order's fields and publishes an update event.
func (s *Service) Update(ctx context.Context, id int64, userName, product string, price float64) (Order, error) {
	o, err := s.store.Update(ctx, id, userName, product, price)
	if err != nil {
		return Order{}, err
	}

	s.publish(ctx, event.NewUpdate(event.Order{
		ID:       o.ID,
		UserName: o.UserName,
		Product:  o.Product,
		Price:    o.Price,
	}))
	return o, nil
}

// Delete removes an order and publishes a delete event carrying only the id.
func (s *Service) Delete(ctx context.Context, id int64) (Order, error) {
	o, err := s.store.Delete(ctx, id)
	if err != nil {
		return Order{}, err
	}

	s.publish(ctx, event.NewDelete(o.ID))
	return o, nil
}

// exchangeRate asks the rate source and falls back to the configured default
// so order creation never fails on the third party.
func (s *Service) exchangeRate(ctx context.Context) float64 {
	rate, err := s.rates.Rate(ctx)
	if err != nil {
		s.log.Warn("rate lookup failed, using default", "error", err, "default", s.defaultRate)
		return s.defaultRate
	}
	return rate
}

func (s *Service) publish(ctx context.Context, env event.Envelope) {
	if err := s.publisher.Publish(ctx, env); err != nil {
		s.log.Error("event publish failed, continuing", "error", err, "action", string(env.Action))
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
