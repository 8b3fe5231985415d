package broker

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/drblury/orderflow/internal/event"
)

// State is the connection lifecycle state owned by the Supervisor. No other
// component mutates it; readers get a snapshot through Supervisor.State.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateDraining
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDraining:
		return "draining"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Handler receives each decoded envelope. Handler errors are logged and do
// not fail the message: delivery is attempt-once, move on.
type Handler interface {
	Handle(ctx context.Context, env event.Envelope) error
}

// Backoff returns the wait before connection attempt retry+1. Linear growth
// clamped at cap, not exponential: min(retry*unit, cap).
func Backoff(retry int, unit, cap time.Duration) time.Duration {
	d := time.Duration(retry) * unit
	if d > cap {
		return cap
	}
	return d
}

// SupervisorConfig carries the tunables of one supervised subscription.
type SupervisorConfig struct {
	Service     string // consumer name for logs and metrics
	URL         string
	Queue       string
	MaxRetries  int
	BackoffUnit time.Duration
	BackoffCap  time.Duration
}

// Supervisor maintains one durable subscription to the queue: it dials,
// declares, consumes, and reconnects with linear-clamped backoff until the
// consecutive-failure budget is spent, after which the subscription is
// terminally dead while the host process lives on.
//
// The retry counter resets on every successful connect, so MaxRetries bounds
// consecutive failures rather than lifetime failures. One process per service
// type is assumed; a second process consuming the same queue would compete
// for messages instead of receiving copies.
type Supervisor struct {
	cfg     SupervisorConfig
	handler Handler
	log     *slog.Logger

	state atomic.Int32
}

// NewSupervisor wires a supervisor for one consumer service.
func NewSupervisor(cfg SupervisorConfig, handler Handler, log *slog.Logger) (*Supervisor, error) {
	if handler == nil {
		return nil, ErrHandlerRequired
	}
	if cfg.Queue == "" {
		return nil, ErrQueueRequired
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 10
	}
	if cfg.BackoffUnit <= 0 {
		cfg.BackoffUnit = 2 * time.Second
	}
	if cfg.BackoffCap <= 0 {
		cfg.BackoffCap = 30 * time.Second
	}
	s := &Supervisor{cfg: cfg, handler: handler, log: log.With("queue", cfg.Queue)}
	s.setState(StateDisconnected)
	return s, nil
}

// State reports the current connection state.
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

func (s *Supervisor) setState(st State) {
	s.state.Store(int32(st))
	supervisorState.WithLabelValues(s.cfg.Service).Set(float64(st))
}

// Run drives the subscription until ctx is cancelled or the retry budget is
// exhausted. Returns ctx.Err() on shutdown and ErrRetriesExhausted on
// terminal give-up.
func (s *Supervisor) Run(ctx context.Context) error {
	retries := 0

	for {
		if err := ctx.Err(); err != nil {
			s.setState(StateDisconnected)
			return err
		}

		s.setState(StateConnecting)
		s.log.Info("connecting to broker", "attempt", retries+1, "max_retries", s.cfg.MaxRetries)

		sess, err := s.connect()
		if err == nil {
			retries = 0
			s.setState(StateConnected)
			s.log.Info("connected, consuming")

			err = s.consume(ctx, sess)
			sess.close()

			if ctx.Err() != nil {
				s.setState(StateDisconnected)
				s.log.Info("consumer stopped")
				return ctx.Err()
			}

			reconnects.WithLabelValues(s.cfg.Service).Inc()
			s.log.Error("connection lost", "error", err)
		} else {
			s.log.Error("connect failed", "error", err)
		}

		retries++
		s.setState(StateDisconnected)

		if retries >= s.cfg.MaxRetries {
			s.log.Error("max retries reached, giving up", "attempts", retries)
			return ErrRetriesExhausted
		}

		wait := Backoff(retries, s.cfg.BackoffUnit, s.cfg.BackoffCap)
		s.log.Info("retrying after backoff", "wait", wait.String())

		select {
		case <-ctx.Done():
			s.setState(StateDisconnected)
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// session bundles the resources of one Connected period. They are owned
// exclusively by the supervisor between connect and close.
type session struct {
	conn       Connection
	ch         Channel
	deliveries <-chan amqp.Delivery
	closed     chan *amqp.Error
}

func (s *session) close() {
	s.ch.Close()
	s.conn.Close()
}

func (s *Supervisor) connect() (*session, error) {
	conn, err := DialFactory(s.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("broker: dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("broker: open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(s.cfg.Queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("broker: declare queue %q: %w", s.cfg.Queue, err)
	}

	deliveries, err := ch.Consume(s.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("broker: consume: %w", err)
	}

	return &session{
		conn:       conn,
		ch:         ch,
		deliveries: deliveries,
		closed:     conn.NotifyClose(make(chan *amqp.Error, 1)),
	}, nil
}
