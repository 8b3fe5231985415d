package broker

import (
	"context"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/drblury/orderflow/internal/event"
)

// fakeAcknowledger records ack/nack calls so tests can assert the per-message
// completion protocol.
type fakeAcknowledger struct {
	mu     sync.Mutex
	acked  []uint64
	nacked []uint64
}

func (a *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = append(a.acked, tag)
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacked = append(a.nacked, tag)
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func (a *fakeAcknowledger) ackedTags() []uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]uint64(nil), a.acked...)
}

func (a *fakeAcknowledger) nackedTags() []uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]uint64(nil), a.nacked...)
}

type declaredQueue struct {
	name    string
	durable bool
}

type publishedMessage struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

// fakeChannel implements Channel against in-memory state.
type fakeChannel struct {
	mu         sync.Mutex
	deliveries chan amqp.Delivery
	declared   []declaredQueue
	published  []publishedMessage
	declareErr error
	publishErr error
	consumeErr error
	closed     bool
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{deliveries: make(chan amqp.Delivery, 16)}
}

func (c *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.declareErr != nil {
		return amqp.Queue{}, c.declareErr
	}
	c.declared = append(c.declared, declaredQueue{name: name, durable: durable})
	return amqp.Queue{Name: name}, nil
}

func (c *fakeChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.consumeErr != nil {
		return nil, c.consumeErr
	}
	return c.deliveries, nil
}

func (c *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.publishErr != nil {
		return c.publishErr
	}
	c.published = append(c.published, publishedMessage{exchange: exchange, key: key, msg: msg})
	return nil
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeChannel) publishedMessages() []publishedMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]publishedMessage(nil), c.published...)
}

// fakeConnection implements Connection around a fakeChannel.
type fakeConnection struct {
	mu      sync.Mutex
	ch      *fakeChannel
	notify  chan *amqp.Error
	closed  bool
	chanErr error
}

func newFakeConnection(ch *fakeChannel) *fakeConnection {
	return &fakeConnection{ch: ch}
}

func (c *fakeConnection) Channel() (Channel, error) {
	if c.chanErr != nil {
		return nil, c.chanErr
	}
	return c.ch, nil
}

func (c *fakeConnection) NotifyClose(receiver chan *amqp.Error) chan *amqp.Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notify = receiver
	return receiver
}

// dropConnection simulates the broker going away mid-consumption.
func (c *fakeConnection) dropConnection(err *amqp.Error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.notify != nil {
		c.notify <- err
		close(c.notify)
		c.notify = nil
	}
}

func (c *fakeConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConnection) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// recordingHandler captures every dispatched envelope.
type recordingHandler struct {
	mu        sync.Mutex
	envelopes []eventEnvelope
	err       error
	panicMsg  string
}

type eventEnvelope struct {
	action  string
	orderID int64
}

func (h *recordingHandler) Handle(ctx context.Context, env event.Envelope) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	var id int64
	if env.Order != nil {
		id = env.Order.ID
	} else {
		id = env.OrderID
	}
	h.envelopes = append(h.envelopes, eventEnvelope{action: string(env.Action), orderID: id})
	if h.panicMsg != "" {
		panic(h.panicMsg)
	}
	return h.err
}

func (h *recordingHandler) seen() []eventEnvelope {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]eventEnvelope(nil), h.envelopes...)
}
