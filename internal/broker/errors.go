package broker

import sterrors "errors"

var (
	// ErrRetriesExhausted is returned by Supervisor.Run once the consecutive
	// failure budget is spent. The subscription is dead for the remainder of
	// the process lifetime; the host process is expected to keep running.
	ErrRetriesExhausted = sterrors.New("orderflow: broker retry budget exhausted")

	// ErrConnectionClosed signals that the broker closed the delivery stream
	// without an accompanying AMQP error.
	ErrConnectionClosed = sterrors.New("orderflow: broker connection closed")

	ErrHandlerRequired = sterrors.New("orderflow: consumer handler is required")
	ErrQueueRequired   = sterrors.New("orderflow: queue name is required")
)
