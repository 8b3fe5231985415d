package broker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "orderflow"

var (
	eventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "publisher",
		Name:      "events_published_total",
		Help:      "Events accepted by the broker, by action.",
	}, []string{"action"})

	publishErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "publisher",
		Name:      "errors_total",
		Help:      "Publish attempts that failed before the broker accepted the message.",
	})

	messagesConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "consumer",
		Name:      "messages_total",
		Help:      "Messages pulled from the queue and acknowledged, by service and action.",
	}, []string{"service", "action"})

	decodeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "consumer",
		Name:      "decode_failures_total",
		Help:      "Poison messages dropped because their payload could not be decoded.",
	}, []string{"service"})

	handlerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "consumer",
		Name:      "handler_errors_total",
		Help:      "Handler failures for well-formed messages. The message is still acknowledged.",
	}, []string{"service"})

	reconnects = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "consumer",
		Name:      "reconnects_total",
		Help:      "Times the supervisor lost an established connection and re-entered the retry loop.",
	}, []string{"service"})

	supervisorState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: "consumer",
		Name:      "supervisor_state",
		Help:      "Current supervisor state: 0 disconnected, 1 connecting, 2 connected, 3 draining.",
	}, []string{"service"})
)
