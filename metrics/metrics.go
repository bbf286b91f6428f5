package metrics

import "github.com/prometheus/client_golang/prometheus"

type Observer interface {
	Observe(val float64, labels ...string)

	// for now we will tightly couple to the prometheus collector type
	// the go otel metrics sdk also has a prometheus adapter that implements this interface.
	prometheus.Collector
}

type Metrics struct {
	// MessagesCount counts inbound messages by transport.
	MessagesCount Observer
	// CommandCount counts dispatch outcomes by outcome.
	CommandCount Observer
	// ExpiredCount counts expired waits and sessions by kind.
	ExpiredCount Observer
	// PendingContexts is the number of waits held.
	PendingContexts Observer
	// CommandLatency is handler execution time in seconds by command.
	CommandLatency Observer
}

// New creates the bot's metrics under the given namespace.
func New(ns string) Metrics {
	return Metrics{
		MessagesCount: NewPromCounterVec(prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "messages_total",
			Help:      "Inbound chat messages.",
		}, []string{"transport"})),
		CommandCount: NewPromCounterVec(prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "dispatch_total",
			Help:      "Dispatch outcomes for inbound messages.",
		}, []string{"outcome"})),
		ExpiredCount: NewPromCounterVec(prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "expired_total",
			Help:      "Conversation waits and collection sessions that expired.",
		}, []string{"kind"})),
		PendingContexts: NewPromGauge(prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "pending_contexts",
			Help:      "Conversation waits currently held.",
		})),
		CommandLatency: NewPromObserverVec(prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "command_seconds",
			Help:      "Command handler execution time.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"command"})),
	}
}

func (m Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.MessagesCount,
		m.CommandCount,
		m.ExpiredCount,
		m.PendingContexts,
		m.CommandLatency,
	}
}
