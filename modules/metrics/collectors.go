package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Option configures the metrics module.
type Option func(*options)

type options struct {
	namespace string
	registry  *prometheus.Registry
}

// WithNamespace sets the metrics namespace (default: "relay").
func WithNamespace(namespace string) Option {
	return func(o *options) {
		o.namespace = namespace
	}
}

// WithRegistry sets the registry collectors are registered with. A fresh
// registry is used by default so tests can create modules freely.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(o *options) {
		o.registry = registry
	}
}

// relayMetrics holds the relay's Prometheus metrics.
type relayMetrics struct {
	connectionsActive  prometheus.Gauge
	connectionsTotal   prometheus.Counter
	connectionDuration prometheus.Histogram
	sessionsTotal      prometheus.Counter
	dispatchesTotal    *prometheus.CounterVec
	deliveriesTotal    *prometheus.CounterVec
}

func newRelayMetrics(o options) *relayMetrics {
	factory := promauto.With(o.registry)

	return &relayMetrics{
		connectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: o.namespace,
			Name:      "connections_active",
			Help:      "Number of open client connections",
		}),

		connectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "connections_total",
			Help:      "Total number of accepted client connections",
		}),

		connectionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: o.namespace,
			Name:      "connection_duration_seconds",
			Help:      "Lifetime of closed client connections in seconds",
			Buckets:   []float64{1, 10, 60, 300, 900, 3600, 14400},
		}),

		sessionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "sessions_authenticated_total",
			Help:      "Total number of authenticate events accepted",
		}),

		dispatchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "dispatches_total",
			Help:      "Total number of event dispatches by target kind",
		}, []string{"target"}),

		deliveriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "deliveries_total",
			Help:      "Total number of frames handed to connections, by outcome",
		}, []string{"outcome"}),
	}
}
