package metrics

import (
	"context"
	"fmt"
	"net/http"

	domain "github.com/example/realtime-relay/domain/relay"
	"github.com/example/realtime-relay/events"
	"github.com/example/realtime-relay/modules/relay"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Module records relay activity as Prometheus metrics. Connection lifecycle
// arrives over the event bus; dispatch outcomes arrive through the hub's
// observer hook.
type Module struct {
	registry *prometheus.Registry
	metrics  *relayMetrics
	logger   types.Logger
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventConsumerModule   = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
	_ relay.Observer             = (*Module)(nil)
)

// NewModule creates the metrics module.
func NewModule(logger types.Logger, opts ...Option) *Module {
	o := options{namespace: "relay"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = prometheus.NewRegistry()
		o.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	return &Module{
		registry: o.registry,
		metrics:  newRelayMetrics(o),
		logger:   logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "metrics"
}

// RegisterEventConsumers subscribes to relay lifecycle events.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.ConnectionOpenedV1, m.handleConnectionOpened, m,
	); err != nil {
		return fmt.Errorf("failed to register ConnectionOpened consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.ConnectionClosedV1, m.handleConnectionClosed, m,
	); err != nil {
		return fmt.Errorf("failed to register ConnectionClosed consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.SessionAuthenticatedV1, m.handleSessionAuthenticated, m,
	); err != nil {
		return fmt.Errorf("failed to register SessionAuthenticated consumer: %w", err)
	}

	m.logger.Info("Registered event consumers", "events", []string{"ConnectionOpened", "ConnectionClosed", "SessionAuthenticated"})
	return nil
}

func (m *Module) handleConnectionOpened(_ context.Context, _ events.ConnectionOpenedEvent, _ *mono.Msg) error {
	m.metrics.connectionsActive.Inc()
	m.metrics.connectionsTotal.Inc()
	return nil
}

func (m *Module) handleConnectionClosed(_ context.Context, event events.ConnectionClosedEvent, _ *mono.Msg) error {
	m.metrics.connectionsActive.Dec()
	m.metrics.connectionDuration.Observe(event.Duration)
	return nil
}

func (m *Module) handleSessionAuthenticated(_ context.Context, _ events.SessionAuthenticatedEvent, _ *mono.Msg) error {
	m.metrics.sessionsTotal.Inc()
	return nil
}

// Dispatched records the outcome of one fan-out.
func (m *Module) Dispatched(_ string, target domain.Target, result domain.DispatchResult) {
	m.metrics.dispatchesTotal.WithLabelValues(target.Kind.String()).Inc()
	if result.Delivered > 0 {
		m.metrics.deliveriesTotal.WithLabelValues("delivered").Add(float64(result.Delivered))
	}
	if result.Dropped > 0 {
		m.metrics.deliveriesTotal.WithLabelValues("dropped").Add(float64(result.Dropped))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Module) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the Prometheus registry.
func (m *Module) Registry() *prometheus.Registry {
	return m.registry
}

// Start starts the module.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("Metrics module started")
	return nil
}

// Stop stops the module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("Metrics module stopped")
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	families, err := m.registry.Gather()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("gather failed: %v", err),
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"metric_families": len(families),
		},
	}
}
