package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	domain "github.com/example/realtime-relay/domain/relay"
	"github.com/example/realtime-relay/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// Module hosts the relay hub and exposes it to the rest of the application.
type Module struct {
	hub       *Hub
	eventBus  mono.EventBus
	cancelHub context.CancelFunc
	logger    types.Logger
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
	_ Notifier                   = (*Module)(nil)
)

// NewModule creates the relay module with its hub.
func NewModule(cfg HubConfig, logger types.Logger) *Module {
	m := &Module{
		hub:    NewHub(cfg, logger),
		logger: logger,
	}
	m.hub.SetNotifier(m)
	return m
}

// Name returns the module name.
func (m *Module) Name() string {
	return "relay"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.ConnectionOpenedV1.ToBase(),
		events.ConnectionClosedV1.ToBase(),
		events.SessionAuthenticatedV1.ToBase(),
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceEmit,
		json.Unmarshal,
		json.Marshal,
		m.handleEmit,
	); err != nil {
		return fmt.Errorf("failed to register emit service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceStats,
		json.Unmarshal,
		json.Marshal,
		m.handleStats,
	); err != nil {
		return fmt.Errorf("failed to register stats service: %w", err)
	}

	m.logger.Info("Registered relay services", "services", []string{ServiceEmit, ServiceStats})
	return nil
}

func (m *Module) handleEmit(_ context.Context, req EmitRequest, _ *mono.Msg) (EmitResponse, error) {
	result, err := m.hub.Emit(req.Event, req.Data, req.Room)
	if err != nil {
		return EmitResponse{}, err
	}
	return EmitResponse{
		Success: true,
		Message: fmt.Sprintf("Event '%s' emitted", req.Event),
		Result:  result,
	}, nil
}

func (m *Module) handleStats(_ context.Context, _ StatsRequest, _ *mono.Msg) (StatsResponse, error) {
	stats, err := m.hub.Stats()
	if err != nil {
		return StatsResponse{}, err
	}
	return StatsResponse{Stats: stats}, nil
}

// Start runs the hub loop until Stop.
func (m *Module) Start(_ context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelHub = cancel
	go m.hub.Run(ctx)
	m.logger.Info("Relay module started")
	return nil
}

// Stop closes every connection and waits for the hub loop to exit.
func (m *Module) Stop(_ context.Context) error {
	if m.cancelHub != nil {
		m.cancelHub()
		m.hub.Wait()
	}
	m.logger.Info("Relay module stopped")
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	stats, err := m.hub.Stats()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: err.Error(),
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connections": stats.Connections,
			"sessions":    stats.Sessions,
			"rooms":       stats.Rooms,
		},
	}
}

// Hub returns the relay hub for the transport layer.
func (m *Module) Hub() *Hub {
	return m.hub
}

// ConnectionOpened publishes ConnectionOpened.v1.
func (m *Module) ConnectionOpened(connID string) {
	if m.eventBus == nil {
		return
	}
	event := events.ConnectionOpenedEvent{
		ConnectionID: connID,
		Timestamp:    time.Now(),
	}
	if err := events.ConnectionOpenedV1.Publish(m.eventBus, event, nil); err != nil {
		m.logger.Warn("Failed to publish ConnectionOpened event", "error", err)
	}
}

// ConnectionClosed publishes ConnectionClosed.v1.
func (m *Module) ConnectionClosed(connID string, identity *domain.Identity, rooms []string, lifetime time.Duration) {
	if m.eventBus == nil {
		return
	}
	event := events.ConnectionClosedEvent{
		ConnectionID:  connID,
		Authenticated: identity != nil,
		Rooms:         rooms,
		Duration:      lifetime.Seconds(),
		Timestamp:     time.Now(),
	}
	if identity != nil {
		event.UserID = identity.Subject()
	}
	if err := events.ConnectionClosedV1.Publish(m.eventBus, event, nil); err != nil {
		m.logger.Warn("Failed to publish ConnectionClosed event", "error", err)
	}
}

// SessionAuthenticated publishes SessionAuthenticated.v1.
func (m *Module) SessionAuthenticated(connID string, identity domain.Identity) {
	if m.eventBus == nil {
		return
	}
	event := events.SessionAuthenticatedEvent{
		ConnectionID: connID,
		UserID:       identity.Subject(),
		UserName:     identity.DisplayName(),
		Timestamp:    time.Now(),
	}
	if err := events.SessionAuthenticatedV1.Publish(m.eventBus, event, nil); err != nil {
		m.logger.Warn("Failed to publish SessionAuthenticated event", "error", err)
	}
}
