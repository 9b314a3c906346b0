package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/example/realtime-relay/config"
	"github.com/example/realtime-relay/modules/relay"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// ConnectionHub is the part of the relay hub the WebSocket endpoint drives.
type ConnectionHub interface {
	Connect(conn relay.Conn) (string, error)
	Receive(connID string, frame []byte) error
	Disconnect(connID string) error
}

// Info identifies the service in GET / responses.
type Info struct {
	Service string
	Version string
}

// APIModule serves the administrative HTTP endpoints and the WebSocket transport.
type APIModule struct {
	app            *fiber.App
	relay          relay.RelayPort
	hub            ConnectionHub
	metricsHandler http.Handler
	origins        *OriginPolicy
	cfg            config.ServerConfig
	metricsPath    string
	pongWait       time.Duration
	info           Info
	logger         types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*APIModule)(nil)
var _ mono.DependentModule = (*APIModule)(nil)
var _ mono.HealthCheckableModule = (*APIModule)(nil)

// NewModule creates a new APIModule.
func NewModule(cfg *config.Config, info Info, logger types.Logger) *APIModule {
	return &APIModule{
		cfg:         cfg.Server,
		origins:     NewOriginPolicy(cfg.Server.AllowedOrigins),
		metricsPath: cfg.Metrics.Path,
		pongWait:    cfg.Relay.PongWait,
		info:        info,
		logger:      logger,
	}
}

// Name returns the module name.
func (m *APIModule) Name() string {
	return "api"
}

// Dependencies returns the list of module dependencies.
func (m *APIModule) Dependencies() []string {
	return []string{"relay"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *APIModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "relay":
		m.relay = relay.NewRelayAdapter(container)
	}
}

// SetRelay overrides the relay port. Used when the API runs without the
// service container.
func (m *APIModule) SetRelay(port relay.RelayPort) {
	m.relay = port
}

// SetHub sets the connection hub (called from main).
func (m *APIModule) SetHub(hub ConnectionHub) {
	m.hub = hub
}

// SetMetricsHandler mounts handler on the metrics path.
func (m *APIModule) SetMetricsHandler(handler http.Handler) {
	m.metricsHandler = handler
}

// SetAllowedOrigins replaces the WebSocket origin allow list at runtime.
func (m *APIModule) SetAllowedOrigins(origins []string) {
	m.origins.Set(origins)
	m.logger.Info("Allowed origins updated", "origins", origins)
}

// Start builds the Fiber app and starts listening.
func (m *APIModule) Start(_ context.Context) error {
	if m.relay == nil {
		return fmt.Errorf("relay adapter dependency not set")
	}
	if m.hub == nil {
		return fmt.Errorf("connection hub dependency not set")
	}

	m.app = m.buildApp()

	// Start server in goroutine with startup error detection
	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(":" + m.cfg.Port); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	m.logger.Info("HTTP server started", "port", m.cfg.Port)
	return nil
}

// Stop shuts down the Fiber HTTP server.
func (m *APIModule) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	m.logger.Info("Shutting down HTTP server")
	if err := m.app.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// Health returns the health status.
func (m *APIModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: map[string]any{
			"port": m.cfg.Port,
		},
	}
}

// buildApp creates the Fiber app with middleware and routes.
func (m *APIModule) buildApp() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          m.errorHandler,
		ReadTimeout:           m.cfg.ReadTimeout,
		WriteTimeout:          m.cfg.WriteTimeout,
		IdleTimeout:           m.cfg.IdleTimeout,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} ${method} ${path} ${latency}\n",
		Next: func(c *fiber.Ctx) bool {
			return websocket.IsWebSocketUpgrade(c)
		},
	}))
	app.Use(cors.New(m.corsConfig()))

	m.setupRoutes(app)
	return app
}

// corsConfig mirrors the live origin policy for plain HTTP requests. The
// wildcard cannot be combined with credentials, so it disables them.
func (m *APIModule) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}
	if m.origins.AllowAll() {
		cfg.AllowOrigins = "*"
		return cfg
	}

	cfg.AllowCredentials = true
	cfg.AllowOriginsFunc = m.origins.Allowed
	return cfg
}

// errorHandler renders framework errors as JSON.
func (m *APIModule) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	if code >= fiber.StatusInternalServerError {
		m.logger.Error("HTTP error", "code", code, "path", c.Path(), "error", err)
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "server_error",
		Message: message,
	})
}
