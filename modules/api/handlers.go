package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/example/realtime-relay/modules/relay"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

// healthTimeFormat matches the millisecond UTC timestamps browsers produce.
const healthTimeFormat = "2006-01-02T15:04:05.000Z"

// setupRoutes configures all HTTP routes.
func (m *APIModule) setupRoutes(app *fiber.App) {
	app.Get("/", m.statusHandler)
	app.Get("/health", m.healthHandler)
	app.Post("/emit", m.emitHandler)

	if m.metricsHandler != nil && m.metricsPath != "" {
		app.Get(m.metricsPath, adaptor.HTTPHandler(m.metricsHandler))
	}

	// WebSocket endpoint
	app.Use("/ws", m.upgradeGuard)
	app.Get("/ws", websocket.New(m.handleWebSocket))
}

// statusHandler handles GET /.
func (m *APIModule) statusHandler(c *fiber.Ctx) error {
	stats, err := m.relay.Stats(c.UserContext())
	if err != nil {
		m.logger.Error("Failed to read relay stats", "error", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error:   "unavailable",
			Message: "Relay is not available",
		})
	}

	return c.JSON(StatusResponse{
		Status:             "online",
		Service:            m.info.Service,
		Version:            m.info.Version,
		ConnectedUsers:     stats.Connections,
		AuthenticatedUsers: stats.Sessions,
	})
}

// healthHandler handles GET /health.
func (m *APIModule) healthHandler(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(healthTimeFormat),
	})
}

// emitHandler handles POST /emit. The event goes to the room when one is
// given, otherwise to every connection.
func (m *APIModule) emitHandler(c *fiber.Ctx) error {
	var req EmitRequest
	if err := c.BodyParser(&req); err != nil || req.Event == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "Event name required",
		})
	}

	result, err := m.relay.Emit(c.UserContext(), req.Event, req.Data, req.Room)
	if err != nil {
		if errors.Is(err, relay.ErrEventNameRequired) {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: "Event name required",
			})
		}
		m.logger.Error("Failed to emit event", "event", req.Event, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "emit_failed",
			Message: "Failed to emit event",
		})
	}

	m.logger.Info("Event emitted via HTTP",
		"event", req.Event,
		"room", req.Room,
		"delivered", result.Delivered,
		"dropped", result.Dropped)

	return c.JSON(EmitResponse{
		Success: true,
		Message: fmt.Sprintf("Event '%s' emitted", req.Event),
	})
}

// upgradeGuard rejects non-upgrade requests and disallowed origins on /ws.
func (m *APIModule) upgradeGuard(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	if origin := c.Get(fiber.HeaderOrigin); !m.origins.Allowed(origin) {
		m.logger.Warn("Rejected WebSocket origin", "origin", origin)
		return fiber.NewError(fiber.StatusForbidden, "Origin not allowed")
	}
	return c.Next()
}
