package api

import (
	"errors"
	"time"

	"github.com/example/realtime-relay/modules/relay"
	"github.com/gofiber/contrib/websocket"
)

// handleWebSocket handles WebSocket connections at /ws. It owns the read side
// of the connection; the hub owns the write side.
func (m *APIModule) handleWebSocket(c *websocket.Conn) {
	connID, err := m.hub.Connect(c)
	if err != nil {
		m.logger.Warn("Rejecting WebSocket connection", "error", err)
		_ = c.Close()
		return
	}
	defer func() {
		if err := m.hub.Disconnect(connID); err != nil && !errors.Is(err, relay.ErrHubStopped) {
			m.logger.Warn("Failed to release connection", "connectionID", connID, "error", err)
		}
	}()

	c.SetReadLimit(int64(m.cfg.MaxMessageSize))

	pongWait := m.pongWait
	if pongWait > 0 {
		_ = c.SetReadDeadline(time.Now().Add(pongWait))
		c.SetPongHandler(func(string) error {
			return c.SetReadDeadline(time.Now().Add(pongWait))
		})
	}

	for {
		_, frame, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				m.logger.Debug("Read error", "connectionID", connID, "error", err)
			}
			return
		}
		if pongWait > 0 {
			_ = c.SetReadDeadline(time.Now().Add(pongWait))
		}

		if err := m.hub.Receive(connID, frame); err != nil {
			return
		}
	}
}
