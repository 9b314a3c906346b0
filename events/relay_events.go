package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// ConnectionOpenedEvent is emitted when a client connection is accepted.
type ConnectionOpenedEvent struct {
	ConnectionID string    `json:"connection_id"`
	Timestamp    time.Time `json:"timestamp"`
}

// ConnectionClosedEvent is emitted once a connection has been fully released.
type ConnectionClosedEvent struct {
	ConnectionID  string    `json:"connection_id"`
	Authenticated bool      `json:"authenticated"`
	UserID        string    `json:"user_id,omitempty"`
	Rooms         []string  `json:"rooms,omitempty"`
	Duration      float64   `json:"duration_seconds"`
	Timestamp     time.Time `json:"timestamp"`
}

// SessionAuthenticatedEvent is emitted when a connection attaches an identity.
type SessionAuthenticatedEvent struct {
	ConnectionID string    `json:"connection_id"`
	UserID       string    `json:"user_id,omitempty"`
	UserName     string    `json:"user_name,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Event definitions for the relay domain.
var (
	ConnectionOpenedV1 = helper.EventDefinition[ConnectionOpenedEvent](
		"relay",
		"ConnectionOpened",
		"v1",
	)

	ConnectionClosedV1 = helper.EventDefinition[ConnectionClosedEvent](
		"relay",
		"ConnectionClosed",
		"v1",
	)

	SessionAuthenticatedV1 = helper.EventDefinition[SessionAuthenticatedEvent](
		"relay",
		"SessionAuthenticated",
		"v1",
	)
)
