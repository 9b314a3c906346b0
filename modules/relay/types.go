package relay

import (
	"encoding/json"

	domain "github.com/example/realtime-relay/domain/relay"
)

// Service names registered in the relay module's service container.
const (
	ServiceEmit  = "emit"
	ServiceStats = "stats"
)

// EmitRequest asks the relay to push an event to clients. An empty Room
// broadcasts to every connection.
type EmitRequest struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	Room  string          `json:"room,omitempty"`
}

// EmitResponse reports how the event was fanned out.
type EmitResponse struct {
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	Result  domain.DispatchResult `json:"result"`
}

// StatsRequest is the (empty) request for the stats service.
type StatsRequest struct{}

// StatsResponse carries hub counters.
type StatsResponse struct {
	Stats
}
