package api

import "encoding/json"

// StatusResponse is the response for GET /.
type StatusResponse struct {
	Status             string `json:"status"`
	Service            string `json:"service"`
	Version            string `json:"version"`
	ConnectedUsers     int    `json:"connectedUsers"`
	AuthenticatedUsers int    `json:"authenticatedUsers"`
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// EmitRequest is the body of POST /emit.
type EmitRequest struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	Room  string          `json:"room,omitempty"`
}

// EmitResponse is the response for a successful POST /emit.
type EmitResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ErrorResponse is the API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
