package relay

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Identity holds the claims a connection presents with "authenticate".
// Values are kept verbatim so partial or oddly typed claims survive untouched.
type Identity struct {
	UserID   json.RawMessage `json:"userId,omitempty"`
	UserName json.RawMessage `json:"userName,omitempty"`
	UserRole json.RawMessage `json:"userRole,omitempty"`
}

// DisplayName returns the user name as text, or "" when none was given.
func (i Identity) DisplayName() string {
	return rawText(i.UserName)
}

// Subject returns the user id as text, or "" when none was given.
func (i Identity) Subject() string {
	return rawText(i.UserID)
}

// Event is the envelope exchanged with clients.
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Rule maps a "<domain>:updated" event to the room it should be relayed to.
// The room is "<RoomKind>:<payload[ScopeField]>".
type Rule struct {
	Domain     string `json:"domain" yaml:"domain"`
	ScopeField string `json:"scope_field" yaml:"scope_field"`
	RoomKind   string `json:"room_kind" yaml:"room_kind"`
}

// DispatchResult summarizes a single fan-out.
type DispatchResult struct {
	Targeted  int `json:"targeted"`
	Delivered int `json:"delivered"`
	Dropped   int `json:"dropped"`
}

// RoomName builds the room id for a domain object.
func RoomName(kind, id string) string {
	return kind + ":" + id
}

// ScopeValue renders a JSON scalar as a room id component. Absent, null,
// empty, zero and false values report ok=false, as do objects and arrays.
func ScopeValue(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil || s == "" {
			return "", false
		}
		return s, true
	case 't':
		return "true", string(raw) == "true"
	case 'f', 'n', '{', '[':
		return "", false
	}

	n, err := strconv.ParseFloat(string(raw), 64)
	if err != nil || n == 0 {
		return "", false
	}
	return string(raw), true
}

// RoomID renders the id sent with join/leave. Any JSON scalar is accepted,
// including 0, false and "". Missing, null, objects and arrays are not.
func RoomID(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}
	switch raw[0] {
	case 'n', '{', '[':
		return "", false
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, true
	}
	return string(raw), true
}

func rawText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
