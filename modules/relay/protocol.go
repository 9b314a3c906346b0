package relay

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	domain "github.com/example/realtime-relay/domain/relay"
)

// Event names understood by the hub.
const (
	EventAuthenticate  = "authenticate"
	EventAuthenticated = "authenticated"
	EventPing          = "ping"
	EventPong          = "pong"

	joinPrefix    = "join:"
	leavePrefix   = "leave:"
	updatedSuffix = ":updated"
	changedSuffix = ":changed"

	// DefaultScopeField is read from "<domain>:updated" payloads of domains
	// without a rule. Its value is used verbatim as the room id.
	DefaultScopeField = "roomScopeId"
)

// ErrMalformedFrame is returned for frames that are not an event envelope.
var ErrMalformedFrame = errors.New("malformed frame")

// inboundKind classifies an inbound event name.
type inboundKind int

const (
	inboundUnknown inboundKind = iota
	inboundAuthenticate
	inboundPing
	inboundJoin
	inboundLeave
	inboundUpdated
)

// AuthenticatedPayload is sent back after "authenticate".
type AuthenticatedPayload struct {
	SocketID string `json:"socketId"`
}

// PongPayload answers "ping" with the server time in unix milliseconds.
type PongPayload struct {
	Timestamp int64 `json:"timestamp"`
}

// ParseFrame decodes an inbound event envelope.
func ParseFrame(frame []byte) (domain.Event, error) {
	var evt domain.Event
	if err := json.Unmarshal(frame, &evt); err != nil {
		return domain.Event{}, errors.Join(ErrMalformedFrame, err)
	}
	if evt.Name == "" {
		return domain.Event{}, ErrMalformedFrame
	}
	return evt, nil
}

// classify returns the kind of event and its argument: the room kind for
// join/leave and the domain for updates.
func classify(name string) (inboundKind, string) {
	switch {
	case name == EventAuthenticate:
		return inboundAuthenticate, ""
	case name == EventPing:
		return inboundPing, ""
	case strings.HasPrefix(name, joinPrefix):
		if kind := strings.TrimPrefix(name, joinPrefix); kind != "" {
			return inboundJoin, kind
		}
	case strings.HasPrefix(name, leavePrefix):
		if kind := strings.TrimPrefix(name, leavePrefix); kind != "" {
			return inboundLeave, kind
		}
	case strings.HasSuffix(name, updatedSuffix):
		if d := strings.TrimSuffix(name, updatedSuffix); d != "" {
			return inboundUpdated, d
		}
	}
	return inboundUnknown, ""
}

// ChangedEvent names the event relayed for a "<domain>:updated".
func ChangedEvent(domainName string) string {
	return domainName + changedSuffix
}

// decodeIdentity reads authenticate claims. Anything that is not an object
// yields an empty identity rather than an error.
func decodeIdentity(data json.RawMessage) domain.Identity {
	var identity domain.Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		return domain.Identity{}
	}
	return identity
}

// RuleSet resolves the room an update is relayed to.
type RuleSet map[string]domain.Rule

// NewRuleSet indexes rules by domain. Later rules override earlier ones.
func NewRuleSet(rules []domain.Rule) RuleSet {
	set := make(RuleSet, len(rules))
	for _, rule := range rules {
		if rule.Domain == "" {
			continue
		}
		set[rule.Domain] = rule
	}
	return set
}

// RelayTarget picks the target for a "<domain>:updated" sent by sender:
// the scope room without the sender when a scope is present, otherwise
// everyone but the sender.
func (s RuleSet) RelayTarget(domainName string, payload json.RawMessage, sender string) domain.Target {
	if room, ok := s.scopeRoom(domainName, payload); ok {
		return domain.ToRoomExcept(room, sender)
	}
	return domain.ToAllExcept(sender)
}

func (s RuleSet) scopeRoom(domainName string, payload json.RawMessage) (string, bool) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 || payload[0] != '{' {
		return "", false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return "", false
	}

	if rule, ok := s[domainName]; ok {
		field := rule.ScopeField
		if field == "" {
			field = DefaultScopeField
		}
		id, ok := domain.ScopeValue(fields[field])
		if !ok {
			return "", false
		}
		return domain.RoomName(rule.RoomKind, id), true
	}

	return domain.ScopeValue(fields[DefaultScopeField])
}
