package relay

import (
	"encoding/json"
	"fmt"

	domain "github.com/example/realtime-relay/domain/relay"
)

// Transport is the delivery capability the dispatcher fans out through.
type Transport interface {
	// Deliver enqueues frame for connID without blocking. It reports false
	// when the connection is gone or cannot take more frames.
	Deliver(connID string, frame []byte) bool
	// ConnectionIDs lists every live connection.
	ConnectionIDs() []string
}

// Observer is notified after every dispatch.
type Observer interface {
	Dispatched(event string, target domain.Target, result domain.DispatchResult)
}

// Dispatcher resolves a target into connections and delivers one event to them.
// Membership is read at dispatch time; nothing is queued or retried.
type Dispatcher struct {
	transport Transport
	rooms     *MembershipIndex
	observer  Observer
}

// NewDispatcher creates a dispatcher over transport and rooms.
func NewDispatcher(transport Transport, rooms *MembershipIndex) *Dispatcher {
	return &Dispatcher{
		transport: transport,
		rooms:     rooms,
	}
}

// SetObserver installs an observer. Passing nil removes it.
func (d *Dispatcher) SetObserver(observer Observer) {
	d.observer = observer
}

// Dispatch delivers event to the connections selected by target.
func (d *Dispatcher) Dispatch(event string, payload json.RawMessage, target domain.Target) (domain.DispatchResult, error) {
	frame, err := EncodeFrame(event, payload)
	if err != nil {
		return domain.DispatchResult{}, err
	}

	var result domain.DispatchResult
	for _, connID := range d.resolve(target) {
		result.Targeted++
		if d.transport.Deliver(connID, frame) {
			result.Delivered++
		} else {
			result.Dropped++
		}
	}

	if d.observer != nil {
		d.observer.Dispatched(event, target, result)
	}
	return result, nil
}

func (d *Dispatcher) resolve(target domain.Target) []string {
	var candidates []string
	switch target.Kind {
	case domain.TargetRoom:
		candidates = d.rooms.MembersOf(target.Room)
	case domain.TargetBroadcast:
		return d.transport.ConnectionIDs()
	case domain.TargetBroadcastExcept:
		candidates = d.transport.ConnectionIDs()
	case domain.TargetConnection:
		return []string{target.Connection}
	default:
		return nil
	}

	if target.Exclude == "" {
		return candidates
	}
	result := candidates[:0]
	for _, connID := range candidates {
		if connID != target.Exclude {
			result = append(result, connID)
		}
	}
	return result
}

// EncodeFrame renders the wire envelope for one event.
func EncodeFrame(event string, payload json.RawMessage) ([]byte, error) {
	frame, err := json.Marshal(domain.Event{Name: event, Data: payload})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %q frame: %w", event, err)
	}
	return frame, nil
}
