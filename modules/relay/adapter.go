package relay

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/example/realtime-relay/domain/relay"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// RelayPort is how other modules reach the relay.
type RelayPort interface {
	Emit(ctx context.Context, event string, data json.RawMessage, room string) (domain.DispatchResult, error)
	Stats(ctx context.Context) (Stats, error)
}

// RelayAdapter implements RelayPort over the relay module's service container.
type RelayAdapter struct {
	container mono.ServiceContainer
}

// NewRelayAdapter creates a new RelayAdapter.
func NewRelayAdapter(container mono.ServiceContainer) RelayPort {
	if container == nil {
		panic("relay: ServiceContainer is nil")
	}
	return &RelayAdapter{container: container}
}

// Emit pushes an event to a room, or to everyone when room is empty.
func (a *RelayAdapter) Emit(ctx context.Context, event string, data json.RawMessage, room string) (domain.DispatchResult, error) {
	req := EmitRequest{Event: event, Data: data, Room: room}
	var resp EmitResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceEmit,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return domain.DispatchResult{}, fmt.Errorf("failed to emit %q: %w", event, err)
	}
	return resp.Result, nil
}

// Stats returns the hub counters.
func (a *RelayAdapter) Stats(ctx context.Context) (Stats, error) {
	req := StatsRequest{}
	var resp StatsResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceStats,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return Stats{}, fmt.Errorf("failed to get stats: %w", err)
	}
	return resp.Stats, nil
}
