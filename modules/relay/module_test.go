package relay

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	domain "github.com/example/realtime-relay/domain/relay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModule_Name(t *testing.T) {
	m := NewModule(HubConfig{}, newMockLogger())
	assert.Equal(t, "relay", m.Name())
	assert.Len(t, m.EmitEvents(), 3)
}

func TestModule_Lifecycle(t *testing.T) {
	m := NewModule(HubConfig{}, newMockLogger())
	ctx := context.Background()

	require.NoError(t, m.Start(ctx))

	conn := newFakeConn()
	_, err := m.Hub().Connect(conn)
	require.NoError(t, err)

	health := m.Health(ctx)
	assert.True(t, health.Healthy)
	assert.Equal(t, 1, health.Details["connections"])

	require.NoError(t, m.Stop(ctx))
	assert.Eventually(t, conn.isClosed, time.Second, 10*time.Millisecond)
	assert.False(t, m.Health(ctx).Healthy)
}

func TestModule_Services(t *testing.T) {
	m := NewModule(HubConfig{}, newMockLogger())
	ctx := context.Background()
	require.NoError(t, m.Start(ctx))
	defer func() { _ = m.Stop(ctx) }()

	conn := newFakeConn()
	_, err := m.Hub().Connect(conn)
	require.NoError(t, err)

	resp, err := m.handleEmit(ctx, EmitRequest{Event: "aviso", Data: json.RawMessage(`"hola"`)}, nil)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "Event 'aviso' emitted", resp.Message)
	assert.Equal(t, 1, resp.Result.Delivered)
	assert.Equal(t, "aviso", conn.next(t).Name)

	_, err = m.handleEmit(ctx, EmitRequest{}, nil)
	assert.ErrorIs(t, err, ErrEventNameRequired)

	stats, err := m.handleStats(ctx, StatsRequest{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Connections)
}

func TestModule_NotifierWithoutBus(t *testing.T) {
	m := NewModule(HubConfig{}, newMockLogger())

	assert.NotPanics(t, func() {
		m.ConnectionOpened("c1")
		m.SessionAuthenticated("c1", domain.Identity{})
		m.ConnectionClosed("c1", nil, nil, 0)
	})
}

func TestStatsResponse_JSON(t *testing.T) {
	b, err := json.Marshal(StatsResponse{Stats: Stats{Connections: 2, Sessions: 1, Rooms: 3}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"connections":2,"sessions":1,"rooms":3}`, string(b))
}
