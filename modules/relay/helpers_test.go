package relay

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	domain "github.com/example/realtime-relay/domain/relay"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
	"github.com/stretchr/testify/require"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any)         {}
func (m *mockLogger) Info(_ string, _ ...any)          {}
func (m *mockLogger) Warn(_ string, _ ...any)          {}
func (m *mockLogger) Error(_ string, _ ...any)         {}
func (m *mockLogger) With(_ ...any) types.Logger       { return m }
func (m *mockLogger) WithModule(_ string) types.Logger { return m }
func (m *mockLogger) WithError(_ error) types.Logger   { return m }

func newMockLogger() types.Logger {
	return &mockLogger{}
}

// fakeConn records text frames written by a peer's writer.
type fakeConn struct {
	frames chan []byte

	mu     sync.Mutex
	closed bool
	closes int // close frames written
}

func newFakeConn() *fakeConn {
	return &fakeConn{frames: make(chan []byte, 64)}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	switch messageType {
	case websocket.TextMessage:
		c.frames <- append([]byte(nil), data...)
	case websocket.CloseMessage:
		c.mu.Lock()
		c.closes++
		c.mu.Unlock()
	}
	return nil
}

func (c *fakeConn) SetWriteDeadline(_ time.Time) error { return nil }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// next waits for the next frame and decodes it.
func (c *fakeConn) next(t *testing.T) domain.Event {
	t.Helper()
	select {
	case frame := <-c.frames:
		var evt domain.Event
		require.NoError(t, json.Unmarshal(frame, &evt))
		return evt
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return domain.Event{}
	}
}

// expectNone asserts that no frame arrives within a short window.
func (c *fakeConn) expectNone(t *testing.T) {
	t.Helper()
	select {
	case frame := <-c.frames:
		t.Fatalf("unexpected frame: %s", frame)
	case <-time.After(50 * time.Millisecond):
	}
}

// fakeTransport is an in-memory Transport for dispatcher tests.
type fakeTransport struct {
	live      []string
	full      map[string]bool
	delivered map[string][][]byte
}

func newFakeTransport(live ...string) *fakeTransport {
	return &fakeTransport{
		live:      live,
		full:      make(map[string]bool),
		delivered: make(map[string][][]byte),
	}
}

func (f *fakeTransport) Deliver(connID string, frame []byte) bool {
	found := false
	for _, id := range f.live {
		if id == connID {
			found = true
			break
		}
	}
	if !found || f.full[connID] {
		return false
	}
	f.delivered[connID] = append(f.delivered[connID], frame)
	return true
}

func (f *fakeTransport) ConnectionIDs() []string {
	return append([]string(nil), f.live...)
}

func frame(t *testing.T, event string, data any) []byte {
	t.Helper()
	msg := map[string]any{"event": event}
	if data != nil {
		msg["data"] = data
	}
	b, err := json.Marshal(msg)
	require.NoError(t, err)
	return b
}
