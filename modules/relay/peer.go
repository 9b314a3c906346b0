package relay

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"golang.org/x/time/rate"
)

// Conn is the write side of a transport connection. *websocket.Conn from
// gofiber/contrib satisfies it.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// peer is one live connection as seen by the hub. The send buffer is written
// and closed only from the hub loop; writePump is its sole reader.
type peer struct {
	id          string
	conn        Conn
	send        chan []byte
	done        chan struct{}
	limiter     *rate.Limiter
	connectedAt time.Time
}

func newPeer(id string, conn Conn, buffer int, limiter *rate.Limiter) *peer {
	return &peer{
		id:          id,
		conn:        conn,
		send:        make(chan []byte, buffer),
		done:        make(chan struct{}),
		limiter:     limiter,
		connectedAt: time.Now(),
	}
}

// enqueue hands frame to the writer without blocking.
func (p *peer) enqueue(frame []byte) bool {
	select {
	case p.send <- frame:
		return true
	default:
		return false
	}
}

// allow applies the inbound rate limit, if any.
func (p *peer) allow() bool {
	return p.limiter == nil || p.limiter.Allow()
}

// writePump drains the send buffer to the connection and keeps it alive with
// ping frames. It returns once the buffer is closed or a write fails.
func (p *peer) writePump(writeWait, pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = p.conn.Close()
		close(p.done)
	}()

	for {
		select {
		case frame, ok := <-p.send:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = p.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := p.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// peerSet adapts the hub's peer map to Transport.
type peerSet map[string]*peer

func (s peerSet) Deliver(connID string, frame []byte) bool {
	p, ok := s[connID]
	if !ok {
		return false
	}
	return p.enqueue(frame)
}

func (s peerSet) ConnectionIDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	return ids
}
