package relay

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	domain "github.com/example/realtime-relay/domain/relay"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

var (
	// ErrHubStopped is returned by hub calls made after Run has returned.
	ErrHubStopped = errors.New("relay hub stopped")
	// ErrEventNameRequired is returned when an event is emitted without a name.
	ErrEventNameRequired = errors.New("event name required")
)

// HubConfig tunes the hub and its connections.
type HubConfig struct {
	SendBuffer     int
	WriteWait      time.Duration
	PingPeriod     time.Duration
	RatePerSec     float64
	RateBurst      int
	DisconnectWait time.Duration
	Rules          []domain.Rule
}

// DefaultHubConfig returns the settings used when none are given.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		SendBuffer:     256,
		WriteWait:      10 * time.Second,
		PingPeriod:     54 * time.Second,
		RatePerSec:     20,
		RateBurst:      40,
		DisconnectWait: 5 * time.Second,
	}
}

// Notifier receives connection lifecycle notifications from the hub loop.
type Notifier interface {
	ConnectionOpened(connID string)
	ConnectionClosed(connID string, identity *domain.Identity, rooms []string, lifetime time.Duration)
	SessionAuthenticated(connID string, identity domain.Identity)
}

// Stats is a point-in-time view of the hub.
type Stats struct {
	Connections int `json:"connections"`
	Sessions    int `json:"sessions"`
	Rooms       int `json:"rooms"`
}

// Hub owns the session registry, the membership index and every live peer.
// All state is touched only from the Run loop; the exported methods submit an
// operation to it and wait until it has run.
type Hub struct {
	ops  chan func()
	done chan struct{}

	peers      peerSet
	sessions   *SessionRegistry
	rooms      *MembershipIndex
	dispatcher *Dispatcher
	rules      RuleSet

	cfg      HubConfig
	logger   types.Logger
	notifier Notifier
	now      func() time.Time
}

// NewHub creates a hub. Call Run before using it.
func NewHub(cfg HubConfig, logger types.Logger) *Hub {
	defaults := DefaultHubConfig()
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = defaults.SendBuffer
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = defaults.WriteWait
	}
	if cfg.PingPeriod <= 0 {
		cfg.PingPeriod = defaults.PingPeriod
	}
	if cfg.DisconnectWait <= 0 {
		cfg.DisconnectWait = defaults.DisconnectWait
	}

	peers := make(peerSet)
	rooms := NewMembershipIndex()
	return &Hub{
		ops:        make(chan func()),
		done:       make(chan struct{}),
		peers:      peers,
		sessions:   NewSessionRegistry(),
		rooms:      rooms,
		dispatcher: NewDispatcher(peers, rooms),
		rules:      NewRuleSet(cfg.Rules),
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// SetNotifier installs the lifecycle notifier. Call before Run.
func (h *Hub) SetNotifier(notifier Notifier) {
	h.notifier = notifier
}

// SetObserver installs the dispatch observer. Call before Run.
func (h *Hub) SetObserver(observer Observer) {
	h.dispatcher.SetObserver(observer)
}

// Run processes hub operations until ctx is cancelled, then closes every
// connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("Hub shutting down", "connections", len(h.peers))
			h.closeAll()
			return
		case op := <-h.ops:
			op()
		}
	}
}

// Wait blocks until Run has returned.
func (h *Hub) Wait() {
	<-h.done
}

// do runs fn on the hub loop and waits for it. The ops channel is unbuffered,
// so once the loop has received fn it runs it to completion.
func (h *Hub) do(fn func()) error {
	finished := make(chan struct{})
	select {
	case h.ops <- func() { fn(); close(finished) }:
	case <-h.done:
		return ErrHubStopped
	}
	<-finished
	return nil
}

// Connect registers a new connection and starts its writer. It returns the
// id assigned to the connection.
func (h *Hub) Connect(conn Conn) (string, error) {
	var limiter *rate.Limiter
	if h.cfg.RatePerSec > 0 {
		burst := h.cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(h.cfg.RatePerSec), burst)
	}
	p := newPeer(uuid.New().String(), conn, h.cfg.SendBuffer, limiter)
	p.connectedAt = h.now()

	err := h.do(func() {
		h.peers[p.id] = p
		h.logger.Info("Client connected", "connectionID", p.id, "connections", len(h.peers))
		if h.notifier != nil {
			h.notifier.ConnectionOpened(p.id)
		}
	})
	if err != nil {
		return "", err
	}

	go p.writePump(h.cfg.WriteWait, h.cfg.PingPeriod)
	return p.id, nil
}

// Disconnect moves connID to its terminal state: its session and memberships
// are dropped and its writer is stopped. Unknown ids are ignored.
func (h *Hub) Disconnect(connID string) error {
	var p *peer
	err := h.do(func() {
		p = h.release(connID)
	})
	if err != nil || p == nil {
		return err
	}

	select {
	case <-p.done:
	case <-time.After(h.cfg.DisconnectWait):
		h.logger.Warn("Writer did not stop in time", "connectionID", connID)
	}
	return nil
}

// release removes every trace of connID and closes its send buffer.
func (h *Hub) release(connID string) *peer {
	p, ok := h.peers[connID]
	if !ok {
		return nil
	}
	delete(h.peers, connID)

	var identity *domain.Identity
	if session, ok := h.sessions.Lookup(connID); ok {
		identity = &session
		h.sessions.Remove(connID)
		h.logger.Info("User disconnected", "connectionID", connID, "user", session.DisplayName())
	}
	left := h.rooms.RemoveConnectionEverywhere(connID)
	close(p.send)

	h.logger.Info("Client disconnected",
		"connectionID", connID,
		"rooms", len(left),
		"connections", len(h.peers))
	if h.notifier != nil {
		h.notifier.ConnectionClosed(connID, identity, left, h.now().Sub(p.connectedAt))
	}
	return p
}

// Receive handles one inbound frame from connID. Frames that are malformed,
// rate limited or not part of the protocol are ignored.
func (h *Hub) Receive(connID string, frame []byte) error {
	return h.do(func() {
		p, ok := h.peers[connID]
		if !ok {
			return
		}
		if !p.allow() {
			h.logger.Debug("Inbound frame rate limited", "connectionID", connID)
			return
		}

		evt, err := ParseFrame(frame)
		if err != nil {
			h.logger.Debug("Ignoring malformed frame", "connectionID", connID, "error", err)
			return
		}
		h.handle(connID, evt)
	})
}

func (h *Hub) handle(connID string, evt domain.Event) {
	kind, arg := classify(evt.Name)
	switch kind {
	case inboundAuthenticate:
		h.handleAuthenticate(connID, evt.Data)
	case inboundPing:
		h.reply(connID, EventPong, PongPayload{Timestamp: h.now().UnixMilli()})
	case inboundJoin:
		h.handleJoin(connID, arg, evt.Data)
	case inboundLeave:
		h.handleLeave(connID, arg, evt.Data)
	case inboundUpdated:
		h.handleUpdated(connID, arg, evt.Data)
	default:
		h.logger.Debug("Ignoring unknown event", "connectionID", connID, "event", evt.Name)
	}
}

func (h *Hub) handleAuthenticate(connID string, data json.RawMessage) {
	identity := decodeIdentity(data)
	h.sessions.Register(connID, identity)
	h.logger.Info("User authenticated", "connectionID", connID, "user", identity.DisplayName())

	if h.notifier != nil {
		h.notifier.SessionAuthenticated(connID, identity)
	}
	h.reply(connID, EventAuthenticated, AuthenticatedPayload{SocketID: connID})
}

func (h *Hub) handleJoin(connID, kind string, data json.RawMessage) {
	id, ok := domain.RoomID(data)
	if !ok {
		h.logger.Debug("Ignoring join without id", "connectionID", connID, "kind", kind)
		return
	}
	room := domain.RoomName(kind, id)
	if h.rooms.Join(connID, room) {
		h.logger.Info("Client joined room", "connectionID", connID, "room", room)
	}
}

func (h *Hub) handleLeave(connID, kind string, data json.RawMessage) {
	id, ok := domain.RoomID(data)
	if !ok {
		return
	}
	room := domain.RoomName(kind, id)
	if h.rooms.Leave(connID, room) {
		h.logger.Info("Client left room", "connectionID", connID, "room", room)
	}
}

func (h *Hub) handleUpdated(connID, domainName string, data json.RawMessage) {
	target := h.rules.RelayTarget(domainName, data, connID)
	result, err := h.dispatcher.Dispatch(ChangedEvent(domainName), data, target)
	if err != nil {
		h.logger.Warn("Failed to relay update", "connectionID", connID, "domain", domainName, "error", err)
		return
	}
	h.logger.Debug("Relayed update",
		"connectionID", connID,
		"event", ChangedEvent(domainName),
		"target", target.Kind.String(),
		"room", target.Room,
		"delivered", result.Delivered)
}

// reply sends an event straight back to connID.
func (h *Hub) reply(connID, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("Failed to marshal reply", "event", event, "error", err)
		return
	}
	if _, err := h.dispatcher.Dispatch(event, data, domain.ToConnection(connID)); err != nil {
		h.logger.Error("Failed to send reply", "event", event, "error", err)
	}
}

// Emit dispatches an event on behalf of a caller without a connection: to
// room when it is set, otherwise to every connection.
func (h *Hub) Emit(event string, data json.RawMessage, room string) (domain.DispatchResult, error) {
	if event == "" {
		return domain.DispatchResult{}, ErrEventNameRequired
	}

	target := domain.ToAll()
	if room != "" {
		target = domain.ToRoom(room)
	}

	var (
		result      domain.DispatchResult
		dispatchErr error
	)
	err := h.do(func() {
		result, dispatchErr = h.dispatcher.Dispatch(event, data, target)
	})
	if err != nil {
		return domain.DispatchResult{}, err
	}
	if dispatchErr != nil {
		return domain.DispatchResult{}, dispatchErr
	}

	h.logger.Info("Emitted event", "event", event, "room", room, "delivered", result.Delivered)
	return result, nil
}

// SetRules replaces the relay rules.
func (h *Hub) SetRules(rules []domain.Rule) error {
	set := NewRuleSet(rules)
	return h.do(func() {
		h.rules = set
		h.logger.Info("Relay rules updated", "rules", len(set))
	})
}

// Stats returns current counts.
func (h *Hub) Stats() (Stats, error) {
	var stats Stats
	err := h.do(func() {
		stats = Stats{
			Connections: len(h.peers),
			Sessions:    h.sessions.Len(),
			Rooms:       h.rooms.RoomCount(),
		}
	})
	return stats, err
}

// Session returns the identity registered for connID.
func (h *Hub) Session(connID string) (domain.Identity, bool, error) {
	var (
		identity domain.Identity
		ok       bool
	)
	err := h.do(func() {
		identity, ok = h.sessions.Lookup(connID)
	})
	return identity, ok, err
}

// Members returns the connections currently in room.
func (h *Hub) Members(room string) ([]string, error) {
	var members []string
	err := h.do(func() {
		members = h.rooms.MembersOf(room)
	})
	return members, err
}

// Rooms returns the rooms connID has joined.
func (h *Hub) Rooms(connID string) ([]string, error) {
	var rooms []string
	err := h.do(func() {
		if _, ok := h.peers[connID]; !ok {
			return
		}
		rooms = h.rooms.RoomsOf(connID)
	})
	return rooms, err
}

// closeAll releases every connection. Writers send a close frame and exit.
func (h *Hub) closeAll() {
	for connID := range h.peers {
		h.release(connID)
	}
}
