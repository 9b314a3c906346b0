package relay

import (
	domain "github.com/example/realtime-relay/domain/relay"
)

// SessionRegistry maps connection ids to the identity they authenticated with.
// It is owned by the hub loop and is not safe for concurrent use.
type SessionRegistry struct {
	sessions map[string]domain.Identity
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]domain.Identity),
	}
}

// Register stores identity for connID, replacing any previous one.
func (r *SessionRegistry) Register(connID string, identity domain.Identity) {
	r.sessions[connID] = identity
}

// Lookup returns the identity registered for connID.
func (r *SessionRegistry) Lookup(connID string) (domain.Identity, bool) {
	identity, ok := r.sessions[connID]
	return identity, ok
}

// Remove forgets connID. Removing an unknown id is a no-op.
func (r *SessionRegistry) Remove(connID string) {
	delete(r.sessions, connID)
}

// Len returns the number of authenticated connections.
func (r *SessionRegistry) Len() int {
	return len(r.sessions)
}
