// Package presence tracks which users are online and which live connection
// currently represents them.
package presence

import "sync"

// Registry is a bidirectional user/connection index. A user has at most one
// registered connection: registering a new one silently replaces the old
// mapping (last-connection-wins, the reconnect-from-a-new-tab case).
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]string // user id -> conn id
	byConn map[string]string // conn id -> user id
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string]string),
		byConn: make(map[string]string),
	}
}

// Register binds a connection to a user. It reports whether the user was
// already online, and the connection id the registration displaced when the
// user arrives from a different connection.
func (r *Registry) Register(userID, connID string) (previous string, wasOnline bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.byUser[userID]; ok {
		wasOnline = true
		if old != connID {
			delete(r.byConn, old)
			previous = old
		}
	}
	r.byUser[userID] = connID
	r.byConn[connID] = userID
	return previous, wasOnline
}

// Unregister removes a connection and reports the user it belonged to. The
// caller owns the cascade into queue/match/room state.
func (r *Registry) Unregister(connID string) (userID string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok = r.byConn[connID]
	if !ok {
		return "", false
	}
	delete(r.byConn, connID)
	// Only clear the user mapping if it still points at this connection;
	// a newer register may already have replaced it.
	if r.byUser[userID] == connID {
		delete(r.byUser, userID)
	}
	return userID, true
}

// IsOnline reports whether the user has a registered connection.
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byUser[userID]
	return ok
}

// ConnFor returns the connection currently registered for the user.
func (r *Registry) ConnFor(userID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	connID, ok := r.byUser[userID]
	return connID, ok
}

// Snapshot returns the ids of all online users, for full presence resyncs.
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]string, 0, len(r.byUser))
	for id := range r.byUser {
		users = append(users, id)
	}
	return users
}

// Count returns the number of online users.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}
