// Package notify defines the transport collaborator the real-time core emits
// through. The core never touches sockets directly, so the engine stays
// transport-agnostic and tests can record emissions.
package notify

// Transport delivers events to live connections. Implementations must treat
// every call as best-effort: emitting to a connection that already went away
// is a silent no-op, clients resync on demand.
type Transport interface {
	// EmitTo sends an event to a single connection.
	EmitTo(connID, event string, payload any)
	// EmitToRoom sends an event to every connection in a transport-level
	// room, optionally excluding one (usually the sender).
	EmitToRoom(roomID, event string, payload any, excludeConnID string)
	// Broadcast sends an event to every live connection.
	Broadcast(event string, payload any)
	// JoinRoom and LeaveRoom manage transport-level room membership.
	JoinRoom(roomID, connID string)
	LeaveRoom(roomID, connID string)
}
