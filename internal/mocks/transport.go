package mocks

import (
	"sync"

	"animechat-service/internal/notify"
)

// Emission is one recorded transport call.
type Emission struct {
	ConnID  string
	RoomID  string
	Event   string
	Payload any
	Exclude string
}

// TransportRecorder is an in-memory notify.Transport for tests: it records
// every emission instead of writing to sockets.
type TransportRecorder struct {
	mu        sync.Mutex
	Emissions []Emission
	rooms     map[string]map[string]bool
}

func NewTransportRecorder() *TransportRecorder {
	return &TransportRecorder{rooms: make(map[string]map[string]bool)}
}

func (t *TransportRecorder) EmitTo(connID, event string, payload any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Emissions = append(t.Emissions, Emission{ConnID: connID, Event: event, Payload: payload})
}

func (t *TransportRecorder) EmitToRoom(roomID, event string, payload any, excludeConnID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Emissions = append(t.Emissions, Emission{RoomID: roomID, Event: event, Payload: payload, Exclude: excludeConnID})
}

func (t *TransportRecorder) Broadcast(event string, payload any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Emissions = append(t.Emissions, Emission{Event: event, Payload: payload})
}

func (t *TransportRecorder) JoinRoom(roomID, connID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.rooms[roomID] == nil {
		t.rooms[roomID] = make(map[string]bool)
	}
	t.rooms[roomID][connID] = true
}

func (t *TransportRecorder) LeaveRoom(roomID, connID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if members, ok := t.rooms[roomID]; ok {
		delete(members, connID)
	}
}

// InRoom reports whether a connection is in a transport room.
func (t *TransportRecorder) InRoom(roomID, connID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rooms[roomID][connID]
}

// EventsTo returns the event names emitted to one connection, in order.
func (t *TransportRecorder) EventsTo(connID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var events []string
	for _, e := range t.Emissions {
		if e.ConnID == connID {
			events = append(events, e.Event)
		}
	}
	return events
}

// Find returns the first emission of the given event to the connection.
func (t *TransportRecorder) Find(connID, event string) (Emission, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.Emissions {
		if e.ConnID == connID && e.Event == event {
			return e, true
		}
	}
	return Emission{}, false
}

var _ notify.Transport = (*TransportRecorder)(nil)
