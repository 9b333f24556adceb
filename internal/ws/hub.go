package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"animechat-service/internal/observability"
)

// Envelope is the wire format for every websocket frame, both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type client struct {
	conn *websocket.Conn
	info ConnInfo
	mu   sync.Mutex // serializes writes to the connection
}

func (c *client) write(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Hub tracks live websocket connections by connection id and fans events out
// to single connections, rooms, or everyone. A write failure closes and
// removes the connection; the read loop then runs the disconnect cascade.
type Hub struct {
	mu         sync.RWMutex
	clients    map[string]*client
	rooms      map[string]map[string]bool
	roomByConn map[string]string
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*client),
		rooms:      make(map[string]map[string]bool),
		roomByConn: make(map[string]string),
	}
}

// Register adds a freshly upgraded connection.
func (h *Hub) Register(connID string, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[connID] = &client{conn: conn, info: info}
}

// Unregister removes a connection and any room membership it still holds.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(connID)
}

func (h *Hub) removeLocked(connID string) {
	delete(h.clients, connID)
	if roomID, ok := h.roomByConn[connID]; ok {
		delete(h.roomByConn, connID)
		if members, ok := h.rooms[roomID]; ok {
			delete(members, connID)
			if len(members) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
}

// JoinRoom subscribes a connection to a room channel. A connection sits in at
// most one room; joining another replaces the previous subscription.
func (h *Hub) JoinRoom(roomID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if previous, ok := h.roomByConn[connID]; ok && previous != roomID {
		if members, ok := h.rooms[previous]; ok {
			delete(members, connID)
			if len(members) == 0 {
				delete(h.rooms, previous)
			}
		}
	}
	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[string]bool)
	}
	h.rooms[roomID][connID] = true
	h.roomByConn[connID] = roomID
}

// LeaveRoom unsubscribes a connection from a room channel.
func (h *Hub) LeaveRoom(roomID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.roomByConn[connID] == roomID {
		delete(h.roomByConn, connID)
	}
	if members, ok := h.rooms[roomID]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// EmitTo sends one event to one connection.
func (h *Hub) EmitTo(connID, event string, data any) {
	h.mu.RLock()
	cl := h.clients[connID]
	h.mu.RUnlock()
	if cl == nil {
		return
	}
	h.send(connID, cl, event, data)
}

// EmitToRoom sends an event to every room member except excludeConnID.
func (h *Hub) EmitToRoom(roomID, event string, data any, excludeConnID string) {
	h.mu.RLock()
	targets := make(map[string]*client)
	for connID := range h.rooms[roomID] {
		if connID == excludeConnID {
			continue
		}
		if cl, ok := h.clients[connID]; ok {
			targets[connID] = cl
		}
	}
	h.mu.RUnlock()

	for connID, cl := range targets {
		h.send(connID, cl, event, data)
	}
}

// Broadcast sends an event to every live connection.
func (h *Hub) Broadcast(event string, data any) {
	h.mu.RLock()
	targets := make(map[string]*client, len(h.clients))
	for connID, cl := range h.clients {
		targets[connID] = cl
	}
	h.mu.RUnlock()

	for connID, cl := range targets {
		h.send(connID, cl, event, data)
	}
}

// Count reports the number of live connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Info returns the connection metadata recorded at handshake time.
func (h *Hub) Info(connID string) (ConnInfo, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if cl, ok := h.clients[connID]; ok {
		return cl.info, true
	}
	return ConnInfo{}, false
}

func (h *Hub) send(connID string, cl *client, event string, data any) {
	payload, err := marshalEnvelope(event, data)
	if err != nil {
		log.Printf("websocket marshal error: event=%s err=%v", event, err)
		return
	}
	if err := cl.write(payload); err != nil {
		log.Printf("websocket write error: conn=%s err=%v", connID, err)
		cl.conn.Close()
		h.mu.Lock()
		h.removeLocked(connID)
		h.mu.Unlock()
		h.publishWSError(cl.info, err)
	}
}

func marshalEnvelope(event string, data any) ([]byte, error) {
	env := Envelope{Event: event}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		env.Data = raw
	}
	return json.Marshal(env)
}

func (h *Hub) publishWSError(info ConnInfo, err error) {
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"event":       "ws_error",
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      err.Error(),
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), "ws_events.connections", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent("ws_error")
}
