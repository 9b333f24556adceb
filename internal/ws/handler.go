package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"animechat-service/internal/core"
	"animechat-service/internal/observability"
	"animechat-service/internal/repositories"
)

// Inbound event names accepted on the websocket.
const (
	evJoinMatching     = "join_matching"
	evSendMessage      = "send_message"
	evTypingStart      = "typing_start"
	evTypingStop       = "typing_stop"
	evFriendRequest    = "send_friend_request"
	evLeaveChat        = "leave_chat"
	evSkipPartner      = "skip_partner"
	evCancelMatching   = "cancel_matching"
	evJoinEpisodeRoom  = "join_episode_room"
	evLeaveEpisodeRoom = "leave_episode_room"
	evSendRoomMessage  = "send_episode_room_message"
	evGetOnlineUsers   = "get_online_users"
)

// Handler upgrades HTTP requests to websocket connections and pumps inbound
// events into the coordinator.
type Handler struct {
	hub         *Hub
	coordinator *core.Coordinator
	sessions    repositories.SessionRepository
}

// NewHandler constructs a Handler.
func NewHandler(hub *Hub, coordinator *core.Coordinator, sessions repositories.SessionRepository) *Handler {
	return &Handler{hub: hub, coordinator: coordinator, sessions: sessions}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type messagePayload struct {
	Message string `json:"message"`
}

type roomJoinPayload struct {
	RoomID string `json:"room_id"`
}

type roomMessagePayload struct {
	Message              string `json:"message"`
	SpoilerEpisodeNumber *int   `json:"spoiler_episode_number,omitempty"`
}

// Handle authenticates, upgrades, and runs the connection's read loop.
func (h *Handler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("animechat-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, err := h.authenticate(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	h.hub.Register(info.ConnID, conn, info)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	h.publishLifecycle(ctx, info, "ws_connect", "")

	h.coordinator.HandleConnect(info.ConnID)

	go h.readLoop(conn, info)
}

func (h *Handler) authenticate(c *gin.Context) (string, error) {
	token := c.Query("token")
	if token == "" {
		if header := c.GetHeader("Authorization"); header != "" {
			token = strings.TrimPrefix(header, "Bearer ")
		}
	}
	if token == "" {
		if cookie, err := c.Cookie("session_token"); err == nil {
			token = cookie
		}
	}
	if token == "" {
		return "", repositories.ErrSessionNotFound
	}
	return h.sessions.GetUserID(c.Request.Context(), token)
}

func (h *Handler) readLoop(conn *websocket.Conn, info ConnInfo) {
	// The read loop outlives the HTTP handler, so cleanup uses its own context.
	ctx := context.Background()
	var closeReason string

	defer func() {
		h.coordinator.OnDisconnect(ctx, info.ConnID)
		h.hub.Unregister(info.ConnID)
		conn.Close()
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		h.publishLifecycle(ctx, info, "ws_disconnect", closeReason)
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			h.hub.EmitTo(info.ConnID, core.EventError, map[string]any{"message": "Malformed event"})
			continue
		}
		h.dispatch(ctx, info, env)
	}
}

func (h *Handler) dispatch(ctx context.Context, info ConnInfo, env Envelope) {
	observability.IncWSEvent(env.Event)

	switch env.Event {
	case evJoinMatching:
		h.coordinator.JoinMatching(ctx, info.ConnID, info.UserID)
	case evSendMessage:
		var p messagePayload
		if !h.decode(info.ConnID, env.Data, &p) {
			return
		}
		h.coordinator.SendMessage(ctx, info.ConnID, p.Message)
	case evTypingStart:
		h.coordinator.TypingStart(ctx, info.ConnID)
	case evTypingStop:
		h.coordinator.TypingStop(info.ConnID)
	case evFriendRequest:
		h.coordinator.SendFriendRequest(info.ConnID)
	case evLeaveChat:
		h.coordinator.LeaveChat(info.ConnID)
	case evSkipPartner:
		h.coordinator.SkipPartner(ctx, info.ConnID)
	case evCancelMatching:
		h.coordinator.CancelMatching(info.ConnID)
	case evJoinEpisodeRoom:
		var p roomJoinPayload
		if !h.decode(info.ConnID, env.Data, &p) {
			return
		}
		h.coordinator.JoinEpisodeRoom(ctx, info.ConnID, info.UserID, p.RoomID)
	case evLeaveEpisodeRoom:
		h.coordinator.LeaveEpisodeRoom(ctx, info.ConnID)
	case evSendRoomMessage:
		var p roomMessagePayload
		if !h.decode(info.ConnID, env.Data, &p) {
			return
		}
		h.coordinator.SendRoomMessage(ctx, info.ConnID, p.Message, p.SpoilerEpisodeNumber)
	case evGetOnlineUsers:
		h.coordinator.OnlineUsers(info.ConnID)
	default:
		log.Printf("websocket unknown event: conn=%s event=%q", info.ConnID, env.Event)
		h.hub.EmitTo(info.ConnID, core.EventError, map[string]any{"message": "Unknown event"})
	}
}

func (h *Handler) decode(connID string, raw json.RawMessage, out any) bool {
	if len(raw) == 0 {
		h.hub.EmitTo(connID, core.EventError, map[string]any{"message": "Missing event payload"})
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		h.hub.EmitTo(connID, core.EventError, map[string]any{"message": "Malformed event payload"})
		return false
	}
	return true
}

func (h *Handler) publishLifecycle(ctx context.Context, info ConnInfo, event, reason string) {
	_ = observability.PublishEvent(ctx, "ws_events.connections", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"event":       event,
				"conn_id":     info.ConnID,
				"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
				"reason":      reason,
			},
			"identity": map[string]interface{}{
				"user_id":   info.UserID,
				"device_id": info.DeviceID,
				"ip":        info.IP,
			},
		},
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}
