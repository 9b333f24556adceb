// Package core is the connection-event coordinator: it owns the decision
// logic behind every real-time action and emits the resulting notifications
// through the transport collaborator. Socket event names stay out of the
// engines; each engine only reports what happened.
package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"animechat-service/internal/matching"
	"animechat-service/internal/models"
	"animechat-service/internal/notify"
	"animechat-service/internal/observability"
	"animechat-service/internal/presence"
	"animechat-service/internal/repositories"
	"animechat-service/internal/rooms"
	"animechat-service/internal/scoring"
)

// Coordinator routes connection events into the presence registry, the
// matcher and the room engine, and aggregates the outbound notifications.
type Coordinator struct {
	presence  *presence.Registry
	matcher   *matching.Service
	rooms     *rooms.Engine
	transport notify.Transport
	sink      EventSink
	users     repositories.UserRepository
}

// NewCoordinator wires the core together.
func NewCoordinator(
	reg *presence.Registry,
	matcher *matching.Service,
	engine *rooms.Engine,
	transport notify.Transport,
	sink EventSink,
	users repositories.UserRepository,
) *Coordinator {
	if sink == nil {
		sink = NopSink{}
	}
	return &Coordinator{
		presence:  reg,
		matcher:   matcher,
		rooms:     engine,
		transport: transport,
		sink:      sink,
		users:     users,
	}
}

// HandleConnect greets a freshly upgraded connection.
func (c *Coordinator) HandleConnect(connID string) {
	c.transport.EmitTo(connID, EventConnected, map[string]any{"sid": connID})
}

// JoinMatching registers presence and runs the matchmaker for the connection.
func (c *Coordinator) JoinMatching(ctx context.Context, connID, userID string) {
	user, err := c.users.GetUser(ctx, userID)
	if err != nil {
		c.emitError(connID, userLookupMessage(err))
		return
	}

	if _, wasOnline := c.presence.Register(userID, connID); !wasOnline {
		c.transport.Broadcast(EventUserOnline, userID)
	}

	c.match(ctx, connID, user)
}

func (c *Coordinator) match(ctx context.Context, connID string, user *models.UserProfile) {
	result, matched := c.matcher.RequestMatch(connID, user.ID, user)
	if !matched {
		observability.SetQueueDepth(c.matcher.QueueSize())
		c.transport.EmitTo(connID, EventMatchingStats, map[string]any{
			"activeMatchers": c.matcher.QueueSize(),
			"totalUsers":     c.presence.Count(),
			"avgWaitTime":    30,
		})
		c.transport.EmitTo(connID, EventSearching, nil)
		return
	}

	observability.SetQueueDepth(c.matcher.QueueSize())
	observability.IncMatchFormed(string(result.Band))

	universe := scoring.SharedUniverse(user, result.Partner)
	universe.MatchType = result.Type
	if result.Type == models.MatchTypeInterest {
		universe.MatchMessage = fmt.Sprintf("Great match! You both love similar anime! 🎌 (Compatibility: %d%%)", result.Score)
	} else {
		universe.MatchMessage = "Connected with a fellow anime fan! Let's chat! 🌟"
	}

	c.transport.EmitTo(connID, EventMatchFound, map[string]any{
		"partner":         result.Partner,
		"compatibility":   result.Score,
		"shared_universe": universe,
	})
	c.transport.EmitTo(result.PartnerConnID, EventMatchFound, map[string]any{
		"partner":         user,
		"compatibility":   result.Score,
		"shared_universe": universe,
	})

	c.sink.Record(ctx, KindMatchStarted, map[string]any{"user_id": user.ID})
	c.sink.Record(ctx, KindMatchStarted, map[string]any{"user_id": result.Partner.ID})
	log.Printf("match formed: %s <-> %s (type=%s score=%d)", user.ID, result.Partner.ID, result.Type, result.Score)
}

// SendMessage relays a 1:1 message to the partner and echoes it back to the
// sender. The text never touches durable storage: once both sides are gone,
// the conversation is gone.
func (c *Coordinator) SendMessage(ctx context.Context, connID, text string) {
	relay, err := c.matcher.Send(connID, text)
	if err != nil {
		c.emitError(connID, "Not in an active chat")
		return
	}

	payload := map[string]any{
		"message":    text,
		"from":       relay.SenderUserID,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		"is_spoiler": relay.IsSpoiler,
	}
	c.transport.EmitTo(relay.PartnerConnID, EventReceiveMessage, payload)
	c.transport.EmitTo(connID, EventMessageSent, payload)

	c.sink.Record(ctx, KindMessageSent, map[string]any{"user_id": relay.SenderUserID, "channel": "match"})
}

// TypingStart relays a typing indicator to the partner.
func (c *Coordinator) TypingStart(ctx context.Context, connID string) {
	match, ok := c.matcher.MatchFor(connID)
	if !ok {
		return
	}
	name := match.UserID
	if user, err := c.users.GetUser(ctx, match.UserID); err == nil {
		name = user.DisplayName
	}
	c.transport.EmitTo(match.PartnerConnID, EventPartnerTypingStart, map[string]any{
		"user_id":   match.UserID,
		"user_name": name,
	})
}

// TypingStop clears the partner's typing indicator.
func (c *Coordinator) TypingStop(connID string) {
	if match, ok := c.matcher.MatchFor(connID); ok {
		c.transport.EmitTo(match.PartnerConnID, EventPartnerTypingStop, nil)
	}
}

// SendFriendRequest relays an in-match friend request to the partner.
func (c *Coordinator) SendFriendRequest(connID string) {
	if match, ok := c.matcher.MatchFor(connID); ok {
		c.transport.EmitTo(match.PartnerConnID, EventFriendRequest, map[string]any{
			"from_user_id": match.UserID,
		})
	}
}

// LeaveChat voluntarily ends the connection's match. No-op without one.
func (c *Coordinator) LeaveChat(connID string) {
	if partnerConn, _, ok := c.matcher.Teardown(connID); ok {
		c.transport.EmitTo(partnerConn, EventPartnerLeft, nil)
	}
	c.transport.EmitTo(connID, EventChatEnded, nil)
}

// SkipPartner ends the current match, tells the partner they were skipped
// rather than left, and immediately re-enters matching for the skipper.
func (c *Coordinator) SkipPartner(ctx context.Context, connID string) {
	partnerConn, userID, ok := c.matcher.Teardown(connID)
	if !ok {
		return
	}
	c.transport.EmitTo(partnerConn, EventYouWereSkipped, nil)

	user, err := c.users.GetUser(ctx, userID)
	if err != nil {
		c.emitError(connID, userLookupMessage(err))
		return
	}
	c.match(ctx, connID, user)
}

// CancelMatching removes the connection from the queue, tearing down any
// match it somehow still holds. Always acknowledged, never an error.
func (c *Coordinator) CancelMatching(connID string) {
	c.matcher.Cancel(connID)
	if partnerConn, _, ok := c.matcher.Teardown(connID); ok {
		c.transport.EmitTo(partnerConn, EventPartnerLeft, nil)
	}
	observability.SetQueueDepth(c.matcher.QueueSize())
	c.transport.EmitTo(connID, EventMatchingCancelled, nil)
}

// JoinEpisodeRoom puts the connection into a discussion room.
func (c *Coordinator) JoinEpisodeRoom(ctx context.Context, connID, userID, roomID string) {
	user, err := c.users.GetUser(ctx, userID)
	if err != nil {
		c.emitError(connID, userLookupMessage(err))
		return
	}

	result, err := c.rooms.Join(ctx, models.RoomMember{
		ConnID:      connID,
		UserID:      user.ID,
		DisplayName: user.DisplayName,
		AvatarURL:   user.AvatarURL,
	}, roomID)
	if err != nil {
		switch {
		case errors.Is(err, rooms.ErrRoomNotFound):
			c.emitError(connID, "Room not found")
		case errors.Is(err, rooms.ErrRoomExpired):
			c.emitError(connID, "Room has expired")
		default:
			c.emitError(connID, "Could not join room")
		}
		return
	}

	c.transport.JoinRoom(roomID, connID)
	observability.SetRoomMembers(roomID, result.ActiveMembers)

	c.transport.EmitTo(connID, EventRoomJoined, map[string]any{
		"room":             result.Room,
		"can_see_spoilers": result.CanSeeSpoilers,
		"active_users":     result.ActiveMembers,
	})
	c.transport.EmitToRoom(roomID, EventRoomUserJoined, map[string]any{
		"user": map[string]any{
			"id":      user.ID,
			"name":    user.DisplayName,
			"picture": user.AvatarURL,
		},
		"active_users": result.ActiveMembers,
	}, connID)

	c.sink.Record(ctx, KindRoomJoined, map[string]any{"user_id": user.ID, "room_id": roomID})
}

// LeaveEpisodeRoom removes the connection from its room. No-op without one.
func (c *Coordinator) LeaveEpisodeRoom(ctx context.Context, connID string) {
	result, ok := c.rooms.Leave(ctx, connID)
	if !ok {
		return
	}
	c.transport.LeaveRoom(result.RoomID, connID)
	observability.SetRoomMembers(result.RoomID, result.ActiveMembers)

	c.transport.EmitToRoom(result.RoomID, EventRoomUserLeft, map[string]any{
		"user_id":      result.UserID,
		"active_users": result.ActiveMembers,
	}, "")
	c.transport.EmitTo(connID, EventRoomLeft, nil)
}

// SendRoomMessage relays a room message with per-recipient spoiler redaction.
func (c *Coordinator) SendRoomMessage(ctx context.Context, connID, text string, taggedEpisode *int) {
	deliveries, msg, err := c.rooms.Broadcast(ctx, connID, text, taggedEpisode)
	if err != nil {
		c.emitError(connID, "Not in a room")
		return
	}

	for _, d := range deliveries {
		payload := map[string]any{
			"id":           msg.ID,
			"room_id":      msg.RoomID,
			"user_id":      msg.UserID,
			"user_name":    msg.UserName,
			"user_picture": msg.UserAvatar,
			"message":      d.Payload.Message,
			"is_spoiler":   msg.IsSpoiler,
			"timestamp":    msg.CreatedAt.Format(time.RFC3339Nano),
		}
		if msg.IsSpoiler {
			payload["spoiler_episode_number"] = msg.SpoilsEpisode
		}
		if d.Locked {
			payload["is_locked"] = true
			payload["locked_until_episode"] = msg.SpoilsEpisode
		}
		c.transport.EmitTo(d.ConnID, EventRoomMessage, payload)
	}

	c.sink.Record(ctx, KindMessageSent, map[string]any{"user_id": msg.UserID, "channel": "room", "room_id": msg.RoomID})
}

// OnlineUsers answers a full presence resync request.
func (c *Coordinator) OnlineUsers(connID string) {
	c.transport.EmitTo(connID, EventOnlineUsers, c.presence.Snapshot())
}

// OnDisconnect runs the full cleanup cascade for a dropped connection:
// active match first, then room membership, then presence, then the queue.
// Each step is a safe no-op when the connection holds nothing there.
func (c *Coordinator) OnDisconnect(ctx context.Context, connID string) {
	if partnerConn, _, ok := c.matcher.Teardown(connID); ok {
		c.transport.EmitTo(partnerConn, EventPartnerDisconnect, nil)
	}

	if result, ok := c.rooms.Leave(ctx, connID); ok {
		c.transport.LeaveRoom(result.RoomID, connID)
		observability.SetRoomMembers(result.RoomID, result.ActiveMembers)
		c.transport.EmitToRoom(result.RoomID, EventRoomUserLeft, map[string]any{
			"user_id":      result.UserID,
			"active_users": result.ActiveMembers,
		}, "")
	}

	if userID, ok := c.presence.Unregister(connID); ok {
		c.transport.Broadcast(EventUserOffline, userID)
	}

	c.matcher.Cancel(connID)
	observability.SetQueueDepth(c.matcher.QueueSize())
}

func (c *Coordinator) emitError(connID, message string) {
	c.transport.EmitTo(connID, EventError, map[string]any{"message": message})
}

func userLookupMessage(err error) string {
	if errors.Is(err, repositories.ErrUserNotFound) {
		return "User not found"
	}
	return "Could not load user"
}
