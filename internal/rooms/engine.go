// Package rooms tracks live membership of time-boxed episode discussion rooms
// and relays messages with per-recipient spoiler redaction.
package rooms

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"animechat-service/internal/models"
	"animechat-service/internal/repositories"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomExpired  = errors.New("room has expired")
	ErrNotInRoom    = errors.New("not in a room")
)

// Room chat gets a wider keyword net than 1:1 chat: reveal-style words matter
// when everyone is discussing the same episode.
var spoilerKeywords = []string{
	"dies", "killed", "death", "ending", "finale", "spoiler",
	"revealed", "twist", "betrays", "betrayed",
}

// lockedPlaceholder is what a recipient sees instead of a spoiler they have
// not reached yet.
const lockedPlaceholder = "🔒 Locked until you reach Episode %d"

// JoinResult is returned to the joining member.
type JoinResult struct {
	Room           models.EpisodeRoom
	CanSeeSpoilers bool
	ActiveMembers  int
}

// LeaveResult identifies the room a connection left and the membership it
// leaves behind, for notifying the remaining members.
type LeaveResult struct {
	RoomID        string
	UserID        string
	ActiveMembers int
}

// Delivery is one recipient's personalized copy of a room message. Two
// members may see different payloads for the same message.
type Delivery struct {
	ConnID  string
	Payload models.RoomMessage
	Locked  bool
}

// roomState is the presence cache entry for one room: a room snapshot plus
// the live member list. Rebuilt lazily on first join, droppable at any time.
type roomState struct {
	room    models.EpisodeRoom
	members []models.RoomMember
}

// Engine is the episode-room presence and relay engine. Rooms are independent
// of each other and of 1:1 matching, but membership mutations across the
// cache and the reverse index share one lock so a connection is never in two
// rooms at once.
type Engine struct {
	mu     sync.Mutex
	cache  map[string]*roomState // room id -> presence
	byConn map[string]string     // conn id -> room id

	repo     repositories.RoomRepository
	progress repositories.ProgressRepository
	now      func() time.Time
}

// NewEngine creates an engine over the given collaborators.
func NewEngine(repo repositories.RoomRepository, progress repositories.ProgressRepository) *Engine {
	return &Engine{
		cache:    make(map[string]*roomState),
		byConn:   make(map[string]string),
		repo:     repo,
		progress: progress,
		now:      time.Now,
	}
}

// Join adds a member to a room. Collaborator reads happen before any
// in-memory mutation, so a failed join leaves the cache untouched. The
// durable member count is written back after the mutation; a write failure is
// logged and self-heals on the next join/leave.
func (e *Engine) Join(ctx context.Context, member models.RoomMember, roomID string) (*JoinResult, error) {
	room, err := e.repo.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, repositories.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("load room: %w", err)
	}
	if !room.ExpiresAt.After(e.now()) {
		return nil, ErrRoomExpired
	}

	watched, err := e.progress.GetWatchedEpisodes(ctx, member.UserID, room.AnimeID)
	if err != nil {
		return nil, fmt.Errorf("load episode progress: %w", err)
	}

	e.mu.Lock()
	if prev, ok := e.byConn[member.ConnID]; ok && prev != roomID {
		// A connection can only be in one room; joining another implies
		// leaving the first.
		e.removeMemberLocked(member.ConnID, prev)
	}
	state, ok := e.cache[roomID]
	if !ok {
		state = &roomState{room: *room}
		e.cache[roomID] = state
	}
	// A re-join of the room the connection is already in refreshes its
	// member snapshot instead of appending a duplicate entry.
	refreshed := false
	for i := range state.members {
		if state.members[i].ConnID == member.ConnID {
			state.members[i] = member
			refreshed = true
			break
		}
	}
	if !refreshed {
		state.members = append(state.members, member)
	}
	e.byConn[member.ConnID] = roomID
	count := len(state.members)
	e.mu.Unlock()

	if err := e.repo.WriteMemberCount(ctx, roomID, count); err != nil {
		log.Printf("rooms: write member count for %s failed: %v", roomID, err)
	}

	return &JoinResult{
		Room:           *room,
		CanSeeSpoilers: watched[room.EpisodeNumber],
		ActiveMembers:  count,
	}, nil
}

// Leave removes the connection from whatever room it is in. Safe no-op for
// connections that are not in a room.
func (e *Engine) Leave(ctx context.Context, connID string) (*LeaveResult, bool) {
	e.mu.Lock()
	roomID, ok := e.byConn[connID]
	if !ok {
		e.mu.Unlock()
		return nil, false
	}
	userID, count := e.removeMemberLocked(connID, roomID)
	e.mu.Unlock()

	if err := e.repo.WriteMemberCount(ctx, roomID, count); err != nil {
		log.Printf("rooms: write member count for %s failed: %v", roomID, err)
	}
	return &LeaveResult{RoomID: roomID, UserID: userID, ActiveMembers: count}, true
}

func (e *Engine) removeMemberLocked(connID, roomID string) (userID string, remaining int) {
	delete(e.byConn, connID)
	state, ok := e.cache[roomID]
	if !ok {
		return "", 0
	}
	kept := state.members[:0]
	for _, m := range state.members {
		if m.ConnID == connID {
			userID = m.UserID
			continue
		}
		kept = append(kept, m)
	}
	state.members = kept
	if len(state.members) == 0 {
		delete(e.cache, roomID)
	}
	return userID, len(kept)
}

// Broadcast relays a message from connID to every member of its room,
// computing the spoiler envelope once and the redaction per recipient.
func (e *Engine) Broadcast(ctx context.Context, connID, text string, taggedEpisode *int) ([]Delivery, *models.RoomMessage, error) {
	e.mu.Lock()
	roomID, ok := e.byConn[connID]
	if !ok {
		e.mu.Unlock()
		return nil, nil, ErrNotInRoom
	}
	state, ok := e.cache[roomID]
	if !ok {
		delete(e.byConn, connID)
		e.mu.Unlock()
		return nil, nil, ErrNotInRoom
	}
	room := state.room
	var sender models.RoomMember
	members := make([]models.RoomMember, len(state.members))
	copy(members, state.members)
	e.mu.Unlock()

	for _, m := range members {
		if m.ConnID == connID {
			sender = m
			break
		}
	}

	envelope := DetectSpoiler(text, taggedEpisode, room.EpisodeNumber)

	msg := &models.RoomMessage{
		RoomID:        roomID,
		UserID:        sender.UserID,
		UserName:      sender.DisplayName,
		UserAvatar:    sender.AvatarURL,
		Message:       text,
		IsSpoiler:     envelope.IsSpoiler,
		SpoilsEpisode: envelope.SpoilsEpisode,
		CreatedAt:     e.now().UTC(),
	}
	if err := e.repo.SaveMessage(ctx, msg); err != nil {
		// History is best-effort; live relay proceeds regardless.
		log.Printf("rooms: save message in %s failed: %v", roomID, err)
	}

	deliveries := make([]Delivery, 0, len(members))
	for _, m := range members {
		delivery := Delivery{ConnID: m.ConnID, Payload: *msg}
		if envelope.IsSpoiler {
			watched, err := e.progress.GetWatchedEpisodes(ctx, m.UserID, room.AnimeID)
			if err != nil {
				log.Printf("rooms: progress lookup for %s failed: %v", m.UserID, err)
			}
			delivery.Payload, delivery.Locked = Redact(delivery.Payload, watched)
		}
		deliveries = append(deliveries, delivery)
	}
	return deliveries, msg, nil
}

// Redact swaps a spoiler message body for the locked placeholder when the
// recipient has not reached the spoiled episode. Non-spoilers pass through.
func Redact(msg models.RoomMessage, watched map[int]bool) (models.RoomMessage, bool) {
	if !msg.IsSpoiler || watched[msg.SpoilsEpisode] {
		return msg, false
	}
	msg.Message = fmt.Sprintf(lockedPlaceholder, msg.SpoilsEpisode)
	return msg, true
}

// Evict purges a room's presence cache entry (the expiry sweep calls this)
// and returns the members that were still inside so they can be notified.
func (e *Engine) Evict(roomID string) []models.RoomMember {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, ok := e.cache[roomID]
	if !ok {
		return nil
	}
	members := state.members
	for _, m := range members {
		delete(e.byConn, m.ConnID)
	}
	delete(e.cache, roomID)
	return members
}

// RoomFor returns the room a connection is currently in.
func (e *Engine) RoomFor(connID string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	roomID, ok := e.byConn[connID]
	return roomID, ok
}

// Members returns a copy of a room's live member list.
func (e *Engine) Members(roomID string) []models.RoomMember {
	e.mu.Lock()
	defer e.mu.Unlock()
	state, ok := e.cache[roomID]
	if !ok {
		return nil
	}
	members := make([]models.RoomMember, len(state.members))
	copy(members, state.members)
	return members
}

// DetectSpoiler computes the per-message spoiler envelope. An explicit tag
// beyond the room's episode wins; otherwise a keyword hit spoils the room's
// current episode.
func DetectSpoiler(text string, taggedEpisode *int, roomEpisode int) models.SpoilerEnvelope {
	if taggedEpisode != nil {
		if *taggedEpisode > roomEpisode {
			return models.SpoilerEnvelope{IsSpoiler: true, SpoilsEpisode: *taggedEpisode}
		}
		return models.SpoilerEnvelope{}
	}
	lowered := strings.ToLower(text)
	for _, keyword := range spoilerKeywords {
		if strings.Contains(lowered, keyword) {
			return models.SpoilerEnvelope{IsSpoiler: true, SpoilsEpisode: roomEpisode}
		}
	}
	return models.SpoilerEnvelope{}
}
