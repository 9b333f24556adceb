package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"animechat-service/internal/models"
	"animechat-service/internal/repositories"
	"animechat-service/internal/rooms"
)

const defaultMessageHistory = 50

// RoomsHandler manages episode-room REST endpoints. Joining and chatting
// happen over the websocket; this surface covers discovery and history.
type RoomsHandler struct {
	rooms    repositories.RoomRepository
	progress repositories.ProgressRepository
}

// NewRoomsHandler builds a RoomsHandler.
func NewRoomsHandler(roomRepo repositories.RoomRepository, progress repositories.ProgressRepository) *RoomsHandler {
	return &RoomsHandler{rooms: roomRepo, progress: progress}
}

// CreateRoom opens a discussion room for one anime episode.
func (h *RoomsHandler) CreateRoom(c *gin.Context) {
	var req struct {
		AnimeID       string `json:"anime_id" binding:"required"`
		AnimeTitle    string `json:"anime_title" binding:"required"`
		EpisodeNumber int    `json:"episode_number" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.rooms.CreateRoom(c.Request.Context(), req.AnimeID, req.AnimeTitle, req.EpisodeNumber)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create room"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"room": room})
}

// TrendingRooms lists open rooms ordered by activity.
func (h *RoomsHandler) TrendingRooms(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	list, err := h.rooms.TrendingRooms(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load rooms"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rooms": list})
}

// GetRoom returns one room by id.
func (h *RoomsHandler) GetRoom(c *gin.Context) {
	room, err := h.rooms.GetRoom(c.Request.Context(), c.Param("room_id"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrRoomNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "room not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"room": room})
}

// GetRoomMessages returns recent room history in chronological order, with
// spoilers the caller has not reached redacted the same way live relay does.
func (h *RoomsHandler) GetRoomMessages(c *gin.Context) {
	roomID := c.Param("room_id")
	room, err := h.rooms.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrRoomNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "room not found"})
		return
	}

	msgs, err := h.rooms.ListMessages(c.Request.Context(), roomID, defaultMessageHistory)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	userID := c.GetString("userID")
	watched, err := h.progress.GetWatchedEpisodes(c.Request.Context(), userID, room.AnimeID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load progress"})
		return
	}

	type historyEntry struct {
		models.RoomMessage
		IsLocked bool `json:"is_locked,omitempty"`
	}
	entries := make([]historyEntry, 0, len(msgs))
	for _, msg := range msgs {
		redacted, locked := rooms.Redact(msg, watched)
		entries = append(entries, historyEntry{RoomMessage: redacted, IsLocked: locked})
	}

	c.JSON(http.StatusOK, gin.H{"messages": entries})
}
