package handlers

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"

	"animechat-service/internal/repositories"
)

// ProgressHandler tracks which episodes the caller has watched. The watched
// set drives spoiler redaction in episode rooms.
type ProgressHandler struct {
	progress repositories.ProgressRepository
}

// NewProgressHandler builds a ProgressHandler.
func NewProgressHandler(progress repositories.ProgressRepository) *ProgressHandler {
	return &ProgressHandler{progress: progress}
}

// MarkWatched records one watched episode. Re-marking is a no-op.
func (h *ProgressHandler) MarkWatched(c *gin.Context) {
	episode, err := strconv.Atoi(c.Param("episode"))
	if err != nil || episode < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid episode number"})
		return
	}

	userID := c.GetString("userID")
	animeID := c.Param("anime_id")
	if err := h.progress.MarkEpisodeWatched(c.Request.Context(), userID, animeID, episode); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not record progress"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"anime_id": animeID, "episode_number": episode})
}

// GetProgress returns the caller's watched episodes for one anime, sorted.
func (h *ProgressHandler) GetProgress(c *gin.Context) {
	userID := c.GetString("userID")
	animeID := c.Param("anime_id")

	watched, err := h.progress.GetWatchedEpisodes(c.Request.Context(), userID, animeID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load progress"})
		return
	}

	episodes := make([]int, 0, len(watched))
	for ep := range watched {
		episodes = append(episodes, ep)
	}
	sort.Ints(episodes)

	c.JSON(http.StatusOK, gin.H{"anime_id": animeID, "watched_episodes": episodes})
}
