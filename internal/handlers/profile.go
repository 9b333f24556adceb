package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"animechat-service/internal/models"
	"animechat-service/internal/repositories"
)

// ProfileHandler serves the authenticated user's profile and stats.
type ProfileHandler struct {
	users repositories.UserRepository
	stats repositories.StatsRepository
}

// NewProfileHandler builds a ProfileHandler.
func NewProfileHandler(users repositories.UserRepository, stats repositories.StatsRepository) *ProfileHandler {
	return &ProfileHandler{users: users, stats: stats}
}

// GetMe returns the caller's profile together with gamification counters.
func (h *ProfileHandler) GetMe(c *gin.Context) {
	userID := c.GetString("userID")

	user, err := h.users.GetUser(c.Request.Context(), userID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrUserNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "failed to load profile"})
		return
	}

	stats, err := h.stats.GetStats(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user, "stats": stats})
}

// UpdateProfile merges the supplied fields into the stored profile.
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	var update models.ProfileUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("userID")
	user, err := h.users.UpdateProfile(c.Request.Context(), userID, update)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrUserNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "failed to update profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}
