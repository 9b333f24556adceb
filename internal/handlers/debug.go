package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"animechat-service/internal/matching"
	"animechat-service/internal/repositories"
	"animechat-service/internal/telemetry"
)

// RegisterDebugRoutes wires debug-only endpoints. Disabled in production.
func RegisterDebugRoutes(router *gin.Engine, emitter *telemetry.AuditEmitter, matcher *matching.Service, sessions repositories.SessionRepository, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/api/debug/queue", func(c *gin.Context) {
		entries := matcher.QueueSnapshot()
		type queueEntry struct {
			UserID     string    `json:"user_id"`
			EnqueuedAt time.Time `json:"enqueued_at"`
		}
		snapshot := make([]queueEntry, 0, len(entries))
		for _, entry := range entries {
			snapshot = append(snapshot, queueEntry{UserID: entry.UserID, EnqueuedAt: entry.EnqueuedAt})
		}
		c.JSON(http.StatusOK, gin.H{
			"queue":          snapshot,
			"active_matches": matcher.ActiveMatches(),
		})
	})

	router.POST("/api/debug/clear-queue", func(c *gin.Context) {
		queued, matched := matcher.Clear()
		c.JSON(http.StatusOK, gin.H{"cleared_queued": queued, "cleared_matched": matched})
	})

	// Dev login: mints a session for an arbitrary user so local clients can
	// hit the authed API without the OAuth front-end.
	router.POST("/api/debug/session", func(c *gin.Context) {
		var req struct {
			UserID string `json:"user_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		token, err := sessions.CreateSession(c.Request.Context(), req.UserID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create session"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token})
	})

	router.GET("/api/debug/audit-test", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		emitter.Emit(c.Request.Context(), "INFO", "audit test", requestIDFromContext(c), userIDFromContext(c))
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
