package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"animechat-service/internal/repositories"
)

// SessionHandler manages session lifecycle endpoints.
type SessionHandler struct {
	sessions repositories.SessionRepository
}

// NewSessionHandler builds a SessionHandler.
func NewSessionHandler(sessions repositories.SessionRepository) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Logout invalidates the caller's session token and clears the cookie.
func (h *SessionHandler) Logout(c *gin.Context) {
	token := ""
	if header := c.GetHeader("Authorization"); header != "" {
		token = strings.TrimPrefix(header, "Bearer ")
	} else if cookie, err := c.Cookie("session_token"); err == nil {
		token = cookie
	}

	if token != "" {
		if err := h.sessions.DeleteSession(c.Request.Context(), token); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not end session"})
			return
		}
	}

	c.SetCookie("session_token", "", -1, "/", "", false, true)
	c.Status(http.StatusNoContent)
}
