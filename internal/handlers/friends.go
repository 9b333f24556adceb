package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"animechat-service/internal/presence"
	"animechat-service/internal/repositories"
)

// FriendsHandler serves the friends list decorated with live presence.
type FriendsHandler struct {
	users    repositories.UserRepository
	presence *presence.Registry
}

// NewFriendsHandler builds a FriendsHandler.
func NewFriendsHandler(users repositories.UserRepository, reg *presence.Registry) *FriendsHandler {
	return &FriendsHandler{users: users, presence: reg}
}

// ListFriends returns the caller's friends, flagging who is online right now.
func (h *FriendsHandler) ListFriends(c *gin.Context) {
	userID := c.GetString("userID")

	friends, err := h.users.ListFriends(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load friends"})
		return
	}

	for i := range friends {
		friends[i].Online = h.presence.IsOnline(friends[i].UserID)
	}

	c.JSON(http.StatusOK, gin.H{"friends": friends})
}

// CheckFriendship reports whether the caller and another user are friends,
// and whether that user is online right now.
func (h *FriendsHandler) CheckFriendship(c *gin.Context) {
	userID := c.GetString("userID")
	otherID := c.Param("user_id")

	areFriends, err := h.users.AreFriends(c.Request.Context(), userID, otherID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check friendship"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"are_friends": areFriends,
		"online":      h.presence.IsOnline(otherID),
	})
}
