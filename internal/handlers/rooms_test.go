package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"animechat-service/internal/mocks"
	"animechat-service/internal/models"
	"animechat-service/internal/repositories"
)

func setupRoomsRouter(handler *RoomsHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", "user-1")
		c.Next()
	})
	r.POST("/api/rooms", handler.CreateRoom)
	r.GET("/api/rooms/trending", handler.TrendingRooms)
	r.GET("/api/rooms/:room_id", handler.GetRoom)
	r.GET("/api/rooms/:room_id/messages", handler.GetRoomMessages)
	return r
}

func TestCreateRoomSuccess(t *testing.T) {
	repo := new(mocks.RoomRepositoryMock)
	router := setupRoomsRouter(NewRoomsHandler(repo, new(mocks.ProgressRepositoryMock)))

	repo.On("CreateRoom", mock.Anything, "anime-1", "Frieren", 7).
		Return(&models.EpisodeRoom{ID: "room-1", AnimeID: "anime-1", EpisodeNumber: 7}, nil).Once()

	body := bytes.NewBufferString(`{"anime_id":"anime-1","anime_title":"Frieren","episode_number":7}`)
	req := httptest.NewRequest(http.MethodPost, "/api/rooms", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	repo.AssertExpectations(t)
}

func TestCreateRoomRejectsMissingFields(t *testing.T) {
	router := setupRoomsRouter(NewRoomsHandler(new(mocks.RoomRepositoryMock), new(mocks.ProgressRepositoryMock)))

	req := httptest.NewRequest(http.MethodPost, "/api/rooms", bytes.NewBufferString(`{"anime_id":"anime-1"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTrendingRoomsLimit(t *testing.T) {
	repo := new(mocks.RoomRepositoryMock)
	router := setupRoomsRouter(NewRoomsHandler(repo, new(mocks.ProgressRepositoryMock)))

	repo.On("TrendingRooms", mock.Anything, 5).Return([]models.EpisodeRoom{{ID: "room-1"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/rooms/trending?limit=5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	repo.AssertExpectations(t)

	req = httptest.NewRequest(http.MethodGet, "/api/rooms/trending?limit=0", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRoomNotFound(t *testing.T) {
	repo := new(mocks.RoomRepositoryMock)
	router := setupRoomsRouter(NewRoomsHandler(repo, new(mocks.ProgressRepositoryMock)))

	repo.On("GetRoom", mock.Anything, "ghost").
		Return((*models.EpisodeRoom)(nil), repositories.ErrRoomNotFound).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/rooms/ghost", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	repo.AssertExpectations(t)
}

func TestGetRoomMessagesRedactsForCaller(t *testing.T) {
	repo := new(mocks.RoomRepositoryMock)
	progress := new(mocks.ProgressRepositoryMock)
	router := setupRoomsRouter(NewRoomsHandler(repo, progress))

	room := &models.EpisodeRoom{
		ID:            "room-1",
		AnimeID:       "anime-1",
		EpisodeNumber: 3,
		ExpiresAt:     time.Now().Add(time.Hour),
	}
	repo.On("GetRoom", mock.Anything, "room-1").Return(room, nil).Once()
	repo.On("ListMessages", mock.Anything, "room-1", defaultMessageHistory).Return([]models.RoomMessage{
		{ID: "m1", Message: "great episode"},
		{ID: "m2", Message: "he dies in the finale", IsSpoiler: true, SpoilsEpisode: 5},
	}, nil).Once()
	progress.On("GetWatchedEpisodes", mock.Anything, "user-1", "anime-1").
		Return(map[int]bool{1: true, 2: true, 3: true}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/rooms/room-1/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Messages []struct {
			Message  string `json:"message"`
			IsLocked bool   `json:"is_locked"`
		} `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "great episode", resp.Messages[0].Message)
	assert.False(t, resp.Messages[0].IsLocked)
	assert.Equal(t, "🔒 Locked until you reach Episode 5", resp.Messages[1].Message)
	assert.True(t, resp.Messages[1].IsLocked)

	repo.AssertExpectations(t)
	progress.AssertExpectations(t)
}
