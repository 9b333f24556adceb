package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"animechat-service/internal/mocks"
)

func setupProgressRouter(handler *ProgressHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", "user-1")
		c.Next()
	})
	r.POST("/api/progress/:anime_id/:episode", handler.MarkWatched)
	r.GET("/api/progress/:anime_id", handler.GetProgress)
	return r
}

func TestMarkWatched(t *testing.T) {
	progress := new(mocks.ProgressRepositoryMock)
	router := setupProgressRouter(NewProgressHandler(progress))

	progress.On("MarkEpisodeWatched", mock.Anything, "user-1", "anime-1", 4).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/progress/anime-1/4", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	progress.AssertExpectations(t)
}

func TestMarkWatchedRejectsBadEpisode(t *testing.T) {
	router := setupProgressRouter(NewProgressHandler(new(mocks.ProgressRepositoryMock)))

	req := httptest.NewRequest(http.MethodPost, "/api/progress/anime-1/zero", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetProgressSorted(t *testing.T) {
	progress := new(mocks.ProgressRepositoryMock)
	router := setupProgressRouter(NewProgressHandler(progress))

	progress.On("GetWatchedEpisodes", mock.Anything, "user-1", "anime-1").
		Return(map[int]bool{3: true, 1: true, 2: true}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/progress/anime-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		WatchedEpisodes []int `json:"watched_episodes"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, []int{1, 2, 3}, resp.WatchedEpisodes)
	progress.AssertExpectations(t)
}
