package rooms

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"animechat-service/internal/mocks"
	"animechat-service/internal/models"
)

func TestSweepEvictsExpiredRoomsAndNotifiesMembers(t *testing.T) {
	repo := new(mocks.RoomRepositoryMock)
	progress := new(mocks.ProgressRepositoryMock)
	transport := mocks.NewTransportRecorder()
	engine := NewEngine(repo, progress)

	repo.On("GetRoom", mock.Anything, "room-1").Return(openRoom("room-1", 3), nil)
	repo.On("WriteMemberCount", mock.Anything, "room-1", mock.Anything).Return(nil)
	progress.On("GetWatchedEpisodes", mock.Anything, mock.Anything, "anime-1").Return(map[int]bool{}, nil)

	_, err := engine.Join(context.Background(), member("conn-a", "alice"), "room-1")
	require.NoError(t, err)

	expired := *openRoom("room-1", 3)
	expired.ExpiresAt = time.Now().Add(-time.Minute)
	repo.On("ExpiredRooms", mock.Anything, mock.Anything).Return([]models.EpisodeRoom{expired}, nil).Once()
	repo.On("DeleteRoom", mock.Anything, "room-1").Return(nil).Once()

	sweeper := NewSweeper(engine, repo, transport, time.Minute)
	sweeper.SweepOnce(context.Background())

	_, notified := transport.Find("conn-a", "room_expired")
	assert.True(t, notified)
	assert.Empty(t, engine.Members("room-1"))
	repo.AssertExpectations(t)
}

func TestSweepWithNothingExpired(t *testing.T) {
	repo := new(mocks.RoomRepositoryMock)
	transport := mocks.NewTransportRecorder()
	engine := NewEngine(repo, new(mocks.ProgressRepositoryMock))

	repo.On("ExpiredRooms", mock.Anything, mock.Anything).Return([]models.EpisodeRoom(nil), nil).Once()

	NewSweeper(engine, repo, transport, time.Minute).SweepOnce(context.Background())
	assert.Empty(t, transport.Emissions)
	repo.AssertExpectations(t)
}
