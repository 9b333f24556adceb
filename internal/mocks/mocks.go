package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"animechat-service/internal/models"
	"animechat-service/internal/repositories"
)

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) GetUser(ctx context.Context, userID string) (*models.UserProfile, error) {
	args := m.Called(ctx, userID)
	var user *models.UserProfile
	if val := args.Get(0); val != nil {
		user = val.(*models.UserProfile)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) UpdateProfile(ctx context.Context, userID string, update models.ProfileUpdate) (*models.UserProfile, error) {
	args := m.Called(ctx, userID, update)
	var user *models.UserProfile
	if val := args.Get(0); val != nil {
		user = val.(*models.UserProfile)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) AreFriends(ctx context.Context, userID, otherID string) (bool, error) {
	args := m.Called(ctx, userID, otherID)
	return args.Bool(0), args.Error(1)
}

func (m *UserRepositoryMock) ListFriends(ctx context.Context, userID string) ([]models.Friend, error) {
	args := m.Called(ctx, userID)
	var friends []models.Friend
	if val := args.Get(0); val != nil {
		friends = val.([]models.Friend)
	}
	return friends, args.Error(1)
}

type RoomRepositoryMock struct {
	mock.Mock
}

func (m *RoomRepositoryMock) GetRoom(ctx context.Context, roomID string) (*models.EpisodeRoom, error) {
	args := m.Called(ctx, roomID)
	var room *models.EpisodeRoom
	if val := args.Get(0); val != nil {
		room = val.(*models.EpisodeRoom)
	}
	return room, args.Error(1)
}

func (m *RoomRepositoryMock) CreateRoom(ctx context.Context, animeID, animeTitle string, episodeNumber int) (*models.EpisodeRoom, error) {
	args := m.Called(ctx, animeID, animeTitle, episodeNumber)
	var room *models.EpisodeRoom
	if val := args.Get(0); val != nil {
		room = val.(*models.EpisodeRoom)
	}
	return room, args.Error(1)
}

func (m *RoomRepositoryMock) TrendingRooms(ctx context.Context, limit int) ([]models.EpisodeRoom, error) {
	args := m.Called(ctx, limit)
	var rooms []models.EpisodeRoom
	if val := args.Get(0); val != nil {
		rooms = val.([]models.EpisodeRoom)
	}
	return rooms, args.Error(1)
}

func (m *RoomRepositoryMock) WriteMemberCount(ctx context.Context, roomID string, count int) error {
	args := m.Called(ctx, roomID, count)
	return args.Error(0)
}

func (m *RoomRepositoryMock) ExpiredRooms(ctx context.Context, now time.Time) ([]models.EpisodeRoom, error) {
	args := m.Called(ctx, now)
	var rooms []models.EpisodeRoom
	if val := args.Get(0); val != nil {
		rooms = val.([]models.EpisodeRoom)
	}
	return rooms, args.Error(1)
}

func (m *RoomRepositoryMock) DeleteRoom(ctx context.Context, roomID string) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

func (m *RoomRepositoryMock) SaveMessage(ctx context.Context, msg *models.RoomMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *RoomRepositoryMock) ListMessages(ctx context.Context, roomID string, limit int) ([]models.RoomMessage, error) {
	args := m.Called(ctx, roomID, limit)
	var msgs []models.RoomMessage
	if val := args.Get(0); val != nil {
		msgs = val.([]models.RoomMessage)
	}
	return msgs, args.Error(1)
}

type ProgressRepositoryMock struct {
	mock.Mock
}

func (m *ProgressRepositoryMock) GetWatchedEpisodes(ctx context.Context, userID, animeID string) (map[int]bool, error) {
	args := m.Called(ctx, userID, animeID)
	var watched map[int]bool
	if val := args.Get(0); val != nil {
		watched = val.(map[int]bool)
	}
	return watched, args.Error(1)
}

func (m *ProgressRepositoryMock) MarkEpisodeWatched(ctx context.Context, userID, animeID string, episode int) error {
	args := m.Called(ctx, userID, animeID, episode)
	return args.Error(0)
}

type SessionRepositoryMock struct {
	mock.Mock
}

func (m *SessionRepositoryMock) CreateSession(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func (m *SessionRepositoryMock) GetUserID(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

func (m *SessionRepositoryMock) DeleteSession(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

type StatsRepositoryMock struct {
	mock.Mock
}

func (m *StatsRepositoryMock) IncrementStat(ctx context.Context, userID, stat string, delta int) error {
	args := m.Called(ctx, userID, stat, delta)
	return args.Error(0)
}

func (m *StatsRepositoryMock) GetStats(ctx context.Context, userID string) (map[string]int, error) {
	args := m.Called(ctx, userID)
	var stats map[string]int
	if val := args.Get(0); val != nil {
		stats = val.(map[string]int)
	}
	return stats, args.Error(1)
}

var _ repositories.UserRepository = (*UserRepositoryMock)(nil)
var _ repositories.RoomRepository = (*RoomRepositoryMock)(nil)
var _ repositories.ProgressRepository = (*ProgressRepositoryMock)(nil)
var _ repositories.SessionRepository = (*SessionRepositoryMock)(nil)
var _ repositories.StatsRepository = (*StatsRepositoryMock)(nil)
