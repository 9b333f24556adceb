package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"animechat-service/internal/models"
)

var ErrRoomNotFound = errors.New("room not found")

// RoomLifetime is how long an episode room stays open after creation.
const RoomLifetime = 48 * time.Hour

// RoomRepository abstracts episode-room persistence. The in-memory presence
// cache in internal/rooms is rebuilt from this store.
type RoomRepository interface {
	GetRoom(ctx context.Context, roomID string) (*models.EpisodeRoom, error)
	CreateRoom(ctx context.Context, animeID, animeTitle string, episodeNumber int) (*models.EpisodeRoom, error)
	TrendingRooms(ctx context.Context, limit int) ([]models.EpisodeRoom, error)
	WriteMemberCount(ctx context.Context, roomID string, count int) error
	ExpiredRooms(ctx context.Context, now time.Time) ([]models.EpisodeRoom, error)
	DeleteRoom(ctx context.Context, roomID string) error
	SaveMessage(ctx context.Context, msg *models.RoomMessage) error
	ListMessages(ctx context.Context, roomID string, limit int) ([]models.RoomMessage, error)
}

// RoomRepo is a sqlx implementation of RoomRepository.
type RoomRepo struct {
	db *sqlx.DB
}

// NewRoomRepo constructs a RoomRepo.
func NewRoomRepo(db *sqlx.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

const roomColumns = `id, anime_id, anime_title, episode_number, active_users_count, total_messages, created_at, expires_at`

// GetRoom fetches a room by id.
func (r *RoomRepo) GetRoom(ctx context.Context, roomID string) (*models.EpisodeRoom, error) {
	var room models.EpisodeRoom
	err := r.db.GetContext(ctx, &room, `SELECT `+roomColumns+` FROM episode_rooms WHERE id=$1`, roomID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// CreateRoom opens a room that expires RoomLifetime from now.
func (r *RoomRepo) CreateRoom(ctx context.Context, animeID, animeTitle string, episodeNumber int) (*models.EpisodeRoom, error) {
	room := models.EpisodeRoom{
		ID:            uuid.NewString(),
		AnimeID:       animeID,
		AnimeTitle:    animeTitle,
		EpisodeNumber: episodeNumber,
		CreatedAt:     time.Now().UTC(),
	}
	room.ExpiresAt = room.CreatedAt.Add(RoomLifetime)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO episode_rooms (id, anime_id, anime_title, episode_number, created_at, expires_at)
         VALUES ($1, $2, $3, $4, $5, $6)`,
		room.ID, room.AnimeID, room.AnimeTitle, room.EpisodeNumber, room.CreatedAt, room.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// TrendingRooms lists open rooms ordered by activity.
func (r *RoomRepo) TrendingRooms(ctx context.Context, limit int) ([]models.EpisodeRoom, error) {
	var rooms []models.EpisodeRoom
	err := r.db.SelectContext(ctx, &rooms,
		`SELECT `+roomColumns+` FROM episode_rooms
         WHERE expires_at > NOW()
         ORDER BY active_users_count DESC, total_messages DESC
         LIMIT $1`, limit)
	return rooms, err
}

// WriteMemberCount persists the authoritative active member count.
func (r *RoomRepo) WriteMemberCount(ctx context.Context, roomID string, count int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE episode_rooms SET active_users_count=$2 WHERE id=$1`, roomID, count)
	return err
}

// ExpiredRooms lists rooms past their expiry, for the sweeper.
func (r *RoomRepo) ExpiredRooms(ctx context.Context, now time.Time) ([]models.EpisodeRoom, error) {
	var rooms []models.EpisodeRoom
	err := r.db.SelectContext(ctx, &rooms,
		`SELECT `+roomColumns+` FROM episode_rooms WHERE expires_at <= $1`, now)
	return rooms, err
}

// DeleteRoom removes an expired room record.
func (r *RoomRepo) DeleteRoom(ctx context.Context, roomID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM episode_rooms WHERE id=$1`, roomID)
	return err
}

// SaveMessage appends a room message and bumps the room's message counter.
func (r *RoomRepo) SaveMessage(ctx context.Context, msg *models.RoomMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO episode_room_messages (id, room_id, user_id, user_name, user_avatar, message, is_spoiler, spoils_episode, created_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		msg.ID, msg.RoomID, msg.UserID, msg.UserName, msg.UserAvatar,
		msg.Message, msg.IsSpoiler, msg.SpoilsEpisode, msg.CreatedAt)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE episode_rooms SET total_messages = total_messages + 1 WHERE id=$1`, msg.RoomID)
	return err
}

// ListMessages returns the most recent room messages in chronological order.
func (r *RoomRepo) ListMessages(ctx context.Context, roomID string, limit int) ([]models.RoomMessage, error) {
	var msgs []models.RoomMessage
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT * FROM (
             SELECT id, room_id, user_id, user_name, user_avatar, message, is_spoiler, spoils_episode, created_at
             FROM episode_room_messages WHERE room_id=$1
             ORDER BY created_at DESC LIMIT $2
         ) recent ORDER BY created_at ASC`, roomID, limit)
	return msgs, err
}
