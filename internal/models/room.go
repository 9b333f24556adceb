package models

import "time"

// EpisodeRoom is a time-boxed group chat scoped to one anime episode.
type EpisodeRoom struct {
	ID            string    `db:"id" json:"id"`
	AnimeID       string    `db:"anime_id" json:"anime_id"`
	AnimeTitle    string    `db:"anime_title" json:"anime_title"`
	EpisodeNumber int       `db:"episode_number" json:"episode_number"`
	ActiveUsers   int       `db:"active_users_count" json:"active_users_count"`
	TotalMessages int       `db:"total_messages" json:"total_messages"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	ExpiresAt     time.Time `db:"expires_at" json:"expires_at"`
}

// RoomMember is a live connection present in an episode room.
type RoomMember struct {
	ConnID      string `json:"-"`
	UserID      string `json:"id"`
	DisplayName string `json:"name"`
	AvatarURL   string `json:"picture"`
}

// SpoilerEnvelope is the per-message spoiler decision, computed once and then
// evaluated against each recipient's watched-episode set.
type SpoilerEnvelope struct {
	IsSpoiler     bool `json:"is_spoiler"`
	SpoilsEpisode int  `json:"spoiler_episode_number,omitempty"`
}

// RoomMessage is a durable episode-room message. Unlike 1:1 match chat,
// room history is persisted.
type RoomMessage struct {
	ID            string    `db:"id" json:"id"`
	RoomID        string    `db:"room_id" json:"room_id"`
	UserID        string    `db:"user_id" json:"user_id"`
	UserName      string    `db:"user_name" json:"user_name"`
	UserAvatar    string    `db:"user_avatar" json:"user_picture"`
	Message       string    `db:"message" json:"message"`
	IsSpoiler     bool      `db:"is_spoiler" json:"is_spoiler"`
	SpoilsEpisode int       `db:"spoils_episode" json:"spoiler_episode_number,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"timestamp"`
}
