package models

import "time"

// UserProfile is the persisted snapshot of a user, including the interest sets
// the matcher scores against. The real-time core treats it as read-only.
type UserProfile struct {
	ID                 string    `db:"id" json:"id"`
	DisplayName        string    `db:"display_name" json:"name"`
	AvatarURL          string    `db:"avatar_url" json:"picture"`
	FavoriteAnime      []string  `json:"favorite_anime"`
	FavoriteGenres     []string  `json:"favorite_genres"`
	FavoriteThemes     []string  `json:"favorite_themes"`
	FavoriteCharacters []string  `json:"favorite_characters"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

// ProfileUpdate carries the client-supplied profile fields merged by the store.
type ProfileUpdate struct {
	DisplayName        *string  `json:"name,omitempty"`
	AvatarURL          *string  `json:"picture,omitempty"`
	FavoriteAnime      []string `json:"favorite_anime,omitempty"`
	FavoriteGenres     []string `json:"favorite_genres,omitempty"`
	FavoriteThemes     []string `json:"favorite_themes,omitempty"`
	FavoriteCharacters []string `json:"favorite_characters,omitempty"`
}

// Friend is a friends-list entry decorated with live presence.
type Friend struct {
	UserID      string `db:"friend_id" json:"user_id"`
	DisplayName string `db:"display_name" json:"name"`
	AvatarURL   string `db:"avatar_url" json:"picture"`
	Online      bool   `json:"online"`
}
