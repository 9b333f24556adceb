package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"animechat-service/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository abstracts user persistence.
type UserRepository interface {
	GetUser(ctx context.Context, userID string) (*models.UserProfile, error)
	UpdateProfile(ctx context.Context, userID string, update models.ProfileUpdate) (*models.UserProfile, error)
	AreFriends(ctx context.Context, userID, otherID string) (bool, error)
	ListFriends(ctx context.Context, userID string) ([]models.Friend, error)
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

const userColumns = `id, display_name, avatar_url, favorite_anime, favorite_genres, favorite_themes, favorite_characters, created_at`

func scanUser(row *sqlx.Row) (*models.UserProfile, error) {
	var u models.UserProfile
	err := row.Scan(
		&u.ID, &u.DisplayName, &u.AvatarURL,
		(*pq.StringArray)(&u.FavoriteAnime),
		(*pq.StringArray)(&u.FavoriteGenres),
		(*pq.StringArray)(&u.FavoriteThemes),
		(*pq.StringArray)(&u.FavoriteCharacters),
		&u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUser fetches a user snapshot by id.
func (r *UserRepo) GetUser(ctx context.Context, userID string) (*models.UserProfile, error) {
	row := r.db.QueryRowxContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, userID)
	return scanUser(row)
}

// UpdateProfile merges the client-supplied fields into the stored profile and
// returns the updated snapshot.
func (r *UserRepo) UpdateProfile(ctx context.Context, userID string, update models.ProfileUpdate) (*models.UserProfile, error) {
	row := r.db.QueryRowxContext(ctx, `UPDATE users SET
            display_name = COALESCE($2, display_name),
            avatar_url = COALESCE($3, avatar_url),
            favorite_anime = COALESCE($4, favorite_anime),
            favorite_genres = COALESCE($5, favorite_genres),
            favorite_themes = COALESCE($6, favorite_themes),
            favorite_characters = COALESCE($7, favorite_characters)
        WHERE id=$1 RETURNING `+userColumns,
		userID,
		update.DisplayName,
		update.AvatarURL,
		nullableArray(update.FavoriteAnime),
		nullableArray(update.FavoriteGenres),
		nullableArray(update.FavoriteThemes),
		nullableArray(update.FavoriteCharacters),
	)
	return scanUser(row)
}

// AreFriends reports whether an accepted friendship exists between two users.
func (r *UserRepo) AreFriends(ctx context.Context, userID, otherID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM friendships
             WHERE (user1_id=$1 AND user2_id=$2) OR (user1_id=$2 AND user2_id=$1))`,
		userID, otherID)
	return exists, err
}

// ListFriends returns the user's accepted friends.
func (r *UserRepo) ListFriends(ctx context.Context, userID string) ([]models.Friend, error) {
	var friends []models.Friend
	err := r.db.SelectContext(ctx, &friends,
		`SELECT u.id AS friend_id, u.display_name, u.avatar_url FROM friendships f
            JOIN users u ON u.id = CASE WHEN f.user1_id=$1 THEN f.user2_id ELSE f.user1_id END
            WHERE f.user1_id=$1 OR f.user2_id=$1
            ORDER BY u.display_name`,
		userID)
	return friends, err
}

func nullableArray(values []string) interface{} {
	if values == nil {
		return nil
	}
	return pq.StringArray(values)
}
