package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// ProgressRepository tracks which episodes of an anime a user has watched.
// The room engine consults it per recipient when redacting spoilers.
type ProgressRepository interface {
	GetWatchedEpisodes(ctx context.Context, userID, animeID string) (map[int]bool, error)
	MarkEpisodeWatched(ctx context.Context, userID, animeID string, episode int) error
}

// ProgressRepo is a sqlx implementation of ProgressRepository.
type ProgressRepo struct {
	db *sqlx.DB
}

// NewProgressRepo constructs a ProgressRepo.
func NewProgressRepo(db *sqlx.DB) *ProgressRepo {
	return &ProgressRepo{db: db}
}

// GetWatchedEpisodes returns the user's watched set for an anime. Missing
// progress is an empty set, not an error.
func (r *ProgressRepo) GetWatchedEpisodes(ctx context.Context, userID, animeID string) (map[int]bool, error) {
	var episodes []int
	err := r.db.SelectContext(ctx, &episodes,
		`SELECT episode_number FROM user_episode_progress WHERE user_id=$1 AND anime_id=$2`,
		userID, animeID)
	if err != nil {
		return nil, err
	}
	watched := make(map[int]bool, len(episodes))
	for _, ep := range episodes {
		watched[ep] = true
	}
	return watched, nil
}

// MarkEpisodeWatched records progress; re-marking is a no-op.
func (r *ProgressRepo) MarkEpisodeWatched(ctx context.Context, userID, animeID string, episode int) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_episode_progress (user_id, anime_id, episode_number)
         VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		userID, animeID, episode)
	return err
}
