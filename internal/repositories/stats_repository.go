package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// StatsRepository keeps the gamification counters fed by the event
// side-channel (matches completed, messages sent, rooms joined).
type StatsRepository interface {
	IncrementStat(ctx context.Context, userID, stat string, delta int) error
	GetStats(ctx context.Context, userID string) (map[string]int, error)
}

// StatsRepo is a sqlx implementation of StatsRepository.
type StatsRepo struct {
	db *sqlx.DB
}

// NewStatsRepo constructs a StatsRepo.
func NewStatsRepo(db *sqlx.DB) *StatsRepo {
	return &StatsRepo{db: db}
}

// IncrementStat bumps a named counter for the user.
func (r *StatsRepo) IncrementStat(ctx context.Context, userID, stat string, delta int) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_stats (user_id, stat, value) VALUES ($1, $2, $3)
         ON CONFLICT (user_id, stat) DO UPDATE SET value = user_stats.value + EXCLUDED.value`,
		userID, stat, delta)
	return err
}

// GetStats returns all counters for the user.
func (r *StatsRepo) GetStats(ctx context.Context, userID string) (map[string]int, error) {
	rows, err := r.db.QueryxContext(ctx,
		`SELECT stat, value FROM user_stats WHERE user_id=$1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var stat string
		var value int
		if err := rows.Scan(&stat, &value); err != nil {
			return nil, err
		}
		stats[stat] = value
	}
	return stats, rows.Err()
}
