package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionLifetime is how long a session cookie stays valid.
const SessionLifetime = 7 * 24 * time.Hour

// SessionRepository is the auth collaborator: it resolves session tokens to
// user identities. Token issuance itself (the OAuth dance) lives elsewhere.
type SessionRepository interface {
	CreateSession(ctx context.Context, userID string) (token string, err error)
	GetUserID(ctx context.Context, token string) (string, error)
	DeleteSession(ctx context.Context, token string) error
}

// SessionRepo is a sqlx implementation of SessionRepository.
type SessionRepo struct {
	db *sqlx.DB
}

// NewSessionRepo constructs a SessionRepo.
func NewSessionRepo(db *sqlx.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// CreateSession issues a new session token for the user.
func (r *SessionRepo) CreateSession(ctx context.Context, userID string) (string, error) {
	token := uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, expires_at) VALUES ($1, $2, $3)`,
		token, userID, time.Now().UTC().Add(SessionLifetime))
	if err != nil {
		return "", err
	}
	return token, nil
}

// GetUserID resolves an unexpired session token to its user.
func (r *SessionRepo) GetUserID(ctx context.Context, token string) (string, error) {
	var userID string
	err := r.db.GetContext(ctx, &userID,
		`SELECT user_id FROM sessions WHERE token=$1 AND expires_at > NOW()`, token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrSessionNotFound
	}
	return userID, err
}

// DeleteSession invalidates a token. Deleting an unknown token is a no-op.
func (r *SessionRepo) DeleteSession(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token=$1`, token)
	return err
}
