// Package refreshsessions persists the single active refresh session per
// user (UserRefreshSession{user_id unique, token_hash, token_jti, expires_at}),
// backing the auth package's rotate-on-use refresh flow.
package refreshsessions

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("refresh session not found")

type Session struct {
	UserID    int64
	TokenHash string
	TokenJTI  string
	ExpiresAt time.Time
	UpdatedAt time.Time
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Upsert rotates (or creates) the one session row for userID: every field
// is overwritten, matching the spec's "refresh rotates all fields" rule.
func (r *Repository) Upsert(ctx context.Context, userID int64, tokenHash, tokenJTI string, expiresAt time.Time) error {
	_, err := r.db.Exec(ctx, `
INSERT INTO user_refresh_sessions (user_id, token_hash, token_jti, expires_at, updated_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (user_id) DO UPDATE SET
  token_hash = EXCLUDED.token_hash,
  token_jti  = EXCLUDED.token_jti,
  expires_at = EXCLUDED.expires_at,
  updated_at = now()`,
		userID, tokenHash, tokenJTI, expiresAt)
	return err
}

func (r *Repository) GetByUserID(ctx context.Context, userID int64) (*Session, error) {
	var s Session
	err := r.db.QueryRow(ctx, `SELECT user_id, token_hash, token_jti, expires_at, updated_at FROM user_refresh_sessions WHERE user_id = $1`, userID).
		Scan(&s.UserID, &s.TokenHash, &s.TokenJTI, &s.ExpiresAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repository) DeleteByUserID(ctx context.Context, userID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM user_refresh_sessions WHERE user_id = $1`, userID)
	return err
}
