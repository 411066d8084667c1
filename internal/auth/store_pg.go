package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore persists sessions in PostgreSQL so they survive process restarts.
type PGStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPGStore constructs a PostgreSQL-backed session store.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool, now: time.Now}
}

// Create records a new session row.
func (s *PGStore) Create(ctx context.Context, userID int64, ttl time.Duration, meta ClientMeta) (string, error) {
	token, err := newSessionToken()
	if err != nil {
		return "", err
	}
	now := s.now().UTC()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO sessions (token, user_id, created_at, expires_at, ip, ua) VALUES ($1, $2, $3, $4, $5, $6)`,
		token, userID, now, now.Add(ttl), meta.IP, meta.UserAgent)
	if err != nil {
		return "", err
	}
	return token, nil
}

// Get returns the owning user id for a live token, reaping expired rows.
func (s *PGStore) Get(ctx context.Context, token string) (int64, bool, error) {
	var userID int64
	var expiresAt time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, expires_at FROM sessions WHERE token = $1`, token).
		Scan(&userID, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	if !s.now().Before(expiresAt) {
		if _, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token); err != nil {
			return 0, false, err
		}
		return 0, false, nil
	}
	return userID, true, nil
}

// Refresh extends expiry only when the row is still live.
func (s *PGStore) Refresh(ctx context.Context, token string, ttl time.Duration) (bool, error) {
	now := s.now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE sessions SET expires_at = $1 WHERE token = $2 AND expires_at > $3`,
		now.Add(ttl), token, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Delete removes the row unconditionally.
func (s *PGStore) Delete(ctx context.Context, token string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteByUser removes every session owned by the user.
func (s *PGStore) DeleteByUser(ctx context.Context, userID int64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	return err
}

// DeleteExpired removes rows past expiry. Correctness does not depend on it;
// the sweep job calls it for storage hygiene.
func (s *PGStore) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, s.now().UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// CountActive returns the number of live sessions. The sweep job publishes
// it as a gauge.
func (s *PGStore) CountActive(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM sessions WHERE expires_at > $1`, s.now().UTC()).Scan(&n)
	return n, err
}

var _ SessionStore = (*PGStore)(nil)
