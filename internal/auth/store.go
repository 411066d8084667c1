package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"
)

const sessionTokenLen = 32 // bytes of entropy before encoding

// SessionStore is the single source of truth for active sessions. A session
// is valid iff it exists and has not expired; expired entries are reaped
// lazily on read.
type SessionStore interface {
	// Create records a new session and returns its opaque token.
	Create(ctx context.Context, userID int64, ttl time.Duration, meta ClientMeta) (string, error)
	// Get returns the owning user id when the token is live. An expired
	// entry is deleted as a side effect and reported as absent.
	Get(ctx context.Context, token string) (int64, bool, error)
	// Refresh extends the expiry of a live session. It reports false and
	// mutates nothing when the token is absent or expired.
	Refresh(ctx context.Context, token string, ttl time.Duration) (bool, error)
	// Delete removes the entry unconditionally, reporting whether one
	// existed.
	Delete(ctx context.Context, token string) (bool, error)
	// DeleteByUser removes every session owned by the user.
	DeleteByUser(ctx context.Context, userID int64) error
}

// newSessionToken returns a fresh high-entropy URL-safe token.
func newSessionToken() (string, error) {
	b := make([]byte, sessionTokenLen)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("auth: generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
