package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps sessions in Redis with native key expiry. Expired entries
// vanish on their own, so reap-on-read is handled by the server.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore constructs a Redis-backed session store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

type redisSession struct {
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	IP        string    `json:"ip,omitempty"`
	UA        string    `json:"ua,omitempty"`
}

func sessionKey(token string) string {
	return "session:" + token
}

func userSessionsKey(userID int64) string {
	return fmt.Sprintf("user_sessions:%d", userID)
}

// Create records a new session keyed by a fresh token.
func (s *RedisStore) Create(ctx context.Context, userID int64, ttl time.Duration, meta ClientMeta) (string, error) {
	token, err := newSessionToken()
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(redisSession{
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
		IP:        meta.IP,
		UA:        meta.UserAgent,
	})
	if err != nil {
		return "", err
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKey(token), payload, ttl)
	pipe.SAdd(ctx, userSessionsKey(userID), token)
	pipe.Expire(ctx, userSessionsKey(userID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", err
	}
	return token, nil
}

// Get returns the owning user id when the key still exists.
func (s *RedisStore) Get(ctx context.Context, token string) (int64, bool, error) {
	data, err := s.client.Get(ctx, sessionKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, err
	}
	var stored redisSession
	if err := json.Unmarshal(data, &stored); err != nil {
		return 0, false, err
	}
	return stored.UserID, true, nil
}

// Refresh extends the key TTL when the session still exists.
func (s *RedisStore) Refresh(ctx context.Context, token string, ttl time.Duration) (bool, error) {
	ok, err := s.client.Expire(ctx, sessionKey(token), ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// Delete removes the key, reporting whether one existed.
func (s *RedisStore) Delete(ctx context.Context, token string) (bool, error) {
	data, err := s.client.Get(ctx, sessionKey(token)).Bytes()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, err
	}
	removed, delErr := s.client.Del(ctx, sessionKey(token)).Result()
	if delErr != nil {
		return false, delErr
	}
	if len(data) > 0 {
		var stored redisSession
		if err := json.Unmarshal(data, &stored); err == nil {
			_ = s.client.SRem(ctx, userSessionsKey(stored.UserID), token).Err()
		}
	}
	return removed > 0, nil
}

// DeleteByUser removes every tracked session for the user.
func (s *RedisStore) DeleteByUser(ctx context.Context, userID int64) error {
	tokens, err := s.client.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	pipe := s.client.TxPipeline()
	for _, token := range tokens {
		pipe.Del(ctx, sessionKey(token))
	}
	pipe.Del(ctx, userSessionsKey(userID))
	_, err = pipe.Exec(ctx)
	return err
}

var _ SessionStore = (*RedisStore)(nil)
