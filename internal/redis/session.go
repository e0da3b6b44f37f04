package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// activeSessionsKey scores each live token by its expiry in unix seconds
const activeSessionsKey = "sessions:active"

// ErrSessionNotFound is returned when no session exists for a token
var ErrSessionNotFound = errors.New("session not found")

// SessionData represents a user session stored in Redis
type SessionData struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func sessionKey(token string) string {
	return fmt.Sprintf("session:%s", token)
}

// SetSession stores a user session in Redis with TTL
func (c *Client) SetSession(ctx context.Context, token string, session *SessionData, ttl time.Duration) error {
	sessionJSON, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}

	pipe := c.TxPipeline()
	pipe.Set(ctx, sessionKey(token), sessionJSON, ttl)
	pipe.ZAdd(ctx, activeSessionsKey, activeEntry(token, ttl))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set session: %w", err)
	}
	return nil
}

// GetSession retrieves a user session from Redis
func (c *Client) GetSession(ctx context.Context, token string) (*SessionData, error) {
	sessionJSON, err := c.Get(ctx, sessionKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session SessionData
	if err := json.Unmarshal([]byte(sessionJSON), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session data: %w", err)
	}
	return &session, nil
}

// DeleteSession removes a user session from Redis (for logout)
func (c *Client) DeleteSession(ctx context.Context, token string) error {
	pipe := c.TxPipeline()
	pipe.Del(ctx, sessionKey(token))
	pipe.ZRem(ctx, activeSessionsKey, token)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// ReplaceSession moves a session to a new token, keeping its data
func (c *Client) ReplaceSession(ctx context.Context, oldToken, newToken string, session *SessionData, ttl time.Duration) error {
	sessionJSON, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}

	pipe := c.TxPipeline()
	pipe.Del(ctx, sessionKey(oldToken))
	pipe.ZRem(ctx, activeSessionsKey, oldToken)
	pipe.Set(ctx, sessionKey(newToken), sessionJSON, ttl)
	pipe.ZAdd(ctx, activeSessionsKey, activeEntry(newToken, ttl))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to replace session: %w", err)
	}
	return nil
}

// ActiveSessionCount returns the number of unexpired sessions. Entries whose
// TTL has passed are pruned first, since Redis expires the session keys but
// not their index entries.
func (c *Client) ActiveSessionCount(ctx context.Context) (int64, error) {
	now := strconv.FormatInt(time.Now().Unix(), 10)
	if err := c.ZRemRangeByScore(ctx, activeSessionsKey, "-inf", now).Err(); err != nil {
		return 0, fmt.Errorf("failed to prune active sessions: %w", err)
	}
	count, err := c.ZCard(ctx, activeSessionsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get active session count: %w", err)
	}
	return count, nil
}

func activeEntry(token string, ttl time.Duration) redis.Z {
	return redis.Z{Score: float64(time.Now().Add(ttl).Unix()), Member: token}
}
