package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// leaderboardExpKey holds user ids scored by total experience
const leaderboardExpKey = "leaderboard:exp"

// LeaderboardEntry represents a user's position on the leaderboard
type LeaderboardEntry struct {
	UserID   string  `json:"user_id"`
	Username string  `json:"username,omitempty"`
	Exp      float64 `json:"exp"`
	Rank     int64   `json:"rank"`
}

// AddExperience increments the experience score for a user
func (c *Client) AddExperience(ctx context.Context, userID string, exp int) error {
	if err := c.ZIncrBy(ctx, leaderboardExpKey, float64(exp), userID).Err(); err != nil {
		return fmt.Errorf("failed to add experience: %w", err)
	}
	return nil
}

// SetExperience sets a user's score, used to rebuild the cache from the database
func (c *Client) SetExperience(ctx context.Context, userID string, exp int) error {
	err := c.ZAdd(ctx, leaderboardExpKey, redis.Z{Score: float64(exp), Member: userID}).Err()
	if err != nil {
		return fmt.Errorf("failed to set experience: %w", err)
	}
	return nil
}

// TopByExperience returns the top N users, highest score first, with 1-based ranks
func (c *Client) TopByExperience(ctx context.Context, limit int64) ([]LeaderboardEntry, error) {
	players, err := c.ZRevRangeWithScores(ctx, leaderboardExpKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get top players: %w", err)
	}

	entries := make([]LeaderboardEntry, 0, len(players))
	for i, p := range players {
		member, _ := p.Member.(string)
		entries = append(entries, LeaderboardEntry{
			UserID: member,
			Exp:    p.Score,
			Rank:   int64(i) + 1,
		})
	}
	return entries, nil
}
