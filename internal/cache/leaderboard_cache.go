package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// LeaderboardCache handles Redis ZSET operations for the per-room tally of
// games won by each nickname
type LeaderboardCache interface {
	AddWin(ctx context.Context, roomID, nickname string) error
	GetTop(ctx context.Context, roomID string, limit int) ([]LeaderboardEntry, error)
}

// LeaderboardEntry represents a single leaderboard entry
type LeaderboardEntry struct {
	Nickname string `json:"nickname"`
	Wins     int    `json:"wins"`
	Rank     int    `json:"rank"`
}

type leaderboardCache struct {
	client *redis.Client
}

// NewLeaderboardCache creates a new leaderboard cache
func NewLeaderboardCache(client *redis.Client) LeaderboardCache {
	return &leaderboardCache{
		client: client,
	}
}

func (c *leaderboardCache) key(roomID string) string {
	return fmt.Sprintf("room:%s:wins", roomID)
}

func (c *leaderboardCache) AddWin(ctx context.Context, roomID, nickname string) error {
	return c.client.ZIncrBy(ctx, c.key(roomID), 1, nickname).Err()
}

func (c *leaderboardCache) GetTop(ctx context.Context, roomID string, limit int) ([]LeaderboardEntry, error) {
	results, err := c.client.ZRevRangeWithScores(ctx, c.key(roomID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, len(results))
	for i, z := range results {
		entries[i] = LeaderboardEntry{
			Nickname: z.Member.(string),
			Wins:     int(z.Score),
			Rank:     i + 1,
		}
	}
	return entries, nil
}
