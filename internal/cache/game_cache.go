package cache

import (
	"aliasgame/internal/model"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// GameCache handles Redis operations for game metadata, the team turn
// order, the round counter and lap tracking
type GameCache interface {
	SaveGame(ctx context.Context, game *model.Game) error
	GetGame(ctx context.Context, gameID string) (*model.Game, error)

	// Round counter
	SetRoundNumber(ctx context.Context, gameID string, n int) error
	GetRoundNumber(ctx context.Context, gameID string) (int, error)
	IncrementRoundNumber(ctx context.Context, gameID string) (int, error)

	// Team order (head is the active team)
	AddTeam(ctx context.Context, gameID, teamID string) error
	GetTeamOrder(ctx context.Context, gameID string) ([]string, error)
	SetTeamOrder(ctx context.Context, gameID string, order []string) error

	// Teams that completed a lap in the current round
	AddLapFinisher(ctx context.Context, gameID, teamID string) error
	IsLapFinisher(ctx context.Context, gameID, teamID string) (bool, error)
	ClearLapFinishers(ctx context.Context, gameID string) error

	// Games that have not completed, for timer recovery
	MarkActive(ctx context.Context, gameID string) error
	UnmarkActive(ctx context.Context, gameID string) error
	ActiveGames(ctx context.Context) ([]string, error)
}

type gameCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewGameCache creates a new game cache
func NewGameCache(client *redis.Client, ttl time.Duration) GameCache {
	return &gameCache{
		client: client,
		ttl:    ttlOrDefault(ttl),
	}
}

// Key helpers
func (c *gameCache) gameKey(gameID string) string {
	return fmt.Sprintf("game:%s", gameID)
}

func (c *gameCache) roundKey(gameID string) string {
	return fmt.Sprintf("game:%s:round", gameID)
}

func (c *gameCache) teamsKey(gameID string) string {
	return fmt.Sprintf("game:%s:teams", gameID)
}

func (c *gameCache) finishersKey(gameID string) string {
	return fmt.Sprintf("game:%s:lapFinishers", gameID)
}

const activeGamesKey = "games:active"

func (c *gameCache) SaveGame(ctx context.Context, game *model.Game) error {
	data, err := json.Marshal(game)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.gameKey(game.ID), data, c.ttl).Err()
}

func (c *gameCache) GetGame(ctx context.Context, gameID string) (*model.Game, error) {
	data, err := c.client.Get(ctx, c.gameKey(gameID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var game model.Game
	if err := json.Unmarshal([]byte(data), &game); err != nil {
		return nil, err
	}
	return &game, nil
}

// Round counter
func (c *gameCache) SetRoundNumber(ctx context.Context, gameID string, n int) error {
	return c.client.Set(ctx, c.roundKey(gameID), n, c.ttl).Err()
}

func (c *gameCache) GetRoundNumber(ctx context.Context, gameID string) (int, error) {
	val, err := c.client.Get(ctx, c.roundKey(gameID)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(val)
}

func (c *gameCache) IncrementRoundNumber(ctx context.Context, gameID string) (int, error) {
	n, err := c.client.Incr(ctx, c.roundKey(gameID)).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Team order
func (c *gameCache) AddTeam(ctx context.Context, gameID, teamID string) error {
	key := c.teamsKey(gameID)
	if err := c.client.RPush(ctx, key, teamID).Err(); err != nil {
		return err
	}
	return c.client.Expire(ctx, key, c.ttl).Err()
}

func (c *gameCache) GetTeamOrder(ctx context.Context, gameID string) ([]string, error) {
	return c.client.LRange(ctx, c.teamsKey(gameID), 0, -1).Result()
}

func (c *gameCache) SetTeamOrder(ctx context.Context, gameID string, order []string) error {
	return replaceList(ctx, c.client, c.teamsKey(gameID), order, c.ttl)
}

// Lap finishers
func (c *gameCache) AddLapFinisher(ctx context.Context, gameID, teamID string) error {
	key := c.finishersKey(gameID)
	if err := c.client.SAdd(ctx, key, teamID).Err(); err != nil {
		return err
	}
	return c.client.Expire(ctx, key, c.ttl).Err()
}

func (c *gameCache) IsLapFinisher(ctx context.Context, gameID, teamID string) (bool, error) {
	return c.client.SIsMember(ctx, c.finishersKey(gameID), teamID).Result()
}

func (c *gameCache) ClearLapFinishers(ctx context.Context, gameID string) error {
	return c.client.Del(ctx, c.finishersKey(gameID)).Err()
}

// Active index
func (c *gameCache) MarkActive(ctx context.Context, gameID string) error {
	return c.client.SAdd(ctx, activeGamesKey, gameID).Err()
}

func (c *gameCache) UnmarkActive(ctx context.Context, gameID string) error {
	return c.client.SRem(ctx, activeGamesKey, gameID).Err()
}

func (c *gameCache) ActiveGames(ctx context.Context) ([]string, error) {
	return c.client.SMembers(ctx, activeGamesKey).Result()
}

// replaceList swaps the content of a list in one MULTI/EXEC so readers
// never observe a partially written queue.
func replaceList(ctx context.Context, client *redis.Client, key string, values []string, ttl time.Duration) error {
	_, err := client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(values) > 0 {
			args := make([]interface{}, len(values))
			for i, v := range values {
				args[i] = v
			}
			pipe.RPush(ctx, key, args...)
			pipe.Expire(ctx, key, ttl)
		}
		return nil
	})
	return err
}
