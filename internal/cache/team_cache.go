package cache

import (
	"aliasgame/internal/model"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TeamCache handles Redis operations for teams and their player queues
type TeamCache interface {
	SaveTeam(ctx context.Context, team *model.Team) error
	GetTeam(ctx context.Context, gameID, teamID string) (*model.Team, error)
	GameIDForTeam(ctx context.Context, teamID string) (string, error)

	// Player queue (head is the team's active player)
	GetPlayerQueue(ctx context.Context, gameID, teamID string) ([]string, error)
	SetPlayerQueue(ctx context.Context, gameID, teamID string, queue []string) error
}

type teamCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTeamCache creates a new team cache
func NewTeamCache(client *redis.Client, ttl time.Duration) TeamCache {
	return &teamCache{
		client: client,
		ttl:    ttlOrDefault(ttl),
	}
}

// Key helpers
func (c *teamCache) teamKey(gameID, teamID string) string {
	return fmt.Sprintf("game:%s:team:%s", gameID, teamID)
}

func (c *teamCache) playersKey(gameID, teamID string) string {
	return fmt.Sprintf("game:%s:team:%s:players", gameID, teamID)
}

func (c *teamCache) indexKey(teamID string) string {
	return fmt.Sprintf("team:%s:game", teamID)
}

func (c *teamCache) SaveTeam(ctx context.Context, team *model.Team) error {
	data, err := json.Marshal(team)
	if err != nil {
		return err
	}
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, c.teamKey(team.GameID, team.ID), data, c.ttl)
		pipe.Set(ctx, c.indexKey(team.ID), team.GameID, c.ttl)
		return nil
	})
	return err
}

func (c *teamCache) GetTeam(ctx context.Context, gameID, teamID string) (*model.Team, error) {
	data, err := c.client.Get(ctx, c.teamKey(gameID, teamID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var team model.Team
	if err := json.Unmarshal([]byte(data), &team); err != nil {
		return nil, err
	}
	return &team, nil
}

func (c *teamCache) GameIDForTeam(ctx context.Context, teamID string) (string, error) {
	val, err := c.client.Get(ctx, c.indexKey(teamID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

func (c *teamCache) GetPlayerQueue(ctx context.Context, gameID, teamID string) ([]string, error) {
	return c.client.LRange(ctx, c.playersKey(gameID, teamID), 0, -1).Result()
}

func (c *teamCache) SetPlayerQueue(ctx context.Context, gameID, teamID string, queue []string) error {
	return replaceList(ctx, c.client, c.playersKey(gameID, teamID), queue, c.ttl)
}
