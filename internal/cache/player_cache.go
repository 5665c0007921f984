package cache

import (
	"aliasgame/internal/model"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// PlayerCache handles Redis operations for the players of a room
type PlayerCache interface {
	// Nickname reservation is atomic per room
	ReserveNickname(ctx context.Context, roomID, nickname, playerID string) (bool, error)
	ReleaseNickname(ctx context.Context, roomID, nickname string) error

	// ClaimAdmin succeeds only for the first caller in a room
	ClaimAdmin(ctx context.Context, roomID, playerID string) (bool, error)

	SetPlayer(ctx context.Context, player *model.Player) error
	GetPlayer(ctx context.Context, roomID, playerID string) (*model.Player, error)
	GetAllPlayers(ctx context.Context, roomID string) (map[string]*model.Player, error)
	RemovePlayer(ctx context.Context, roomID, playerID string) error
}

type playerCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPlayerCache creates a new player cache
func NewPlayerCache(client *redis.Client, ttl time.Duration) PlayerCache {
	return &playerCache{
		client: client,
		ttl:    ttlOrDefault(ttl),
	}
}

// Key helpers
func (c *playerCache) playersKey(roomID string) string {
	return fmt.Sprintf("room:%s:players", roomID)
}

func (c *playerCache) nicknamesKey(roomID string) string {
	return fmt.Sprintf("room:%s:nicknames", roomID)
}

func (c *playerCache) adminKey(roomID string) string {
	return fmt.Sprintf("room:%s:admin", roomID)
}

func normalizeNickname(nickname string) string {
	return strings.ToLower(strings.TrimSpace(nickname))
}

func (c *playerCache) ReserveNickname(ctx context.Context, roomID, nickname, playerID string) (bool, error) {
	key := c.nicknamesKey(roomID)
	ok, err := c.client.HSetNX(ctx, key, normalizeNickname(nickname), playerID).Result()
	if err != nil {
		return false, err
	}
	c.client.Expire(ctx, key, c.ttl)
	return ok, nil
}

func (c *playerCache) ReleaseNickname(ctx context.Context, roomID, nickname string) error {
	return c.client.HDel(ctx, c.nicknamesKey(roomID), normalizeNickname(nickname)).Err()
}

func (c *playerCache) ClaimAdmin(ctx context.Context, roomID, playerID string) (bool, error) {
	return c.client.SetNX(ctx, c.adminKey(roomID), playerID, c.ttl).Result()
}

func (c *playerCache) SetPlayer(ctx context.Context, player *model.Player) error {
	data, err := json.Marshal(player)
	if err != nil {
		return err
	}
	key := c.playersKey(player.RoomID)
	if err := c.client.HSet(ctx, key, player.ID, data).Err(); err != nil {
		return err
	}
	return c.client.Expire(ctx, key, c.ttl).Err()
}

func (c *playerCache) GetPlayer(ctx context.Context, roomID, playerID string) (*model.Player, error) {
	data, err := c.client.HGet(ctx, c.playersKey(roomID), playerID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var player model.Player
	if err := json.Unmarshal([]byte(data), &player); err != nil {
		return nil, err
	}
	return &player, nil
}

func (c *playerCache) GetAllPlayers(ctx context.Context, roomID string) (map[string]*model.Player, error) {
	data, err := c.client.HGetAll(ctx, c.playersKey(roomID)).Result()
	if err != nil {
		return nil, err
	}
	players := make(map[string]*model.Player)
	for id, jsonStr := range data {
		var p model.Player
		if err := json.Unmarshal([]byte(jsonStr), &p); err != nil {
			continue
		}
		players[id] = &p
	}
	return players, nil
}

func (c *playerCache) RemovePlayer(ctx context.Context, roomID, playerID string) error {
	return c.client.HDel(ctx, c.playersKey(roomID), playerID).Err()
}
