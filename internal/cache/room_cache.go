package cache

import (
	"aliasgame/internal/model"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RoomCache handles Redis operations for room state
type RoomCache interface {
	SaveRoom(ctx context.Context, room *model.Room) error
	GetRoom(ctx context.Context, roomID string) (*model.Room, error)
	Exists(ctx context.Context, roomID string) (bool, error)
	Delete(ctx context.Context, roomID string) error
}

type roomCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRoomCache creates a new room cache
func NewRoomCache(client *redis.Client, ttl time.Duration) RoomCache {
	return &roomCache{
		client: client,
		ttl:    ttlOrDefault(ttl),
	}
}

func (c *roomCache) key(roomID string) string {
	return fmt.Sprintf("room:%s", roomID)
}

func (c *roomCache) SaveRoom(ctx context.Context, room *model.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(room.ID), data, c.ttl).Err()
}

func (c *roomCache) GetRoom(ctx context.Context, roomID string) (*model.Room, error) {
	data, err := c.client.Get(ctx, c.key(roomID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var room model.Room
	if err := json.Unmarshal([]byte(data), &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (c *roomCache) Exists(ctx context.Context, roomID string) (bool, error) {
	n, err := c.client.Exists(ctx, c.key(roomID)).Result()
	return n > 0, err
}

func (c *roomCache) Delete(ctx context.Context, roomID string) error {
	return c.client.Del(ctx, c.key(roomID)).Err()
}
