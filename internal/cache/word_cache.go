package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// WordCache handles Redis operations for word packs and the rotating
// per-game word list
type WordCache interface {
	SetPack(ctx context.Context, pack string, words []string) error
	GetPack(ctx context.Context, pack string) ([]string, error)

	SetGameWords(ctx context.Context, gameID string, words []string) error
	CurrentWord(ctx context.Context, gameID string) (string, error)
	// RotateGameWords moves the last word to the front and returns it
	RotateGameWords(ctx context.Context, gameID string) (string, error)
	DeleteGameWords(ctx context.Context, gameID string) error
}

type wordCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewWordCache creates a new word cache
func NewWordCache(client *redis.Client, ttl time.Duration) WordCache {
	return &wordCache{
		client: client,
		ttl:    ttlOrDefault(ttl),
	}
}

func (c *wordCache) packKey(pack string) string {
	return fmt.Sprintf("words:pack:%s", pack)
}

func (c *wordCache) gameKey(gameID string) string {
	return fmt.Sprintf("words:gameId:%s", gameID)
}

// SetPack replaces a word pack. Packs do not expire.
func (c *wordCache) SetPack(ctx context.Context, pack string, words []string) error {
	key := c.packKey(pack)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(words) > 0 {
			args := make([]interface{}, len(words))
			for i, w := range words {
				args[i] = w
			}
			pipe.RPush(ctx, key, args...)
		}
		return nil
	})
	return err
}

func (c *wordCache) GetPack(ctx context.Context, pack string) ([]string, error) {
	return c.client.LRange(ctx, c.packKey(pack), 0, -1).Result()
}

func (c *wordCache) SetGameWords(ctx context.Context, gameID string, words []string) error {
	return replaceList(ctx, c.client, c.gameKey(gameID), words, c.ttl)
}

func (c *wordCache) CurrentWord(ctx context.Context, gameID string) (string, error) {
	val, err := c.client.LIndex(ctx, c.gameKey(gameID), 0).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

func (c *wordCache) RotateGameWords(ctx context.Context, gameID string) (string, error) {
	key := c.gameKey(gameID)
	val, err := c.client.RPopLPush(ctx, key, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

func (c *wordCache) DeleteGameWords(ctx context.Context, gameID string) error {
	return c.client.Del(ctx, c.gameKey(gameID)).Err()
}
