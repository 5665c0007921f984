package cache

import (
	"aliasgame/internal/model"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// RoundCache handles Redis operations for the guesses of each round,
// partitioned by team
type RoundCache interface {
	AppendGuess(ctx context.Context, gameID string, round int, teamID string, guess *model.Guess) error
	GetGuess(ctx context.Context, gameID string, round int, teamID, guessID string) (*model.Guess, error)
	UpdateGuess(ctx context.Context, gameID string, round int, teamID string, guess *model.Guess) error
	GetRoundGuesses(ctx context.Context, gameID string, round int, teamID string) ([]model.Guess, error)
}

type roundCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRoundCache creates a new round cache
func NewRoundCache(client *redis.Client, ttl time.Duration) RoundCache {
	return &roundCache{
		client: client,
		ttl:    ttlOrDefault(ttl),
	}
}

func (c *roundCache) key(gameID string, round int, teamID string) string {
	return fmt.Sprintf("game:%s:round:%d:team:%s", gameID, round, teamID)
}

func (c *roundCache) AppendGuess(ctx context.Context, gameID string, round int, teamID string, guess *model.Guess) error {
	data, err := json.Marshal(guess)
	if err != nil {
		return err
	}
	key := c.key(gameID, round, teamID)
	ok, err := c.client.HSetNX(ctx, key, guess.ID, data).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("guess %s already recorded", guess.ID)
	}
	return c.client.Expire(ctx, key, c.ttl).Err()
}

func (c *roundCache) GetGuess(ctx context.Context, gameID string, round int, teamID, guessID string) (*model.Guess, error) {
	data, err := c.client.HGet(ctx, c.key(gameID, round, teamID), guessID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var guess model.Guess
	if err := json.Unmarshal([]byte(data), &guess); err != nil {
		return nil, err
	}
	return &guess, nil
}

func (c *roundCache) UpdateGuess(ctx context.Context, gameID string, round int, teamID string, guess *model.Guess) error {
	data, err := json.Marshal(guess)
	if err != nil {
		return err
	}
	return c.client.HSet(ctx, c.key(gameID, round, teamID), guess.ID, data).Err()
}

// GetRoundGuesses returns the guesses in the order they were recorded
func (c *roundCache) GetRoundGuesses(ctx context.Context, gameID string, round int, teamID string) ([]model.Guess, error) {
	data, err := c.client.HGetAll(ctx, c.key(gameID, round, teamID)).Result()
	if err != nil {
		return nil, err
	}
	guesses := make([]model.Guess, 0, len(data))
	for _, jsonStr := range data {
		var g model.Guess
		if err := json.Unmarshal([]byte(jsonStr), &g); err != nil {
			continue
		}
		guesses = append(guesses, g)
	}
	sort.Slice(guesses, func(i, j int) bool {
		if guesses[i].CreateTime.Equal(guesses[j].CreateTime) {
			return guesses[i].ID < guesses[j].ID
		}
		return guesses[i].CreateTime.Before(guesses[j].CreateTime)
	})
	return guesses, nil
}
