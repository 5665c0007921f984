package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const publishTimeout = 2 * time.Second

// envelope is the relay wire format
type envelope struct {
	Channel string          `json:"channel"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// RedisRelay fans events out through Redis pub/sub so that every server
// instance delivers them to its own connections. It implements
// service.Notifier.
type RedisRelay struct {
	client  *redis.Client
	channel string
	hub     *Hub
}

// NewRedisRelay creates a relay publishing on the given Redis channel
func NewRedisRelay(client *redis.Client, channel string, hub *Hub) *RedisRelay {
	return &RedisRelay{
		client:  client,
		channel: channel,
		hub:     hub,
	}
}

// Publish sends the event to every instance, this one included
func (r *RedisRelay) Publish(channel, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("failed to encode payload")
		return
	}
	msg, err := json.Marshal(envelope{Channel: channel, Event: event, Payload: data})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("failed to encode envelope")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := r.client.Publish(ctx, r.channel, msg).Err(); err != nil {
		// Keep local subscribers served when Redis is unreachable
		log.Error().Err(err).Str("event", event).Msg("relay publish failed, delivering locally")
		r.hub.PublishRaw(channel, event, data)
	}
}

// Run subscribes to the relay channel and feeds the hub until ctx ends
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	log.Info().Str("channel", r.channel).Msg("event relay subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				log.Warn().Err(err).Msg("dropping malformed relay message")
				continue
			}
			r.hub.PublishRaw(env.Channel, env.Event, env.Payload)
		}
	}
}
