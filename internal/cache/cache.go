package cache

import "time"

// DefaultTTL bounds how long live game state survives in Redis
const DefaultTTL = 24 * time.Hour

func ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultTTL
	}
	return ttl
}
