package config

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis returns a pinged Redis client, or nil when no address is
// configured. Callers treat a nil client as "Redis disabled".
func ConnectRedis(ctx context.Context, addr, password string) (*redis.Client, error) {
	if addr == "" {
		Logger.Warn().Msg("REDIS_ADDRESS not set; rate limiting and geocode caching disabled")
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	Logger.Info().Str("addr", addr).Msg("Connected to Redis")
	return client, nil
}
