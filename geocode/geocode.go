// Package geocode turns coordinates into display addresses.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Placeholder is the address used when no real address can be resolved.
func Placeholder(lat, lng float64) string {
	return fmt.Sprintf("Location: %.6f, %.6f", lat, lng)
}

// PlaceholderResolver formats the coordinates themselves. It never fails.
type PlaceholderResolver struct{}

func (PlaceholderResolver) Resolve(_ context.Context, lat, lng float64) (string, error) {
	return Placeholder(lat, lng), nil
}

type Resolver interface {
	Resolve(ctx context.Context, lat, lng float64) (string, error)
}

// CachedResolver is a cache-aside wrapper backed by Redis for an upstream
// geocoding service. A nil client, or a next resolver that computes the
// address in-process, passes every lookup straight through.
type CachedResolver struct {
	next   Resolver
	client *redis.Client
	ttl    time.Duration
	prefix string
	log    zerolog.Logger
}

func NewCachedResolver(next Resolver, client *redis.Client, ttl time.Duration, log zerolog.Logger) *CachedResolver {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachedResolver{next: next, client: client, ttl: ttl, prefix: "geocode", log: log}
}

// inProcess reports resolvers that never leave the process, where a cache
// round trip costs more than the lookup itself.
func inProcess(r Resolver) bool {
	switch r.(type) {
	case PlaceholderResolver, *PlaceholderResolver:
		return true
	}
	return false
}

// cacheKey rounds to six decimals (about 10 cm) so nearby lookups share a key.
func (c *CachedResolver) cacheKey(lat, lng float64) string {
	return fmt.Sprintf("%s:%.6f:%.6f", c.prefix, lat, lng)
}

func (c *CachedResolver) Resolve(ctx context.Context, lat, lng float64) (string, error) {
	if c.client == nil || inProcess(c.next) {
		return c.next.Resolve(ctx, lat, lng)
	}

	key := c.cacheKey(lat, lng)
	cached, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		return cached, nil
	case !errors.Is(err, redis.Nil):
		c.log.Warn().Err(err).Str("key", key).Msg("geocode cache read failed")
	}

	address, err := c.next.Resolve(ctx, lat, lng)
	if err != nil {
		return "", err
	}
	if err := c.client.Set(ctx, key, address, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("geocode cache write failed")
	}
	return address, nil
}
