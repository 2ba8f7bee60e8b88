package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/playerstats-api/internal/config"
	"github.com/redis/go-redis/v9"
)

// Key prefixes per cache tier.
const (
	identityKeyPrefix     = "playerstats:identity:data:"
	usernameKeyPrefix     = "playerstats:identity:username:"
	hypixelPlayerPrefix   = "playerstats:hypixel:player:"
	hypixelGuildPrefix    = "playerstats:hypixel:guild:"
	playerGuildPrefix     = "playerstats:hypixel:player_guild:"
	wynncraftPlayerPrefix = "playerstats:wynncraft:player:"
)

// Cache provides the Redis-backed cache tiers for identities, guild rosters
// and provider stats snapshots.
type Cache struct {
	client *redis.Client
	cfg    *config.CacheConfig
	logger *slog.Logger
}

// NewCache connects to Redis and returns the cache service.
func NewCache(redisCfg *config.RedisConfig, cacheCfg *config.CacheConfig, logger *slog.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         redisCfg.Addr,
		Password:     redisCfg.Password,
		DB:           redisCfg.DB,
		PoolSize:     redisCfg.PoolSize,
		MinIdleConns: redisCfg.MinIdleConns,
		DialTimeout:  redisCfg.DialTimeout,
		ReadTimeout:  redisCfg.ReadTimeout,
		WriteTimeout: redisCfg.WriteTimeout,
	})

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &Cache{
		client: client,
		cfg:    cacheCfg,
		logger: logger,
	}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// Client returns the underlying Redis client
func (c *Cache) Client() *redis.Client {
	return c.client
}

// envelope is the stored form of every cached record: the payload with its
// provenance stripped, plus the time it entered the cache. CachedAt drives
// soft-TTL freshness checks; the Redis expiry drives the hard TTL.
type envelope[T any] struct {
	CachedAt int64 `json:"cached_at"`
	Data     T     `json:"data"`
}

// getEnvelope reads and decodes one enveloped record. A missing key and a
// corrupt payload both come back as a nil envelope, never an error: callers
// fall through to the origin fetch either way.
func getEnvelope[T any](ctx context.Context, c *Cache, key string) (*envelope[T], error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache key: %w", err)
	}

	var env envelope[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		c.logger.Warn("discarding corrupt cache payload", "key", key, "error", err)
		return nil, nil
	}
	return &env, nil
}

// decodeEnvelope decodes a raw stored value, returning nil for corrupt data.
// Shared by the multi-get path, where values arrive outside of a Get call.
func decodeEnvelope[T any](raw string) *envelope[T] {
	var env envelope[T]
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil
	}
	return &env
}

func marshalEnvelope[T any](data T) ([]byte, error) {
	return json.Marshal(envelope[T]{
		CachedAt: time.Now().Unix(),
		Data:     data,
	})
}

// fresh reports whether an envelope is inside the soft freshness window.
func (c *Cache) fresh(cachedAt int64, softTTL time.Duration) bool {
	return time.Since(time.Unix(cachedAt, 0)) < softTTL
}
