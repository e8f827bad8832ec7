package businessflow

import (
	"context"
	"errors"

	"github.com/amirphl/flashcall-auth/config"
	"github.com/amirphl/flashcall-auth/utils"
	"github.com/redis/go-redis/v9"
)

// LastSenderCache remembers which source number last called a phone so the next
// request can avoid reusing it. It is an optimization; misses fall back to the database.
type LastSenderCache interface {
	Get(ctx context.Context, userPhone string) (string, bool, error)
	Set(ctx context.Context, userPhone, sender string) error
}

type RedisLastSenderCache struct {
	rc          redis.UniversalClient
	cacheConfig config.CacheConfig
}

func NewRedisLastSenderCache(rc redis.UniversalClient, cacheConfig config.CacheConfig) *RedisLastSenderCache {
	return &RedisLastSenderCache{rc: rc, cacheConfig: cacheConfig}
}

func (c *RedisLastSenderCache) Get(ctx context.Context, userPhone string) (string, bool, error) {
	sender, err := c.rc.Get(ctx, redisKey(c.cacheConfig, utils.LastSenderKeyPrefix+userPhone)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return sender, sender != "", nil
}

func (c *RedisLastSenderCache) Set(ctx context.Context, userPhone, sender string) error {
	return c.rc.Set(ctx, redisKey(c.cacheConfig, utils.LastSenderKeyPrefix+userPhone), sender, utils.LastSenderCacheTTL).Err()
}

func redisKey(cfg config.CacheConfig, key string) string {
	return cfg.RedisPrefix + key
}
