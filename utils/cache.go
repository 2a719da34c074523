package utils

import (
	"context"
	"time"

	"advisorbot/config"

	"github.com/go-redis/redis/v8"
)

// CacheClient is the shared Redis client used for short-lived projections
// such as the slots endpoint. It is optional: when Redis is disabled the
// client stays nil and callers fall through to the engine.
var CacheClient *redis.Client

// InitCache initializes the Redis cache client if Redis is enabled.
func InitCache() {
	if !config.AppConfig.RedisEnabled {
		return
	}
	CacheClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisCacheDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := CacheClient.Ping(ctx).Result(); err != nil {
		GetLogger().Sugar().Warnf("Redis cache unavailable, continuing without it: %v", err)
		CacheClient = nil
	}
}

// GetCacheClient returns the shared cache client, or nil when disabled.
func GetCacheClient() *redis.Client {
	return CacheClient
}
