package data

import (
	"context"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"

	"numerologist/cmd/context-service/internal/conf"
	"numerologist/pkg/cache"
)

// NewRedisClient 创建 Redis 客户端。启动时 Redis 不可达只告警，上下文读取会退化为直接计算
func NewRedisClient(c *conf.RedisConfig, logger log.Logger) (*redis.Client, func(), error) {
	helper := log.NewHelper(log.With(logger, "module", "data/redis"))
	client := cache.NewRedisClient(&cache.RedisConfig{
		Addr:         c.Addr,
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		helper.Warnf("redis %s not reachable at startup: %v", c.Addr, err)
	}

	cleanup := func() {
		if err := client.Close(); err != nil {
			helper.Errorf("failed to close redis: %v", err)
		}
	}
	return client, cleanup, nil
}

// NewCache 基于 Redis 客户端创建缓存
func NewCache(client *redis.Client, c *conf.ContextConfig) cache.Cache {
	return cache.NewRedisCache(client, &cache.Options{DefaultTTL: c.CacheTTL})
}
