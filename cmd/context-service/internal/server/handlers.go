package server

import (
	"github.com/gin-gonic/gin"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"

	"numerologist/cmd/context-service/internal/conf"
	"numerologist/pkg/auth"
	"numerologist/pkg/middleware"
)

// AuthHandler 解析调用方身份的中间件
type AuthHandler gin.HandlerFunc

// RateLimitHandler 限流中间件，nil 表示不限流
type RateLimitHandler gin.HandlerFunc

// NewAuthHandler 启用认证时校验 JWT，否则信任 X-User-ID 头（仅本地开发）
func NewAuthHandler(c *conf.AuthConfig, logger log.Logger) AuthHandler {
	if !c.Enabled {
		log.NewHelper(logger).Warn("auth disabled, trusting X-User-ID header")
		return AuthHandler(middleware.HeaderAuthMiddleware())
	}
	return AuthHandler(middleware.AuthMiddleware(auth.NewJWTManager(c.JWTSecret, 0)))
}

// NewRateLimitHandler 按配置创建限流中间件
func NewRateLimitHandler(c *conf.RateLimitConfig, rdb *redis.Client, logger log.Logger) RateLimitHandler {
	if !c.Enabled {
		return nil
	}
	return RateLimitHandler(middleware.RateLimiter(middleware.RateLimiterConfig{
		RedisClient: rdb,
		MaxRequests: c.MaxRequests,
		Window:      c.Window,
		KeyPrefix:   "context_rate_limit",
		Logger:      logger,
	}))
}
