package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
)

// RateLimiterConfig 限流配置
type RateLimiterConfig struct {
	RedisClient *redis.Client
	MaxRequests int           // 最大请求数
	Window      time.Duration // 时间窗口
	KeyPrefix   string        // Redis key前缀
	Logger      log.Logger
}

// RateLimiter 按用户固定窗口限流。Redis 不可用时放行
func RateLimiter(config RateLimiterConfig) gin.HandlerFunc {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "rate_limit"
	}
	if config.MaxRequests == 0 {
		config.MaxRequests = 100
	}
	if config.Window == 0 {
		config.Window = time.Minute
	}
	if config.Logger == nil {
		config.Logger = log.DefaultLogger
	}
	helper := log.NewHelper(log.With(config.Logger, "module", "rate-limiter"))

	return func(c *gin.Context) {
		subject, ok := GetUserID(c)
		if !ok {
			subject = c.ClientIP()
		}
		key := fmt.Sprintf("%s:%s", config.KeyPrefix, subject)
		ctx := c.Request.Context()

		count, err := config.RedisClient.Incr(ctx, key).Result()
		if err == nil && count == 1 {
			err = config.RedisClient.Expire(ctx, key, config.Window).Err()
		}
		if err != nil {
			helper.Warnf("rate limiter unavailable, allowing request: %v", err)
			c.Next()
			return
		}

		reset := time.Now().Add(config.Window).Unix()
		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", config.MaxRequests))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", reset))

		if count > int64(config.MaxRequests) {
			c.Header("X-RateLimit-Remaining", "0")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":        http.StatusTooManyRequests,
				"message":     "rate limit exceeded",
				"retry_after": config.Window.Seconds(),
			})
			return
		}

		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", config.MaxRequests-int(count)))
		c.Next()
	}
}
