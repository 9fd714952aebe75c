package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"numerologist/pkg/cache"
	"numerologist/pkg/health"
)

// NewHealthChecker 注册数据库和缓存检查。缓存故障只降级，上下文会直接计算
func NewHealthChecker(db *gorm.DB, c cache.Cache) *health.HealthChecker {
	checker := health.NewHealthChecker(5 * time.Second)
	checker.Register(health.NewPingChecker("database", func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}, true, time.Second))
	checker.Register(newCacheCheck(c))
	return checker
}

func newCacheCheck(c cache.Cache) health.Checker {
	return health.NewPingChecker("redis", c.Ping, false, 500*time.Millisecond)
}

// healthHandler 存活检查（K8s liveness）
func (s *HTTPServer) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    health.StatusHealthy,
		"timestamp": time.Now().Unix(),
	})
}

// readinessHandler 就绪检查（K8s readiness），degraded 仍视为就绪
func (s *HTTPServer) readinessHandler(c *gin.Context) {
	results := s.checker.Check(c.Request.Context())
	status := health.Overall(results)

	code := http.StatusOK
	if status == health.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":       status,
		"timestamp":    time.Now().Unix(),
		"dependencies": results,
	})
}
