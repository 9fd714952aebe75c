package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/sony/gobreaker"

	"numerologist/cmd/context-service/internal/conf"
	"numerologist/cmd/context-service/internal/domain"
	"numerologist/pkg/cache"
)

// contextKeyPrefix 上下文缓存键前缀，键形如 context:<user_id>
const contextKeyPrefix = "context:"

// ContextStore 上下文缓存实现，外层包一层熔断器，Redis 故障时快速失败
type ContextStore struct {
	cache cache.Cache
	cb    *gobreaker.CircuitBreaker
	log   *log.Helper
}

// NewContextStore 创建上下文缓存
func NewContextStore(c cache.Cache, rc *conf.ResilienceConfig, logger log.Logger) domain.ContextStore {
	helper := log.NewHelper(log.With(logger, "module", "data/context-store"))

	settings := gobreaker.Settings{
		Name:        "context-cache",
		MaxRequests: rc.MaxRequests,
		Interval:    rc.Interval,
		Timeout:     rc.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < rc.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= rc.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			helper.Warnf("circuit breaker %s: %s -> %s", name, from.String(), to.String())
		},
	}

	return &ContextStore{
		cache: c,
		cb:    gobreaker.NewCircuitBreaker(settings),
		log:   helper,
	}
}

// Get 读取缓存上下文
func (s *ContextStore) Get(ctx context.Context, userID string) (string, error) {
	result, err := s.cb.Execute(func() (interface{}, error) {
		data, err := s.cache.GetBytes(ctx, contextKey(userID))
		if errors.Is(err, cache.ErrCacheMiss) {
			// 未命中不计入熔断失败
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return string(data), nil
	})
	if err != nil {
		return "", fmt.Errorf("context cache get: %w", err)
	}
	if result == nil {
		return "", domain.ErrContextNotCached
	}
	return result.(string), nil
}

// Set 写入缓存上下文
func (s *ContextStore) Set(ctx context.Context, userID, value string, ttl time.Duration) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.cache.SetBytes(ctx, contextKey(userID), []byte(value), ttl)
	})
	if err != nil {
		return fmt.Errorf("context cache set: %w", err)
	}
	return nil
}

// Delete 删除缓存上下文，键不存在不报错
func (s *ContextStore) Delete(ctx context.Context, userID string) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.cache.Delete(ctx, contextKey(userID))
	})
	if err != nil {
		return fmt.Errorf("context cache delete: %w", err)
	}
	return nil
}

func contextKey(userID string) string {
	return contextKeyPrefix + userID
}
