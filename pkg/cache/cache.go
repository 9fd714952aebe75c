package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss 缓存未命中
var ErrCacheMiss = errors.New("cache: key not found")

// Cache 缓存接口
type Cache interface {
	// GetBytes 获取字节数组，未命中返回 ErrCacheMiss
	GetBytes(ctx context.Context, key string) ([]byte, error)

	// SetBytes 设置字节数组
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete 删除缓存，键不存在时不报错
	Delete(ctx context.Context, key string) error

	// Ping 检查连接
	Ping(ctx context.Context) error
}

// Options 缓存选项
type Options struct {
	// 默认过期时间
	DefaultTTL time.Duration

	// 键前缀
	KeyPrefix string
}
