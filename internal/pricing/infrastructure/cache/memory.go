// Package cache 定价结果缓存的实现与后端选择
package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache 进程内 TTL 缓存
type MemoryCache struct {
	store *gocache.Cache
}

// NewMemoryCache 创建内存缓存，cleanup 为过期条目清理周期
func NewMemoryCache(defaultTTL, cleanup time.Duration) *MemoryCache {
	return &MemoryCache{store: gocache.New(defaultTTL, cleanup)}
}

// Get 读取缓存
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := c.store.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	return b, ok, nil
}

// Set 写入缓存；ttl 为 0 时使用默认有效期
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	// 复制一份，调用方可能复用切片
	buf := make([]byte, len(value))
	copy(buf, value)
	c.store.Set(key, buf, ttl)
	return nil
}

// Len 当前条目数（含未清理的过期条目）
func (c *MemoryCache) Len() int {
	return c.store.ItemCount()
}
