package cache

import (
	"fmt"
	"time"

	"github.com/wyfcoding/optionsrisk/internal/pricing/domain"
	pkgcache "github.com/wyfcoding/optionsrisk/pkg/cache"
	"github.com/wyfcoding/optionsrisk/pkg/config"
)

// 缓存后端
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendNone   = "none"
)

// KeyPrefix Redis 中定价结果的键前缀
const KeyPrefix = "optionsrisk:pricing:"

// New 按配置选择结果缓存；BackendNone 返回 nil，应用层据此跳过缓存
func New(cfg config.CacheConfig, redis *pkgcache.RedisCache) (domain.ResultCache, error) {
	switch cfg.Backend {
	case BackendNone:
		return nil, nil
	case "", BackendMemory:
		ttl := cfg.TTLDuration()
		return NewMemoryCache(ttl, max(2*ttl, time.Minute)), nil
	case BackendRedis:
		if redis == nil {
			return nil, fmt.Errorf("cache backend redis requires a redis connection")
		}
		return redis, nil
	}
	return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
}
