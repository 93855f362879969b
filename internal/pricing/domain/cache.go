package domain

import (
	"context"
	"time"
)

// ResultCache 外部注入的带 TTL 键值缓存
// 缓存只是优化，引擎的正确性不依赖它是否存在
type ResultCache interface {
	// Get 未命中时返回 ok=false 且 err=nil
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// ChainProvider 期权链快照来源（只读）
type ChainProvider interface {
	LoadChain(ctx context.Context) ([]ChainQuote, error)
}
