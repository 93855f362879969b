// Package ratelimit 提供分布式与本地限流器
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

// RateLimiter 限流器接口
type RateLimiter interface {
	// Allow 判断 key 在给定规则下是否放行
	Allow(ctx context.Context, key string, limit Limit) (*Result, error)
}

// Limit 限流规则
type Limit struct {
	Rate   int
	Period time.Duration
	Burst  int
}

// PerSecond 每秒 rate 个请求，突发 burst
func PerSecond(rate, burst int) Limit {
	return Limit{Rate: rate, Period: time.Second, Burst: burst}
}

// Result 限流结果
type Result struct {
	Allowed    bool
	Remaining  int
	ResetAfter time.Duration
	RetryAfter time.Duration
}

// RedisRateLimiter 基于 Redis GCRA 的限流器
type RedisRateLimiter struct {
	limiter *redis_rate.Limiter
}

// NewRedisRateLimiter 创建 Redis 限流器
func NewRedisRateLimiter(rdb *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{
		limiter: redis_rate.NewLimiter(rdb),
	}
}

// Allow 判断是否放行
func (r *RedisRateLimiter) Allow(ctx context.Context, key string, limit Limit) (*Result, error) {
	res, err := r.limiter.Allow(ctx, key, redis_rate.Limit{
		Rate:   limit.Rate,
		Period: limit.Period,
		Burst:  limit.Burst,
	})
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}

	return &Result{
		Allowed:    res.Allowed > 0,
		Remaining:  res.Remaining,
		ResetAfter: res.ResetAfter,
		RetryAfter: res.RetryAfter,
	}, nil
}

// LocalRateLimiter 进程内令牌桶限流器，每个 key 一个桶
type LocalRateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	tokens     float64
	lastRefill time.Time
}

// NewLocalRateLimiter 创建本地限流器
func NewLocalRateLimiter() *LocalRateLimiter {
	return &LocalRateLimiter{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Allow 判断是否放行
func (l *LocalRateLimiter) Allow(_ context.Context, key string, limit Limit) (*Result, error) {
	if limit.Rate <= 0 || limit.Period <= 0 {
		return nil, fmt.Errorf("invalid rate limit: rate=%d period=%s", limit.Rate, limit.Period)
	}
	burst := float64(limit.Burst)
	if burst < 1 {
		burst = 1
	}
	refill := float64(limit.Rate) / limit.Period.Seconds()

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: burst, lastRefill: now}
		l.buckets[key] = b
	}
	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens = math.Min(burst, b.tokens+elapsed*refill)
	b.lastRefill = now

	res := &Result{}
	if b.tokens >= 1 {
		b.tokens--
		res.Allowed = true
		res.RetryAfter = -1
	} else {
		res.RetryAfter = time.Duration((1 - b.tokens) / refill * float64(time.Second))
	}
	res.Remaining = int(b.tokens)
	res.ResetAfter = time.Duration((burst - b.tokens) / refill * float64(time.Second))
	return res, nil
}
