package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/optionsrisk/pkg/config"
	"github.com/wyfcoding/optionsrisk/pkg/logger"
	"github.com/wyfcoding/optionsrisk/pkg/ratelimit"
)

// APIKeyHeader 调用方标识；缺失时按客户端 IP 计数
const APIKeyHeader = "X-API-Key"

// 探活与指标路径不计入限流
var rateLimitExempt = []string{"/health", "/sys/", "/metrics"}

func rateLimitKey(c *gin.Context) string {
	if k := strings.TrimSpace(c.GetHeader(APIKeyHeader)); k != "" {
		return "ratelimit:key:" + k
	}
	return "ratelimit:ip:" + c.ClientIP()
}

func exempt(path string) bool {
	for _, p := range rateLimitExempt {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func ceilSeconds(d time.Duration) int64 {
	return int64((d + time.Second - 1) / time.Second)
}

// RateLimitMiddleware 按 API Key 或客户端 IP 限流，限流器故障时放行
func RateLimitMiddleware(limiter ratelimit.RateLimiter, cfg config.RateLimitConfig) gin.HandlerFunc {
	limit := ratelimit.PerSecond(cfg.QPS, cfg.Burst)
	return func(c *gin.Context) {
		if !cfg.Enabled || exempt(c.Request.URL.Path) {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		res, err := limiter.Allow(ctx, rateLimitKey(c), limit)
		if err != nil {
			logger.Warn(ctx, "rate limiter unavailable", "error", err)
			c.Next()
			return
		}

		h := c.Writer.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(limit.Burst))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(ceilSeconds(res.ResetAfter), 10))
		if res.Allowed {
			c.Next()
			return
		}

		h.Set("Retry-After", strconv.FormatInt(ceilSeconds(res.RetryAfter), 10))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"code":       http.StatusTooManyRequests,
			"message":    "too many requests",
			"request_id": c.GetString(RequestIDKey),
		})
	}
}
