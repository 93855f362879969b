// Package utils 通用工具函数
package utils

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// HashKey 以 prefix 加上 v 的 JSON 摘要构造缓存键
func HashKey(prefix string, v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("hash key: %w", err)
	}
	sum := sha256.Sum256(data)
	return prefix + ":" + hex.EncodeToString(sum[:]), nil
}

// RetryWithBackoff 带指数退避的重试，ctx 取消时立即返回
func RetryWithBackoff(ctx context.Context, maxAttempts int, initialDelay, maxDelay time.Duration, fn func() error) error {
	var lastErr error
	delay := initialDelay

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if attempt == maxAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * 1.5)
		if delay > maxDelay {
			delay = maxDelay
		}
	}
	return lastErr
}

// Round 按十进制四舍五入到 places 位，避免二进制浮点的展示误差
// NaN 与 ±Inf 原样返回
func Round(f float64, places int32) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return f
	}
	v, _ := decimal.NewFromFloat(f).Round(places).Float64()
	return v
}

// RoundPtr 对可空值四舍五入
func RoundPtr(f *float64, places int32) *float64 {
	if f == nil {
		return nil
	}
	v := Round(*f, places)
	return &v
}
