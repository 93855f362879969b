// Package application 定价服务的应用层：命令编排、缓存、事件与指标
package application

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/wyfcoding/optionsrisk/internal/pricing/domain"
	"github.com/wyfcoding/optionsrisk/pkg/config"
	"github.com/wyfcoding/optionsrisk/pkg/logger"
	"github.com/wyfcoding/optionsrisk/pkg/metrics"
	"github.com/wyfcoding/optionsrisk/pkg/utils"
)

// Config 应用服务配置
type Config struct {
	Engine config.EngineConfig
	// CacheTTL 为 0 时不写缓存
	CacheTTL time.Duration
	// RequestTimeout 单次定价的超时，0 表示不限制
	RequestTimeout time.Duration
	// BatchConcurrency 批量定价的并发上限
	BatchConcurrency int
}

// ConfigFrom 从全局配置构造应用配置
func ConfigFrom(cfg *config.Config) Config {
	ttl := cfg.Cache.TTLDuration()
	if cfg.Cache.Backend == "none" {
		ttl = 0
	}
	return Config{
		Engine:           cfg.Engine,
		CacheTTL:         ttl,
		RequestTimeout:   time.Duration(cfg.Engine.RequestTimeoutSec) * time.Second,
		BatchConcurrency: cfg.Engine.BatchConcurrency,
	}
}

// Option 可选依赖
type Option func(*PricingService)

// WithCache 注入结果缓存
func WithCache(c domain.ResultCache) Option {
	return func(s *PricingService) { s.cache = c }
}

// WithPublisher 注入事件发布者
func WithPublisher(p domain.EventPublisher) Option {
	return func(s *PricingService) { s.publisher = p }
}

// WithChainProvider 注入期权链来源
func WithChainProvider(p domain.ChainProvider) Option {
	return func(s *PricingService) { s.chains = p }
}

// WithMetrics 注入指标收集器
func WithMetrics(m metrics.Collector) Option {
	return func(s *PricingService) { s.metrics = m }
}

// WithClock 替换时钟，测试使用
func WithClock(now func() time.Time) Option {
	return func(s *PricingService) { s.now = now }
}

// PricingService 定价应用服务
// 缓存、事件与指标都是可选的，缺失时定价结果不受影响
type PricingService struct {
	cfg       Config
	models    ModelFactory
	cache     domain.ResultCache
	publisher domain.EventPublisher
	chains    domain.ChainProvider
	metrics   metrics.Collector
	now       func() time.Time
}

// NewPricingService 创建定价服务
func NewPricingService(cfg Config, opts ...Option) *PricingService {
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = 8
	}
	s := &PricingService{
		cfg:     cfg,
		models:  NewModelFactory(cfg.Engine),
		metrics: metrics.NopCollector{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PricingService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.RequestTimeout > 0 {
		return context.WithTimeout(ctx, s.cfg.RequestTimeout)
	}
	return context.WithCancel(ctx)
}

// loadCached 读取缓存；缓存故障只记录日志
func (s *PricingService) loadCached(ctx context.Context, key string, dest any) bool {
	if s.cache == nil || s.cfg.CacheTTL <= 0 {
		return false
	}
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		logger.Warn(ctx, "result cache get failed", "key", key, "error", err)
		return false
	}
	if ok {
		if err := json.Unmarshal(data, dest); err != nil {
			logger.Warn(ctx, "result cache entry corrupted", "key", key, "error", err)
			ok = false
		}
	}
	s.metrics.RecordCache(ok)
	return ok
}

func (s *PricingService) storeCached(ctx context.Context, key string, v any) {
	if s.cache == nil || s.cfg.CacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		logger.Warn(ctx, "result cache encode failed", "key", key, "error", err)
		return
	}
	if err := s.cache.Set(ctx, key, data, s.cfg.CacheTTL); err != nil {
		logger.Warn(ctx, "result cache set failed", "key", key, "error", err)
	}
}

// fail 记录定价失败：日志、指标与错误事件
func (s *PricingService) fail(ctx context.Context, operation string, err error) error {
	kind := domain.KindName(err)
	attrs := []any{"operation", operation, "kind", kind, "error", err}
	if pe, ok := domain.AsPricingError(err); ok && len(pe.Inputs) > 0 {
		attrs = append(attrs, slog.Any("inputs", pe.Inputs))
	}
	if errors.Is(err, domain.ErrInvalidInput) {
		logger.Warn(ctx, "pricing request rejected", attrs...)
	} else {
		logger.Error(ctx, "pricing failed", attrs...)
	}
	s.metrics.RecordPricingError(kind)

	if s.publisher != nil {
		evt := domain.PricingErrorEvent{
			EventID:    uuid.NewString(),
			Operation:  operation,
			Kind:       kind,
			Message:    err.Error(),
			OccurredOn: s.now(),
		}
		if pe, ok := domain.AsPricingError(err); ok {
			evt.Message = pe.Msg
			evt.Inputs = pe.Inputs
		}
		s.publish(ctx, domain.PricingErrorEventType, func(ctx context.Context) error {
			return s.publisher.PublishPricingError(ctx, evt)
		})
	}
	return err
}

// publish 发布事件；失败不影响请求结果
func (s *PricingService) publish(ctx context.Context, eventType string, fn func(context.Context) error) {
	if s.publisher == nil {
		return
	}
	if err := fn(ctx); err != nil {
		logger.Warn(ctx, "event publish failed", "event_type", eventType, "error", err)
	}
}

func round(f float64, places int32) float64 {
	return utils.Round(f, places)
}

func roundPtr(f *float64, places int32) *float64 {
	return utils.RoundPtr(f, places)
}

func invalid(op, msg string, inputs map[string]any) error {
	return &domain.PricingError{Kind: domain.ErrInvalidInput, Op: op, Msg: msg, Inputs: inputs}
}

func notApplicable(op, msg string, inputs map[string]any) error {
	return &domain.PricingError{Kind: domain.ErrModelNotApplicable, Op: op, Msg: msg, Inputs: inputs}
}
