package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/wyfcoding/optionsrisk/internal/pricing/application"
	"github.com/wyfcoding/optionsrisk/internal/pricing/domain"
	resultcache "github.com/wyfcoding/optionsrisk/internal/pricing/infrastructure/cache"
	"github.com/wyfcoding/optionsrisk/internal/pricing/infrastructure/marketdata"
	"github.com/wyfcoding/optionsrisk/internal/pricing/infrastructure/messaging"
	httphandler "github.com/wyfcoding/optionsrisk/internal/pricing/interfaces/http"
	"github.com/wyfcoding/optionsrisk/pkg/cache"
	"github.com/wyfcoding/optionsrisk/pkg/config"
	"github.com/wyfcoding/optionsrisk/pkg/logger"
	"github.com/wyfcoding/optionsrisk/pkg/metrics"
	"github.com/wyfcoding/optionsrisk/pkg/middleware"
	"github.com/wyfcoding/optionsrisk/pkg/mq"
	"github.com/wyfcoding/optionsrisk/pkg/ratelimit"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func main() {
	var configPath, chainPath string
	flag.StringVar(&configPath, "config", "configs/pricing.toml", "path to config file")
	flag.StringVar(&chainPath, "chain", "", "optional option chain snapshot (csv) used by /chain/smile")
	flag.Parse()

	if err := run(configPath, chainPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath, chainPath string) error {
	// .env 不存在时忽略
	_ = godotenv.Load()

	// 1. Config
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// 2. Logger
	if err := logger.Init(loggerConfig(cfg.Logger)); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	logger.Info(ctx, "starting pricing service", "version", cfg.Version, "environment", cfg.Environment)

	// 3. Infrastructure
	m := metrics.New(cfg.ServiceName)
	var opts []application.Option
	opts = append(opts, application.WithMetrics(m))

	var redisCache *cache.RedisCache
	if cfg.Redis.Enabled {
		redisCache, err = cache.New(ctx, cfg.Redis, resultcache.KeyPrefix)
		if err != nil {
			return err
		}
		defer redisCache.Close()
	}
	rc, err := resultcache.New(cfg.Cache, redisCache)
	if err != nil {
		return err
	}
	if rc != nil {
		opts = append(opts, application.WithCache(rc))
	}

	if cfg.Kafka.Enabled {
		producer, err := mq.NewProducer(ctx, cfg.Kafka)
		if err != nil {
			return err
		}
		defer producer.Close()
		opts = append(opts, application.WithPublisher(messaging.NewKafkaEventPublisher(producer, cfg.ServiceName)))
	}

	if chainPath != "" {
		opts = append(opts, application.WithChainProvider(marketdata.NewCSVChainProvider(chainPath, time.Now)))
	}

	// 4. Application
	svc := application.NewPricingService(application.ConfigFrom(cfg), opts...)

	// 5. Interfaces
	gin.SetMode(cfg.HTTP.Mode)
	r := gin.New()
	r.Use(
		middleware.GinLoggingMiddleware(),
		middleware.GinRecoveryMiddleware(),
		middleware.GinCORSMiddleware(),
		middleware.GinMetricsMiddleware(m),
	)
	if cfg.RateLimit.Enabled {
		var limiter ratelimit.RateLimiter = ratelimit.NewLocalRateLimiter()
		if redisCache != nil {
			limiter = ratelimit.NewRedisRateLimiter(redisCache.Client())
		}
		r.Use(middleware.RateLimitMiddleware(limiter, cfg.RateLimit))
	}

	sys := r.Group("/sys")
	{
		sys.GET("/health", health(cfg))
		sys.GET("/ready", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "READY"}) })
	}
	r.GET("/health", health(cfg))
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(m.Handler()))
	}
	httphandler.NewPricingHandler(svc).RegisterRoutes(r)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	// 6. Start
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info(gctx, "HTTP server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// 7. Graceful Shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Info(context.Background(), "shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error(context.Background(), "server exited with error", "error", err)
		return err
	}
	return nil
}

func health(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"service":   cfg.ServiceName,
			"version":   cfg.Version,
			"models":    []domain.ModelKind{domain.ModelBlackScholes, domain.ModelBinomial, domain.ModelMonteCarlo, domain.ModelHeston, domain.ModelJumpDiffusion},
			"timestamp": time.Now().Unix(),
		})
	}
}

func loggerConfig(c config.LoggerConfig) logger.Config {
	return logger.Config{
		Level:      c.Level,
		Format:     c.Format,
		Output:     c.Output,
		FilePath:   c.FilePath,
		MaxSize:    c.MaxSize,
		MaxBackups: c.MaxBackups,
		MaxAge:     c.MaxAge,
		Compress:   c.Compress,
		WithCaller: c.WithCaller,
	}
}
