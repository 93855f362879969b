// Package config 提供 TOML 配置加载与环境变量覆盖
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 定价服务配置
type Config struct {
	// 服务名称
	ServiceName string `mapstructure:"service_name"`
	Version     string `mapstructure:"version"`
	// 环境：dev, staging, prod
	Environment string          `mapstructure:"environment"`
	HTTP        HTTPConfig      `mapstructure:"http"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Kafka       KafkaConfig     `mapstructure:"kafka"`
	Logger      LoggerConfig    `mapstructure:"logger"`
	Metrics     MetricsConfig   `mapstructure:"metrics"`
	RateLimit   RateLimitConfig `mapstructure:"ratelimit"`
	Cache       CacheConfig     `mapstructure:"cache"`
	Engine      EngineConfig    `mapstructure:"engine"`
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// gin 模式：debug, release, test
	Mode string `mapstructure:"mode"`
	// 读超时（秒）
	ReadTimeout int `mapstructure:"read_timeout"`
	// 写超时（秒）
	WriteTimeout int `mapstructure:"write_timeout"`
}

// Addr 监听地址
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// 最大连接数
	MaxPoolSize  int `mapstructure:"max_pool_size"`
	ConnTimeout  int `mapstructure:"conn_timeout"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	// 定价事件主题
	Topic string `mapstructure:"topic"`
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
	WithCaller bool   `mapstructure:"with_caller"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// 每秒请求数
	QPS   int `mapstructure:"qps"`
	Burst int `mapstructure:"burst"`
}

// CacheConfig 结果缓存配置
type CacheConfig struct {
	// 后端：memory, redis, none
	Backend string `mapstructure:"backend"`
	// 缓存有效期（秒）
	TTL int `mapstructure:"ttl"`
}

// TTLDuration 缓存有效期
func (c CacheConfig) TTLDuration() time.Duration {
	return time.Duration(c.TTL) * time.Second
}

// EngineConfig 定价引擎默认参数
type EngineConfig struct {
	BinomialSteps     int     `mapstructure:"binomial_steps"`
	MCPaths           int     `mapstructure:"mc_paths"`
	MCSeed            uint64  `mapstructure:"mc_seed"`
	MCAntithetic      bool    `mapstructure:"mc_antithetic"`
	MCWorkers         int     `mapstructure:"mc_workers"`
	HestonLimit       float64 `mapstructure:"heston_integration_limit"`
	HestonPanels      int     `mapstructure:"heston_panels"`
	JumpMaxTerms      int     `mapstructure:"jump_max_terms"`
	IVTolerance       float64 `mapstructure:"iv_tolerance"`
	IVMaxIterations   int     `mapstructure:"iv_max_iterations"`
	BatchConcurrency  int     `mapstructure:"batch_concurrency"`
	RequestTimeoutSec int     `mapstructure:"request_timeout"`
}

// Load 从 TOML 文件加载配置，文件不存在时使用默认值，支持 APP_ 前缀环境变量覆盖
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			if _, statErr := os.Stat(configPath); statErr == nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}
	if c.Environment == "" {
		c.Environment = "dev"
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTP.Port)
	}
	switch c.Cache.Backend {
	case "memory", "none":
	case "redis":
		if !c.Redis.Enabled {
			return fmt.Errorf("cache backend redis requires redis.enabled")
		}
	default:
		return fmt.Errorf("unknown cache backend: %q", c.Cache.Backend)
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return fmt.Errorf("kafka requires brokers and topic when enabled")
	}
	if c.Engine.MCAntithetic && c.Engine.MCPaths%2 != 0 {
		return fmt.Errorf("engine.mc_paths must be even when antithetic sampling is on")
	}
	return nil
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "pricing")
	v.SetDefault("version", "dev")
	v.SetDefault("environment", "dev")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.mode", "release")
	v.SetDefault("http.read_timeout", 30)
	v.SetDefault("http.write_timeout", 30)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.max_pool_size", 10)
	v.SetDefault("redis.conn_timeout", 5)
	v.SetDefault("redis.read_timeout", 3)
	v.SetDefault("redis.write_timeout", 3)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.topic", "pricing.events")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.file_path", "logs/pricing.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 10)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.with_caller", false)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("ratelimit.enabled", false)
	v.SetDefault("ratelimit.qps", 50)
	v.SetDefault("ratelimit.burst", 100)

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl", 60)

	v.SetDefault("engine.binomial_steps", 200)
	v.SetDefault("engine.mc_paths", 50000)
	v.SetDefault("engine.mc_seed", 42)
	v.SetDefault("engine.mc_antithetic", true)
	v.SetDefault("engine.mc_workers", 4)
	v.SetDefault("engine.heston_integration_limit", 200.0)
	v.SetDefault("engine.heston_panels", 40)
	v.SetDefault("engine.jump_max_terms", 50)
	v.SetDefault("engine.iv_tolerance", 1e-6)
	v.SetDefault("engine.iv_max_iterations", 100)
	v.SetDefault("engine.batch_concurrency", 8)
	v.SetDefault("engine.request_timeout", 10)
}

// GetEnv 获取环境变量，支持默认值
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
