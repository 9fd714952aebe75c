package conf

import (
	"fmt"
	"time"

	"numerologist/pkg/config"
)

// ServiceName 服务名，用作 Nacos DataID
const ServiceName = "context-service"

// Config 应用配置
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Context       ContextConfig       `mapstructure:"context"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Auth          AuthConfig          `mapstructure:"auth"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
	Resilience    ResilienceConfig    `mapstructure:"resilience"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTPPort        int           `mapstructure:"http_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	DBName          string        `mapstructure:"dbname"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// ContextConfig 上下文组装配置
type ContextConfig struct {
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	HistoryLimit int           `mapstructure:"history_limit"`
	MaxTokens    int           `mapstructure:"max_tokens"`
	Model        string        `mapstructure:"model"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

// AuthConfig 认证配置
type AuthConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
}

// ResilienceConfig 缓存熔断配置
type ResilienceConfig struct {
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	ServiceVersion string  `mapstructure:"service_version"`
	Environment    string  `mapstructure:"environment"`
	OTELEndpoint   string  `mapstructure:"otel_endpoint"`
	EnableTrace    bool    `mapstructure:"enable_trace"`
	SamplingRate   float64 `mapstructure:"sampling_rate"`
	LogLevel       string  `mapstructure:"log_level"`
	LogFormat      string  `mapstructure:"log_format"`
}

// SetDefaults 注册默认值，环境变量按 key 自动覆盖（如 CONTEXT_MAX_TOKENS）
func SetDefaults(m *config.Manager) {
	m.SetDefault("server.http_port", 8080)
	m.SetDefault("server.read_timeout", 10*time.Second)
	m.SetDefault("server.write_timeout", 10*time.Second)
	m.SetDefault("server.shutdown_timeout", 10*time.Second)

	m.SetDefault("database.host", "localhost")
	m.SetDefault("database.port", 5432)
	m.SetDefault("database.dbname", "numerologist")
	m.SetDefault("database.user", "postgres")
	m.SetDefault("database.password", "")
	m.SetDefault("database.sslmode", "disable")
	m.SetDefault("database.max_open_conns", 15)
	m.SetDefault("database.max_idle_conns", 5)
	m.SetDefault("database.conn_max_lifetime", time.Hour)
	m.SetDefault("database.auto_migrate", true)

	m.SetDefault("redis.addr", "localhost:6379")
	m.SetDefault("redis.password", "")
	m.SetDefault("redis.db", 0)
	m.SetDefault("redis.pool_size", 10)
	m.SetDefault("redis.dial_timeout", 2*time.Second)
	m.SetDefault("redis.read_timeout", time.Second)
	m.SetDefault("redis.write_timeout", time.Second)

	m.SetDefault("context.cache_ttl", 30*time.Minute)
	m.SetDefault("context.history_limit", 5)
	m.SetDefault("context.max_tokens", 500)
	m.SetDefault("context.model", "gpt-4o")
	m.SetDefault("context.timeout", 3*time.Second)

	m.SetDefault("kafka.enabled", false)
	m.SetDefault("kafka.brokers", []string{"localhost:9092"})
	m.SetDefault("kafka.topic", "conversation.events")
	m.SetDefault("kafka.group_id", "context-service")

	m.SetDefault("auth.enabled", false)
	m.SetDefault("auth.jwt_secret", "")

	m.SetDefault("rate_limit.enabled", false)
	m.SetDefault("rate_limit.max_requests", 120)
	m.SetDefault("rate_limit.window", time.Minute)

	m.SetDefault("resilience.max_requests", 3)
	m.SetDefault("resilience.interval", time.Minute)
	m.SetDefault("resilience.timeout", 30*time.Second)
	m.SetDefault("resilience.failure_ratio", 0.6)
	m.SetDefault("resilience.min_requests", 5)

	m.SetDefault("observability.service_version", "1.0.0")
	m.SetDefault("observability.environment", "development")
	m.SetDefault("observability.otel_endpoint", "localhost:4317")
	m.SetDefault("observability.enable_trace", false)
	m.SetDefault("observability.sampling_rate", 1.0)
	m.SetDefault("observability.log_level", "info")
	m.SetDefault("observability.log_format", "json")
}

// Load 加载配置：默认值 < 配置文件（本地或 Nacos）< 环境变量
func Load(configPath string) (*Config, *config.Manager, error) {
	m := config.NewManager()
	SetDefaults(m)

	if err := m.LoadConfig(configPath, ServiceName); err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	var c Config
	if err := m.Unmarshal(&c); err != nil {
		return nil, nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// 从环境变量覆盖敏感配置
	c.Database.Password = config.GetEnv("DB_PASSWORD", c.Database.Password)
	c.Redis.Password = config.GetEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Auth.JWTSecret = config.GetEnv("JWT_SECRET", c.Auth.JWTSecret)

	if err := c.Validate(); err != nil {
		return nil, nil, err
	}
	return &c, m, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Context.MaxTokens < 0 {
		return fmt.Errorf("context.max_tokens must be >= 0, got %d", c.Context.MaxTokens)
	}
	if c.Context.HistoryLimit <= 0 {
		return fmt.Errorf("context.history_limit must be > 0, got %d", c.Context.HistoryLimit)
	}
	if c.Context.CacheTTL <= 0 {
		return fmt.Errorf("context.cache_ttl must be > 0")
	}
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required when auth is enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka is enabled")
	}
	return nil
}
