package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	Retry     RetryConfig     `mapstructure:"retry"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Store     StoreConfig     `mapstructure:"store"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"`
}

// UpstreamConfig describes the OpenAI-compatible backend being proxied to.
type UpstreamConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`

	// bounds connection establishment and each unary call / chunk pull
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	MaxConnections     int `mapstructure:"max_connections"`
	MaxIdleConnections int `mapstructure:"max_idle_connections"`
}

// RetryConfig holds the backoff tunables so they can be changed without
// touching retry logic.
type RetryConfig struct {
	MaxRetries   int           `mapstructure:"max_retries"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	Multiplier   float64       `mapstructure:"multiplier"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Backend string        `mapstructure:"backend"` // "memory" or "redis"
	TTL     time.Duration `mapstructure:"ttl"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig() (*Config, error) {
	// Load .env file if present
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if file := os.Getenv("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
	}

	// Default Values
	v.SetDefault("server.port", "11434")
	v.SetDefault("server.env", "development")
	v.SetDefault("upstream.base_url", "https://api.openai.com/v1")
	v.SetDefault("upstream.api_key", "ENV:OPENAI_API_KEY")
	v.SetDefault("upstream.request_timeout", 300*time.Second)
	v.SetDefault("upstream.max_connections", 100)
	v.SetDefault("upstream.max_idle_connections", 20)
	v.SetDefault("retry.max_retries", 3)
	v.SetDefault("retry.initial_delay", time.Second)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.max_delay", 30*time.Second)
	v.SetDefault("rate_limit.requests_per_second", 10.0)
	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl", 60*time.Second)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("store.enabled", true)
	v.SetDefault("store.dsn", "file:proxy.db?cache=shared&mode=rwc&_journal_mode=WAL&_busy_timeout=5000")

	// Environment Variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	// Resolve the upstream API key
	if strings.HasPrefix(cfg.Upstream.APIKey, "ENV:") {
		envVar := strings.TrimPrefix(cfg.Upstream.APIKey, "ENV:")
		// Check process environment first (explicit override)
		val := os.Getenv(envVar)
		if val == "" {
			// Then check viper (which might have it from other sources)
			val = v.GetString(envVar)
		}
		cfg.Upstream.APIKey = val
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate enforces the settings the proxy cannot run without.
func (c *Config) Validate() error {
	if c.Upstream.APIKey == "" {
		return fmt.Errorf("upstream API key is required: set OPENAI_API_KEY or upstream.api_key")
	}
	if !strings.HasPrefix(c.Upstream.BaseURL, "http://") && !strings.HasPrefix(c.Upstream.BaseURL, "https://") {
		return fmt.Errorf("upstream base URL must start with http:// or https://")
	}
	c.Upstream.BaseURL = strings.TrimRight(c.Upstream.BaseURL, "/")
	if c.Upstream.RequestTimeout <= 0 {
		return fmt.Errorf("upstream request timeout must be positive")
	}
	if c.Cache.Backend != "memory" && c.Cache.Backend != "redis" {
		return fmt.Errorf("cache backend must be memory or redis, got %q", c.Cache.Backend)
	}
	return nil
}
