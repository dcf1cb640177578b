// Package config loads proxy configuration from the environment with an
// optional config.yaml overlay.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full proxy configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// UpstreamConfig configures the third-party provider client.
type UpstreamConfig struct {
	// APIKey may be empty; its absence is logged at startup and shows
	// up later as upstream call failures, not as a crash.
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// CacheConfig selects and configures the cache backend.
type CacheConfig struct {
	// Backend is one of "memory", "redis", "postgres".
	Backend     string `mapstructure:"backend"`
	RedisAddr   string `mapstructure:"redis_addr"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format"` // "json" or "console"
}

// Load reads configuration from environment variables (SERVER_PORT,
// UPSTREAM_API_KEY, CACHE_BACKEND, ...) over an optional config.yaml.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", "8080")
	v.SetDefault("upstream.api_key", "")
	v.SetDefault("upstream.base_url", "https://finnhub.io/api/v1")
	v.SetDefault("upstream.timeout", 10*time.Second)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.postgres_dsn", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetConfigName("config") // config.yaml
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Support environment variables with dot notation (e.g., UPSTREAM_API_KEY)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// No config file is fine; everything has env coverage.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}
