package main

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/wealthdesk/market-proxy/pkg/cache"
	"github.com/wealthdesk/market-proxy/pkg/config"
	"github.com/wealthdesk/market-proxy/pkg/logging"
	"github.com/wealthdesk/market-proxy/pkg/resolver"
	"github.com/wealthdesk/market-proxy/pkg/server"
	"github.com/wealthdesk/market-proxy/pkg/upstream"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLogger := logging.Setup(logging.DefaultConfig())
		fallbackLogger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Log.Level),
		Pretty: cfg.Log.Format == "console",
	})

	store := buildStore(cfg.Cache, logger)

	upstreamClient := upstream.New(upstream.Config{
		APIKey:  cfg.Upstream.APIKey,
		BaseURL: cfg.Upstream.BaseURL,
		Timeout: cfg.Upstream.Timeout,
	})

	res := resolver.New(store, upstreamClient)
	srv := server.New(res)

	addr := ":" + cfg.Server.Port
	logger.Info().
		Str("addr", addr).
		Str("cache_backend", cfg.Cache.Backend).
		Msg("Starting market-data proxy")

	if err := http.ListenAndServe(addr, srv); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

// buildStore selects the cache backend from configuration. A backend that
// cannot be reached degrades to the in-memory store instead of crashing:
// the proxy still serves, it just caches per-process.
func buildStore(cfg config.CacheConfig, logger zerolog.Logger) cache.Store {
	switch cfg.Backend {
	case "redis":
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Error().
				Err(err).
				Str("addr", cfg.RedisAddr).
				Msg("Redis unreachable, falling back to in-memory cache")
			return cache.NewMemoryStore()
		}
		logger.Info().Str("addr", cfg.RedisAddr).Msg("Connected to Redis")
		return cache.NewRedisStore(redisClient)

	case "postgres":
		store, err := cache.NewPostgresStore(cfg.PostgresDSN)
		if err != nil {
			logger.Error().
				Err(err).
				Msg("Postgres unreachable, falling back to in-memory cache")
			return cache.NewMemoryStore()
		}
		logger.Info().Msg("Connected to Postgres")
		return store

	default:
		return cache.NewMemoryStore()
	}
}
