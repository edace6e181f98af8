package bootstrap

import (
	"context"
	"fmt"

	"github.com/go-authgate/authcascade/internal/config"
	"github.com/go-authgate/authcascade/internal/middleware"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// initializeRedisClient connects the client used by the redis driver
func initializeRedisClient(
	ctx context.Context,
	cfg *config.Config,
	logger *zap.Logger,
) (*redis.Client, error) {
	client, err := dialRedis(ctx, cfg, cfg.RedisAddr)
	if err != nil {
		return nil, err
	}
	logger.Info("redis driver connected",
		zap.String("addr", cfg.RedisAddr),
		zap.Int("db", cfg.RedisDB),
		zap.String("key_prefix", cfg.RedisKeyPrefix),
	)
	return client, nil
}

// initializeRateLimitRedisClient initializes the go-redis client for rate limiting.
// Returns nil if rate limiting is disabled or using memory store.
func initializeRateLimitRedisClient(
	ctx context.Context,
	cfg *config.Config,
	logger *zap.Logger,
) (*redis.Client, error) {
	if !cfg.RateLimitEnabled ||
		cfg.RateLimitStore != string(middleware.RateLimitStoreRedis) {
		return nil, nil //nolint:nilnil // redis client not needed in this configuration
	}

	client, err := dialRedis(ctx, cfg, cfg.RateLimitRedisURL)
	if err != nil {
		return nil, err
	}
	logger.Info("rate limiting redis client initialized", zap.String("addr", cfg.RateLimitRedisURL))
	return client, nil
}

func dialRedis(ctx context.Context, cfg *config.Config, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(ctx, cfg.RedisConnTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return client, nil
}
