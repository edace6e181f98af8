package bootstrap

import (
	"fmt"

	"github.com/go-authgate/authcascade/internal/config"
	"github.com/go-authgate/authcascade/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// setupLoginRateLimit returns the limiter for the login endpoints, or a
// pass-through handler when rate limiting is disabled
func setupLoginRateLimit(
	cfg *config.Config,
	redisClient *redis.Client,
	logger *zap.Logger,
) (gin.HandlerFunc, error) {
	if !cfg.RateLimitEnabled {
		logger.Info("login rate limiting disabled")
		return func(c *gin.Context) { c.Next() }, nil
	}

	storeType := middleware.RateLimitStoreType(cfg.RateLimitStore)
	limiter, err := middleware.NewRateLimiter(middleware.RateLimitConfig{
		RequestsPerMinute: cfg.LoginRateLimit,
		StoreType:         storeType,
		Prefix:            "ratelimit:login",
		RedisClient:       redisClient,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create login rate limiter: %w", err)
	}

	logger.Info("login rate limiting enabled",
		zap.String("store", string(storeType)),
		zap.Int("requests_per_minute", cfg.LoginRateLimit),
	)
	return limiter, nil
}
