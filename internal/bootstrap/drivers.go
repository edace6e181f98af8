package bootstrap

import (
	"context"
	"fmt"

	"github.com/go-authgate/authcascade/internal/auth"
	"github.com/go-authgate/authcascade/internal/cascade"
	"github.com/go-authgate/authcascade/internal/client"
	"github.com/go-authgate/authcascade/internal/config"
	"github.com/go-authgate/authcascade/internal/core"

	retry "github.com/appleboy/go-httpretry"
	"go.uber.org/zap"
)

// initializeDrivers builds one cascade driver per AUTH_DRIVERS entry, in
// configured order, opening the infrastructure each one needs
func (app *Application) initializeDrivers(ctx context.Context) ([]cascade.Driver, error) {
	cfg := app.Config
	drivers := make([]cascade.Driver, 0, len(cfg.Drivers))

	for _, name := range cfg.Drivers {
		var backend core.Backend

		switch name {
		case config.DriverLocal:
			db, err := initializeDatabase(cfg)
			if err != nil {
				return nil, err
			}
			app.DB = db
			backend = auth.NewLocalAuthProvider(db,
				auth.WithBcryptCost(cfg.BcryptCost),
				auth.WithPasswordLength(cfg.PasswordLength),
			)

		case config.DriverRedis:
			redisClient, err := initializeRedisClient(ctx, cfg, app.Logger)
			if err != nil {
				return nil, err
			}
			app.RedisClient = redisClient
			backend = auth.NewRedisAuthProvider(redisClient, cfg.RedisKeyPrefix)

		case config.DriverHTTPAPI:
			retryClient, err := newHTTPAPIClient(cfg, app.Logger)
			if err != nil {
				return nil, err
			}
			app.Logger.Info("HTTP API authentication enabled",
				zap.String("url", cfg.HTTPAPIURL),
				zap.String("auth_mode", cfg.HTTPAPIAuthMode),
			)
			backend = auth.NewHTTPAPIAuthProvider(cfg, retryClient)

		case config.DriverRemoteUser:
			backend = auth.NewRemoteUserAuthProvider()

		default:
			return nil, fmt.Errorf("unknown driver: %s", name)
		}

		drivers = append(drivers, cascade.Driver{
			ID:      name,
			Backend: backend,
		})
		app.Logger.Info("driver initialized", zap.String("driver", name))
	}

	return drivers, nil
}

// newHTTPAPIClient creates the authenticating, retrying client used by the
// http_api driver
func newHTTPAPIClient(cfg *config.Config, logger *zap.Logger) (*retry.Client, error) {
	if cfg.HTTPAPIInsecureSkipVerify {
		logger.Warn("TLS verification disabled for the authentication API")
	}

	retryClient, err := client.CreateRetryClient(
		cfg.HTTPAPIAuthMode,
		cfg.HTTPAPIAuthSecret,
		cfg.HTTPAPITimeout,
		cfg.HTTPAPIInsecureSkipVerify,
		cfg.HTTPAPIMaxRetries,
		cfg.HTTPAPIRetryDelay,
		cfg.HTTPAPIMaxRetryDelay,
		cfg.HTTPAPIAuthHeader,
		logger.Named("http_api"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP API auth client: %w", err)
	}
	return retryClient, nil
}
