package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-authgate/authcascade/internal/cascade"
	"github.com/go-authgate/authcascade/internal/config"
	"github.com/go-authgate/authcascade/internal/metrics"
	"github.com/go-authgate/authcascade/internal/store"
	"github.com/go-authgate/authcascade/internal/util"
	"github.com/go-authgate/authcascade/internal/version"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Application holds all initialized components
type Application struct {
	Config *config.Config
	Logger *zap.Logger

	// Core infrastructure
	DB                   *store.Store  // nil unless the local driver is enabled
	RedisClient          *redis.Client // nil unless the redis driver is enabled
	RateLimitRedisClient *redis.Client
	MetricsRecorder      metrics.Recorder

	// Authentication
	Cascade *cascade.Cascade

	// HTTP
	Router *gin.Engine
	Server *http.Server
}

// New validates cfg and initializes every component without starting the
// HTTP server. Call Close to release what was opened.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Application, error) {
	app := &Application{
		Config: cfg,
		Logger: logger,
	}

	// Phase 1: Validate configuration
	if err := validateAllConfiguration(cfg, logger); err != nil {
		return nil, err
	}

	// Phase 2: Initialize drivers and the cascade
	if err := app.initializeCascade(ctx); err != nil {
		app.Close()
		return nil, err
	}

	// Phase 3: Initialize HTTP layer
	if err := app.initializeHTTPLayer(ctx); err != nil {
		app.Close()
		return nil, err
	}

	return app, nil
}

// Run initializes the application and serves until ctx is canceled
func Run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	app, err := New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	return app.Serve(ctx)
}

// initializeCascade sets up metrics, drivers and the cascade itself
func (app *Application) initializeCascade(ctx context.Context) error {
	app.MetricsRecorder = metrics.Init(app.Config.MetricsEnabled)

	drivers, err := app.initializeDrivers(ctx)
	if err != nil {
		return err
	}

	passwordLength := app.Config.PasswordLength
	app.Cascade, err = cascade.New(
		cascade.Config{
			Drivers:      drivers,
			Capabilities: app.Config.Capabilities,
		},
		cascade.WithLogger(app.Logger.Named("cascade")),
		cascade.WithRecorder(app.MetricsRecorder),
		cascade.WithPasswordGenerator(func() (string, error) {
			return util.GenerateRandomPassword(passwordLength)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to build cascade: %w", err)
	}

	for capability, ids := range app.Cascade.Capabilities() {
		app.Logger.Info("capability routed",
			zap.String("capability", string(capability)),
			zap.Strings("drivers", ids),
		)
	}
	return nil
}

// initializeHTTPLayer sets up handlers, router, and server
func (app *Application) initializeHTTPLayer(ctx context.Context) error {
	var err error

	app.RateLimitRedisClient, err = initializeRateLimitRedisClient(ctx, app.Config, app.Logger)
	if err != nil {
		return err
	}

	app.Router, err = setupRouter(app)
	if err != nil {
		return err
	}

	app.Server = createHTTPServer(app.Config, app.Router)
	app.Logger.Info("application initialized", version.Fields()...)
	return nil
}

// Close releases database and Redis connections
func (app *Application) Close() error {
	var errs []error
	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	if app.RedisClient != nil {
		if err := app.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if app.RateLimitRedisClient != nil {
		if err := app.RateLimitRedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close rate limit redis: %w", err))
		}
	}
	return errors.Join(errs...)
}
