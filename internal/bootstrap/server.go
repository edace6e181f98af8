package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-authgate/authcascade/internal/cascade"
	"github.com/go-authgate/authcascade/internal/config"
	"github.com/go-authgate/authcascade/internal/core"
	"github.com/go-authgate/authcascade/internal/metrics"
	"github.com/go-authgate/authcascade/internal/store"

	"github.com/appleboy/graceful"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// createHTTPServer creates the HTTP server instance
func createHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// closeTimeout bounds closing connections once the server has drained
const closeTimeout = 5 * time.Second

// Serve runs the HTTP server and background jobs under a graceful manager
// until ctx is canceled, SIGINT/SIGTERM arrives or the listener fails, then
// shuts everything down. The manager is process-wide, so Serve may only be
// called once per process.
func (app *Application) Serve(ctx context.Context) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	m := graceful.NewManager(
		graceful.WithContext(ctx),
		graceful.WithLogger(app.Logger.Named("graceful").Sugar()),
		graceful.WithShutdownTimeout(app.Config.ServerShutdownTimeout+closeTimeout),
	)

	// Add jobs
	serverStopped := make(chan struct{})
	addServerRunningJob(m, app.Server, stop, app.Logger)
	addServerShutdownJob(m, app.Server, app.Config.ServerShutdownTimeout, serverStopped, app.Logger)
	addMetricsGaugeUpdateJob(m, app.Config, app.Cascade, app.MetricsRecorder, app.Logger)
	addDatabaseShutdownJob(m, serverStopped, app.DB, app.Logger)
	addRedisClientShutdownJob(m, serverStopped, app.RedisClient, "redis", app.Logger)
	addRedisClientShutdownJob(m, serverStopped, app.RateLimitRedisClient, "rate limit redis", app.Logger)

	// Wait for graceful shutdown
	<-m.Done()
	return errors.Join(m.Errors()...)
}

// addServerRunningJob adds the HTTP server running job. A listener failure
// calls stop so the manager shuts the remaining jobs down.
func addServerRunningJob(
	m *graceful.Manager,
	srv *http.Server,
	stop context.CancelFunc,
	logger *zap.Logger,
) {
	m.AddRunningJob(func(ctx context.Context) error {
		errCh := make(chan error, 1)
		go func() {
			logger.Info("server starting", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			logger.Error("failed to start server", zap.Error(err))
			stop()
			return fmt.Errorf("server: %w", err)
		}
	})
}

// addServerShutdownJob adds HTTP server shutdown handler. stopped is closed
// once the server has drained, successfully or not.
func addServerShutdownJob(
	m *graceful.Manager,
	srv *http.Server,
	timeout time.Duration,
	stopped chan<- struct{},
	logger *zap.Logger,
) {
	m.AddShutdownJob(func() error {
		defer close(stopped)

		logger.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("server forced to shutdown", zap.Error(err))
			return err
		}

		logger.Info("server exited")
		return nil
	})
}

// addDatabaseShutdownJob closes the local driver's database after the server
// has stopped serving requests
func addDatabaseShutdownJob(
	m *graceful.Manager,
	serverStopped <-chan struct{},
	db *store.Store,
	logger *zap.Logger,
) {
	if db == nil {
		return
	}

	m.AddShutdownJob(func() error {
		<-serverStopped
		logger.Info("closing database connection")
		if err := db.Close(); err != nil {
			logger.Error("error closing database", zap.Error(err))
			return fmt.Errorf("close database: %w", err)
		}
		logger.Info("database connection closed")
		return nil
	})
}

// addRedisClientShutdownJob adds Redis client shutdown handler
func addRedisClientShutdownJob(
	m *graceful.Manager,
	serverStopped <-chan struct{},
	redisClient *redis.Client,
	name string,
	logger *zap.Logger,
) {
	if redisClient == nil {
		return
	}

	m.AddShutdownJob(func() error {
		<-serverStopped
		logger.Info("closing Redis connection", zap.String("client", name))
		if err := redisClient.Close(); err != nil {
			logger.Error("error closing Redis client", zap.String("client", name), zap.Error(err))
			return fmt.Errorf("close %s: %w", name, err)
		}
		logger.Info("Redis connection closed", zap.String("client", name))
		return nil
	})
}

// addMetricsGaugeUpdateJob adds the periodic registered-user gauge refresh
func addMetricsGaugeUpdateJob(
	m *graceful.Manager,
	cfg *config.Config,
	c *cascade.Cascade,
	recorder metrics.Recorder,
	logger *zap.Logger,
) {
	if !cfg.MetricsEnabled || !cfg.MetricsGaugeUpdateEnabled {
		return
	}

	m.AddRunningJob(func(ctx context.Context) error {
		ticker := time.NewTicker(cfg.MetricsGaugeUpdateInterval)
		defer ticker.Stop()

		// Update immediately on startup
		updateRegisteredUsers(ctx, c, recorder, logger)

		for {
			select {
			case <-ticker.C:
				updateRegisteredUsers(ctx, c, recorder, logger)
			case <-ctx.Done():
				return nil
			}
		}
	})
}

// updateRegisteredUsers asks every list backend for its user count. Failing
// backends keep their previous gauge value.
func updateRegisteredUsers(
	ctx context.Context,
	c *cascade.Cascade,
	recorder metrics.Recorder,
	logger *zap.Logger,
) {
	for _, id := range c.Capabilities()[core.CapList] {
		backend, ok := c.Driver(id)
		if !ok {
			continue
		}
		users, err := backend.ListUsers(ctx, false)
		if err != nil {
			logger.Warn("failed to count registered users",
				zap.String("driver", id),
				zap.Error(err),
			)
			continue
		}
		recorder.SetRegisteredUsers(id, len(users))
	}
}
