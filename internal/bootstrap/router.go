package bootstrap

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/go-authgate/authcascade/internal/config"
	"github.com/go-authgate/authcascade/internal/handlers"
	"github.com/go-authgate/authcascade/internal/metrics"
	"github.com/go-authgate/authcascade/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// setupRouter configures the Gin router with all routes and middleware
func setupRouter(app *Application) (*gin.Engine, error) {
	cfg := app.Config

	setupGinMode(cfg)
	r := gin.New()
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	r.Use(metrics.HTTPMetricsMiddleware(app.MetricsRecorder))
	r.Use(middleware.RequestLogger(app.Logger.Named("http"), "/healthz", "/metrics"))
	r.Use(gin.Recovery())

	if slices.Contains(cfg.Drivers, config.DriverRemoteUser) {
		remoteUser, err := middleware.RemoteUser(cfg.RemoteUserHeader, cfg.TrustedProxies)
		if err != nil {
			return nil, err
		}
		r.Use(remoteUser)
	}

	// Health check endpoint
	r.GET("/healthz", createHealthCheckHandler(app))

	setupMetricsEndpoint(r, cfg, app.Logger)

	loginLimiter, err := setupLoginRateLimit(cfg, app.RateLimitRedisClient, app.Logger)
	if err != nil {
		return nil, err
	}

	authHandler := handlers.NewAuthHandler(app.Cascade, app.Logger.Named("auth"))
	userHandler := handlers.NewUserHandler(app.Cascade, app.Logger.Named("users"))

	api := r.Group("/api/v1")
	{
		api.POST("/login", loginLimiter, authHandler.Login)
		api.POST("/login/transparent", loginLimiter, authHandler.TransparentLogin)
	}

	// Admin routes (require ADMIN_TOKEN when configured)
	admin := r.Group("/api/v1")
	admin.Use(middleware.BearerAuth("Admin", cfg.AdminToken))
	{
		admin.GET("/capabilities", handlers.Capabilities(app.Cascade))
		admin.GET("/users", userHandler.List)
		admin.POST("/users", userHandler.Create)
		admin.GET("/users/:username", userHandler.Exists)
		admin.PUT("/users/:username", userHandler.Update)
		admin.DELETE("/users/:username", userHandler.Delete)
		admin.POST("/users/:username/reset-password", userHandler.ResetPassword)
	}

	if cfg.AdminToken == "" {
		app.Logger.Warn("ADMIN_TOKEN is not set, user management routes are unauthenticated")
	}

	return r, nil
}

// setupMetricsEndpoint configures the Prometheus metrics endpoint
func setupMetricsEndpoint(r *gin.Engine, cfg *config.Config, logger *zap.Logger) {
	switch {
	case !cfg.MetricsEnabled:
		logger.Info("prometheus metrics disabled")
	case cfg.MetricsToken != "":
		logger.Info("prometheus metrics enabled at /metrics with Bearer token authentication")
		r.GET(
			"/metrics",
			middleware.BearerAuth("Metrics", cfg.MetricsToken),
			gin.WrapH(promhttp.Handler()),
		)
	default:
		logger.Info("prometheus metrics enabled at /metrics (no authentication)")
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
}

// createHealthCheckHandler reports the state of the stores the enabled
// drivers depend on
func createHealthCheckHandler(app *Application) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		resp := gin.H{"status": "healthy"}

		if app.DB != nil {
			resp["database"] = "connected"
			if err := app.DB.Health(); err != nil {
				status = http.StatusServiceUnavailable
				resp["database"] = "disconnected"
			}
		}

		if app.RedisClient != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			resp["redis"] = "connected"
			if err := app.RedisClient.Ping(ctx).Err(); err != nil {
				status = http.StatusServiceUnavailable
				resp["redis"] = "disconnected"
			}
		}

		if status != http.StatusOK {
			resp["status"] = "unhealthy"
		}
		c.JSON(status, resp)
	}
}

// setupGinMode runs gin in debug mode only when debug logging is requested
func setupGinMode(cfg *config.Config) {
	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
		return
	}
	gin.SetMode(gin.ReleaseMode)
}
