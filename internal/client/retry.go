package client

import (
	"fmt"
	"time"

	httpclient "github.com/appleboy/go-httpclient"
	retry "github.com/appleboy/go-httpretry"
	"go.uber.org/zap"
)

// CreateRetryClient creates an HTTP client with retry support and authentication.
// This is used by drivers that authenticate against an external API.
func CreateRetryClient(
	authMode, authSecret string,
	timeout time.Duration,
	insecureSkipVerify bool,
	maxRetries int,
	retryDelay, maxRetryDelay time.Duration,
	authHeader string,
	logger *zap.Logger,
) (*retry.Client, error) {
	// Create HTTP client with automatic authentication
	client, err := httpclient.NewAuthClient(
		authMode,
		authSecret,
		httpclient.WithTimeout(timeout),
		httpclient.WithHeaderName(authHeader),
		httpclient.WithInsecureSkipVerify(insecureSkipVerify),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth client: %w", err)
	}

	logOpt := retry.WithNoLogging()
	if logger != nil {
		logOpt = retry.WithLogger(NewRetryLogger(logger))
	}

	// Wrap with retry client
	retryClient, err := retry.NewRealtimeClient(
		retry.WithHTTPClient(client),
		retry.WithMaxRetries(maxRetries),
		retry.WithInitialRetryDelay(retryDelay),
		retry.WithMaxRetryDelay(maxRetryDelay),
		logOpt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create retry client: %w", err)
	}

	return retryClient, nil
}

// retryLogger routes go-httpretry's slog-style key/value logging to zap
type retryLogger struct {
	sugar *zap.SugaredLogger
}

var _ retry.Logger = (*retryLogger)(nil)

// NewRetryLogger adapts a zap logger to retry.Logger
func NewRetryLogger(logger *zap.Logger) retry.Logger {
	return &retryLogger{sugar: logger.Sugar()}
}

func (l *retryLogger) Debug(msg string, args ...any) { l.sugar.Debugw(msg, args...) }
func (l *retryLogger) Info(msg string, args ...any)  { l.sugar.Infow(msg, args...) }
func (l *retryLogger) Warn(msg string, args ...any)  { l.sugar.Warnw(msg, args...) }
func (l *retryLogger) Error(msg string, args ...any) { l.sugar.Errorw(msg, args...) }
