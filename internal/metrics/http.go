package metrics

import (
	"strconv"
	"time"

	"github.com/go-authgate/authcascade/internal/core"

	"github.com/gin-gonic/gin"
)

const (
	resultSuccess = "success"
	resultFailure = "failure"
)

// HTTPMetricsMiddleware creates a Gin middleware that records HTTP metrics
func HTTPMetricsMiddleware(m Recorder) gin.HandlerFunc {
	metrics, ok := m.(*Metrics)
	if !ok {
		// NoopMetrics or unknown implementation
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		// Skip metrics endpoint to avoid self-recording
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()

		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		c.Next()

		duration := time.Since(start).Seconds()
		method := c.Request.Method
		path := normalizePath(c.FullPath()) // Use route pattern, not actual path
		status := strconv.Itoa(c.Writer.Status())

		metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// normalizePath converts the actual request path to route pattern
// Returns the route pattern (e.g., "/users/:username") or "unknown" if no route matched
func normalizePath(fullPath string) string {
	if fullPath == "" {
		return "unknown"
	}
	return fullPath
}

// RecordBackendCall records a single call into a driver
func (m *Metrics) RecordBackendCall(
	backend string,
	capability core.Capability,
	success bool,
	duration time.Duration,
) {
	result := resultSuccess
	if !success {
		result = resultFailure
	}
	m.BackendCallsTotal.WithLabelValues(backend, string(capability), result).Inc()
	m.BackendCallDuration.WithLabelValues(backend, string(capability)).Observe(duration.Seconds())
}

// RecordDispatch records a public cascade operation
func (m *Metrics) RecordDispatch(capability core.Capability, result string, duration time.Duration) {
	m.DispatchTotal.WithLabelValues(string(capability), result).Inc()
	m.DispatchDuration.WithLabelValues(string(capability)).Observe(duration.Seconds())
}

// RecordPasswordGenerated counts passwords synthesized for reset-via-update
func (m *Metrics) RecordPasswordGenerated() {
	m.PasswordsGeneratedTotal.Inc()
}

// SetRegisteredUsers sets the user count reported by a list backend
func (m *Metrics) SetRegisteredUsers(backend string, count int) {
	m.RegisteredUsers.WithLabelValues(backend).Set(float64(count))
}
