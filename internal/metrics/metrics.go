package metrics

import (
	"sync"

	"github.com/go-authgate/authcascade/internal/core"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder is a type alias for core.Recorder.
type Recorder = core.Recorder

// Ensure Metrics implements Recorder interface at compile time
var _ Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Cascade Dispatch Metrics
	DispatchTotal    *prometheus.CounterVec
	DispatchDuration *prometheus.HistogramVec

	// Backend Metrics
	BackendCallsTotal       *prometheus.CounterVec
	BackendCallDuration     *prometheus.HistogramVec
	PasswordsGeneratedTotal prometheus.Counter
	RegisteredUsers         *prometheus.GaugeVec

	// HTTP Request Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Init initializes metrics based on enabled flag
// If enabled=true, returns Prometheus-based Metrics
// If enabled=false, returns NoopMetrics (zero overhead)
// Uses sync.Once to ensure Prometheus metrics are only registered once
func Init(enabled bool) Recorder {
	if !enabled {
		return NewNoopMetrics()
	}

	once.Do(func() {
		defaultMetrics = initMetrics()
	})
	return defaultMetrics
}

// initMetrics creates and registers all Prometheus metrics
func initMetrics() *Metrics {
	return &Metrics{
		DispatchTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cascade_dispatch_total",
				Help: "Total number of cascade operations",
			},
			[]string{
				"capability",
				"result",
			}, // result: success, partial, rejected, unsupported, error
		),
		DispatchDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cascade_dispatch_duration_seconds",
				Help:    "Time taken by a cascade operation across all backends",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"capability"},
		),

		BackendCallsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cascade_backend_calls_total",
				Help: "Total number of calls into authentication backends",
			},
			[]string{"backend", "capability", "result"}, // result: success, failure
		),
		BackendCallDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cascade_backend_call_duration_seconds",
				Help:    "Time taken by a single backend call",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"backend", "capability"},
		),
		PasswordsGeneratedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "cascade_passwords_generated_total",
				Help: "Total number of passwords generated for reset-via-update",
			},
		),
		RegisteredUsers: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cascade_registered_users",
				Help: "Number of users listed by each list backend",
			},
			[]string{"backend"},
		),

		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Current number of HTTP requests being served",
			},
		),
	}
}
