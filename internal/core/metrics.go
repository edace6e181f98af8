package core

import "time"

// Recorder defines the interface for recording cascade metrics.
// Implementations include metrics.Metrics (Prometheus-based) and
// metrics.NoopMetrics.
type Recorder interface {
	// RecordBackendCall records one call into a driver.
	RecordBackendCall(backend string, capability Capability, success bool, duration time.Duration)

	// RecordDispatch records one public cascade operation.
	RecordDispatch(capability Capability, result string, duration time.Duration)

	// RecordPasswordGenerated counts passwords synthesized for reset-via-update.
	RecordPasswordGenerated()

	// SetRegisteredUsers sets the number of users a list backend reports.
	SetRegisteredUsers(backend string, count int)
}
