package metrics

import (
	"time"

	"github.com/go-authgate/authcascade/internal/core"
)

// NoopMetrics is a no-operation implementation of Recorder
// All methods are empty and do nothing, providing zero overhead when metrics are disabled
type NoopMetrics struct{}

// Ensure NoopMetrics implements Recorder interface at compile time
var _ Recorder = (*NoopMetrics)(nil)

// NewNoopMetrics creates a new no-operation metrics recorder
func NewNoopMetrics() Recorder {
	return &NoopMetrics{}
}

func (n *NoopMetrics) RecordBackendCall(
	backend string,
	capability core.Capability,
	success bool,
	duration time.Duration,
) {
}

func (n *NoopMetrics) RecordDispatch(
	capability core.Capability,
	result string,
	duration time.Duration,
) {
}

func (n *NoopMetrics) RecordPasswordGenerated() {}

func (n *NoopMetrics) SetRegisteredUsers(backend string, count int) {}
