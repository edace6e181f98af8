// Package cascade aggregates several authentication backends behind a single
// core.Backend. Each operation is routed to the ordered subset of drivers that
// support it, using a capability table built once at construction.
package cascade

import (
	"fmt"
	"slices"

	"github.com/go-authgate/authcascade/internal/core"
	"github.com/go-authgate/authcascade/internal/metrics"
	"github.com/go-authgate/authcascade/internal/util"

	"go.uber.org/zap"
)

// DefaultPasswordLength is the length of passwords synthesized for
// reset-via-update when no generator is configured.
const DefaultPasswordLength = 16

// Compile-time interface check.
var _ core.Backend = (*Cascade)(nil)

// Driver binds a backend to the identifier it is routed by.
type Driver struct {
	ID      string
	Backend core.Backend
}

// Config is the construction input of a Cascade.
type Config struct {
	// Drivers in precedence order. Required.
	Drivers []Driver

	// Capabilities optionally overrides the computed routing table. Every key
	// present replaces the computed list for that capability wholesale; an
	// empty list disables the capability.
	Capabilities map[core.Capability][]string
}

// PasswordGenerator produces a new random password.
type PasswordGenerator func() (string, error)

// Option configures a Cascade
type Option func(*Cascade)

// WithLogger sets the logger used for suppressed backend failures
func WithLogger(l *zap.Logger) Option {
	return func(c *Cascade) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder
func WithRecorder(r core.Recorder) Option {
	return func(c *Cascade) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithPasswordGenerator sets the generator used when a reset has to go
// through update-only backends
func WithPasswordGenerator(g PasswordGenerator) Option {
	return func(c *Cascade) {
		if g != nil {
			c.generatePassword = g
		}
	}
}

// Cascade is a composite authentication provider. It is immutable after
// construction and safe for concurrent use as long as its drivers are.
type Cascade struct {
	order        []string
	drivers      map[string]core.Backend
	capabilities map[core.Capability][]string

	logger           *zap.Logger
	recorder         core.Recorder
	generatePassword PasswordGenerator
}

// New builds the routing table from each driver's Supports answers and
// overlays cfg.Capabilities on top of it.
func New(cfg Config, opts ...Option) (*Cascade, error) {
	if cfg.Drivers == nil {
		return nil, fmt.Errorf("%w: drivers parameter is required", ErrConfiguration)
	}

	c := &Cascade{
		order:        make([]string, 0, len(cfg.Drivers)),
		drivers:      make(map[string]core.Backend, len(cfg.Drivers)),
		capabilities: make(map[core.Capability][]string),
		logger:       zap.NewNop(),
		recorder:     metrics.NewNoopMetrics(),
		generatePassword: func() (string, error) {
			return util.GenerateRandomPassword(DefaultPasswordLength)
		},
	}
	for _, opt := range opts {
		opt(c)
	}

	for _, d := range cfg.Drivers {
		if d.ID == "" {
			return nil, fmt.Errorf("%w: driver with empty id", ErrConfiguration)
		}
		if d.Backend == nil {
			return nil, fmt.Errorf("%w: driver %q has no backend", ErrConfiguration, d.ID)
		}
		if _, dup := c.drivers[d.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate driver id %q", ErrConfiguration, d.ID)
		}
		c.order = append(c.order, d.ID)
		c.drivers[d.ID] = d.Backend
	}

	for _, capability := range core.Capabilities {
		for _, id := range c.order {
			if c.drivers[id].Supports(capability) {
				c.capabilities[capability] = append(c.capabilities[capability], id)
			}
		}
	}

	for capability, ids := range cfg.Capabilities {
		c.capabilities[capability] = slices.Clone(ids)
		for _, id := range ids {
			if _, ok := c.drivers[id]; !ok {
				c.logger.Warn("capability override names an unknown driver",
					zap.String("capability", string(capability)),
					zap.String("driver", id),
				)
			}
		}
	}

	c.logger.Debug("cascade routing table built",
		zap.Strings("drivers", c.order),
		zap.Any("capabilities", c.capabilities),
	)

	return c, nil
}

// Name returns provider name for logging
func (c *Cascade) Name() string {
	return "cascade"
}

// HasCapability reports whether at least one backend is routed for capability.
func (c *Cascade) HasCapability(capability core.Capability) bool {
	return len(c.capabilities[capability]) > 0
}

// Supports makes a Cascade usable as a driver of another Cascade.
func (c *Cascade) Supports(capability core.Capability) bool {
	return c.HasCapability(capability)
}

// Capabilities returns a copy of the routing table.
func (c *Cascade) Capabilities() map[core.Capability][]string {
	out := make(map[core.Capability][]string, len(c.capabilities))
	for capability, ids := range c.capabilities {
		out[capability] = slices.Clone(ids)
	}
	return out
}

// Drivers returns the configured driver ids in precedence order.
func (c *Cascade) Drivers() []string {
	return slices.Clone(c.order)
}

// Driver returns the backend registered under id.
func (c *Cascade) Driver(id string) (core.Backend, bool) {
	b, ok := c.drivers[id]
	return b, ok
}

// route returns the backend ids for the first capability that has any,
// or ErrUnsupported naming the requested capabilities.
func (c *Cascade) route(capabilities ...core.Capability) ([]string, error) {
	for _, capability := range capabilities {
		if ids := c.capabilities[capability]; len(ids) > 0 {
			return ids, nil
		}
	}
	return nil, fmt.Errorf("%w: %v", core.ErrUnsupported, capabilities)
}
