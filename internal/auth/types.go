package auth

import (
	"github.com/go-authgate/authcascade/internal/config"
	"github.com/go-authgate/authcascade/internal/core"
)

// Result is a type alias for core.AuthResult.
type Result = core.AuthResult

// Driver names used in configuration and as cascade driver ids.
const (
	DriverLocal      = config.DriverLocal
	DriverRedis      = config.DriverRedis
	DriverHTTPAPI    = config.DriverHTTPAPI
	DriverRemoteUser = config.DriverRemoteUser
)

// capabilitySet answers core.Backend.Supports for a fixed list.
type capabilitySet []core.Capability

func (s capabilitySet) Supports(c core.Capability) bool {
	for _, have := range s {
		if have == c {
			return true
		}
	}
	return false
}

// Unsupported implements every core.Backend operation by returning
// core.ErrUnsupported. Drivers embed it and override what they provide.
type Unsupported struct{}

func (Unsupported) Supports(core.Capability) bool { return false }
