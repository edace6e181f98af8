package auth

import (
	"context"

	"github.com/go-authgate/authcascade/internal/core"
	"github.com/go-authgate/authcascade/internal/util"
)

var _ core.Backend = (*RemoteUserAuthProvider)(nil)

// RemoteUserAuthProvider trusts the username a reverse proxy asserted for the
// current request. The HTTP layer is responsible for only placing that value
// in the context when the request came from a trusted proxy.
type RemoteUserAuthProvider struct {
	Unsupported
}

// NewRemoteUserAuthProvider creates a transparent-login provider
func NewRemoteUserAuthProvider() *RemoteUserAuthProvider {
	return &RemoteUserAuthProvider{}
}

// Name returns provider name for logging
func (p *RemoteUserAuthProvider) Name() string {
	return DriverRemoteUser
}

func (p *RemoteUserAuthProvider) Supports(c core.Capability) bool {
	return c == core.CapTransparent
}

// Transparent returns the proxy-asserted identity, if any
func (p *RemoteUserAuthProvider) Transparent(ctx context.Context) (*Result, bool, error) {
	username, ok := util.RemoteUserFromContext(ctx)
	if !ok {
		return nil, false, nil
	}
	return &Result{
		Username: username,
		Backend:  DriverRemoteUser,
		Success:  true,
	}, true, nil
}
