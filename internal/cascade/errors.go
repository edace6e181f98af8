package cascade

import (
	"errors"
	"fmt"

	"github.com/go-authgate/authcascade/internal/core"
)

var (
	// ErrConfiguration is returned by New when the driver set is missing or malformed.
	ErrConfiguration = errors.New("cascade: invalid configuration")

	// ErrBadLogin is returned when no authenticate backend accepted the
	// credentials. It wraps core.ErrInvalidCredentials so an enclosing
	// cascade treats it as a rejection.
	ErrBadLogin = fmt.Errorf("cascade: no backend accepted the credentials: %w",
		core.ErrInvalidCredentials)

	// ErrPasswordGeneration is returned when a reset needs a synthesized
	// password and the generator failed.
	ErrPasswordGeneration = errors.New("cascade: failed to generate password")

	// ErrUnknownBackend marks a routing entry that names no configured driver.
	ErrUnknownBackend = errors.New("cascade: unknown backend")
)
