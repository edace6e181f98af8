package auth

import (
	"errors"
	"fmt"

	"github.com/go-authgate/authcascade/internal/core"
)

var (
	// HTTP API errors
	ErrHTTPAPIConnection  = errors.New("failed to connect to authentication API")
	ErrHTTPAPIAuthFailed  = fmt.Errorf("%w: authentication API rejected credentials", core.ErrInvalidCredentials)
	ErrHTTPAPIInvalidResp = errors.New("invalid response from authentication API")

	// ErrEmptyUsername is returned when an operation is given no username
	ErrEmptyUsername = errors.New("username must not be empty")
)
