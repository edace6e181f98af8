package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-authgate/authcascade/internal/cascade"
	"github.com/go-authgate/authcascade/internal/core"

	"github.com/gin-gonic/gin"
)

// Provider is the part of *cascade.Cascade the HTTP layer depends on.
type Provider interface {
	Authenticate(ctx context.Context, username, password string) (*core.AuthResult, error)
	Transparent(ctx context.Context) (*core.AuthResult, bool, error)
	AddUserReport(ctx context.Context, username string, creds core.Credentials) (cascade.Report, error)
	UpdateUserReport(
		ctx context.Context,
		oldUsername, newUsername string,
		creds core.Credentials,
	) (cascade.Report, error)
	RemoveUserReport(ctx context.Context, username string) (cascade.Report, error)
	ResetPasswordReport(ctx context.Context, username string) (string, cascade.Report, error)
	ListUsers(ctx context.Context, sort bool) ([]string, error)
	UserExists(ctx context.Context, username string) (bool, error)
	Capabilities() map[core.Capability][]string
	Drivers() []string
}

var _ Provider = (*cascade.Cascade)(nil)

// Error codes returned in the "error" field of failed responses
const (
	errInvalidRequest       = "invalid_request"
	errInvalidCredentials   = "invalid_credentials"
	errNotAuthenticated     = "not_authenticated"
	errUnsupportedOperation = "unsupported_operation"
	errBackendFailure       = "backend_failure"
	errServerError          = "server_error"
)

// respondError maps cascade errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	switch {
	case errors.Is(err, core.ErrUnsupported):
		c.JSON(http.StatusNotImplemented, gin.H{
			"error":             errUnsupportedOperation,
			"error_description": err.Error(),
		})
	case errors.Is(err, cascade.ErrBadLogin):
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":             errInvalidCredentials,
			"error_description": "Invalid username or password",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":             errServerError,
			"error_description": "Internal server error",
		})
	}
}

func respondBadRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusBadRequest, gin.H{
		"error":             errInvalidRequest,
		"error_description": err.Error(),
	})
}

// backendResult is the JSON form of one cascade.Result.
type backendResult struct {
	Backend    string `json:"backend"`
	Capability string `json:"capability"`
	OK         bool   `json:"ok"`
	Error      string `json:"error,omitempty"`
}

func reportJSON(report cascade.Report) []backendResult {
	out := make([]backendResult, 0, len(report))
	for _, r := range report {
		res := backendResult{
			Backend:    r.Backend,
			Capability: string(r.Capability),
			OK:         r.Err == nil,
		}
		if r.Err != nil {
			res.Error = r.Err.Error()
		}
		out = append(out, res)
	}
	return out
}

// reportStatus is ok when at least one backend applied the change and
// 502 Bad Gateway when every backend failed.
func reportStatus(report cascade.Report, ok int) int {
	if len(report) > 0 && !report.AnySucceeded() {
		return http.StatusBadGateway
	}
	return ok
}
