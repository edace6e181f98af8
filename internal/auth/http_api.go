package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-authgate/authcascade/internal/config"
	"github.com/go-authgate/authcascade/internal/core"

	retry "github.com/appleboy/go-httpretry"
)

var httpAPICapabilities = capabilitySet{
	core.CapAuthenticate,
	core.CapExists,
}

var _ core.Backend = (*HTTPAPIAuthProvider)(nil)

// HTTPAPIAuthProvider handles HTTP API-based authentication
type HTTPAPIAuthProvider struct {
	Unsupported

	config *config.Config
	client *retry.Client
}

// NewHTTPAPIAuthProvider creates a new HTTP API authentication provider
func NewHTTPAPIAuthProvider(cfg *config.Config, client *retry.Client) *HTTPAPIAuthProvider {
	return &HTTPAPIAuthProvider{
		config: cfg,
		client: client,
	}
}

// APIAuthRequest is the request payload sent to external API
type APIAuthRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// APIAuthResponse is the expected response from external API
type APIAuthResponse struct {
	Success  bool   `json:"success"`
	UserID   string `json:"user_id,omitempty"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"full_name,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Name returns provider name for logging
func (p *HTTPAPIAuthProvider) Name() string {
	return DriverHTTPAPI
}

func (p *HTTPAPIAuthProvider) Supports(c core.Capability) bool {
	return httpAPICapabilities.Supports(c)
}

// Authenticate verifies credentials against external HTTP API
func (p *HTTPAPIAuthProvider) Authenticate(
	ctx context.Context,
	username, password string,
) (*Result, error) {
	jsonData, err := json.Marshal(APIAuthRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	// Authentication headers are automatically added by the HTTP client
	resp, body, err := readResponse(p.client.Post(
		ctx,
		p.config.HTTPAPIURL,
		retry.WithBody("application/json", bytes.NewBuffer(jsonData)),
	))
	if err != nil {
		return nil, err
	}

	// Check HTTP status code before attempting to parse JSON
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var authResp APIAuthResponse
		if err := json.Unmarshal(body, &authResp); err == nil && authResp.Message != "" {
			if resp.StatusCode == http.StatusUnauthorized ||
				resp.StatusCode == http.StatusForbidden {
				return nil, fmt.Errorf("%w: %s", ErrHTTPAPIAuthFailed, authResp.Message)
			}
			return nil, fmt.Errorf(
				"%w: HTTP %d - %s",
				ErrHTTPAPIInvalidResp,
				resp.StatusCode,
				authResp.Message,
			)
		}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return nil, ErrHTTPAPIAuthFailed
		}
		return nil, fmt.Errorf(
			"%w: HTTP %d - %s",
			ErrHTTPAPIInvalidResp,
			resp.StatusCode,
			preview(body),
		)
	}

	var authResp APIAuthResponse
	if err := json.Unmarshal(body, &authResp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHTTPAPIInvalidResp, err)
	}

	if !authResp.Success {
		return nil, ErrHTTPAPIAuthFailed
	}

	// Validate that user_id is provided when authentication succeeds
	if authResp.UserID == "" {
		return nil, fmt.Errorf(
			"%w: external API returned success=true but missing user_id",
			ErrHTTPAPIInvalidResp,
		)
	}

	return &Result{
		Username:   username,
		ExternalID: authResp.UserID,
		Email:      authResp.Email,
		FullName:   authResp.FullName,
		Backend:    DriverHTTPAPI,
		Success:    true,
	}, nil
}

// UserExists asks the API for GET <url>/users/<username>: 200 means the user
// exists, 404 that it does not.
func (p *HTTPAPIAuthProvider) UserExists(ctx context.Context, username string) (bool, error) {
	endpoint := strings.TrimRight(p.config.HTTPAPIURL, "/") + "/users/" + url.PathEscape(username)

	resp, body, err := readResponse(p.client.Get(ctx, endpoint))
	if err != nil {
		return false, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf(
			"%w: HTTP %d - %s",
			ErrHTTPAPIInvalidResp,
			resp.StatusCode,
			preview(body),
		)
	}
}

// readResponse drains the response of a retried request. Once retries are
// exhausted on 5xx or 429 the client returns the last response alongside a
// RetryError; that response is still classified by status so a failing
// server is not mistaken for an unreachable one.
func readResponse(resp *http.Response, err error) (*http.Response, []byte, error) {
	if resp == nil {
		if err == nil {
			err = errors.New("no response")
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrHTTPAPIConnection, err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, nil, fmt.Errorf("%w: failed to read response", ErrHTTPAPIInvalidResp)
	}
	return resp, body, nil
}

// preview limits a body to 200 characters to avoid overwhelming logs
func preview(body []byte) string {
	s := string(body)
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
