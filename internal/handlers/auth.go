package handlers

import (
	"net/http"

	"github.com/go-authgate/authcascade/internal/core"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	provider Provider
	logger   *zap.Logger
}

func NewAuthHandler(p Provider, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{provider: p, logger: logger}
}

// LoginRequest is the body of POST /api/v1/login
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UserResponse describes an authenticated user
type UserResponse struct {
	Username   string `json:"username"`
	ExternalID string `json:"external_id,omitempty"`
	Email      string `json:"email,omitempty"`
	FullName   string `json:"full_name,omitempty"`
	Backend    string `json:"backend"`
}

func newUserResponse(r *core.AuthResult) UserResponse {
	return UserResponse{
		Username:   r.Username,
		ExternalID: r.ExternalID,
		Email:      r.Email,
		FullName:   r.FullName,
		Backend:    r.Backend,
	}
}

// Login authenticates against the first backend that accepts the credentials
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	result, err := h.provider.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.logger.Info("login failed",
			zap.String("username", req.Username),
			zap.String("client_ip", c.ClientIP()),
			zap.Error(err),
		)
		respondError(c, err)
		return
	}

	h.logger.Info("login succeeded",
		zap.String("username", result.Username),
		zap.String("backend", result.Backend),
	)
	c.JSON(http.StatusOK, newUserResponse(result))
}

// TransparentLogin identifies the caller from ambient request data, such as
// a username asserted by a trusted reverse proxy.
func (h *AuthHandler) TransparentLogin(c *gin.Context) {
	result, ok, err := h.provider.Transparent(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if !ok || result == nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":             errNotAuthenticated,
			"error_description": "No backend could identify the caller",
		})
		return
	}

	c.JSON(http.StatusOK, newUserResponse(result))
}
