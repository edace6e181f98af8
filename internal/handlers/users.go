package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-authgate/authcascade/internal/core"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type UserHandler struct {
	provider Provider
	logger   *zap.Logger
}

func NewUserHandler(p Provider, logger *zap.Logger) *UserHandler {
	return &UserHandler{provider: p, logger: logger}
}

// CreateUserRequest is the body of POST /api/v1/users
type CreateUserRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password"`
	Email    string `json:"email" binding:"omitempty,email"`
	FullName string `json:"full_name"`
}

// UpdateUserRequest is the body of PUT /api/v1/users/:username. Empty fields
// are left unchanged; a non-empty username renames the user.
type UpdateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email" binding:"omitempty,email"`
	FullName string `json:"full_name"`
}

// List merges the user listings of every list backend
func (h *UserHandler) List(c *gin.Context) {
	sort := false
	if v := c.Query("sort"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			respondBadRequest(c, err)
			return
		}
		sort = parsed
	}

	users, err := h.provider.ListUsers(c.Request.Context(), sort)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// Exists responds 200 when any backend knows the user and 404 otherwise
func (h *UserHandler) Exists(c *gin.Context) {
	username := c.Param("username")

	exists, err := h.provider.UserExists(c.Request.Context(), username)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if !exists {
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"username": username, "exists": exists})
}

// Create adds the user on every add backend
func (h *UserHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	report, err := h.provider.AddUserReport(c.Request.Context(), req.Username, core.Credentials{
		Password: req.Password,
		Email:    req.Email,
		FullName: req.FullName,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.logReport("user added", req.Username, report.Failed())
	c.JSON(reportStatus(report, http.StatusCreated), gin.H{
		"username": req.Username,
		"results":  reportJSON(report),
	})
}

// Update changes or renames the user on every update backend
func (h *UserHandler) Update(c *gin.Context) {
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	oldUsername := c.Param("username")
	newUsername := req.Username
	if newUsername == "" {
		newUsername = oldUsername
	}

	report, err := h.provider.UpdateUserReport(
		c.Request.Context(),
		oldUsername,
		newUsername,
		core.Credentials{
			Password: req.Password,
			Email:    req.Email,
			FullName: req.FullName,
		},
	)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logReport("user updated", oldUsername, report.Failed())
	c.JSON(reportStatus(report, http.StatusOK), gin.H{
		"username": newUsername,
		"results":  reportJSON(report),
	})
}

// Delete removes the user from every remove backend
func (h *UserHandler) Delete(c *gin.Context) {
	username := c.Param("username")

	report, err := h.provider.RemoveUserReport(c.Request.Context(), username)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logReport("user removed", username, report.Failed())
	c.JSON(reportStatus(report, http.StatusOK), gin.H{
		"username": username,
		"results":  reportJSON(report),
	})
}

// ResetPassword resets the password everywhere and returns the new one
func (h *UserHandler) ResetPassword(c *gin.Context) {
	username := c.Param("username")

	password, report, err := h.provider.ResetPasswordReport(c.Request.Context(), username)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logReport("password reset", username, report.Failed())
	if password == "" {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":             errBackendFailure,
			"error_description": "No backend produced a new password",
			"username":          username,
			"results":           reportJSON(report),
		})
		return
	}

	c.JSON(reportStatus(report, http.StatusOK), gin.H{
		"username": username,
		"password": password,
		"results":  reportJSON(report),
	})
}

func (h *UserHandler) logReport(msg, username string, failed []string) {
	if len(failed) > 0 {
		h.logger.Warn(msg+" with backend failures",
			zap.String("username", username),
			zap.Strings("failed", failed),
		)
		return
	}
	h.logger.Info(msg, zap.String("username", username))
}
