package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/DevDeskHQ/devdesk_api/internal/middleware"
	"github.com/DevDeskHQ/devdesk_api/internal/service"
	"github.com/DevDeskHQ/devdesk_api/internal/utils"
)

// AuthHandler handles login, logout, and session introspection.
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login handles POST /v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	token, user, err := h.authService.Login(c.Request.Context(), req.Email, req.Password, c.ClientIP())
	if err != nil {
		if errors.Is(err, utils.ErrTooManyAttempts) {
			utils.Error(c, 429, "TOO_MANY_REQUESTS", "Too many failed login attempts")
			return
		}
		if errors.Is(err, utils.ErrInvalidCredentials) {
			utils.Error(c, 401, "INVALID_CREDENTIALS", "Invalid credentials")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Login failed")
		return
	}

	utils.Success(c, 200, "Login successful", gin.H{
		"token": token,
		"user":  user,
	})
}

// Logout handles POST /v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	user := middleware.GetUser(c)
	if err := h.authService.Logout(c.Request.Context(), user); err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Logout failed")
		return
	}
	utils.Success(c, 200, "Logged out", nil)
}

// Me handles GET /v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	utils.Success(c, 200, "Session valid", middleware.GetUser(c))
}
