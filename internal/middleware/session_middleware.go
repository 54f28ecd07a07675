package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/DevDeskHQ/devdesk_api/internal/models"
	"github.com/DevDeskHQ/devdesk_api/internal/service"
	"github.com/DevDeskHQ/devdesk_api/internal/utils"
)

// SessionMiddleware authenticates requests against the auth service: the
// token's signature is checked first, then its session ID against the user's
// persisted one, so tokens displaced by a newer login stop working.
type SessionMiddleware struct {
	authService *service.AuthService
}

// NewSessionMiddleware constructs a SessionMiddleware.
func NewSessionMiddleware(authService *service.AuthService) *SessionMiddleware {
	return &SessionMiddleware{authService: authService}
}

// Handle returns a Gin middleware function that enforces authentication.
// Browser WebSocket and EventSource APIs cannot set headers, so a `token`
// query parameter is accepted as a fallback.
func (m *SessionMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			utils.Error(c, 401, "UNAUTHORIZED", "Missing session token")
			c.Abort()
			return
		}

		user, err := m.authService.Validate(token)
		if err != nil {
			if errors.Is(err, utils.ErrSessionSuperseded) {
				utils.Error(c, 401, "SESSION_SUPERSEDED", "Session was superseded by a newer login")
			} else {
				utils.Error(c, 401, "INVALID_TOKEN", "Invalid or expired session token")
			}
			c.Abort()
			return
		}

		c.Set("user", user)
		c.Set("user_id", user.ID)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// GetUser returns the authenticated user from context.
func GetUser(c *gin.Context) *models.User {
	user, _ := c.Get("user")
	if user == nil {
		return nil
	}
	return user.(*models.User)
}
