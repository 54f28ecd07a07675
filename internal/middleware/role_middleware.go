package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/DevDeskHQ/devdesk_api/internal/utils"
)

// RequireRole returns a middleware that rejects authenticated users whose
// role is not in the allowed set. It must run after SessionMiddleware.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(c *gin.Context) {
		user := GetUser(c)
		if user == nil {
			utils.Error(c, 401, "UNAUTHORIZED", "Missing session")
			c.Abort()
			return
		}
		if !allowed[user.Role] {
			utils.Error(c, 403, "FORBIDDEN", "Insufficient role for this operation")
			c.Abort()
			return
		}
		c.Next()
	}
}
