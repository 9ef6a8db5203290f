package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware reads the user identity forwarded by the gateway from the
// X-User-ID header and puts it on the request context. Requests without an
// identity are rejected before reaching any handler.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "X-User-ID header required",
			})
			c.Abort()
			return
		}

		// Set both camelCase and snake_case for handler compatibility
		c.Set("userId", userID)
		c.Set("user_id", userID)
		c.Next()
	}
}

// DevelopmentAuthMiddleware is a simple auth middleware for development
func DevelopmentAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			userID = "00000000-0000-0000-0000-000000000001" // Valid UUID for dev
		}

		c.Set("userId", userID)
		c.Set("user_id", userID)
		c.Next()
	}
}
