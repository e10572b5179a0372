package middleware

import (
	"net/http" // HTTP status codes

	"github.com/gin-gonic/gin" // Gin web framework
)

// RequireIdentity rejects requests that carry no logged-in identity
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check if identity exists in context
		if _, ok := CurrentIdentity(c); !ok {
			// If not, abort with unauthorized status
			c.HTML(http.StatusUnauthorized, "error.html", gin.H{"message": "Log in with Discord first."})
			c.Abort()
			return
		}
		c.Next() // Logged in, proceed to the next handler
	}
}
