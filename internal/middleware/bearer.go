package middleware

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-authgate/authcascade/internal/util"

	"github.com/gin-gonic/gin"
)

// BearerAuth protects a route group with a static Bearer token. An empty
// token disables the check.
func BearerAuth(realm, token string) gin.HandlerFunc {
	// Compare digests so the comparison time does not depend on token length
	want := []byte(util.SHA256Hex(token))
	challenge := fmt.Sprintf("Bearer realm=%q", realm)

	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		provided, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || provided == "" {
			c.Header("WWW-Authenticate", challenge)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Bearer token required",
			})
			return
		}

		if subtle.ConstantTimeCompare([]byte(util.SHA256Hex(provided)), want) != 1 {
			c.Header("WWW-Authenticate", challenge)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Invalid token",
			})
			return
		}

		c.Next()
	}
}
