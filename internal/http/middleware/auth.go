// README: Firebase ID-token auth and role checks.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"coachquote/internal/infra"
)

const (
	ctxUID  = "auth.uid"
	ctxRole = "auth.role"

	RoleAdmin  = "admin"
	RoleSales  = "sales"
	RoleClient = "client"
)

// Auth verifies the bearer token and stores the caller's uid and role claim on the context.
// Callers without a role claim are treated as clients.
func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		token, err := verifier.VerifyIDToken(c.Request.Context(), strings.TrimSpace(raw))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(ctxUID, token.UID)
		c.Set(ctxRole, token.Role(RoleClient))
		c.Next()
	}
}

// RequireRole rejects callers whose role is not listed.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := CallerRole(c)
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}

func CallerUID(c *gin.Context) string {
	return c.GetString(ctxUID)
}

func CallerRole(c *gin.Context) string {
	return c.GetString(ctxRole)
}

// IsStaff reports whether the caller acts for the operator rather than as a client.
func IsStaff(c *gin.Context) bool {
	role := CallerRole(c)
	return role == RoleAdmin || role == RoleSales
}
