package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// userKey is the gin context key the middleware stores the User under.
const userKey = "auth.user"

// UserFrom returns the authenticated user set by RequireAuth, or nil.
func UserFrom(c *gin.Context) *User {
	if v, ok := c.Get(userKey); ok {
		if u, ok := v.(*User); ok {
			return u
		}
	}
	return nil
}

// bearerToken extracts the token from the Authorization header. It
// returns "" when the header is missing or not a Bearer scheme.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	const scheme = "Bearer "
	if !strings.HasPrefix(header, scheme) {
		return ""
	}
	return strings.TrimSpace(header[len(scheme):])
}

// RequireAuth rejects requests without a valid bearer token with 401 and
// stores the resolved user in the context for handlers.
func RequireAuth(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		u, err := svc.Authenticate(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		c.Set(userKey, u)
		c.Next()
	}
}

// RequireGuest rejects requests carrying a valid bearer token with 403.
// Register and login are guest-only.
func RequireGuest(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token != "" {
			if _, err := svc.Authenticate(c.Request.Context(), token); err == nil {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "already authenticated"})
				return
			}
		}
		c.Next()
	}
}
