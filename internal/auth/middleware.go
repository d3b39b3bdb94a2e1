package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"campus/internal/rbac"
)

// UserAuth enforces bearer JWT tokens signed with HS256.
func UserAuth(signingKey, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimSpace(authz[len("bearer "):])
		claims, err := Parse(tokenStr, signingKey, issuer)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set("claims", claims)
		c.Next()
	}
}

// Require gates a route on one action from the viewer's capability
// descriptor. The descriptor is a single table keyed by role, so adding a
// permission never means hunting for scattered role branches.
func Require(action rbac.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := FromContext(c)
		capability, err := rbac.CapabilityFor(claims.Role)
		if err != nil || !capability.Can(action) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "not permitted"})
			return
		}
		c.Next()
	}
}

// FromContext returns the claims set by UserAuth, or zero claims when the
// route is unauthenticated.
func FromContext(c *gin.Context) Claims {
	claimsAny, _ := c.Get("claims")
	claims, _ := claimsAny.(Claims)
	return claims
}
