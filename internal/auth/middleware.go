package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"qrattend/internal/identity"
)

const claimsKey = "claims"

// UserAuth enforces bearer JWT tokens signed with HS256 and stores the
// parsed claims on the request context. Role enforcement happens in the
// handlers, which must pass the role down to the core services.
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
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// CallerClaims returns the claims stored by UserAuth, if any.
func CallerClaims(c *gin.Context) (Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return Claims{}, false
	}
	claims, ok := v.(Claims)
	return claims, ok
}

// CallerRole returns the caller's role, or RoleStudent when unauthenticated;
// the core services reject anything but RoleTeacher on privileged paths.
func CallerRole(c *gin.Context) identity.Role {
	claims, ok := CallerClaims(c)
	if !ok {
		return identity.RoleStudent
	}
	return claims.Role
}
