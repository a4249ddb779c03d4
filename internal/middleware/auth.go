package middleware

import (
	"net/http"
	"strings"

	"anoa.com/peerlink/pkg/token"
	"github.com/gin-gonic/gin"
)

type AuthMiddleware struct {
	tokens       *token.Manager
	accessCookie string
}

func NewAuthMiddleware(tokens *token.Manager, accessCookie string) *AuthMiddleware {
	return &AuthMiddleware{
		tokens:       tokens,
		accessCookie: accessCookie,
	}
}

// RequireAuth resolves the caller from the access cookie, a bearer header or
// the "token" query parameter (websockets), in that order.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, _ := c.Cookie(m.accessCookie)

		if tokenString == "" {
			if parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2); len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
		if tokenString == "" {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}

		claims, err := m.tokens.Parse(tokenString, token.TypeAccess)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set("user_id", claims.Subject)
		c.Set("role", claims.Role)
		c.Next()
	}
}

func (m *AuthMiddleware) RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("role") != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": role + " access required"})
			return
		}
		c.Next()
	}
}
