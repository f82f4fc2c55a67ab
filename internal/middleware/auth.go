package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"invoice-pipeline/internal/apperr"
	"invoice-pipeline/internal/auth"
	"invoice-pipeline/internal/httpx"
)

// AuthMiddleware verifies the bearer JWT and sets userId/email/role on the
// gin context for downstream handlers.
func AuthMiddleware(issuer *auth.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			httpx.Fail(c, apperr.New(apperr.AuthFailed, "missing bearer token"))
			c.Abort()
			return
		}

		token := strings.TrimPrefix(header, "Bearer ")
		claims, err := issuer.Verify(token)
		if err != nil {
			httpx.Fail(c, apperr.Wrap(apperr.AuthFailed, "invalid or expired token", err))
			c.Abort()
			return
		}

		c.Set("userId", claims.UserID)
		c.Set("email", claims.Email)
		c.Set("role", claims.Role)
		c.Next()
	}
}

func GetUserID(c *gin.Context) string {
	if v, ok := c.Get("userId"); ok {
		return v.(string)
	}
	return ""
}

func GetUserRole(c *gin.Context) string {
	if v, ok := c.Get("role"); ok {
		return v.(string)
	}
	return ""
}
