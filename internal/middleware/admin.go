package middleware

import (
	"github.com/gin-gonic/gin"

	"invoice-pipeline/internal/apperr"
	"invoice-pipeline/internal/httpx"
	"invoice-pipeline/internal/models"
)

// RequireAdmin allows only admin users past an endpoint (backup admin
// surface, monitor management).
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetUserRole(c) != models.RoleAdmin {
			httpx.Fail(c, apperr.New(apperr.AuthFailed, "admin role required"))
			c.Abort()
			return
		}
		c.Next()
	}
}
