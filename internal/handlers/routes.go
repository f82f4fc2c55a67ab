package handlers

import (
	"github.com/gin-gonic/gin"

	"invoice-pipeline/internal/auth"
	"invoice-pipeline/internal/backup"
	"invoice-pipeline/internal/emailcheck"
	"invoice-pipeline/internal/middleware"
	"invoice-pipeline/internal/repository"
)

// Deps bundles everything the route tree needs to construct handlers.
// Built once in cmd/server/main.go.
type Deps struct {
	Users         *repository.UserRepository
	Monitors      *repository.MonitorRepository
	Issuer        *auth.TokenIssuer
	CheckService  *emailcheck.Service
	Supervisor    *backup.Supervisor
	EncryptionKey string
}

// RegisterRoutes lays out the full API surface under the given router
// group (typically "/api"), mirroring the teacher's grouped-router idiom
// in cmd/server/main.go.
func RegisterRoutes(api *gin.RouterGroup, deps Deps) {
	authHandler := NewAuthHandler(deps.Users, deps.Issuer)
	authGroup := api.Group("/auth", middleware.AuthRateLimitMiddleware())
	authHandler.RegisterRoutes(authGroup)

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(deps.Issuer), middleware.APIRateLimitMiddleware())

	monitorHandler := NewMonitorHandler(deps.Monitors, deps.EncryptionKey)
	monitorHandler.RegisterRoutes(protected.Group("/monitors"))

	checkHandler := NewCheckHandler(deps.CheckService, deps.Monitors)
	checkHandler.RegisterRoutes(protected.Group("/monitors"))

	backupHandler := NewBackupHandler(deps.Supervisor)
	backupGroup := protected.Group("/backups")
	backupGroup.Use(middleware.RequireAdmin())
	backupHandler.RegisterRoutes(backupGroup)
}
