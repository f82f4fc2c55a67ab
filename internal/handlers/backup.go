package handlers

import (
	"github.com/gin-gonic/gin"

	"invoice-pipeline/internal/apperr"
	"invoice-pipeline/internal/backup"
	"invoice-pipeline/internal/httpx"
)

// BackupHandler exposes the §4.C4 supervisor's manual operations to
// admins; scheduled operation is unattended via Supervisor.Start.
type BackupHandler struct {
	supervisor *backup.Supervisor
}

func NewBackupHandler(supervisor *backup.Supervisor) *BackupHandler {
	return &BackupHandler{supervisor: supervisor}
}

func (h *BackupHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", h.List)
	r.GET("/stats", h.Stats)
	r.POST("", h.Create)
	r.POST("/cleanup", h.Cleanup)
	r.POST("/:name/restore", h.Restore)
}

func (h *BackupHandler) List(c *gin.Context) {
	snapshots, err := h.supervisor.List()
	if err != nil {
		httpx.Fail(c, apperr.Wrap(apperr.ProcessingError, "failed listing backups", err))
		return
	}
	httpx.OK(c, 200, snapshots)
}

func (h *BackupHandler) Stats(c *gin.Context) {
	stats, err := h.supervisor.Stats()
	if err != nil {
		httpx.Fail(c, apperr.Wrap(apperr.ProcessingError, "failed computing backup stats", err))
		return
	}
	httpx.OK(c, 200, stats)
}

func (h *BackupHandler) Create(c *gin.Context) {
	snapshot, err := h.supervisor.CreateSnapshot()
	if err != nil {
		httpx.Fail(c, apperr.Wrap(apperr.ProcessingError, "failed creating backup", err))
		return
	}
	httpx.OK(c, 201, snapshot)
}

func (h *BackupHandler) Cleanup(c *gin.Context) {
	removed, err := h.supervisor.Cleanup()
	if err != nil {
		httpx.Fail(c, apperr.Wrap(apperr.ProcessingError, "failed cleaning up backups", err))
		return
	}
	httpx.OK(c, 200, gin.H{"removed": removed})
}

func (h *BackupHandler) Restore(c *gin.Context) {
	result, err := h.supervisor.Restore(c.Param("name"))
	if err != nil {
		httpx.Fail(c, apperr.Wrap(apperr.NotFound, "restore failed", err))
		return
	}
	httpx.OK(c, 200, result)
}
