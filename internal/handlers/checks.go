package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"invoice-pipeline/internal/apperr"
	"invoice-pipeline/internal/emailcheck"
	"invoice-pipeline/internal/httpx"
	"invoice-pipeline/internal/middleware"
	"invoice-pipeline/internal/models"
	"invoice-pipeline/internal/repository"
)

// CheckHandler exposes the §4.C1 check engine's two entry points
// (check, diagnose) plus read-only history listings over check runs and
// processing logs.
type CheckHandler struct {
	service  *emailcheck.Service
	monitors *repository.MonitorRepository
}

func NewCheckHandler(service *emailcheck.Service, monitors *repository.MonitorRepository) *CheckHandler {
	return &CheckHandler{service: service, monitors: monitors}
}

func (h *CheckHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/:id/check", h.Check)
	r.POST("/:id/diagnose", h.Diagnose)
	r.GET("/:id/runs", h.ListRuns)
	r.GET("/runs/:runId/logs", h.ListLogsForRun)
	r.GET("/:id/logs", h.ListLogsForMonitor)
}

func (h *CheckHandler) Check(c *gin.Context) {
	monitor, err := h.ownedMonitor(c)
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	result, err := h.service.Check(c, monitor.ID, "manual", emailcheck.Options{})
	if err != nil {
		httpx.Fail(c, apperr.Wrap(apperr.ProcessingError, "check failed", err))
		return
	}
	httpx.OK(c, 200, result)
}

func (h *CheckHandler) Diagnose(c *gin.Context) {
	monitor, err := h.ownedMonitor(c)
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	result, err := h.service.Diagnose(c, monitor.ID, emailcheck.Options{})
	if err != nil {
		httpx.Fail(c, apperr.Wrap(apperr.ProcessingError, "diagnose failed", err))
		return
	}
	httpx.OK(c, 200, result)
}

func (h *CheckHandler) ListRuns(c *gin.Context) {
	monitor, err := h.ownedMonitor(c)
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	runs, err := h.service.ListCheckRuns(c, monitor.ID, limitParam(c, 50))
	if err != nil {
		httpx.Fail(c, apperr.Wrap(apperr.ProcessingError, "failed listing check runs", err))
		return
	}
	httpx.OK(c, 200, runs)
}

func (h *CheckHandler) ListLogsForRun(c *gin.Context) {
	logs, err := h.service.ListProcessingLogsForRun(c, c.Param("runId"))
	if err != nil {
		httpx.Fail(c, apperr.Wrap(apperr.ProcessingError, "failed listing processing logs", err))
		return
	}
	httpx.OK(c, 200, logs)
}

func (h *CheckHandler) ListLogsForMonitor(c *gin.Context) {
	monitor, err := h.ownedMonitor(c)
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	logs, err := h.service.ListProcessingLogsForMonitor(c, monitor.ID, limitParam(c, 100))
	if err != nil {
		httpx.Fail(c, apperr.Wrap(apperr.ProcessingError, "failed listing processing logs", err))
		return
	}
	httpx.OK(c, 200, logs)
}

func (h *CheckHandler) ownedMonitor(c *gin.Context) (*models.Monitor, error) {
	monitor, err := h.monitors.FindByID(c, c.Param("id"))
	if err != nil {
		return nil, apperr.Wrap(apperr.NotFound, "monitor not found", err)
	}
	if monitor.OwnerUserID != middleware.GetUserID(c) && middleware.GetUserRole(c) != models.RoleAdmin {
		return nil, apperr.New(apperr.NotFound, "monitor not found")
	}
	return monitor, nil
}

func limitParam(c *gin.Context, def int) int {
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
