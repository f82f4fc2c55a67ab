package handlers

import (
	"github.com/gin-gonic/gin"

	"invoice-pipeline/internal/apperr"
	"invoice-pipeline/internal/httpx"
	"invoice-pipeline/internal/middleware"
	"invoice-pipeline/internal/models"
	"invoice-pipeline/internal/repository"
	"invoice-pipeline/internal/utils"
)

// MonitorHandler is the CRUD surface for email_monitors (§3), scoped to
// the authenticated caller's owner_user_id.
type MonitorHandler struct {
	monitors      *repository.MonitorRepository
	encryptionKey string
}

func NewMonitorHandler(monitors *repository.MonitorRepository, encryptionKey string) *MonitorHandler {
	return &MonitorHandler{monitors: monitors, encryptionKey: encryptionKey}
}

func (h *MonitorHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", h.List)
	r.POST("", h.Create)
	r.GET("/:id", h.Get)
	r.PATCH("/:id", h.Update)
	r.DELETE("/:id", h.Delete)
}

func (h *MonitorHandler) List(c *gin.Context) {
	owner := middleware.GetUserID(c)
	monitors, err := h.monitors.FindAllForOwner(c, owner)
	if err != nil {
		httpx.Fail(c, apperr.Wrap(apperr.ProcessingError, "failed listing monitors", err))
		return
	}
	httpx.OK(c, 200, monitors)
}

type createMonitorInput struct {
	EmailAddress           string `json:"email_address" binding:"required"`
	MailboxName            string `json:"mailbox_name"`
	IMAPHost               string `json:"imap_host" binding:"required"`
	IMAPPort               int    `json:"imap_port"`
	AuthMethod             string `json:"auth_method"`
	Password               string `json:"password"`
	OAuthRefreshToken      string `json:"oauth_refresh_token"`
	RequireInvoiceKeywords bool   `json:"require_invoice_keywords"`
}

func (h *MonitorHandler) Create(c *gin.Context) {
	var in createMonitorInput
	if err := c.ShouldBindJSON(&in); err != nil {
		httpx.Fail(c, apperr.Wrap(apperr.InvalidInput, "invalid monitor payload", err))
		return
	}

	authMethod := in.AuthMethod
	if authMethod == "" {
		authMethod = "password"
	}
	port := in.IMAPPort
	if port == 0 {
		port = 993
	}
	mailbox := in.MailboxName
	if mailbox == "" {
		mailbox = "inbox"
	}

	monitor := &models.Monitor{
		ID:                     utils.GenerateUUID(),
		OwnerUserID:            middleware.GetUserID(c),
		EmailAddress:           in.EmailAddress,
		MailboxName:            mailbox,
		IMAPHost:               in.IMAPHost,
		IMAPPort:               port,
		AuthMethod:             authMethod,
		RequireInvoiceKeywords: in.RequireInvoiceKeywords,
		IsActive:               true,
	}

	if authMethod == "password" && in.Password != "" {
		enc, err := utils.EncryptAtRest(h.encryptionKey, in.Password)
		if err != nil {
			httpx.Fail(c, apperr.Wrap(apperr.ProcessingError, "failed encrypting monitor password", err))
			return
		}
		monitor.EncryptedPassword = &enc
	}
	if authMethod == "oauth2" && in.OAuthRefreshToken != "" {
		enc, err := utils.EncryptAtRest(h.encryptionKey, in.OAuthRefreshToken)
		if err != nil {
			httpx.Fail(c, apperr.Wrap(apperr.ProcessingError, "failed encrypting oauth token", err))
			return
		}
		monitor.OAuthRefreshToken = &enc
	}

	if err := h.monitors.Create(c, monitor); err != nil {
		httpx.Fail(c, apperr.Wrap(apperr.ProcessingError, "failed creating monitor", err))
		return
	}
	httpx.OK(c, 201, monitor)
}

func (h *MonitorHandler) Get(c *gin.Context) {
	monitor, err := h.findOwned(c)
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	httpx.OK(c, 200, monitor)
}

type updateMonitorInput struct {
	IsActive               *bool   `json:"is_active"`
	RequireInvoiceKeywords *bool   `json:"require_invoice_keywords"`
	MailboxName            *string `json:"mailbox_name"`
}

func (h *MonitorHandler) Update(c *gin.Context) {
	monitor, err := h.findOwned(c)
	if err != nil {
		httpx.Fail(c, err)
		return
	}

	var in updateMonitorInput
	if err := c.ShouldBindJSON(&in); err != nil {
		httpx.Fail(c, apperr.Wrap(apperr.InvalidInput, "invalid update payload", err))
		return
	}

	updates := map[string]any{}
	if in.IsActive != nil {
		updates["is_active"] = *in.IsActive
	}
	if in.RequireInvoiceKeywords != nil {
		updates["require_invoice_keywords"] = *in.RequireInvoiceKeywords
	}
	if in.MailboxName != nil {
		updates["mailbox_name"] = *in.MailboxName
	}
	if len(updates) == 0 {
		httpx.OK(c, 200, monitor)
		return
	}

	if err := h.monitors.Update(c, monitor.ID, updates); err != nil {
		httpx.Fail(c, apperr.Wrap(apperr.ProcessingError, "failed updating monitor", err))
		return
	}
	updated, _ := h.monitors.FindByID(c, monitor.ID)
	httpx.OK(c, 200, updated)
}

func (h *MonitorHandler) Delete(c *gin.Context) {
	monitor, err := h.findOwned(c)
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	if err := h.monitors.Delete(c, monitor.ID); err != nil {
		httpx.Fail(c, apperr.Wrap(apperr.ProcessingError, "failed deleting monitor", err))
		return
	}
	httpx.OK(c, 200, gin.H{"deleted": true})
}

func (h *MonitorHandler) findOwned(c *gin.Context) (*models.Monitor, error) {
	monitor, err := h.monitors.FindByID(c, c.Param("id"))
	if err != nil {
		return nil, apperr.Wrap(apperr.NotFound, "monitor not found", err)
	}
	if monitor.OwnerUserID != middleware.GetUserID(c) && middleware.GetUserRole(c) != models.RoleAdmin {
		return nil, apperr.New(apperr.NotFound, "monitor not found")
	}
	return monitor, nil
}
