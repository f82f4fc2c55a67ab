package handlers

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"invoice-pipeline/internal/apperr"
	"invoice-pipeline/internal/auth"
	"invoice-pipeline/internal/httpx"
	"invoice-pipeline/internal/middleware"
	"invoice-pipeline/internal/models"
	"invoice-pipeline/internal/repository"
	"invoice-pipeline/internal/utils"
)

// AuthHandler is the login/register surface backing the JWT issued by
// internal/auth and checked by middleware.AuthMiddleware.
type AuthHandler struct {
	users  *repository.UserRepository
	issuer *auth.TokenIssuer
}

func NewAuthHandler(users *repository.UserRepository, issuer *auth.TokenIssuer) *AuthHandler {
	return &AuthHandler{users: users, issuer: issuer}
}

func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/register", h.Register)
	r.POST("/login", h.Login)
	r.GET("/me", middleware.AuthMiddleware(h.issuer), h.Me)
}

type registerInput struct {
	Email       string  `json:"email" binding:"required"`
	Name        string  `json:"name"`
	Password    string  `json:"password" binding:"required"`
	AccountName *string `json:"account_name"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var in registerInput
	if err := c.ShouldBindJSON(&in); err != nil {
		httpx.Fail(c, apperr.Wrap(apperr.InvalidInput, "invalid registration payload", err))
		return
	}
	if len(in.Password) < 8 {
		httpx.Fail(c, apperr.New(apperr.InvalidInput, "password must be at least 8 characters"))
		return
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := h.users.FindByEmail(c, email); err == nil {
		httpx.Fail(c, apperr.New(apperr.InvalidInput, "email already registered"))
		return
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		httpx.Fail(c, apperr.Wrap(apperr.ProcessingError, "failed hashing password", err))
		return
	}

	user := &models.User{
		ID:           utils.GenerateUUID(),
		Email:        email,
		Name:         in.Name,
		PasswordHash: hash,
		Role:         models.RoleViewer,
		AccountName:  in.AccountName,
		IsActive:     true,
	}
	if err := h.users.Create(c, user); err != nil {
		httpx.Fail(c, apperr.Wrap(apperr.ProcessingError, "failed creating user", err))
		return
	}

	token, err := h.issuer.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		httpx.Fail(c, apperr.Wrap(apperr.ProcessingError, "failed issuing token", err))
		return
	}
	httpx.OK(c, 201, gin.H{"user": user.ToResponse(), "token": token})
}

type loginInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var in loginInput
	if err := c.ShouldBindJSON(&in); err != nil {
		httpx.Fail(c, apperr.Wrap(apperr.InvalidInput, "invalid login payload", err))
		return
	}

	user, err := h.users.FindByEmail(c, in.Email)
	if err != nil {
		httpx.Fail(c, apperr.New(apperr.AuthFailed, "invalid credentials"))
		return
	}
	if !user.IsActive {
		httpx.Fail(c, apperr.New(apperr.Inactive, "account disabled"))
		return
	}
	if !utils.CheckPassword(user.PasswordHash, in.Password) {
		_ = h.users.IncrementFailedLogin(c, user.ID)
		httpx.Fail(c, apperr.New(apperr.AuthFailed, "invalid credentials"))
		return
	}

	_ = h.users.RecordLoginSuccess(c, user.ID, time.Now(), c.ClientIP())

	token, err := h.issuer.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		httpx.Fail(c, apperr.Wrap(apperr.ProcessingError, "failed issuing token", err))
		return
	}
	httpx.OK(c, 200, gin.H{"user": user.ToResponse(), "token": token})
}

func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.users.FindByID(c, middleware.GetUserID(c))
	if err != nil {
		httpx.Fail(c, apperr.Wrap(apperr.NotFound, "user not found", err))
		return
	}
	httpx.OK(c, 200, user.ToResponse())
}
