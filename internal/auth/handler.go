package auth

import (
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lumen-analytics/backend/internal/access"
	"github.com/lumen-analytics/backend/internal/apperr"
	"github.com/lumen-analytics/backend/internal/models"
	"github.com/lumen-analytics/backend/pkg/response"
)

const msgResetRequested = "If the email exists, a reset link has been generated."

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=80"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// ForgotPasswordRequest is the body for POST /auth/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest is the body for POST /auth/reset-password.
type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required,min=32,max=256"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	svc              *Service
	baseURL          string
	exposeResetLinks bool
	logger           *zap.Logger
}

// NewHandler creates an auth handler. When exposeResetLinks is set, forgot-password returns the
// reset link in the response body in place of delivering it out of band.
func NewHandler(svc *Service, baseURL string, exposeResetLinks bool, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, baseURL: baseURL, exposeResetLinks: exposeResetLinks, logger: logger}
}

// Register handles POST /auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if !response.Bind(c, &req) {
		return
	}
	user, err := h.svc.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"user": user.ToPublic()})
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if !response.Bind(c, &req) {
		return
	}
	token, user, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// Me handles GET /auth/me.
func (h *Handler) Me(c *gin.Context) {
	id := access.IdentityFrom(c)
	if id == nil {
		response.Error(c, apperr.Unauthorized())
		return
	}
	user, err := h.svc.Me(c.Request.Context(), id.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, user.ToPublic())
}

// ForgotPassword handles POST /auth/forgot-password. The reply never reveals whether the email exists.
func (h *Handler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if !response.Bind(c, &req) {
		return
	}
	token, err := h.svc.RequestReset(c.Request.Context(), req.Email)
	if err != nil {
		h.logger.Error("password reset request failed", zap.Error(err))
	}
	body := gin.H{"message": msgResetRequested}
	if token != "" && h.exposeResetLinks {
		body["resetUrl"] = h.baseURL + "/reset-password?token=" + url.QueryEscape(token)
	}
	response.OK(c, body)
}

// ResetPassword handles POST /auth/reset-password.
func (h *Handler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if !response.Bind(c, &req) {
		return
	}
	if err := h.svc.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "Password has been reset."})
}
