package invites

import (
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lumen-analytics/backend/internal/access"
	"github.com/lumen-analytics/backend/internal/activeworkspace"
	"github.com/lumen-analytics/backend/internal/models"
	"github.com/lumen-analytics/backend/internal/permissions"
	"github.com/lumen-analytics/backend/pkg/response"
)

// Handler handles invite HTTP endpoints.
type Handler struct {
	svc     *Service
	cookies activeworkspace.Cookies
	baseURL string
}

// NewHandler creates an invites handler. baseURL prefixes accept links; empty keeps them relative.
func NewHandler(svc *Service, cookies activeworkspace.Cookies, baseURL string) *Handler {
	return &Handler{svc: svc, cookies: cookies, baseURL: baseURL}
}

// CreateInviteRequest is the body for POST /workspaces/:id/invites.
type CreateInviteRequest struct {
	Email string `json:"email" binding:"required,email,max=255"`
	Role  string `json:"role" binding:"required,oneof=ADMIN ANALYST VIEWER"`
}

// AcceptInviteRequest is the body for POST /invites/accept.
type AcceptInviteRequest struct {
	Token string `json:"token" binding:"required,min=20,max=256"`
}

// InviteView is the public shape of an invite.
type InviteView struct {
	ID        uuid.UUID           `json:"id"`
	Email     string              `json:"email"`
	Role      permissions.Role    `json:"role"`
	Status    models.InviteStatus `json:"status"`
	ExpiresAt time.Time           `json:"expires_at"`
	CreatedAt time.Time           `json:"created_at"`
}

func toView(inv *models.Invite) InviteView {
	return InviteView{ID: inv.ID, Email: inv.Email, Role: inv.Role, Status: inv.Status, ExpiresAt: inv.ExpiresAt, CreatedAt: inv.CreatedAt}
}

// Create handles POST /workspaces/:id/invites.
func (h *Handler) Create(c *gin.Context) {
	workspaceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid workspace id")
		return
	}
	var body CreateInviteRequest
	if !response.Bind(c, &body) {
		return
	}
	issued, err := h.svc.Issue(c.Request.Context(), access.IdentityFrom(c), workspaceID, body.Email, permissions.Role(body.Role))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{
		"invite":    toView(issued.Invite),
		"acceptUrl": h.baseURL + "/accept-invite?token=" + url.QueryEscape(issued.Token),
	})
}

// List handles GET /workspaces/:id/invites.
func (h *Handler) List(c *gin.Context) {
	workspaceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid workspace id")
		return
	}
	list, err := h.svc.ListPending(c.Request.Context(), access.IdentityFrom(c), workspaceID)
	if err != nil {
		response.Error(c, err)
		return
	}
	out := make([]InviteView, 0, len(list))
	for _, inv := range list {
		out = append(out, toView(inv))
	}
	response.OK(c, out)
}

// Accept handles POST /invites/accept and makes the joined workspace active.
func (h *Handler) Accept(c *gin.Context) {
	var body AcceptInviteRequest
	if !response.Bind(c, &body) {
		return
	}
	inv, err := h.svc.Accept(c.Request.Context(), access.IdentityFrom(c), body.Token)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.cookies.Set(c, inv.WorkspaceID)
	response.OK(c, gin.H{"message": "Invite accepted", "workspaceId": inv.WorkspaceID})
}

// Revoke handles DELETE /invites/:inviteId.
func (h *Handler) Revoke(c *gin.Context) {
	inviteID, err := uuid.Parse(c.Param("inviteId"))
	if err != nil {
		response.BadRequest(c, "invalid invite id")
		return
	}
	inv, err := h.svc.Revoke(c.Request.Context(), access.IdentityFrom(c), inviteID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"invite": toView(inv)})
}
