package workspaces

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lumen-analytics/backend/internal/access"
	"github.com/lumen-analytics/backend/internal/activeworkspace"
	"github.com/lumen-analytics/backend/internal/apperr"
	"github.com/lumen-analytics/backend/internal/middleware"
	"github.com/lumen-analytics/backend/internal/permissions"
	"github.com/lumen-analytics/backend/pkg/response"
)

// Handler handles workspace HTTP endpoints.
type Handler struct {
	svc     *Service
	cookies activeworkspace.Cookies
}

// NewHandler creates a workspaces handler.
func NewHandler(svc *Service, cookies activeworkspace.Cookies) *Handler {
	return &Handler{svc: svc, cookies: cookies}
}

// WorkspaceRequest is the body for POST /workspaces and PATCH /workspaces/:id.
type WorkspaceRequest struct {
	Name string `json:"name" binding:"required,min=2,max=80"`
}

// Item is one row of GET /workspaces.
type Item struct {
	ID   uuid.UUID        `json:"id"`
	Name string           `json:"name"`
	Slug string           `json:"slug"`
	Role permissions.Role `json:"role"`
}

// List handles GET /workspaces.
func (h *Handler) List(c *gin.Context) {
	id := access.IdentityFrom(c)
	if id == nil {
		response.Error(c, apperr.Unauthorized())
		return
	}
	list, err := h.svc.ListMine(c.Request.Context(), id.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	items := make([]Item, 0, len(list))
	for _, m := range list {
		item := Item{ID: m.WorkspaceID, Role: m.Role}
		if m.Workspace != nil {
			item.Name, item.Slug = m.Workspace.Name, m.Workspace.Slug
		}
		items = append(items, item)
	}
	response.OK(c, gin.H{"items": items})
}

// Create handles POST /workspaces and makes the new workspace active.
func (h *Handler) Create(c *gin.Context) {
	id := access.IdentityFrom(c)
	if id == nil {
		response.Error(c, apperr.Unauthorized())
		return
	}
	var body WorkspaceRequest
	if !response.Bind(c, &body) {
		return
	}
	w, err := h.svc.Create(c.Request.Context(), id.UserID, body.Name)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.cookies.Set(c, w.ID)
	response.Created(c, gin.H{"workspace": w})
}

// Update handles PATCH /workspaces/:id. Requires OWNER via middleware.RequireWorkspaceRole.
func (h *Handler) Update(c *gin.Context) {
	m := middleware.Membership(c)
	var body WorkspaceRequest
	if !response.Bind(c, &body) {
		return
	}
	w, err := h.svc.Rename(c.Request.Context(), m.WorkspaceID, body.Name)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"workspace": w})
}

// Delete handles DELETE /workspaces/:id. Requires OWNER via middleware.RequireWorkspaceRole.
func (h *Handler) Delete(c *gin.Context) {
	m := middleware.Membership(c)
	if err := h.svc.Delete(c.Request.Context(), m.WorkspaceID); err != nil {
		response.Error(c, err)
		return
	}
	if h.cookies.Hint(c) == m.WorkspaceID.String() {
		h.cookies.Clear(c)
	}
	response.OK(c, gin.H{"message": "Workspace deleted"})
}
