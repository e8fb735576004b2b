package memberships

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lumen-analytics/backend/internal/access"
	"github.com/lumen-analytics/backend/internal/models"
	"github.com/lumen-analytics/backend/internal/permissions"
	"github.com/lumen-analytics/backend/pkg/response"
)

// Handler handles team member HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a memberships handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// UpdateRoleRequest is the body for PATCH /members/:memberId.
type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=ADMIN ANALYST VIEWER"`
}

// Member is a team row for GET /workspaces/:id/members.
type Member struct {
	ID     uuid.UUID        `json:"id"`
	UserID uuid.UUID        `json:"user_id"`
	Email  string           `json:"email"`
	Name   string           `json:"name"`
	Role   permissions.Role `json:"role"`
}

func toMember(m *models.Membership) Member {
	out := Member{ID: m.ID, UserID: m.UserID, Role: m.Role}
	if m.User != nil {
		out.Email = m.User.Email
		out.Name = m.User.Name
	}
	return out
}

// ListMembers handles GET /workspaces/:id/members.
func (h *Handler) ListMembers(c *gin.Context) {
	workspaceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid workspace id")
		return
	}
	list, err := h.svc.List(c.Request.Context(), access.IdentityFrom(c), workspaceID)
	if err != nil {
		response.Error(c, err)
		return
	}
	out := make([]Member, 0, len(list))
	for _, m := range list {
		out = append(out, toMember(m))
	}
	response.OK(c, out)
}

// UpdateRole handles PATCH /members/:memberId.
func (h *Handler) UpdateRole(c *gin.Context) {
	memberID, err := uuid.Parse(c.Param("memberId"))
	if err != nil {
		response.BadRequest(c, "invalid member id")
		return
	}
	var body UpdateRoleRequest
	if !response.Bind(c, &body) {
		return
	}
	m, err := h.svc.ChangeRole(c.Request.Context(), access.IdentityFrom(c), memberID, permissions.Role(body.Role))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"member": toMember(m)})
}

// Remove handles DELETE /members/:memberId.
func (h *Handler) Remove(c *gin.Context) {
	memberID, err := uuid.Parse(c.Param("memberId"))
	if err != nil {
		response.BadRequest(c, "invalid member id")
		return
	}
	if err := h.svc.Remove(c.Request.Context(), access.IdentityFrom(c), memberID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "Member removed"})
}
