package activeworkspace

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lumen-analytics/backend/internal/access"
	"github.com/lumen-analytics/backend/internal/apperr"
	"github.com/lumen-analytics/backend/internal/models"
	"github.com/lumen-analytics/backend/pkg/response"
)

// Handler serves the active-workspace endpoints.
type Handler struct {
	resolver *Resolver
	cookies  Cookies
}

// NewHandler creates an active-workspace handler.
func NewHandler(resolver *Resolver, cookies Cookies) *Handler {
	return &Handler{resolver: resolver, cookies: cookies}
}

// Active is the resolved workspace for GET /workspaces/active.
type Active struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
	Role string    `json:"role"`
}

func toActive(m *models.Membership) *Active {
	if m == nil {
		return nil
	}
	a := &Active{ID: m.WorkspaceID, Role: string(m.Role)}
	if m.Workspace != nil {
		a.Name = m.Workspace.Name
		a.Slug = m.Workspace.Slug
	}
	return a
}

// Current handles GET /workspaces/active.
func (h *Handler) Current(c *gin.Context) {
	id := access.IdentityFrom(c)
	if id == nil {
		response.Error(c, apperr.Unauthorized())
		return
	}
	m, err := h.resolver.Resolve(c.Request.Context(), id.UserID, h.cookies.Hint(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"workspace": toActive(m)})
}

// Switch handles POST /workspaces/:id/switch.
func (h *Handler) Switch(c *gin.Context) {
	workspaceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid workspace id")
		return
	}
	m, err := h.resolver.Switch(c.Request.Context(), access.IdentityFrom(c), workspaceID)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.cookies.Set(c, workspaceID)
	response.OK(c, gin.H{"workspace": toActive(m)})
}
