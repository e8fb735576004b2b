package analytics

import (
	"github.com/gin-gonic/gin"

	"github.com/lumen-analytics/backend/internal/middleware"
	"github.com/lumen-analytics/backend/pkg/response"
)

// Handler handles GET /workspaces/:id/summary.
type Handler struct {
	svc *Service
}

// NewHandler creates an analytics handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Summary requires stats.view, enforced by middleware.RequireWorkspacePermission.
func (h *Handler) Summary(c *gin.Context) {
	m := middleware.Membership(c)
	out, err := h.svc.Summary(c.Request.Context(), m.WorkspaceID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, out)
}
