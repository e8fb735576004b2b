package sites

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lumen-analytics/backend/internal/access"
	"github.com/lumen-analytics/backend/internal/models"
	"github.com/lumen-analytics/backend/pkg/response"
)

// Handler handles site HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a sites handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// CreateSiteRequest is the body for POST /sites.
type CreateSiteRequest struct {
	WorkspaceID uuid.UUID          `json:"workspaceId" binding:"required"`
	Name        string             `json:"name" binding:"required"`
	Domain      string             `json:"domain" binding:"required"`
	Timezone    string             `json:"timezone" binding:"required"`
	Status      *models.SiteStatus `json:"status" binding:"omitempty,oneof=ACTIVE PAUSED ARCHIVED"`
}

// UpdateSiteRequest is the body for PATCH /sites/:id.
type UpdateSiteRequest struct {
	Name     *string            `json:"name"`
	Domain   *string            `json:"domain"`
	Timezone *string            `json:"timezone"`
	Status   *models.SiteStatus `json:"status" binding:"omitempty,oneof=ACTIVE PAUSED ARCHIVED"`
}

// List handles GET /sites?workspaceId=.
func (h *Handler) List(c *gin.Context) {
	raw := c.Query("workspaceId")
	if raw == "" {
		response.BadRequest(c, "workspaceId is required")
		return
	}
	workspaceID, err := uuid.Parse(raw)
	if err != nil {
		response.BadRequest(c, "invalid workspace id")
		return
	}
	list, err := h.svc.List(c.Request.Context(), access.IdentityFrom(c), workspaceID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if list == nil {
		list = []*models.Site{}
	}
	response.OK(c, gin.H{"items": list})
}

// Create handles POST /sites.
func (h *Handler) Create(c *gin.Context) {
	var body CreateSiteRequest
	if !response.Bind(c, &body) {
		return
	}
	site, err := h.svc.Create(c.Request.Context(), access.IdentityFrom(c), body.WorkspaceID, Input{
		Name:     &body.Name,
		Domain:   &body.Domain,
		Timezone: &body.Timezone,
		Status:   body.Status,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"site": site})
}

// Get handles GET /sites/:id.
func (h *Handler) Get(c *gin.Context) {
	siteID, ok := siteParam(c)
	if !ok {
		return
	}
	site, err := h.svc.Get(c.Request.Context(), access.IdentityFrom(c), siteID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"site": site})
}

// Update handles PATCH /sites/:id.
func (h *Handler) Update(c *gin.Context) {
	siteID, ok := siteParam(c)
	if !ok {
		return
	}
	var body UpdateSiteRequest
	if !response.Bind(c, &body) {
		return
	}
	site, err := h.svc.Update(c.Request.Context(), access.IdentityFrom(c), siteID, Input{
		Name:     body.Name,
		Domain:   body.Domain,
		Timezone: body.Timezone,
		Status:   body.Status,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"site": site})
}

// Delete handles DELETE /sites/:id.
func (h *Handler) Delete(c *gin.Context) {
	siteID, ok := siteParam(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), access.IdentityFrom(c), siteID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "Site deleted"})
}

func siteParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid site id")
		return uuid.Nil, false
	}
	return id, true
}
