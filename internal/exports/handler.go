package exports

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lumen-analytics/backend/internal/access"
	"github.com/lumen-analytics/backend/pkg/response"
)

// Handler handles export endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates an exports handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// CreateExportRequest is the body for POST /sites/:id/exports.
type CreateExportRequest struct {
	From *time.Time `json:"from"`
	To   *time.Time `json:"to"`
}

// Create handles POST /sites/:id/exports.
func (h *Handler) Create(c *gin.Context) {
	siteID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid site id")
		return
	}
	var body CreateExportRequest
	if c.Request.ContentLength != 0 && !response.Bind(c, &body) {
		return
	}
	e, err := h.svc.Request(c.Request.Context(), access.IdentityFrom(c), siteID, body.From, body.To)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, gin.H{"export": e})
}

// Get handles GET /exports/:id.
func (h *Handler) Get(c *gin.Context) {
	exportID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid export id")
		return
	}
	v, err := h.svc.Get(c.Request.Context(), access.IdentityFrom(c), exportID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"export": v})
}
