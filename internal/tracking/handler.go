package tracking

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lumen-analytics/backend/internal/metrics"
	"github.com/lumen-analytics/backend/pkg/response"
)

// Handler serves the public beacon endpoint.
type Handler struct {
	svc *Service
}

// NewHandler creates a tracking handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Track handles POST /track.
func (h *Handler) Track(c *gin.Context) {
	var b Beacon
	if !response.Bind(c, &b) {
		metrics.BeaconsRejected.WithLabelValues("validation").Inc()
		return
	}
	_, err := h.svc.Ingest(c.Request.Context(), b, Client{
		Headers:   c.Request.Header,
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
