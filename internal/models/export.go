package models

import (
	"time"

	"github.com/google/uuid"
)

// ExportStatus tracks an asynchronous CSV export.
type ExportStatus string

const (
	ExportPending   ExportStatus = "PENDING"
	ExportCompleted ExportStatus = "COMPLETED"
	ExportFailed    ExportStatus = "FAILED"
)

// Export is a request to dump a site's events to object storage.
type Export struct {
	ID          uuid.UUID    `json:"id"`
	WorkspaceID uuid.UUID    `json:"workspace_id"`
	SiteID      uuid.UUID    `json:"site_id"`
	RequestedBy uuid.UUID    `json:"requested_by"`
	Status      ExportStatus `json:"status"`
	From        *time.Time   `json:"from,omitempty"`
	To          *time.Time   `json:"to,omitempty"`
	ObjectKey   string       `json:"-"`
	RowCount    int64        `json:"row_count"`
	Error       string       `json:"error,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}
