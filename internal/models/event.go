package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AnalyticsEvent is an append-only fact row.
type AnalyticsEvent struct {
	ID            uuid.UUID `json:"id"`
	WorkspaceID   uuid.UUID `json:"workspace_id"`
	SiteID        uuid.UUID `json:"site_id"`
	EventName     string    `json:"event_name"`
	Path          string    `json:"path"`
	Source        string    `json:"source"`
	Country       string    `json:"country"`
	Referrer      *string   `json:"referrer,omitempty"`
	VisitorID     *string   `json:"visitor_id,omitempty"`
	SessionID     *string   `json:"session_id,omitempty"`
	DurationMs    *int      `json:"duration_ms,omitempty"`
	ScrollPercent *int      `json:"scroll_percent,omitempty"`
	Bounced       bool      `json:"bounced"`
	CreatedAt     time.Time `json:"created_at"`
}

// AuditLog records a tenant-affecting action.
type AuditLog struct {
	ID          uuid.UUID       `json:"id"`
	WorkspaceID uuid.UUID       `json:"workspace_id"`
	ActorID     *uuid.UUID      `json:"actor_id,omitempty"`
	Action      string          `json:"action"`
	Resource    string          `json:"resource"`
	ResourceID  string          `json:"resource_id"`
	Metadata    json.RawMessage `json:"metadata"`
	CreatedAt   time.Time       `json:"created_at"`
}
