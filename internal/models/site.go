package models

import (
	"time"

	"github.com/google/uuid"
)

// SiteStatus is the lifecycle state of a tracked site.
type SiteStatus string

const (
	SiteActive   SiteStatus = "ACTIVE"
	SitePaused   SiteStatus = "PAUSED"
	SiteArchived SiteStatus = "ARCHIVED"
)

// Valid reports whether s is a known status.
func (s SiteStatus) Valid() bool {
	switch s {
	case SiteActive, SitePaused, SiteArchived:
		return true
	}
	return false
}

// Site belongs to exactly one workspace; (workspace_id, domain) is unique.
type Site struct {
	ID          uuid.UUID  `json:"id"`
	WorkspaceID uuid.UUID  `json:"workspace_id"`
	Name        string     `json:"name"`
	Domain      string     `json:"domain"`
	Timezone    string     `json:"timezone"`
	Status      SiteStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
