package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/lumen-analytics/backend/internal/permissions"
)

// Workspace represents a tenant.
type Workspace struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	OwnerID   uuid.UUID `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Membership links a user to a workspace with exactly one role.
// Workspace and User are filled by directory lookups for display.
type Membership struct {
	ID          uuid.UUID        `json:"id"`
	WorkspaceID uuid.UUID        `json:"workspace_id"`
	UserID      uuid.UUID        `json:"user_id"`
	Role        permissions.Role `json:"role"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	Workspace   *Workspace       `json:"workspace,omitempty"`
	User        *UserPublic      `json:"user,omitempty"`
}
