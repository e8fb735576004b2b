package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/lumen-analytics/backend/internal/permissions"
)

// InviteStatus is the stored state of an invite. Expiry is not a status; see Invite.Usable.
type InviteStatus string

const (
	InvitePending  InviteStatus = "PENDING"
	InviteAccepted InviteStatus = "ACCEPTED"
	InviteRevoked  InviteStatus = "REVOKED"
)

// Invite grants one email the right to join a workspace at a role.
type Invite struct {
	ID           uuid.UUID        `json:"id"`
	WorkspaceID  uuid.UUID        `json:"workspace_id"`
	Email        string           `json:"email"`
	Role         permissions.Role `json:"role"`
	TokenHash    string           `json:"-"`
	InvitedByID  uuid.UUID        `json:"invited_by_id"`
	Status       InviteStatus     `json:"status"`
	ExpiresAt    time.Time        `json:"expires_at"`
	AcceptedByID *uuid.UUID       `json:"accepted_by_id,omitempty"`
	AcceptedAt   *time.Time       `json:"accepted_at,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}

// Usable reports whether the invite can still be accepted at now.
// A PENDING invite past ExpiresAt keeps its status but is not usable.
func (i *Invite) Usable(now time.Time) bool {
	return i.Status == InvitePending && now.Before(i.ExpiresAt)
}
