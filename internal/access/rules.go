package access

import (
	"github.com/lumen-analytics/backend/internal/apperr"
	"github.com/lumen-analytics/backend/internal/models"
	"github.com/lumen-analytics/backend/internal/permissions"
)

// CheckMemberChange applies the member-management rules on top of the base guard.
// actor is the caller's membership in target's workspace. newRole is nil for removals.
func CheckMemberChange(actor, target *models.Membership, newRole *permissions.Role) error {
	if actor == nil || actor.WorkspaceID != target.WorkspaceID || !actor.Role.AtLeast(permissions.RoleAdmin) {
		return apperr.Forbidden("")
	}
	if target.Role == permissions.RoleOwner {
		if newRole == nil {
			return apperr.Forbidden("Cannot remove owner")
		}
		return apperr.Forbidden("Cannot modify owner")
	}
	if newRole != nil {
		if *newRole == permissions.RoleOwner || !newRole.Valid() {
			return apperr.Field("role", "must be one of: ADMIN, ANALYST, VIEWER")
		}
		if !permissions.CanAssumeRole(actor.Role, *newRole) {
			return apperr.Forbidden("Insufficient permissions")
		}
	}
	if actor.Role != permissions.RoleOwner && permissions.Rank(target.Role) >= permissions.Rank(actor.Role) {
		return apperr.Forbidden("Cannot manage this member")
	}
	return nil
}

// CheckGrant reports whether actor may hand out role through an invite.
func CheckGrant(actor *models.Membership, role permissions.Role) error {
	if role == permissions.RoleOwner || !role.Valid() {
		return apperr.Field("role", "must be one of: ADMIN, ANALYST, VIEWER")
	}
	if !permissions.CanAssumeRole(actor.Role, role) {
		return apperr.Forbidden("You cannot invite this role")
	}
	return nil
}
