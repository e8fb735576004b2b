// Package permissions holds the workspace role ladder and the fixed permission table.
package permissions

import (
	"fmt"
	"strings"
)

// Role is a member's rank inside a workspace.
type Role string

const (
	RoleViewer  Role = "VIEWER"
	RoleAnalyst Role = "ANALYST"
	RoleAdmin   Role = "ADMIN"
	RoleOwner   Role = "OWNER"
)

// Key names a single capability.
type Key string

const (
	WorkspaceBilling Key = "workspace.billing"
	WorkspaceDelete  Key = "workspace.delete"
	MembersManage    Key = "members.manage"
	SitesManage      Key = "sites.manage"
	StatsView        Key = "stats.view"
	SegmentsManage   Key = "segments.manage"
	EventsManage     Key = "events.manage"
	ExportsCreate    Key = "exports.create"
)

var rank = map[Role]int{
	RoleViewer:  1,
	RoleAnalyst: 2,
	RoleAdmin:   3,
	RoleOwner:   4,
}

// ANALYST and ADMIN are deliberately not nested: analysts work with data, admins with people and sites.
var table = map[Role][]Key{
	RoleOwner: {
		WorkspaceBilling,
		WorkspaceDelete,
		MembersManage,
		SitesManage,
		StatsView,
		SegmentsManage,
		EventsManage,
		ExportsCreate,
	},
	RoleAdmin:   {MembersManage, SitesManage, StatsView},
	RoleAnalyst: {StatsView, SegmentsManage, EventsManage, ExportsCreate},
	RoleViewer:  {StatsView},
}

// Roles returns all roles in ascending rank.
func Roles() []Role {
	return []Role{RoleViewer, RoleAnalyst, RoleAdmin, RoleOwner}
}

// Rank returns the ordinal of a role; unknown roles rank 0 and therefore satisfy nothing.
func Rank(r Role) int {
	return rank[r]
}

// Valid reports whether r is one of the four roles.
func (r Role) Valid() bool {
	_, ok := rank[r]
	return ok
}

// AtLeast reports whether r ranks at or above min.
func (r Role) AtLeast(min Role) bool {
	return r.Valid() && Rank(r) >= Rank(min)
}

// ParseRole accepts any casing of a role name.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// PermissionsOf returns a copy of the role's permission set.
func PermissionsOf(r Role) []Key {
	keys := table[r]
	out := make([]Key, len(keys))
	copy(out, keys)
	return out
}

// HasPermission is a table lookup.
func HasPermission(r Role, k Key) bool {
	for _, have := range table[r] {
		if have == k {
			return true
		}
	}
	return false
}

// CanAssumeRole reports whether actor may hand out target: strictly higher rank, or actor is OWNER.
func CanAssumeRole(actor, target Role) bool {
	if !actor.Valid() || !target.Valid() {
		return false
	}
	return Rank(actor) > Rank(target) || actor == RoleOwner
}
