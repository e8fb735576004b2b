package permissions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankStrictlyIncreasing(t *testing.T) {
	roles := Roles()
	for i := 1; i < len(roles); i++ {
		assert.Less(t, Rank(roles[i-1]), Rank(roles[i]), "%s should rank below %s", roles[i-1], roles[i])
	}
	assert.Equal(t, 0, Rank(Role("GUEST")))
}

func TestPermissionTable(t *testing.T) {
	all := []Key{WorkspaceBilling, WorkspaceDelete, MembersManage, SitesManage, StatsView, SegmentsManage, EventsManage, ExportsCreate}
	want := map[Role]map[Key]bool{
		RoleOwner:   {WorkspaceBilling: true, WorkspaceDelete: true, MembersManage: true, SitesManage: true, StatsView: true, SegmentsManage: true, EventsManage: true, ExportsCreate: true},
		RoleAdmin:   {MembersManage: true, SitesManage: true, StatsView: true},
		RoleAnalyst: {StatsView: true, SegmentsManage: true, EventsManage: true, ExportsCreate: true},
		RoleViewer:  {StatsView: true},
	}
	for role, keys := range want {
		for _, k := range all {
			assert.Equal(t, keys[k], HasPermission(role, k), "%s / %s", role, k)
		}
	}
}

func TestAnalystAndAdminAreNotNested(t *testing.T) {
	assert.True(t, HasPermission(RoleAnalyst, ExportsCreate))
	assert.False(t, HasPermission(RoleAdmin, ExportsCreate))
	assert.True(t, HasPermission(RoleAdmin, MembersManage))
	assert.False(t, HasPermission(RoleAnalyst, MembersManage))
}

func TestPermissionsOfReturnsCopy(t *testing.T) {
	keys := PermissionsOf(RoleViewer)
	require.Len(t, keys, 1)
	keys[0] = WorkspaceDelete
	assert.False(t, HasPermission(RoleViewer, WorkspaceDelete))
}

func TestCanAssumeRole(t *testing.T) {
	for _, r := range Roles() {
		assert.True(t, CanAssumeRole(RoleOwner, r), "owner -> %s", r)
	}
	assert.False(t, CanAssumeRole(RoleAdmin, RoleAdmin))
	assert.False(t, CanAssumeRole(RoleAdmin, RoleOwner))
	assert.True(t, CanAssumeRole(RoleAdmin, RoleAnalyst))
	assert.True(t, CanAssumeRole(RoleAdmin, RoleViewer))
	assert.False(t, CanAssumeRole(RoleViewer, RoleViewer))
	assert.False(t, CanAssumeRole(Role("nope"), RoleViewer))
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" analyst ")
	require.NoError(t, err)
	assert.Equal(t, RoleAnalyst, r)

	_, err = ParseRole("superuser")
	assert.Error(t, err)
}

func TestAtLeast(t *testing.T) {
	assert.True(t, RoleAdmin.AtLeast(RoleAnalyst))
	assert.True(t, RoleAdmin.AtLeast(RoleAdmin))
	assert.False(t, RoleViewer.AtLeast(RoleAnalyst))
	assert.False(t, Role("").AtLeast(RoleViewer))
}
