package access

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-analytics/backend/internal/apperr"
	"github.com/lumen-analytics/backend/internal/models"
	"github.com/lumen-analytics/backend/internal/permissions"
)

type fakeDirectory struct {
	members map[[2]uuid.UUID]*models.Membership
	err     error
	calls   int
}

func (f *fakeDirectory) Find(_ context.Context, userID, workspaceID uuid.UUID) (*models.Membership, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.members[[2]uuid.UUID{userID, workspaceID}], nil
}

func newDir(ws uuid.UUID, members map[uuid.UUID]permissions.Role) *fakeDirectory {
	d := &fakeDirectory{members: map[[2]uuid.UUID]*models.Membership{}}
	for userID, role := range members {
		d.members[[2]uuid.UUID{userID, ws}] = &models.Membership{ID: uuid.New(), WorkspaceID: ws, UserID: userID, Role: role}
	}
	return d
}

func TestAuthorize(t *testing.T) {
	ws := uuid.New()
	viewer, admin, stranger := uuid.New(), uuid.New(), uuid.New()
	g := NewGuard(newDir(ws, map[uuid.UUID]permissions.Role{viewer: permissions.RoleViewer, admin: permissions.RoleAdmin}), nil)
	ctx := context.Background()

	_, err := g.Authorize(ctx, nil, ws, permissions.RoleViewer)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	_, err = g.Authorize(ctx, &Identity{UserID: stranger}, ws, permissions.RoleViewer)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = g.Authorize(ctx, &Identity{UserID: viewer}, ws, permissions.RoleAdmin)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	m, err := g.Authorize(ctx, &Identity{UserID: admin}, ws, permissions.RoleAnalyst)
	require.NoError(t, err)
	assert.Equal(t, permissions.RoleAdmin, m.Role)

	_, err = g.Authorize(ctx, &Identity{UserID: admin}, uuid.New(), permissions.RoleViewer)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err), "membership in another workspace grants nothing")
}

func TestAuthorizeInfraErrorIsNotDenial(t *testing.T) {
	g := NewGuard(&fakeDirectory{err: errors.New("pool closed")}, nil)
	_, err := g.Authorize(context.Background(), &Identity{UserID: uuid.New()}, uuid.New(), permissions.RoleViewer)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

func TestAuthorizePermissionNotRankMonotonic(t *testing.T) {
	ws := uuid.New()
	analyst, admin := uuid.New(), uuid.New()
	g := NewGuard(newDir(ws, map[uuid.UUID]permissions.Role{analyst: permissions.RoleAnalyst, admin: permissions.RoleAdmin}), nil)

	_, err := g.AuthorizePermission(context.Background(), &Identity{UserID: analyst}, ws, permissions.ExportsCreate)
	assert.NoError(t, err)
	_, err = g.AuthorizePermission(context.Background(), &Identity{UserID: admin}, ws, permissions.ExportsCreate)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestAuthorizeOrAbort(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ws := uuid.New()
	viewer := uuid.New()
	g := NewGuard(newDir(ws, map[uuid.UUID]permissions.Role{viewer: permissions.RoleViewer}), nil)

	run := func(id *Identity, min permissions.Role) (*httptest.ResponseRecorder, bool) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		if id != nil {
			SetIdentity(c, *id)
		}
		_, ok := g.AuthorizeOrAbort(c, ws, min)
		return w, ok
	}

	w, ok := run(nil, permissions.RoleViewer)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"Unauthorized"`)

	w, ok = run(&Identity{UserID: viewer}, permissions.RoleAdmin)
	assert.False(t, ok)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"Forbidden"`)

	_, ok = run(&Identity{UserID: viewer}, permissions.RoleViewer)
	assert.True(t, ok)
}

func TestIdentityFrom(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, IdentityFrom(c))
	id := Identity{UserID: uuid.New(), Email: "a@b.co"}
	SetIdentity(c, id)
	assert.Equal(t, &id, IdentityFrom(c))
}
