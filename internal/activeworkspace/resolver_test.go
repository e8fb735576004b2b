package activeworkspace

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-analytics/backend/internal/access"
	"github.com/lumen-analytics/backend/internal/apperr"
	"github.com/lumen-analytics/backend/internal/models"
	"github.com/lumen-analytics/backend/internal/permissions"
)

type fakeDir struct {
	list []*models.Membership
}

func (f *fakeDir) ListForUser(_ context.Context, userID uuid.UUID) ([]*models.Membership, error) {
	var out []*models.Membership
	for _, m := range f.list {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeDir) Find(_ context.Context, userID, workspaceID uuid.UUID) (*models.Membership, error) {
	for _, m := range f.list {
		if m.UserID == userID && m.WorkspaceID == workspaceID {
			return m, nil
		}
	}
	return nil, nil
}

func fixture() (*fakeDir, uuid.UUID, []uuid.UUID) {
	user := uuid.New()
	ws := []uuid.UUID{uuid.New(), uuid.New()}
	d := &fakeDir{list: []*models.Membership{
		{ID: uuid.New(), UserID: user, WorkspaceID: ws[0], Role: permissions.RoleOwner, Workspace: &models.Workspace{ID: ws[0], Name: "Oldest", Slug: "oldest"}},
		{ID: uuid.New(), UserID: user, WorkspaceID: ws[1], Role: permissions.RoleViewer, Workspace: &models.Workspace{ID: ws[1], Name: "Newer", Slug: "newer"}},
	}}
	return d, user, ws
}

func TestResolve(t *testing.T) {
	d, user, ws := fixture()
	r := NewResolver(d, access.NewGuard(d, nil))
	ctx := context.Background()

	m, err := r.Resolve(ctx, user, ws[1].String())
	require.NoError(t, err)
	assert.Equal(t, ws[1], m.WorkspaceID)

	m, err = r.Resolve(ctx, user, "")
	require.NoError(t, err)
	assert.Equal(t, ws[0], m.WorkspaceID, "falls back to oldest")

	m, err = r.Resolve(ctx, user, uuid.New().String())
	require.NoError(t, err)
	assert.Equal(t, ws[0], m.WorkspaceID, "hint outside membership set is ignored")

	m, err = r.Resolve(ctx, user, "not-a-uuid")
	require.NoError(t, err)
	assert.Equal(t, ws[0], m.WorkspaceID)

	m, err = r.Resolve(ctx, uuid.New(), ws[0].String())
	require.NoError(t, err)
	assert.Nil(t, m, "no memberships resolves to none")
}

func TestSwitchRequiresMembership(t *testing.T) {
	d, user, ws := fixture()
	r := NewResolver(d, access.NewGuard(d, nil))

	_, err := r.Switch(context.Background(), &access.Identity{UserID: user}, uuid.New())
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	m, err := r.Switch(context.Background(), &access.Identity{UserID: user}, ws[1])
	require.NoError(t, err)
	assert.Equal(t, permissions.RoleViewer, m.Role)
}

func router(d *fakeDir, user uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(NewResolver(d, access.NewGuard(d, nil)), Cookies{Secure: true})
	r := gin.New()
	r.Use(func(c *gin.Context) {
		access.SetIdentity(c, access.Identity{UserID: user})
		c.Next()
	})
	r.GET("/workspaces/active", h.Current)
	r.POST("/workspaces/:id/switch", h.Switch)
	return r
}

func TestSwitchSetsCookie(t *testing.T) {
	d, user, ws := fixture()
	w := httptest.NewRecorder()
	router(d, user).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/workspaces/"+ws[1].String()+"/switch", nil))
	require.Equal(t, http.StatusOK, w.Code)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	ck := cookies[0]
	assert.Equal(t, CookieName, ck.Name)
	assert.Equal(t, ws[1].String(), ck.Value)
	assert.True(t, ck.HttpOnly)
	assert.True(t, ck.Secure)
	assert.Equal(t, http.SameSiteLaxMode, ck.SameSite)
	assert.Equal(t, int((30 * 24 * time.Hour).Seconds()), ck.MaxAge)
}

func TestSwitchForbiddenLeavesCookieUntouched(t *testing.T) {
	d, user, _ := fixture()
	w := httptest.NewRecorder()
	router(d, user).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/workspaces/"+uuid.New().String()+"/switch", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Result().Cookies())
}

func TestCurrentUsesCookieHint(t *testing.T) {
	d, user, ws := fixture()
	req := httptest.NewRequest(http.MethodGet, "/workspaces/active", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: ws[1].String()})
	w := httptest.NewRecorder()
	router(d, user).ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"slug":"newer"`)
}
