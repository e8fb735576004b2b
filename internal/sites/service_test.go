package sites

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-analytics/backend/internal/access"
	"github.com/lumen-analytics/backend/internal/apperr"
	"github.com/lumen-analytics/backend/internal/models"
	"github.com/lumen-analytics/backend/internal/permissions"
)

type directory map[uuid.UUID]*models.Membership

func (d directory) Find(_ context.Context, userID, workspaceID uuid.UUID) (*models.Membership, error) {
	m := d[userID]
	if m == nil || m.WorkspaceID != workspaceID {
		return nil, nil
	}
	return m, nil
}

type memStore struct {
	sites map[uuid.UUID]*models.Site
}

func (s *memStore) Create(_ context.Context, site *models.Site) error {
	for _, other := range s.sites {
		if other.WorkspaceID == site.WorkspaceID && other.Domain == site.Domain {
			return apperr.Conflict(msgDuplicateDomain)
		}
	}
	s.sites[site.ID] = site
	return nil
}

func (s *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.Site, error) {
	if site, ok := s.sites[id]; ok {
		cp := *site
		return &cp, nil
	}
	return nil, nil
}

func (s *memStore) ListByWorkspace(_ context.Context, workspaceID uuid.UUID) ([]*models.Site, error) {
	var out []*models.Site
	for _, site := range s.sites {
		if site.WorkspaceID == workspaceID {
			out = append(out, site)
		}
	}
	return out, nil
}

func (s *memStore) Update(_ context.Context, site *models.Site) error {
	s.sites[site.ID] = site
	return nil
}

func (s *memStore) Delete(_ context.Context, id uuid.UUID) error {
	delete(s.sites, id)
	return nil
}

type fixture struct {
	svc     *Service
	store   *memStore
	ws      uuid.UUID
	admin   *access.Identity
	viewer  *access.Identity
	outside *access.Identity
}

func setup() *fixture {
	ws := uuid.New()
	admin, viewer, outside := uuid.New(), uuid.New(), uuid.New()
	dir := directory{
		admin:   {ID: uuid.New(), WorkspaceID: ws, UserID: admin, Role: permissions.RoleAdmin},
		viewer:  {ID: uuid.New(), WorkspaceID: ws, UserID: viewer, Role: permissions.RoleViewer},
		outside: {ID: uuid.New(), WorkspaceID: uuid.New(), UserID: outside, Role: permissions.RoleOwner},
	}
	store := &memStore{sites: map[uuid.UUID]*models.Site{}}
	return &fixture{
		svc:     NewService(store, access.NewGuard(dir, nil), nil),
		store:   store,
		ws:      ws,
		admin:   &access.Identity{UserID: admin},
		viewer:  &access.Identity{UserID: viewer},
		outside: &access.Identity{UserID: outside},
	}
}

func str(s string) *string { return &s }

func TestCreateNormalizesAndDefaults(t *testing.T) {
	f := setup()
	site, err := f.svc.Create(context.Background(), f.admin, f.ws, Input{
		Name: str("  Marketing "), Domain: str(" Example.COM "), Timezone: str("UTC"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Marketing", site.Name)
	assert.Equal(t, "example.com", site.Domain)
	assert.Equal(t, models.SiteActive, site.Status)
}

func TestCreateRequiresAdmin(t *testing.T) {
	f := setup()
	in := Input{Name: str("Blog"), Domain: str("blog.example.com"), Timezone: str("UTC")}

	_, err := f.svc.Create(context.Background(), f.viewer, f.ws, in)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = f.svc.Create(context.Background(), f.outside, f.ws, in)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = f.svc.Create(context.Background(), nil, f.ws, in)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
	assert.Empty(t, f.store.sites)
}

func TestCreateDuplicateDomain(t *testing.T) {
	f := setup()
	in := Input{Name: str("Blog"), Domain: str("blog.example.com"), Timezone: str("UTC")}
	_, err := f.svc.Create(context.Background(), f.admin, f.ws, in)
	require.NoError(t, err)
	_, err = f.svc.Create(context.Background(), f.admin, f.ws, Input{Name: str("Blog 2"), Domain: str("BLOG.example.com"), Timezone: str("UTC")})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestCreateValidation(t *testing.T) {
	f := setup()
	bad := models.SiteStatus("DELETED")
	_, err := f.svc.Create(context.Background(), f.admin, f.ws, Input{Name: str("B"), Domain: str("a.b"), Timezone: str("UTC"), Status: &bad})
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindValidation, e.Kind)
	var names []string
	for _, fe := range e.Fields {
		names = append(names, fe.Field)
	}
	assert.ElementsMatch(t, []string{"name", "domain", "status"}, names)
}

func TestUpdateAndDelete(t *testing.T) {
	f := setup()
	site, err := f.svc.Create(context.Background(), f.admin, f.ws, Input{Name: str("Blog"), Domain: str("blog.example.com"), Timezone: str("UTC")})
	require.NoError(t, err)

	paused := models.SitePaused
	_, err = f.svc.Update(context.Background(), f.viewer, site.ID, Input{Status: &paused})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	updated, err := f.svc.Update(context.Background(), f.admin, site.ID, Input{Status: &paused})
	require.NoError(t, err)
	assert.Equal(t, models.SitePaused, updated.Status)
	assert.Equal(t, "Blog", updated.Name)

	_, err = f.svc.Update(context.Background(), f.admin, uuid.New(), Input{})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	require.NoError(t, f.svc.Delete(context.Background(), f.admin, site.ID))
	assert.Empty(t, f.store.sites)
}

func TestHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := setup()
	_, err := f.svc.Create(context.Background(), f.admin, f.ws, Input{Name: str("Blog"), Domain: str("blog.example.com"), Timezone: str("UTC")})
	require.NoError(t, err)

	h := NewHandler(f.svc)
	r := gin.New()
	r.Use(func(c *gin.Context) { access.SetIdentity(c, *f.viewer); c.Next() })
	r.GET("/sites", h.List)
	r.POST("/sites", h.Create)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sites", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sites?workspaceId="+f.ws.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data struct {
			Items []models.Site `json:"items"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data.Items, 1)
	assert.Equal(t, "blog.example.com", body.Data.Items[0].Domain)

	rec = httptest.NewRecorder()
	payload := `{"workspaceId":"` + f.ws.String() + `","name":"Shop","domain":"shop.example.com","timezone":"UTC"}`
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sites", strings.NewReader(payload)))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
