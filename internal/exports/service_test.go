package exports

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-analytics/backend/internal/access"
	"github.com/lumen-analytics/backend/internal/apperr"
	"github.com/lumen-analytics/backend/internal/models"
	"github.com/lumen-analytics/backend/internal/permissions"
	"github.com/lumen-analytics/backend/pkg/queue"
)

type directory map[uuid.UUID]*models.Membership

func (d directory) Find(_ context.Context, userID, workspaceID uuid.UUID) (*models.Membership, error) {
	if m := d[userID]; m != nil && m.WorkspaceID == workspaceID {
		return m, nil
	}
	return nil, nil
}

type memStore struct {
	rows map[uuid.UUID]*models.Export
}

func (m *memStore) Create(_ context.Context, e *models.Export) error {
	m.rows[e.ID] = e
	return nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.Export, error) {
	return m.rows[id], nil
}

func (m *memStore) MarkCompleted(_ context.Context, id uuid.UUID, key string, rows int64, at time.Time) error {
	e := m.rows[id]
	e.Status, e.ObjectKey, e.RowCount, e.CompletedAt = models.ExportCompleted, key, rows, &at
	return nil
}

func (m *memStore) MarkFailed(_ context.Context, id uuid.UUID, reason string, at time.Time) error {
	e := m.rows[id]
	e.Status, e.Error, e.CompletedAt = models.ExportFailed, reason, &at
	return nil
}

type fakeSites map[uuid.UUID]*models.Site

func (f fakeSites) GetByID(_ context.Context, id uuid.UUID) (*models.Site, error) { return f[id], nil }

type fakeQueue struct {
	got []queue.ExportPayload
	err error
}

func (q *fakeQueue) EnqueueExport(_ context.Context, p queue.ExportPayload) error {
	if q.err != nil {
		return q.err
	}
	q.got = append(q.got, p)
	return nil
}

type fakeSigner struct{}

func (fakeSigner) DownloadURL(_ context.Context, key string) (string, error) {
	return "https://signed.example/" + key, nil
}

type fixture struct {
	svc                    *Service
	store                  *memStore
	queue                  *fakeQueue
	site                   *models.Site
	analyst, admin, viewer *access.Identity
}

func setup() *fixture {
	site := &models.Site{ID: uuid.New(), WorkspaceID: uuid.New(), Domain: "good.com"}
	dir := directory{}
	ids := map[permissions.Role]*access.Identity{}
	for _, r := range []permissions.Role{permissions.RoleAnalyst, permissions.RoleAdmin, permissions.RoleViewer} {
		u := uuid.New()
		dir[u] = &models.Membership{ID: uuid.New(), WorkspaceID: site.WorkspaceID, UserID: u, Role: r}
		ids[r] = &access.Identity{UserID: u}
	}
	store := &memStore{rows: map[uuid.UUID]*models.Export{}}
	q := &fakeQueue{}
	return &fixture{
		svc:     NewService(store, fakeSites{site.ID: site}, access.NewGuard(dir, nil), q, fakeSigner{}, nil),
		store:   store,
		queue:   q,
		site:    site,
		analyst: ids[permissions.RoleAnalyst],
		admin:   ids[permissions.RoleAdmin],
		viewer:  ids[permissions.RoleViewer],
	}
}

func TestRequestNeedsExportsCreate(t *testing.T) {
	f := setup()
	_, err := f.svc.Request(context.Background(), f.admin, f.site.ID, nil, nil)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err), "ADMIN outranks ANALYST but lacks exports.create")

	e, err := f.svc.Request(context.Background(), f.analyst, f.site.ID, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, models.ExportPending, e.Status)
	assert.Equal(t, f.site.WorkspaceID, e.WorkspaceID)
	require.Len(t, f.queue.got, 1)
	assert.Equal(t, e.ID, f.queue.got[0].ExportID)
}

func TestRequestValidatesRange(t *testing.T) {
	f := setup()
	from := time.Now()
	to := from.Add(-time.Hour)
	_, err := f.svc.Request(context.Background(), f.analyst, f.site.ID, &from, &to)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = f.svc.Request(context.Background(), f.analyst, uuid.New(), nil, nil)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestRequestFailsExportWhenQueueDown(t *testing.T) {
	f := setup()
	f.queue.err = errors.New("redis down")
	_, err := f.svc.Request(context.Background(), f.analyst, f.site.ID, nil, nil)
	assert.Error(t, err)
	require.Len(t, f.store.rows, 1)
	for _, e := range f.store.rows {
		assert.Equal(t, models.ExportFailed, e.Status)
	}
}

func TestGetSignsCompletedExports(t *testing.T) {
	f := setup()
	e, err := f.svc.Request(context.Background(), f.analyst, f.site.ID, nil, nil)
	require.NoError(t, err)

	v, err := f.svc.Get(context.Background(), f.viewer, e.ID)
	require.NoError(t, err)
	assert.Empty(t, v.DownloadURL)

	require.NoError(t, f.store.MarkCompleted(context.Background(), e.ID, "exports/k.csv", 3, time.Now()))
	v, err = f.svc.Get(context.Background(), f.viewer, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://signed.example/exports/k.csv", v.DownloadURL)

	_, err = f.svc.Get(context.Background(), &access.Identity{UserID: uuid.New()}, e.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

type sliceSource []*models.AnalyticsEvent

func (s sliceSource) EachEvent(_ context.Context, _ uuid.UUID, _, _ *time.Time, fn func(*models.AnalyticsEvent) error) error {
	for _, e := range s {
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

func TestWriteCSV(t *testing.T) {
	dur := 1200
	src := sliceSource{{ID: uuid.New(), EventName: "page_view", Path: "/", Source: "Direct", Country: "DE", DurationMs: &dur, CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}}
	var buf bytes.Buffer
	n, err := WriteCSV(context.Background(), &buf, src, &models.Export{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Contains(t, buf.String(), "2026-01-02T03:04:05Z,page_view,/,Direct,DE,,,,1200,,false")
}
