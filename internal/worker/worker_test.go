package worker

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-analytics/backend/internal/models"
	"github.com/lumen-analytics/backend/pkg/queue"
)

type fakeStore struct {
	mu      sync.Mutex
	exports map[uuid.UUID]*models.Export
	events  []*models.AnalyticsEvent
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*models.Export, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.exports[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStore) MarkCompleted(_ context.Context, id uuid.UUID, key string, rows int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := f.exports[id]
	e.Status, e.ObjectKey, e.RowCount, e.CompletedAt = models.ExportCompleted, key, rows, &at
	return nil
}

func (f *fakeStore) MarkFailed(_ context.Context, id uuid.UUID, reason string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := f.exports[id]
	e.Status, e.Error, e.CompletedAt = models.ExportFailed, reason, &at
	return nil
}

func (f *fakeStore) EachEvent(_ context.Context, siteID uuid.UUID, from, to *time.Time, fn func(*models.AnalyticsEvent) error) error {
	for _, e := range f.events {
		if e.SiteID != siteID {
			continue
		}
		if from != nil && e.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && !e.CreatedAt.Before(*to) {
			continue
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeStore) status(id uuid.UUID) models.ExportStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exports[id].Status
}

type memUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func (u *memUploader) Upload(_ context.Context, key, _ string, body io.Reader) error {
	if u.err != nil {
		return u.err
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.objects[key] = b
	return nil
}

func seed() (*fakeStore, *models.Export) {
	site := uuid.New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	visitor := "v-1"
	events := []*models.AnalyticsEvent{
		{ID: uuid.New(), SiteID: site, EventName: "page_view", Path: "/", Source: "Direct", Country: "DE", VisitorID: &visitor, CreatedAt: base},
		{ID: uuid.New(), SiteID: site, EventName: "click", Path: "/a,b", Source: "Referral", Country: "US", CreatedAt: base.Add(time.Hour)},
		{ID: uuid.New(), SiteID: uuid.New(), EventName: "page_view", Path: "/", Source: "Direct", Country: "FR", CreatedAt: base},
	}
	e := &models.Export{ID: uuid.New(), WorkspaceID: uuid.New(), SiteID: site, Status: models.ExportPending}
	return &fakeStore{exports: map[uuid.UUID]*models.Export{e.ID: e}, events: events}, e
}

func TestProcessWritesCSV(t *testing.T) {
	store, e := seed()
	up := &memUploader{objects: map[string][]byte{}}
	p := NewExportProcessor(store, up, nil, time.Second, nil)

	job := &queue.Job{ID: "j1", Type: queue.JobTypeExport, Payload: []byte(`{"export_id":"` + e.ID.String() + `"}`)}
	require.NoError(t, p.Process(context.Background(), job))

	got := store.exports[e.ID]
	assert.Equal(t, models.ExportCompleted, got.Status)
	assert.Equal(t, int64(2), got.RowCount)
	require.Contains(t, up.objects, got.ObjectKey)

	records, err := csv.NewReader(bytes.NewReader(up.objects[got.ObjectKey])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "created_at", records[0][1])
	assert.Equal(t, "v-1", records[1][7])
	assert.Equal(t, "/a,b", records[2][3])

	require.NoError(t, p.Process(context.Background(), job), "finished exports are skipped")
}

func TestProcessUploadFailure(t *testing.T) {
	store, e := seed()
	p := NewExportProcessor(store, &memUploader{err: errors.New("access denied")}, nil, time.Second, nil)
	job := &queue.Job{ID: "j1", Type: queue.JobTypeExport, Payload: []byte(`{"export_id":"` + e.ID.String() + `"}`)}
	err := p.Process(context.Background(), job)
	assert.ErrorContains(t, err, "access denied")
	assert.Equal(t, models.ExportPending, store.status(e.ID))
}

func TestProcessRejectsUnknownJobType(t *testing.T) {
	store, _ := seed()
	p := NewExportProcessor(store, &memUploader{}, nil, time.Second, nil)
	assert.Error(t, p.Process(context.Background(), &queue.Job{Type: "email"}))
}

func TestRunMarksFailedAfterRetries(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	q := queue.NewQueue(client, 2, nil)

	store, e := seed()
	p := NewExportProcessor(store, &memUploader{err: errors.New("bucket missing")}, q, time.Second, nil)
	p.backoff = time.Millisecond
	require.NoError(t, q.EnqueueExport(context.Background(), queue.ExportPayload{ExportID: e.ID}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool { return store.status(e.ID) == models.ExportFailed }, 5*time.Second, 10*time.Millisecond)
	cancel()
	<-done

	dlq, err := mr.List(queue.QueueDLQ)
	require.NoError(t, err)
	assert.Len(t, dlq, 1)
}

func TestRunCompletesJob(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	q := queue.NewQueue(client, 3, nil)

	store, e := seed()
	p := NewExportProcessor(store, &memUploader{objects: map[string][]byte{}}, q, time.Second, nil)
	require.NoError(t, q.EnqueueExport(context.Background(), queue.ExportPayload{ExportID: e.ID}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)
	require.Eventually(t, func() bool { return store.status(e.ID) == models.ExportCompleted }, 5*time.Second, 10*time.Millisecond)
}
