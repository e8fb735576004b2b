// Package exports lets analysts request CSV dumps of a site's events. Files are produced by
// the worker and fetched through short-lived signed URLs.
package exports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumen-analytics/backend/internal/access"
	"github.com/lumen-analytics/backend/internal/apperr"
	"github.com/lumen-analytics/backend/internal/models"
	"github.com/lumen-analytics/backend/internal/permissions"
	"github.com/lumen-analytics/backend/pkg/queue"
)

// Store is the export persistence; *Repository implements it.
type Store interface {
	Create(ctx context.Context, e *models.Export) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Export, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, objectKey string, rows int64, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string, at time.Time) error
}

// SiteLookup resolves the exported site.
type SiteLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Site, error)
}

// Enqueuer hands the export to the worker; *queue.Queue implements it.
type Enqueuer interface {
	EnqueueExport(ctx context.Context, payload queue.ExportPayload) error
}

// URLSigner signs download links; *storage.S3 implements it.
type URLSigner interface {
	DownloadURL(ctx context.Context, key string) (string, error)
}

// View is an export plus its download link once completed.
type View struct {
	*models.Export
	DownloadURL string `json:"download_url,omitempty"`
}

// Service creates and reads exports.
type Service struct {
	store  Store
	sites  SiteLookup
	guard  *access.Guard
	queue  Enqueuer
	signer URLSigner
	now    func() time.Time
	logger *zap.Logger
}

// NewService creates an exports service.
func NewService(store Store, sites SiteLookup, guard *access.Guard, q Enqueuer, signer URLSigner, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, sites: sites, guard: guard, queue: q, signer: signer, now: time.Now, logger: logger}
}

// Request creates a PENDING export of siteID for the optional [from, to) range and enqueues it.
// Requires exports.create on the site's workspace.
func (s *Service) Request(ctx context.Context, id *access.Identity, siteID uuid.UUID, from, to *time.Time) (*models.Export, error) {
	if id == nil {
		return nil, apperr.Unauthorized()
	}
	site, err := s.sites.GetByID(ctx, siteID)
	if err != nil {
		return nil, err
	}
	if site == nil {
		return nil, apperr.NotFound("Site not found")
	}
	if _, err := s.guard.AuthorizePermission(ctx, id, site.WorkspaceID, permissions.ExportsCreate); err != nil {
		return nil, err
	}
	if from != nil && to != nil && !from.Before(*to) {
		return nil, apperr.Field("to", "must be after from")
	}

	e := &models.Export{
		ID:          uuid.New(),
		WorkspaceID: site.WorkspaceID,
		SiteID:      site.ID,
		RequestedBy: id.UserID,
		Status:      models.ExportPending,
		From:        from,
		To:          to,
	}
	if err := s.store.Create(ctx, e); err != nil {
		return nil, err
	}
	if err := s.queue.EnqueueExport(ctx, queue.ExportPayload{ExportID: e.ID}); err != nil {
		s.logger.Error("enqueue export failed", zap.String("export_id", e.ID.String()), zap.Error(err))
		if mErr := s.store.MarkFailed(ctx, e.ID, "could not be scheduled", s.now()); mErr != nil {
			s.logger.Error("mark export failed", zap.String("export_id", e.ID.String()), zap.Error(mErr))
		}
		return nil, err
	}
	s.logger.Info("export requested",
		zap.String("workspace_id", e.WorkspaceID.String()),
		zap.String("site_id", e.SiteID.String()),
		zap.String("export_id", e.ID.String()),
	)
	return e, nil
}

// Get returns an export visible to any member of its workspace, signing a download URL when completed.
func (s *Service) Get(ctx context.Context, id *access.Identity, exportID uuid.UUID) (*View, error) {
	if id == nil {
		return nil, apperr.Unauthorized()
	}
	e, err := s.store.GetByID(ctx, exportID)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, apperr.NotFound("Export not found")
	}
	if _, err := s.guard.Authorize(ctx, id, e.WorkspaceID, permissions.RoleViewer); err != nil {
		return nil, err
	}
	v := &View{Export: e}
	if e.Status == models.ExportCompleted && e.ObjectKey != "" {
		url, err := s.signer.DownloadURL(ctx, e.ObjectKey)
		if err != nil {
			return nil, err
		}
		v.DownloadURL = url
	}
	return v, nil
}
