// Package sites manages the tracked web properties of a workspace.
package sites

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumen-analytics/backend/internal/access"
	"github.com/lumen-analytics/backend/internal/apperr"
	"github.com/lumen-analytics/backend/internal/models"
	"github.com/lumen-analytics/backend/internal/permissions"
)

// Store is the site persistence; *Repository implements it.
type Store interface {
	Create(ctx context.Context, s *models.Site) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Site, error)
	ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*models.Site, error)
	Update(ctx context.Context, s *models.Site) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Input carries site fields; nil pointers leave a field unchanged on update.
type Input struct {
	Name     *string
	Domain   *string
	Timezone *string
	Status   *models.SiteStatus
}

// Service manages sites. Reads need VIEWER, writes ADMIN.
type Service struct {
	store  Store
	guard  *access.Guard
	logger *zap.Logger
}

// NewService creates a sites service.
func NewService(store Store, guard *access.Guard, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, guard: guard, logger: logger}
}

// List returns the workspace's sites, newest first.
func (s *Service) List(ctx context.Context, id *access.Identity, workspaceID uuid.UUID) ([]*models.Site, error) {
	if _, err := s.guard.Authorize(ctx, id, workspaceID, permissions.RoleViewer); err != nil {
		return nil, err
	}
	return s.store.ListByWorkspace(ctx, workspaceID)
}

// Get returns one site the caller can see.
func (s *Service) Get(ctx context.Context, id *access.Identity, siteID uuid.UUID) (*models.Site, error) {
	return s.load(ctx, id, siteID, permissions.RoleViewer)
}

// Create adds a site to a workspace. Name, domain and timezone are required; status defaults to ACTIVE.
func (s *Service) Create(ctx context.Context, id *access.Identity, workspaceID uuid.UUID, in Input) (*models.Site, error) {
	if _, err := s.guard.Authorize(ctx, id, workspaceID, permissions.RoleAdmin); err != nil {
		return nil, err
	}
	site := &models.Site{ID: uuid.New(), WorkspaceID: workspaceID, Status: models.SiteActive}
	var missing []apperr.FieldError
	if in.Name == nil {
		missing = append(missing, apperr.FieldError{Field: "name", Message: "is required"})
	}
	if in.Domain == nil {
		missing = append(missing, apperr.FieldError{Field: "domain", Message: "is required"})
	}
	if in.Timezone == nil {
		missing = append(missing, apperr.FieldError{Field: "timezone", Message: "is required"})
	}
	if len(missing) > 0 {
		return nil, apperr.Validation("invalid request", missing...)
	}
	if err := apply(site, in); err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, site); err != nil {
		return nil, err
	}
	s.logger.Info("site created",
		zap.String("workspace_id", workspaceID.String()),
		zap.String("site_id", site.ID.String()),
		zap.String("domain", site.Domain),
	)
	return site, nil
}

// Update changes the given fields of a site.
func (s *Service) Update(ctx context.Context, id *access.Identity, siteID uuid.UUID, in Input) (*models.Site, error) {
	site, err := s.load(ctx, id, siteID, permissions.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if err := apply(site, in); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, site); err != nil {
		return nil, err
	}
	return site, nil
}

// Delete removes a site.
func (s *Service) Delete(ctx context.Context, id *access.Identity, siteID uuid.UUID) error {
	site, err := s.load(ctx, id, siteID, permissions.RoleAdmin)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, site.ID); err != nil {
		return err
	}
	s.logger.Info("site deleted",
		zap.String("workspace_id", site.WorkspaceID.String()),
		zap.String("site_id", site.ID.String()),
	)
	return nil
}

// load resolves the site before authorizing, so an unknown id is 404 for everyone.
func (s *Service) load(ctx context.Context, id *access.Identity, siteID uuid.UUID, minRole permissions.Role) (*models.Site, error) {
	if id == nil {
		return nil, apperr.Unauthorized()
	}
	site, err := s.store.GetByID(ctx, siteID)
	if err != nil {
		return nil, err
	}
	if site == nil {
		return nil, apperr.NotFound("Site not found")
	}
	if _, err := s.guard.Authorize(ctx, id, site.WorkspaceID, minRole); err != nil {
		return nil, err
	}
	return site, nil
}

func apply(site *models.Site, in Input) error {
	var fields []apperr.FieldError
	check := func(field, v string, min, max int) string {
		v = strings.TrimSpace(v)
		if n := utf8.RuneCountInString(v); n < min || n > max {
			fields = append(fields, apperr.FieldError{Field: field, Message: lengthMessage(min, max)})
		}
		return v
	}
	if in.Name != nil {
		site.Name = check("name", *in.Name, 2, 80)
	}
	if in.Domain != nil {
		site.Domain = strings.ToLower(check("domain", *in.Domain, 4, 255))
	}
	if in.Timezone != nil {
		site.Timezone = check("timezone", *in.Timezone, 2, 64)
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			fields = append(fields, apperr.FieldError{Field: "status", Message: "must be one of: ACTIVE, PAUSED, ARCHIVED"})
		} else {
			site.Status = *in.Status
		}
	}
	if len(fields) > 0 {
		return apperr.Validation("invalid request", fields...)
	}
	return nil
}

func lengthMessage(min, max int) string {
	return fmt.Sprintf("must be between %d and %d characters", min, max)
}
