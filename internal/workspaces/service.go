// Package workspaces creates and administers tenants.
package workspaces

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumen-analytics/backend/internal/apperr"
	"github.com/lumen-analytics/backend/internal/models"
	"github.com/lumen-analytics/backend/internal/permissions"
	"github.com/lumen-analytics/backend/pkg/database"
)

// MaxSlugAttempts bounds the slug retry loop under contention.
const MaxSlugAttempts = 20

// Store is the workspace persistence; *Repository implements it.
type Store interface {
	SlugTaken(ctx context.Context, slug string) (bool, error)
	Create(ctx context.Context, w *models.Workspace) error
	Rename(ctx context.Context, id uuid.UUID, name string) (*models.Workspace, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Members lists and writes memberships; *memberships.Repository implements it.
type Members interface {
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Membership, error)
	Upsert(ctx context.Context, workspaceID, userID uuid.UUID, role permissions.Role) error
}

// TxRunner runs fn in one transaction.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service manages workspaces. Authorization for rename/delete is applied by the route guard.
type Service struct {
	store   Store
	members Members
	tx      TxRunner
	logger  *zap.Logger
}

// NewService creates a workspaces service.
func NewService(store Store, members Members, tx TxRunner, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, members: members, tx: tx, logger: logger}
}

// ListMine returns the caller's memberships, oldest workspace first.
func (s *Service) ListMine(ctx context.Context, userID uuid.UUID) ([]*models.Membership, error) {
	return s.members.ListForUser(ctx, userID)
}

// Create inserts a workspace with a unique slug and makes ownerID its OWNER in the same transaction.
// The existence check is advisory; a concurrent insert of the same slug is caught by the unique
// constraint and retried with the next suffix.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, name string) (*models.Workspace, error) {
	name = strings.TrimSpace(name)
	base := Slugify(name)
	n := 0
	for attempt := 0; attempt < MaxSlugAttempts; attempt++ {
		slug := candidate(base, n)
		n++
		taken, err := s.store.SlugTaken(ctx, slug)
		if err != nil {
			return nil, err
		}
		if taken {
			continue
		}
		w := &models.Workspace{ID: uuid.New(), Name: name, Slug: slug, OwnerID: ownerID}
		err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
			if err := s.store.Create(ctx, w); err != nil {
				return err
			}
			return s.members.Upsert(ctx, w.ID, ownerID, permissions.RoleOwner)
		})
		if database.IsUniqueViolation(err) {
			s.logger.Debug("workspace slug raced, retrying", zap.String("slug", slug))
			continue
		}
		if err != nil {
			return nil, err
		}
		s.logger.Info("workspace created",
			zap.String("workspace_id", w.ID.String()),
			zap.String("slug", w.Slug),
		)
		return w, nil
	}
	return nil, apperr.Conflict("Could not allocate a unique workspace slug")
}

// Rename changes the display name; the slug is stable.
func (s *Service) Rename(ctx context.Context, id uuid.UUID, name string) (*models.Workspace, error) {
	w, err := s.store.Rename(ctx, id, strings.TrimSpace(name))
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, apperr.NotFound("Workspace not found")
	}
	return w, nil
}

// Delete removes the workspace and everything it owns.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("workspace deleted", zap.String("workspace_id", id.String()))
	return nil
}
