// Package memberships is the membership directory and the team management surface built on it.
package memberships

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumen-analytics/backend/internal/access"
	"github.com/lumen-analytics/backend/internal/apperr"
	"github.com/lumen-analytics/backend/internal/models"
	"github.com/lumen-analytics/backend/internal/permissions"
)

// Store is the persistence the team service needs; *Repository implements it.
type Store interface {
	access.Directory
	GetByID(ctx context.Context, id uuid.UUID) (*models.Membership, error)
	ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*models.Membership, error)
	// UpdateRole and Delete never touch an OWNER row and report whether a row changed.
	UpdateRole(ctx context.Context, id uuid.UUID, role permissions.Role) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// Service lists and manages workspace members.
type Service struct {
	store  Store
	guard  *access.Guard
	logger *zap.Logger
}

// NewService creates a memberships service.
func NewService(store Store, guard *access.Guard, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, guard: guard, logger: logger}
}

// List returns the workspace's members; any member may view the team.
func (s *Service) List(ctx context.Context, id *access.Identity, workspaceID uuid.UUID) ([]*models.Membership, error) {
	if _, err := s.guard.Authorize(ctx, id, workspaceID, permissions.RoleViewer); err != nil {
		return nil, err
	}
	return s.store.ListByWorkspace(ctx, workspaceID)
}

// ChangeRole updates a member's role after the guard and member-management rules pass.
func (s *Service) ChangeRole(ctx context.Context, id *access.Identity, memberID uuid.UUID, role permissions.Role) (*models.Membership, error) {
	target, actor, err := s.load(ctx, id, memberID)
	if err != nil {
		return nil, err
	}
	if err := access.CheckMemberChange(actor, target, &role); err != nil {
		return nil, err
	}
	changed, err := s.store.UpdateRole(ctx, target.ID, role)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, apperr.Forbidden("Cannot modify owner")
	}
	s.logger.Info("member role changed",
		zap.String("workspace_id", target.WorkspaceID.String()),
		zap.String("member_id", target.ID.String()),
		zap.String("from", string(target.Role)),
		zap.String("to", string(role)),
	)
	target.Role = role
	return target, nil
}

// Remove deletes a member after the guard and member-management rules pass.
func (s *Service) Remove(ctx context.Context, id *access.Identity, memberID uuid.UUID) error {
	target, actor, err := s.load(ctx, id, memberID)
	if err != nil {
		return err
	}
	if err := access.CheckMemberChange(actor, target, nil); err != nil {
		return err
	}
	removed, err := s.store.Delete(ctx, target.ID)
	if err != nil {
		return err
	}
	if !removed {
		return apperr.Forbidden("Cannot remove owner")
	}
	s.logger.Info("member removed",
		zap.String("workspace_id", target.WorkspaceID.String()),
		zap.String("member_id", target.ID.String()),
	)
	return nil
}

func (s *Service) load(ctx context.Context, id *access.Identity, memberID uuid.UUID) (target, actor *models.Membership, err error) {
	if id == nil {
		return nil, nil, apperr.Unauthorized()
	}
	target, err = s.store.GetByID(ctx, memberID)
	if err != nil {
		return nil, nil, err
	}
	if target == nil {
		return nil, nil, apperr.NotFound("Member not found")
	}
	actor, err = s.guard.Authorize(ctx, id, target.WorkspaceID, permissions.RoleAdmin)
	if err != nil {
		return nil, nil, err
	}
	return target, actor, nil
}
