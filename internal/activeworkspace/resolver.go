// Package activeworkspace resolves which workspace a session is operating against.
// The client-held hint is always intersected with the caller's live memberships.
package activeworkspace

import (
	"context"

	"github.com/google/uuid"

	"github.com/lumen-analytics/backend/internal/access"
	"github.com/lumen-analytics/backend/internal/models"
	"github.com/lumen-analytics/backend/internal/permissions"
)

// Lister returns a user's memberships ordered by workspace creation, oldest first.
type Lister interface {
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Membership, error)
}

// Resolver picks the active membership for a user.
type Resolver struct {
	dir   Lister
	guard *access.Guard
}

// NewResolver creates a Resolver.
func NewResolver(dir Lister, guard *access.Guard) *Resolver {
	return &Resolver{dir: dir, guard: guard}
}

// Resolve returns the membership matching hint, else the oldest membership, else nil.
func (r *Resolver) Resolve(ctx context.Context, userID uuid.UUID, hint string) (*models.Membership, error) {
	list, err := r.dir.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	if want, err := uuid.Parse(hint); err == nil {
		for _, m := range list {
			if m.WorkspaceID == want {
				return m, nil
			}
		}
	}
	return list[0], nil
}

// Switch checks the caller may view workspaceID before the pointer is moved.
func (r *Resolver) Switch(ctx context.Context, id *access.Identity, workspaceID uuid.UUID) (*models.Membership, error) {
	return r.guard.Authorize(ctx, id, workspaceID, permissions.RoleViewer)
}
