package memberships

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumen-analytics/backend/internal/models"
	"github.com/lumen-analytics/backend/internal/permissions"
	"github.com/lumen-analytics/backend/pkg/database"
)

// Repository handles workspace_members persistence. Reads include the workspace and user for display.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a memberships repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const selectMembership = `SELECT m.id, m.workspace_id, m.user_id, m.role, m.created_at, m.updated_at,
		w.id, w.name, w.slug, w.owner_id, w.created_at, w.updated_at,
		u.id, u.email, u.name, u.created_at
	FROM workspace_members m
	INNER JOIN workspaces w ON w.id = m.workspace_id
	INNER JOIN users u ON u.id = m.user_id`

func scanMembership(row pgx.Row) (*models.Membership, error) {
	var m models.Membership
	var w models.Workspace
	var u models.UserPublic
	err := row.Scan(&m.ID, &m.WorkspaceID, &m.UserID, &m.Role, &m.CreatedAt, &m.UpdatedAt,
		&w.ID, &w.Name, &w.Slug, &w.OwnerID, &w.CreatedAt, &w.UpdatedAt,
		&u.ID, &u.Email, &u.Name, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	m.Workspace = &w
	m.User = &u
	return &m, nil
}

func (r *Repository) queryOne(ctx context.Context, q string, args ...any) (*models.Membership, error) {
	m, err := scanMembership(database.Conn(ctx, r.pool).QueryRow(ctx, q, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *Repository) queryMany(ctx context.Context, q string, args ...any) ([]*models.Membership, error) {
	rows, err := database.Conn(ctx, r.pool).Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// Find returns the membership for (user, workspace), or nil if the user is not a member.
func (r *Repository) Find(ctx context.Context, userID, workspaceID uuid.UUID) (*models.Membership, error) {
	m, err := r.queryOne(ctx, selectMembership+` WHERE m.workspace_id = $1 AND m.user_id = $2`, workspaceID, userID)
	if err != nil {
		return nil, fmt.Errorf("find membership: %w", err)
	}
	return m, nil
}

// GetByID returns a membership by ID, or nil.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Membership, error) {
	m, err := r.queryOne(ctx, selectMembership+` WHERE m.id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get membership: %w", err)
	}
	return m, nil
}

// ListForUser returns the user's memberships ordered by workspace creation, oldest first.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Membership, error) {
	list, err := r.queryMany(ctx, selectMembership+` WHERE m.user_id = $1 ORDER BY w.created_at ASC, w.id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list memberships for user: %w", err)
	}
	return list, nil
}

// ListByWorkspace returns a workspace's members, earliest joiners first.
func (r *Repository) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*models.Membership, error) {
	list, err := r.queryMany(ctx, selectMembership+` WHERE m.workspace_id = $1 ORDER BY m.created_at ASC`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list workspace members: %w", err)
	}
	return list, nil
}

// Upsert creates the membership or overwrites its role if it already exists.
func (r *Repository) Upsert(ctx context.Context, workspaceID, userID uuid.UUID, role permissions.Role) error {
	const q = `INSERT INTO workspace_members (id, workspace_id, user_id, role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (workspace_id, user_id) DO UPDATE SET role = EXCLUDED.role, updated_at = NOW()`
	if _, err := database.Conn(ctx, r.pool).Exec(ctx, q, uuid.New(), workspaceID, userID, role); err != nil {
		return fmt.Errorf("upsert membership: %w", err)
	}
	return nil
}

// UpdateRole sets a member's role. OWNER rows are never matched; changed is false when nothing was updated.
func (r *Repository) UpdateRole(ctx context.Context, id uuid.UUID, role permissions.Role) (changed bool, err error) {
	const q = `UPDATE workspace_members SET role = $2, updated_at = NOW() WHERE id = $1 AND role <> 'OWNER'`
	tag, err := database.Conn(ctx, r.pool).Exec(ctx, q, id, role)
	if err != nil {
		return false, fmt.Errorf("update member role: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Delete removes a non-OWNER membership; removed is false when nothing was deleted.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (removed bool, err error) {
	tag, err := database.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM workspace_members WHERE id = $1 AND role <> 'OWNER'`, id)
	if err != nil {
		return false, fmt.Errorf("delete membership: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
