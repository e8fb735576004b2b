package workspaces

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumen-analytics/backend/internal/models"
	"github.com/lumen-analytics/backend/pkg/database"
)

// Repository handles workspace persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a workspaces repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SlugTaken reports whether slug is already in use.
func (r *Repository) SlugTaken(ctx context.Context, slug string) (bool, error) {
	var taken bool
	err := database.Conn(ctx, r.pool).QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM workspaces WHERE slug = $1)`, slug).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return taken, nil
}

// Create inserts a workspace. A slug collision surfaces as a unique violation for the caller to retry.
func (r *Repository) Create(ctx context.Context, w *models.Workspace) error {
	const q = `INSERT INTO workspaces (id, name, slug, owner_id)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`
	err := database.Conn(ctx, r.pool).QueryRow(ctx, q, w.ID, w.Name, w.Slug, w.OwnerID).Scan(&w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert workspace: %w", err)
	}
	return nil
}

// GetByID returns a workspace by ID, or nil.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Workspace, error) {
	const q = `SELECT id, name, slug, owner_id, created_at, updated_at FROM workspaces WHERE id = $1`
	var w models.Workspace
	err := database.Conn(ctx, r.pool).QueryRow(ctx, q, id).Scan(&w.ID, &w.Name, &w.Slug, &w.OwnerID, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get workspace: %w", err)
	}
	return &w, nil
}

// Rename updates a workspace's display name and returns the row, or nil if it does not exist.
func (r *Repository) Rename(ctx context.Context, id uuid.UUID, name string) (*models.Workspace, error) {
	const q = `UPDATE workspaces SET name = $2, updated_at = NOW() WHERE id = $1
		RETURNING id, name, slug, owner_id, created_at, updated_at`
	var w models.Workspace
	err := database.Conn(ctx, r.pool).QueryRow(ctx, q, id, name).Scan(&w.ID, &w.Name, &w.Slug, &w.OwnerID, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("rename workspace: %w", err)
	}
	return &w, nil
}

// Delete removes a workspace; sites, members, invites, events and audit rows cascade.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := database.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM workspaces WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete workspace: %w", err)
	}
	return nil
}
