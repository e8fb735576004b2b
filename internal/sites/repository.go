package sites

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumen-analytics/backend/internal/apperr"
	"github.com/lumen-analytics/backend/internal/models"
	"github.com/lumen-analytics/backend/pkg/database"
)

const msgDuplicateDomain = "A site with this domain already exists in the workspace"

// Repository handles site persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a sites repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const siteColumns = `id, workspace_id, name, domain, timezone, status, created_at, updated_at`

func scanSite(row pgx.Row) (*models.Site, error) {
	var s models.Site
	err := row.Scan(&s.ID, &s.WorkspaceID, &s.Name, &s.Domain, &s.Timezone, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts a site. A duplicate (workspace, domain) pair is a Conflict.
func (r *Repository) Create(ctx context.Context, s *models.Site) error {
	const q = `INSERT INTO sites (id, workspace_id, name, domain, timezone, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`
	err := database.Conn(ctx, r.pool).QueryRow(ctx, q, s.ID, s.WorkspaceID, s.Name, s.Domain, s.Timezone, s.Status).
		Scan(&s.CreatedAt, &s.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return apperr.Conflict(msgDuplicateDomain)
	}
	if err != nil {
		return fmt.Errorf("insert site: %w", err)
	}
	return nil
}

// GetByID returns a site, or nil when it does not exist.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Site, error) {
	q := `SELECT ` + siteColumns + ` FROM sites WHERE id = $1`
	s, err := scanSite(database.Conn(ctx, r.pool).QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get site: %w", err)
	}
	return s, nil
}

// ListByWorkspace returns a workspace's sites, newest first.
func (r *Repository) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*models.Site, error) {
	q := `SELECT ` + siteColumns + ` FROM sites WHERE workspace_id = $1 ORDER BY created_at DESC, id`
	rows, err := database.Conn(ctx, r.pool).Query(ctx, q, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	defer rows.Close()
	var list []*models.Site
	for rows.Next() {
		s, err := scanSite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan site: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// Update writes every mutable column of s.
func (r *Repository) Update(ctx context.Context, s *models.Site) error {
	const q = `UPDATE sites SET name = $2, domain = $3, timezone = $4, status = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
	err := database.Conn(ctx, r.pool).QueryRow(ctx, q, s.ID, s.Name, s.Domain, s.Timezone, s.Status).Scan(&s.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return apperr.Conflict(msgDuplicateDomain)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("Site not found")
	}
	if err != nil {
		return fmt.Errorf("update site: %w", err)
	}
	return nil
}

// Delete removes a site and its events.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := database.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM sites WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete site: %w", err)
	}
	return nil
}
