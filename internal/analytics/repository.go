package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumen-analytics/backend/internal/models"
	"github.com/lumen-analytics/backend/pkg/database"
)

// Repository runs the dashboard aggregate queries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an analytics repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Counts returns member and usable pending-invite counts for a workspace.
func (r *Repository) Counts(ctx context.Context, workspaceID uuid.UUID, now time.Time) (members, pendingInvites int, err error) {
	const q = `SELECT
		(SELECT COUNT(*) FROM workspace_members WHERE workspace_id = $1),
		(SELECT COUNT(*) FROM invites WHERE workspace_id = $1 AND status = 'PENDING' AND expires_at > $2)`
	if err := database.Conn(ctx, r.pool).QueryRow(ctx, q, workspaceID, now).Scan(&members, &pendingInvites); err != nil {
		return 0, 0, fmt.Errorf("dashboard counts: %w", err)
	}
	return members, pendingInvites, nil
}

// Sites returns the workspace's sites, oldest first.
func (r *Repository) Sites(ctx context.Context, workspaceID uuid.UUID) ([]*models.Site, error) {
	const q = `SELECT id, workspace_id, name, domain, timezone, status, created_at, updated_at
		FROM sites WHERE workspace_id = $1 ORDER BY created_at ASC, id`
	rows, err := database.Conn(ctx, r.pool).Query(ctx, q, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("dashboard sites: %w", err)
	}
	defer rows.Close()
	var list []*models.Site
	for rows.Next() {
		var s models.Site
		if err := rows.Scan(&s.ID, &s.WorkspaceID, &s.Name, &s.Domain, &s.Timezone, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan site: %w", err)
		}
		list = append(list, &s)
	}
	return list, rows.Err()
}

// Traffic returns page_view totals per site since the given instant, plus the workspace-wide
// distinct visitor count. Events without a visitor id count as a single "anon" visitor.
func (r *Repository) Traffic(ctx context.Context, workspaceID uuid.UUID, since time.Time) (map[uuid.UUID]SiteTraffic, int, error) {
	conn := database.Conn(ctx, r.pool)
	const perSite = `SELECT site_id, COUNT(*), COUNT(DISTINCT COALESCE(visitor_id, 'anon'))
		FROM analytics_events
		WHERE workspace_id = $1 AND event_name = 'page_view' AND created_at >= $2
		GROUP BY site_id`
	rows, err := conn.Query(ctx, perSite, workspaceID, since)
	if err != nil {
		return nil, 0, fmt.Errorf("traffic by site: %w", err)
	}
	defer rows.Close()
	out := make(map[uuid.UUID]SiteTraffic)
	for rows.Next() {
		var id uuid.UUID
		var t SiteTraffic
		if err := rows.Scan(&id, &t.Pageviews, &t.Visitors); err != nil {
			return nil, 0, fmt.Errorf("scan traffic: %w", err)
		}
		out[id] = t
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	const unique = `SELECT COUNT(DISTINCT COALESCE(visitor_id, 'anon'))
		FROM analytics_events
		WHERE workspace_id = $1 AND event_name = 'page_view' AND created_at >= $2`
	var visitors int
	if err := conn.QueryRow(ctx, unique, workspaceID, since).Scan(&visitors); err != nil {
		return nil, 0, fmt.Errorf("unique visitors: %w", err)
	}
	return out, visitors, nil
}
