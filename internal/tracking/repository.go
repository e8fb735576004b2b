package tracking

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumen-analytics/backend/internal/models"
	"github.com/lumen-analytics/backend/pkg/database"
)

// Repository appends analytics events and audit rows. It never updates or deletes.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a tracking repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// AppendEvent inserts one analytics event.
func (r *Repository) AppendEvent(ctx context.Context, e *models.AnalyticsEvent) error {
	const q = `INSERT INTO analytics_events
		(id, workspace_id, site_id, event_name, path, source, country, referrer, visitor_id, session_id, duration_ms, scroll_percent, bounced)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at`
	err := database.Conn(ctx, r.pool).QueryRow(ctx, q,
		e.ID, e.WorkspaceID, e.SiteID, e.EventName, e.Path, e.Source, e.Country,
		e.Referrer, e.VisitorID, e.SessionID, e.DurationMs, e.ScrollPercent, e.Bounced,
	).Scan(&e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert analytics event: %w", err)
	}
	return nil
}

// AppendAudit inserts one audit row.
func (r *Repository) AppendAudit(ctx context.Context, a *models.AuditLog) error {
	const q = `INSERT INTO audit_logs (id, workspace_id, actor_id, action, resource, resource_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`
	err := database.Conn(ctx, r.pool).QueryRow(ctx, q,
		a.ID, a.WorkspaceID, a.ActorID, a.Action, a.Resource, a.ResourceID, a.Metadata,
	).Scan(&a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}
