package exports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumen-analytics/backend/internal/models"
	"github.com/lumen-analytics/backend/pkg/database"
)

// Repository handles export rows and streams the events they dump.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an exports repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a PENDING export.
func (r *Repository) Create(ctx context.Context, e *models.Export) error {
	const q = `INSERT INTO exports (id, workspace_id, site_id, requested_by, status, range_from, range_to)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`
	err := database.Conn(ctx, r.pool).QueryRow(ctx, q, e.ID, e.WorkspaceID, e.SiteID, e.RequestedBy, e.Status, e.From, e.To).
		Scan(&e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert export: %w", err)
	}
	return nil
}

// GetByID returns an export, or nil.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Export, error) {
	const q = `SELECT id, workspace_id, site_id, requested_by, status, range_from, range_to,
		object_key, row_count, error, created_at, completed_at
		FROM exports WHERE id = $1`
	var e models.Export
	err := database.Conn(ctx, r.pool).QueryRow(ctx, q, id).Scan(
		&e.ID, &e.WorkspaceID, &e.SiteID, &e.RequestedBy, &e.Status, &e.From, &e.To,
		&e.ObjectKey, &e.RowCount, &e.Error, &e.CreatedAt, &e.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get export: %w", err)
	}
	return &e, nil
}

// MarkCompleted records a successful upload. Only PENDING exports transition.
func (r *Repository) MarkCompleted(ctx context.Context, id uuid.UUID, objectKey string, rows int64, at time.Time) error {
	const q = `UPDATE exports SET status = 'COMPLETED', object_key = $2, row_count = $3, completed_at = $4
		WHERE id = $1 AND status = 'PENDING'`
	if _, err := database.Conn(ctx, r.pool).Exec(ctx, q, id, objectKey, rows, at); err != nil {
		return fmt.Errorf("complete export: %w", err)
	}
	return nil
}

// MarkFailed records a terminal failure. Only PENDING exports transition.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string, at time.Time) error {
	const q = `UPDATE exports SET status = 'FAILED', error = $2, completed_at = $3
		WHERE id = $1 AND status = 'PENDING'`
	if _, err := database.Conn(ctx, r.pool).Exec(ctx, q, id, reason, at); err != nil {
		return fmt.Errorf("fail export: %w", err)
	}
	return nil
}

// EachEvent streams a site's events in creation order, bounded by the optional range, without
// buffering the result set.
func (r *Repository) EachEvent(ctx context.Context, siteID uuid.UUID, from, to *time.Time, fn func(*models.AnalyticsEvent) error) error {
	const q = `SELECT id, workspace_id, site_id, event_name, path, source, country, referrer, visitor_id,
		session_id, duration_ms, scroll_percent, bounced, created_at
		FROM analytics_events
		WHERE site_id = $1
		  AND ($2::timestamptz IS NULL OR created_at >= $2)
		  AND ($3::timestamptz IS NULL OR created_at < $3)
		ORDER BY created_at, id`
	rows, err := database.Conn(ctx, r.pool).Query(ctx, q, siteID, from, to)
	if err != nil {
		return fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var e models.AnalyticsEvent
		if err := rows.Scan(
			&e.ID, &e.WorkspaceID, &e.SiteID, &e.EventName, &e.Path, &e.Source, &e.Country, &e.Referrer,
			&e.VisitorID, &e.SessionID, &e.DurationMs, &e.ScrollPercent, &e.Bounced, &e.CreatedAt,
		); err != nil {
			return fmt.Errorf("scan event: %w", err)
		}
		if err := fn(&e); err != nil {
			return err
		}
	}
	return rows.Err()
}
