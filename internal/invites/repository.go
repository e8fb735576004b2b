package invites

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

// Repository handles invites persistence. Invites are never deleted.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an invites repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const selectInvite = `SELECT id, workspace_id, email, role, token_hash, invited_by_id, status, expires_at,
		accepted_by_id, accepted_at, created_at
	FROM invites`

func scanInvite(row pgx.Row) (*models.Invite, error) {
	var inv models.Invite
	err := row.Scan(&inv.ID, &inv.WorkspaceID, &inv.Email, &inv.Role, &inv.TokenHash, &inv.InvitedByID,
		&inv.Status, &inv.ExpiresAt, &inv.AcceptedByID, &inv.AcceptedAt, &inv.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *Repository) getOne(ctx context.Context, q string, arg any) (*models.Invite, error) {
	inv, err := scanInvite(database.Conn(ctx, r.pool).QueryRow(ctx, q, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return inv, err
}

// Create inserts a PENDING invite.
func (r *Repository) Create(ctx context.Context, inv *models.Invite) error {
	const q = `INSERT INTO invites (id, workspace_id, email, role, token_hash, invited_by_id, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`
	err := database.Conn(ctx, r.pool).QueryRow(ctx, q, inv.ID, inv.WorkspaceID, inv.Email, inv.Role,
		inv.TokenHash, inv.InvitedByID, inv.Status, inv.ExpiresAt).Scan(&inv.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert invite: %w", err)
	}
	return nil
}

// GetByID returns an invite by ID, or nil.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Invite, error) {
	inv, err := r.getOne(ctx, selectInvite+` WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get invite: %w", err)
	}
	return inv, nil
}

// GetByTokenHash returns the invite with the given fingerprint, or nil.
func (r *Repository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.Invite, error) {
	inv, err := r.getOne(ctx, selectInvite+` WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return nil, fmt.Errorf("get invite by token: %w", err)
	}
	return inv, nil
}

// ListUsable returns PENDING invites of a workspace that have not expired at now, newest first.
func (r *Repository) ListUsable(ctx context.Context, workspaceID uuid.UUID, now time.Time) ([]*models.Invite, error) {
	rows, err := database.Conn(ctx, r.pool).Query(ctx,
		selectInvite+` WHERE workspace_id = $1 AND status = 'PENDING' AND expires_at > $2 ORDER BY created_at DESC`,
		workspaceID, now)
	if err != nil {
		return nil, fmt.Errorf("list invites: %w", err)
	}
	defer rows.Close()
	var list []*models.Invite
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invite: %w", err)
		}
		list = append(list, inv)
	}
	return list, rows.Err()
}

// MarkAccepted moves a usable invite to ACCEPTED. It reports false when the invite was
// no longer PENDING or had expired, so concurrent accepts cannot both succeed.
func (r *Repository) MarkAccepted(ctx context.Context, id, userID uuid.UUID, at time.Time) (bool, error) {
	const q = `UPDATE invites SET status = 'ACCEPTED', accepted_by_id = $2, accepted_at = $3
		WHERE id = $1 AND status = 'PENDING' AND expires_at > $3`
	tag, err := database.Conn(ctx, r.pool).Exec(ctx, q, id, userID, at)
	if err != nil {
		return false, fmt.Errorf("accept invite: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Revoke moves a PENDING invite to REVOKED and reports whether it did.
func (r *Repository) Revoke(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := database.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE invites SET status = 'REVOKED' WHERE id = $1 AND status = 'PENDING'`, id)
	if err != nil {
		return false, fmt.Errorf("revoke invite: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
