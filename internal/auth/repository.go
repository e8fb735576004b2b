package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumen-analytics/backend/internal/apperr"
	"github.com/lumen-analytics/backend/internal/models"
	"github.com/lumen-analytics/backend/pkg/database"
)

// Repository handles user and password reset token persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const selectUser = `SELECT id, email, name, password_hash, created_at, updated_at FROM users`

func (r *Repository) getUser(ctx context.Context, q string, arg any) (*models.User, error) {
	var u models.User
	err := database.Conn(ctx, r.pool).QueryRow(ctx, q, arg).
		Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID returns a user by ID, or nil.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := r.getUser(ctx, selectUser+` WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetByEmail returns a user by lowercase email, or nil.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := r.getUser(ctx, selectUser+` WHERE email = $1`, email)
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// Create inserts a new user. A duplicate email is a Conflict.
func (r *Repository) Create(ctx context.Context, u *models.User) error {
	const q = `INSERT INTO users (id, email, name, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`
	err := database.Conn(ctx, r.pool).QueryRow(ctx, q, u.ID, u.Email, u.Name, u.PasswordHash).
		Scan(&u.CreatedAt, &u.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return apperr.Conflict("Email already exists")
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// UpdatePassword replaces a user's credential hash.
func (r *Repository) UpdatePassword(ctx context.Context, userID uuid.UUID, hash string) error {
	const q = `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`
	if _, err := database.Conn(ctx, r.pool).Exec(ctx, q, userID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// CreateResetToken stores a reset token by fingerprint.
func (r *Repository) CreateResetToken(ctx context.Context, t *models.PasswordResetToken) error {
	const q = `INSERT INTO password_reset_tokens (id, user_id, token_hash, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`
	err := database.Conn(ctx, r.pool).QueryRow(ctx, q, t.ID, t.UserID, t.TokenHash, t.ExpiresAt).Scan(&t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert reset token: %w", err)
	}
	return nil
}

// GetResetToken returns the reset token with the given fingerprint, or nil.
func (r *Repository) GetResetToken(ctx context.Context, tokenHash string) (*models.PasswordResetToken, error) {
	const q = `SELECT id, user_id, token_hash, expires_at, used_at, created_at
		FROM password_reset_tokens WHERE token_hash = $1`
	var t models.PasswordResetToken
	err := database.Conn(ctx, r.pool).QueryRow(ctx, q, tokenHash).
		Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.UsedAt, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reset token: %w", err)
	}
	return &t, nil
}

// ConsumeResetToken sets used_at if the token is still unused and unexpired at at.
// It reports false when another request consumed it first.
func (r *Repository) ConsumeResetToken(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	const q = `UPDATE password_reset_tokens SET used_at = $2
		WHERE id = $1 AND used_at IS NULL AND expires_at > $2`
	tag, err := database.Conn(ctx, r.pool).Exec(ctx, q, id, at)
	if err != nil {
		return false, fmt.Errorf("consume reset token: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
