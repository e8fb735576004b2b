package auth

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumen-analytics/backend/internal/apperr"
	"github.com/lumen-analytics/backend/internal/models"
	"github.com/lumen-analytics/backend/pkg/utils"
)

// DefaultResetTTL is how long a password reset token stays usable.
const DefaultResetTTL = 30 * time.Minute

const msgInvalidReset = "Invalid or expired token"

// Store is the user persistence; *Repository implements it.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, u *models.User) error
	UpdatePassword(ctx context.Context, userID uuid.UUID, hash string) error
	CreateResetToken(ctx context.Context, t *models.PasswordResetToken) error
	GetResetToken(ctx context.Context, tokenHash string) (*models.PasswordResetToken, error)
	ConsumeResetToken(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}

// TxRunner runs fn in one transaction.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service implements accounts: register, login and password reset.
type Service struct {
	store    Store
	tx       TxRunner
	jwt      *JWTService
	resetTTL time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// NewService creates an auth service.
func NewService(store Store, tx TxRunner, jwt *JWTService, resetTTL time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if resetTTL <= 0 {
		resetTTL = DefaultResetTTL
	}
	return &Service{store: store, tx: tx, jwt: jwt, resetTTL: resetTTL, now: time.Now, logger: logger}
}

// NormalizeEmail lowercases and trims an email before any lookup or storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account. Duplicate emails are a Conflict.
func (s *Service) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	if err := checkPasswordPolicy(password); err != nil {
		return nil, err
	}
	email = NormalizeEmail(email)
	existing, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Conflict("Email already exists")
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &models.User{ID: uuid.New(), Email: email, Name: strings.TrimSpace(name), PasswordHash: hash}
	if err := s.store.Create(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info("user registered", zap.String("user_id", u.ID.String()))
	return u, nil
}

// Login checks credentials and issues a session token.
func (s *Service) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	u, err := s.store.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return "", nil, err
	}
	if u == nil || !utils.CheckPassword(password, u.PasswordHash) {
		return "", nil, &apperr.Error{Kind: apperr.KindUnauthorized, Message: "invalid email or password"}
	}
	token, err := s.jwt.Generate(u.ID, u.Email)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// Me returns the caller's account.
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	u, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.Unauthorized()
	}
	return u, nil
}

// RequestReset creates a reset token when the email belongs to a user. It returns the plaintext
// token, or "" when there is no such user; callers must answer both cases identically.
func (s *Service) RequestReset(ctx context.Context, email string) (string, error) {
	u, err := s.store.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", nil
	}
	token, err := utils.IssueToken(utils.ResetTokenBytes)
	if err != nil {
		return "", err
	}
	t := &models.PasswordResetToken{
		ID:        uuid.New(),
		UserID:    u.ID,
		TokenHash: utils.Fingerprint(token),
		ExpiresAt: s.now().Add(s.resetTTL),
	}
	if err := s.store.CreateResetToken(ctx, t); err != nil {
		return "", err
	}
	s.logger.Info("password reset requested", zap.String("user_id", u.ID.String()))
	return token, nil
}

// ResetPassword swaps the credential and consumes the token in one transaction.
// Missing, consumed and expired tokens all fail the same way.
func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	if err := checkPasswordPolicy(password); err != nil {
		return err
	}
	t, err := s.store.GetResetToken(ctx, utils.Fingerprint(token))
	if err != nil {
		return err
	}
	now := s.now()
	if t == nil || !t.Usable(now) {
		return apperr.InvalidOrExpired(msgInvalidReset)
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.UpdatePassword(ctx, t.UserID, hash); err != nil {
			return err
		}
		ok, err := s.store.ConsumeResetToken(ctx, t.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.InvalidOrExpired(msgInvalidReset)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("password reset", zap.String("user_id", t.UserID.String()))
	return nil
}
