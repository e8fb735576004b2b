// Package invites implements the workspace invite lifecycle: issue, accept, revoke.
// Expiry is evaluated at read time; there is no EXPIRED status.
package invites

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumen-analytics/backend/internal/access"
	"github.com/lumen-analytics/backend/internal/apperr"
	"github.com/lumen-analytics/backend/internal/metrics"
	"github.com/lumen-analytics/backend/internal/models"
	"github.com/lumen-analytics/backend/internal/permissions"
	"github.com/lumen-analytics/backend/internal/ratelimit"
	"github.com/lumen-analytics/backend/pkg/utils"
)

// DefaultTTL is the lifetime of a new invite.
const DefaultTTL = 7 * 24 * time.Hour

const (
	msgRateLimited   = "Too many invite requests. Try again in a minute."
	msgInvalid       = "Invite invalid or expired"
	msgEmailMismatch = "Invite email does not match your account"
)

// Store is the invite persistence; *Repository implements it.
type Store interface {
	Create(ctx context.Context, inv *models.Invite) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Invite, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.Invite, error)
	ListUsable(ctx context.Context, workspaceID uuid.UUID, now time.Time) ([]*models.Invite, error)
	MarkAccepted(ctx context.Context, id, userID uuid.UUID, at time.Time) (bool, error)
	Revoke(ctx context.Context, id uuid.UUID) (bool, error)
}

// MemberWriter creates or re-roles a membership.
type MemberWriter interface {
	Find(ctx context.Context, userID, workspaceID uuid.UUID) (*models.Membership, error)
	Upsert(ctx context.Context, workspaceID, userID uuid.UUID, role permissions.Role) error
}

// TxRunner runs fn in one transaction; *database.TxManager implements it.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Issued is a freshly created invite and its one-time plaintext token.
type Issued struct {
	Invite *models.Invite
	Token  string
}

// Service drives invite transitions.
type Service struct {
	store   Store
	members MemberWriter
	guard   *access.Guard
	tx      TxRunner
	limiter ratelimit.Limiter
	ttl     time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// NewService creates an invites service. limiter caps issuance per (actor, workspace).
func NewService(store Store, members MemberWriter, guard *access.Guard, tx TxRunner, limiter ratelimit.Limiter, ttl time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		store:   store,
		members: members,
		guard:   guard,
		tx:      tx,
		limiter: limiter,
		ttl:     ttl,
		now:     time.Now,
		logger:  logger,
	}
}

// Issue creates a PENDING invite for email at role. The plaintext token is returned once and never stored.
func (s *Service) Issue(ctx context.Context, id *access.Identity, workspaceID uuid.UUID, email string, role permissions.Role) (*Issued, error) {
	actor, err := s.guard.Authorize(ctx, id, workspaceID, permissions.RoleAdmin)
	if err != nil {
		return nil, err
	}
	res, err := s.limiter.Allow(ctx, "invite:"+id.UserID.String()+":"+workspaceID.String())
	if err != nil {
		return nil, err
	}
	if !res.Allowed {
		metrics.Invites.WithLabelValues("rate_limited").Inc()
		return nil, apperr.RateLimited(msgRateLimited)
	}
	if err := access.CheckGrant(actor, role); err != nil {
		return nil, err
	}

	token, err := utils.IssueToken(utils.InviteTokenBytes)
	if err != nil {
		return nil, err
	}
	inv := &models.Invite{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
		Email:       normalizeEmail(email),
		Role:        role,
		TokenHash:   utils.Fingerprint(token),
		InvitedByID: id.UserID,
		Status:      models.InvitePending,
		ExpiresAt:   s.now().Add(s.ttl),
	}
	if err := s.store.Create(ctx, inv); err != nil {
		return nil, err
	}
	metrics.Invites.WithLabelValues("issued").Inc()
	s.logger.Info("invite issued",
		zap.String("workspace_id", workspaceID.String()),
		zap.String("invite_id", inv.ID.String()),
		zap.String("role", string(role)),
	)
	return &Issued{Invite: inv, Token: token}, nil
}

// Accept binds the caller to the invite's workspace at the invite's role. The membership
// upsert and the status change happen in one transaction. An OWNER keeps their role.
func (s *Service) Accept(ctx context.Context, id *access.Identity, token string) (*models.Invite, error) {
	if id == nil || id.Email == "" {
		return nil, apperr.Unauthorized()
	}
	inv, err := s.store.GetByTokenHash(ctx, utils.Fingerprint(token))
	if err != nil {
		return nil, err
	}
	now := s.now()
	if inv == nil || !inv.Usable(now) {
		return nil, apperr.InvalidOrExpired(msgInvalid)
	}
	if inv.Email != normalizeEmail(id.Email) {
		return nil, apperr.Forbidden(msgEmailMismatch)
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		existing, err := s.members.Find(ctx, id.UserID, inv.WorkspaceID)
		if err != nil {
			return err
		}
		if existing == nil || existing.Role != permissions.RoleOwner {
			if err := s.members.Upsert(ctx, inv.WorkspaceID, id.UserID, inv.Role); err != nil {
				return err
			}
		}
		ok, err := s.store.MarkAccepted(ctx, inv.ID, id.UserID, now)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.InvalidOrExpired(msgInvalid)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	inv.Status = models.InviteAccepted
	inv.AcceptedByID = &id.UserID
	inv.AcceptedAt = &now
	metrics.Invites.WithLabelValues("accepted").Inc()
	s.logger.Info("invite accepted",
		zap.String("workspace_id", inv.WorkspaceID.String()),
		zap.String("invite_id", inv.ID.String()),
		zap.String("user_id", id.UserID.String()),
	)
	return inv, nil
}

// Revoke moves a PENDING invite to REVOKED. ACCEPTED and REVOKED are terminal.
func (s *Service) Revoke(ctx context.Context, id *access.Identity, inviteID uuid.UUID) (*models.Invite, error) {
	if id == nil {
		return nil, apperr.Unauthorized()
	}
	inv, err := s.store.GetByID(ctx, inviteID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, apperr.NotFound("Invite not found")
	}
	if _, err := s.guard.Authorize(ctx, id, inv.WorkspaceID, permissions.RoleAdmin); err != nil {
		return nil, err
	}
	if inv.Status != models.InvitePending {
		return nil, apperr.Validation("Invite is not pending")
	}
	ok, err := s.store.Revoke(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Validation("Invite is not pending")
	}
	inv.Status = models.InviteRevoked
	metrics.Invites.WithLabelValues("revoked").Inc()
	s.logger.Info("invite revoked",
		zap.String("workspace_id", inv.WorkspaceID.String()),
		zap.String("invite_id", inv.ID.String()),
	)
	return inv, nil
}

// ListPending returns the workspace's invites that can still be accepted.
func (s *Service) ListPending(ctx context.Context, id *access.Identity, workspaceID uuid.UUID) ([]*models.Invite, error) {
	if _, err := s.guard.Authorize(ctx, id, workspaceID, permissions.RoleAdmin); err != nil {
		return nil, err
	}
	return s.store.ListUsable(ctx, workspaceID, s.now())
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
