// Package invite issues tenant invitations: it builds the opaque token,
// dispatches the invitation email and records the invitation row.
package invite

import (
	"context"
	"fmt"
	"time"

	"isolate/internal/guard"
	"isolate/internal/mailer"
	"isolate/internal/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TTL is how long an invitation stays valid after issue.
const TTL = 7 * 24 * time.Hour

// Service issues invitations. The mailer is injected at construction, once,
// at process startup.
type Service struct {
	db     *gorm.DB
	mailer mailer.Mailer
	appURL string
	log    *zap.Logger
}

// NewService wires the invitation issuer.
func NewService(db *gorm.DB, m mailer.Mailer, appURL string, log *zap.Logger) *Service {
	return &Service{db: db, mailer: m, appURL: appURL, log: log}
}

// Issue creates and dispatches an invitation to email on behalf of the
// calling admin. The email must be delivered for the operation to succeed;
// persisting the invitation row afterwards is best effort and a failure
// there is logged, not surfaced.
func (s *Service) Issue(ctx context.Context, caller *model.User, email string) (*model.Invitation, error) {
	tenant, err := guard.TenantByID(s.db, caller.TenantID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	token := EncodeToken(email, tenant.ID, now)
	link := fmt.Sprintf("%s/auth?invite=%s", s.appURL, token)

	err = s.mailer.SendInvitation(ctx, mailer.InvitationEmail{
		To:         email,
		SenderName: caller.Email,
		TenantName: tenant.Name,
		Link:       link,
	})
	if err != nil {
		s.log.Error("Failed to send invitation email",
			zap.String("email", email),
			zap.Uint("tenant_id", tenant.ID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", guard.ErrEmailDelivery, err)
	}

	invitation := model.Invitation{
		Email:     email,
		Token:     token,
		TenantID:  tenant.ID,
		InvitedBy: caller.ID,
		ExpiresAt: now.Add(TTL),
	}

	if err := s.db.Create(&invitation).Error; err != nil {
		// The email already went out; losing the row only affects the
		// pending-invitations listing.
		s.log.Error("Failed to persist invitation after successful send",
			zap.String("email", email),
			zap.Uint("tenant_id", tenant.ID),
			zap.Error(err))
	}

	return &invitation, nil
}

// Pending returns the unexpired invitations of a tenant, newest first.
func (s *Service) Pending(tenantID uint) ([]model.Invitation, error) {
	var invitations []model.Invitation
	err := s.db.
		Where("tenant_id = ? AND expires_at > ?", tenantID, time.Now()).
		Order("created_at DESC").
		Find(&invitations).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", guard.ErrInternal, err)
	}
	return invitations, nil
}
