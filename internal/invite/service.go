// Package invite adds users to an organization as INVITED members and
// delivers the invitation link.
package invite

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/rateboard/internal/apperr"
	"github.com/hugh/rateboard/internal/auth"
	"github.com/hugh/rateboard/internal/database/models"
	"github.com/hugh/rateboard/internal/mail"
	"github.com/hugh/rateboard/internal/permission"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SweepBatchSize caps how many pending invitations one sweep resends.
const SweepBatchSize = 100

var errAlreadyMember = apperr.Conflict(apperr.CodeUserAlreadyMember, "User is already a member of this organization")

// Inviter identifies the member sending the invitation. An empty Name is
// looked up from the user record.
type Inviter struct {
	UserID uuid.UUID
	Name   string
}

type OrganizationRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type Result struct {
	UserID       uuid.UUID               `json:"userId"`
	Email        string                  `json:"email"`
	Role         models.Role             `json:"role"`
	Status       models.MembershipStatus `json:"status"`
	Organization OrganizationRef         `json:"organization"`
	InviteSent   bool                    `json:"inviteSent"`
}

type Config struct {
	HostURL      string
	InviteExpiry time.Duration
}

type Service struct {
	db     *gorm.DB
	tokens auth.TokenService
	hasher *auth.Hasher
	sender mail.Sender
	cfg    Config
	logger *slog.Logger
}

func NewService(db *gorm.DB, tokens auth.TokenService, hasher *auth.Hasher, sender mail.Sender, cfg Config, logger *slog.Logger) *Service {
	cfg.HostURL = strings.TrimRight(cfg.HostURL, "/")
	return &Service{
		db:     db,
		tokens: tokens,
		hasher: hasher,
		sender: sender,
		cfg:    cfg,
		logger: logger,
	}
}

// Invite creates the target user when needed, attaches an INVITED membership
// and emails the invite link. When only the email fails the membership is
// kept and the result is returned together with INVITE_EMAIL_FAILED.
func (s *Service) Invite(ctx context.Context, inviter Inviter, orgID uuid.UUID, email string, role models.Role) (*Result, error) {
	email = auth.NormalizeEmail(email)

	if !permission.Invitable(role) {
		return nil, apperr.Validation(map[string]string{"role": "Role must be SUPERVISOR or EMPLOYEE"})
	}

	org, err := s.activeOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}

	var existing models.User
	found := true
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Internal(err)
		}
		found = false
	}

	if found {
		var n int64
		if err := s.db.WithContext(ctx).Model(&models.OrganizationMembership{}).
			Where("user_id = ? AND organization_id = ?", existing.ID, org.ID).
			Count(&n).Error; err != nil {
			return nil, apperr.Internal(err)
		}
		if n > 0 {
			return nil, errAlreadyMember
		}
	}

	var placeholder string
	if !found {
		pw, err := auth.RandomPassword()
		if err != nil {
			return nil, apperr.Internal(err)
		}
		if placeholder, err = s.hasher.Hash(ctx, pw); err != nil {
			return nil, apperr.Internal(err)
		}
	}

	user := existing
	membership := models.OrganizationMembership{
		OrganizationID: org.ID,
		Role:           role,
		Permissions:    permission.ForRole(role),
		Status:         models.MembershipStatusInvited,
		InvitedByID:    &inviter.UserID,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if !found {
			user = models.User{
				Email:        email,
				PasswordHash: placeholder,
				Activated:    false,
			}
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&user)
			if res.Error != nil {
				return res.Error
			}
			// A concurrent invite created the address first; attach the
			// membership to that user instead.
			if res.RowsAffected == 0 {
				var winner models.User
				if err := tx.Where("email = ?", email).First(&winner).Error; err != nil {
					return err
				}
				user = winner
				found = true
			}
		}

		membership.UserID = user.ID
		if err := tx.Create(&membership).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errAlreadyMember
			}
			return err
		}
		return nil
	})
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperr.Internal(err)
	}

	s.logger.Info("membership invited",
		"organization_id", org.ID,
		"user_id", user.ID,
		"role", role,
		"new_user", !found,
	)

	result := newResult(&user, &membership, org)
	if err := s.deliver(ctx, &membership, &user, org, s.nameOf(ctx, inviter)); err != nil {
		return result, err
	}
	result.InviteSent = true
	return result, nil
}

// Resend issues a fresh invite link for an INVITED membership.
func (s *Service) Resend(ctx context.Context, inviter Inviter, orgID uuid.UUID, email string) (*Result, error) {
	email = auth.NormalizeEmail(email)

	org, err := s.activeOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}

	notFound := apperr.NotFound(apperr.CodeInviteNotFound, "No pending invitation for this email")

	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound
		}
		return nil, apperr.Internal(err)
	}

	var membership models.OrganizationMembership
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND organization_id = ? AND status = ?", user.ID, org.ID, models.MembershipStatusInvited).
		First(&membership).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound
		}
		return nil, apperr.Internal(err)
	}

	result := newResult(&user, &membership, org)
	if err := s.deliver(ctx, &membership, &user, org, s.nameOf(ctx, inviter)); err != nil {
		return result, err
	}
	result.InviteSent = true
	return result, nil
}

// SweepPending resends invitations that were never delivered and are older
// than minAge. It returns the number of emails sent.
func (s *Service) SweepPending(ctx context.Context, minAge time.Duration) (int, error) {
	var pending []models.OrganizationMembership
	if err := s.db.WithContext(ctx).
		Preload("User").
		Preload("Organization").
		Where("status = ? AND invite_sent_at IS NULL AND created_at < ?", models.MembershipStatusInvited, time.Now().Add(-minAge)).
		Order("created_at ASC").
		Limit(SweepBatchSize).
		Find(&pending).Error; err != nil {
		return 0, err
	}

	sent := 0
	for i := range pending {
		m := &pending[i]
		if m.User == nil || m.Organization == nil || !m.Organization.IsActive() {
			continue
		}
		if err := s.deliver(ctx, m, m.User, m.Organization, s.inviterName(ctx, m.InvitedByID)); err != nil {
			s.logger.Warn("invite resend failed",
				"membership_id", m.ID,
				"error", err,
			)
			continue
		}
		sent++
	}

	if len(pending) > 0 {
		s.logger.Info("invite sweep finished", "pending", len(pending), "sent", sent)
	}
	return sent, nil
}

// deliver signs an invite token, sends the email and stamps invite_sent_at.
func (s *Service) deliver(ctx context.Context, m *models.OrganizationMembership, user *models.User, org *models.Organization, inviterName string) error {
	token, err := s.tokens.GenerateInviteToken(user.ID, org.ID)
	if err != nil {
		return apperr.Internal(err)
	}

	if inviterName == "" {
		inviterName = org.Name
	}
	msg, err := mail.InviteMessage(user.Email, mail.InviteData{
		RecipientName:    user.DisplayName(),
		InviterName:      inviterName,
		OrganizationName: org.Name,
		Role:             strings.ToLower(string(m.Role)),
		Link:             s.Link(token),
		ExpiresInHours:   int(s.cfg.InviteExpiry.Hours()),
	})
	if err != nil {
		return apperr.Internal(err)
	}

	if err := s.sender.Send(ctx, msg); err != nil {
		s.logger.Error("invite email failed",
			"membership_id", m.ID,
			"organization_id", org.ID,
			"error", err,
		)
		return apperr.External(err, apperr.CodeInviteEmailFailed, "Member was invited but the invitation email could not be sent")
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&models.OrganizationMembership{}).
		Where("id = ?", m.ID).
		Update("invite_sent_at", now).Error; err != nil {
		return apperr.Internal(err)
	}
	m.InviteSentAt = &now
	return nil
}

// Link builds the accept-invite URL for token.
func (s *Service) Link(token string) string {
	return s.cfg.HostURL + "/accept-invite?token=" + url.QueryEscape(token)
}

func (s *Service) activeOrganization(ctx context.Context, orgID uuid.UUID) (*models.Organization, error) {
	var org models.Organization
	if err := s.db.WithContext(ctx).First(&org, "id = ?", orgID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound(apperr.CodeOrganizationNotFound, "Organization not found")
		}
		return nil, apperr.Internal(err)
	}
	if !org.IsActive() {
		return nil, apperr.NotFound(apperr.CodeOrganizationNotFound, "Organization not found")
	}
	return &org, nil
}

func (s *Service) nameOf(ctx context.Context, inviter Inviter) string {
	if inviter.Name != "" {
		return inviter.Name
	}
	return s.inviterName(ctx, &inviter.UserID)
}

func (s *Service) inviterName(ctx context.Context, id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	var u models.User
	if err := s.db.WithContext(ctx).Select("first_name", "email").First(&u, "id = ?", *id).Error; err != nil {
		return ""
	}
	return u.DisplayName()
}

func newResult(user *models.User, m *models.OrganizationMembership, org *models.Organization) *Result {
	return &Result{
		UserID: user.ID,
		Email:  user.Email,
		Role:   m.Role,
		Status: m.Status,
		Organization: OrganizationRef{
			ID:   org.ID,
			Name: org.Name,
		},
	}
}
