package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/rateboard/internal/apperr"
	"github.com/hugh/rateboard/internal/database/models"
	"github.com/hugh/rateboard/internal/permission"
	"gorm.io/gorm"
)

// RegistrationTimeout bounds the user/organization/membership transaction.
const RegistrationTimeout = 15 * time.Second

var (
	errUserExists = apperr.Conflict(apperr.CodeUserAlreadyExists, "User already exists")
	errOrgExists  = apperr.Conflict(apperr.CodeOrganizationNameAlreadyExists, "Organization name already exists")
	errBadLogin   = apperr.New(apperr.KindUnauthenticated, apperr.CodeInvalidCredentials, "Invalid credentials")
	errBadInvite  = apperr.New(apperr.KindUnauthenticated, apperr.CodeInvalidInvite, "Invite link is invalid or has expired")
)

type Service struct {
	db     *gorm.DB
	jwt    *JWTService
	hasher *Hasher
	logger *slog.Logger
}

func NewService(db *gorm.DB, jwt *JWTService, hasher *Hasher, logger *slog.Logger) *Service {
	return &Service{db: db, jwt: jwt, hasher: hasher, logger: logger}
}

type RegisterInput struct {
	FirstName        string
	LastName         string
	Email            string
	Password         string
	OrganizationName string
}

type RegisterResult struct {
	User         *models.User
	Organization *models.Organization
	Membership   *models.OrganizationMembership
	Token        string
}

type LoginInput struct {
	Email    string
	Password string
}

type AcceptInviteInput struct {
	Token     string
	FirstName string
	LastName  string
	Password  string
}

type AuthResponse struct {
	Token      string
	User       *models.User
	Membership *models.OrganizationMembership
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a user, an organization owned by that user and the OWNER
// membership in a single transaction, then issues a session token.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*RegisterResult, error) {
	email := NormalizeEmail(input.Email)
	orgName := strings.TrimSpace(input.OrganizationName)

	// The unique indexes are the real guarantee; these checks only give the
	// common case a precise error before paying for the hash.
	if taken, err := s.exists(ctx, &models.User{}, "email = ?", email); err != nil {
		return nil, apperr.Internal(err)
	} else if taken {
		return nil, errUserExists
	}
	if taken, err := s.exists(ctx, &models.Organization{}, "name = ?", orgName); err != nil {
		return nil, apperr.Internal(err)
	} else if taken {
		return nil, errOrgExists
	}

	hash, err := s.hasher.Hash(ctx, input.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	txCtx, cancel := context.WithTimeout(ctx, RegistrationTimeout)
	defer cancel()

	user := models.User{
		Email:        email,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		PasswordHash: hash,
		Activated:    true,
	}
	var org models.Organization
	var membership models.OrganizationMembership

	err = s.db.WithContext(txCtx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errUserExists
			}
			return err
		}

		org = models.Organization{
			Name:    orgName,
			OwnerID: user.ID,
			Status:  models.OrganizationStatusActive,
		}
		if err := tx.Create(&org).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errOrgExists
			}
			return err
		}

		membership = models.OrganizationMembership{
			UserID:         user.ID,
			OrganizationID: org.ID,
			Role:           models.RoleOwner,
			Permissions:    permission.ForRole(models.RoleOwner),
			Status:         models.MembershipStatusActive,
		}
		return tx.Create(&membership).Error
	})
	if err != nil {
		return nil, s.transactionError(txCtx, err)
	}

	token, err := s.jwt.GenerateToken(user.ID, user.Email, []MembershipClaim{NewMembershipClaim(&membership)})
	if err != nil {
		return nil, apperr.Internal(err)
	}

	s.logger.Info("registered organization",
		"user_id", user.ID,
		"organization_id", org.ID,
	)

	return &RegisterResult{
		User:         &user,
		Organization: &org,
		Membership:   &membership,
		Token:        token,
	}, nil
}

func (s *Service) Login(ctx context.Context, input LoginInput) (*AuthResponse, error) {
	var user models.User
	if err := s.db.WithContext(ctx).
		Where("email = ?", NormalizeEmail(input.Email)).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errBadLogin
		}
		return nil, apperr.Internal(err)
	}

	// Invited accounts only hold a placeholder password.
	if !user.Activated {
		return nil, errBadLogin
	}

	ok, err := s.hasher.Verify(ctx, input.Password, user.PasswordHash)
	if err != nil && !errors.Is(err, ErrInvalidHash) {
		return nil, apperr.Internal(err)
	}
	if !ok {
		return nil, errBadLogin
	}

	token, err := s.sessionToken(ctx, &user)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{Token: token, User: &user}, nil
}

// AcceptInvite moves the invited membership to ACTIVE. Accounts created by the
// invitation also get their real password and name here.
func (s *Service) AcceptInvite(ctx context.Context, input AcceptInviteInput) (*AuthResponse, error) {
	claims, err := s.jwt.ValidateInviteToken(input.Token)
	if err != nil {
		return nil, errBadInvite
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errBadInvite
		}
		return nil, apperr.Internal(err)
	}

	var hash string
	if !user.Activated {
		if input.Password == "" {
			return nil, apperr.Validation(map[string]string{"password": "Password is required"})
		}
		if hash, err = s.hasher.Hash(ctx, input.Password); err != nil {
			return nil, apperr.Internal(err)
		}
	}

	var membership models.OrganizationMembership
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND organization_id = ?", claims.UserID, claims.OrganizationID).
			First(&membership).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound(apperr.CodeInviteNotFound, "Invitation not found")
			}
			return err
		}

		next, err := membership.Status.Transition(models.MembershipStatusActive)
		if err != nil {
			return apperr.Wrap(err, apperr.KindConflict, apperr.CodeInviteAlreadyAccepted, "Invitation has already been accepted")
		}

		// Guarded on the old status so two concurrent accepts cannot both win.
		res := tx.Model(&models.OrganizationMembership{}).
			Where("id = ? AND status = ?", membership.ID, membership.Status).
			Update("status", next)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict(apperr.CodeInviteAlreadyAccepted, "Invitation has already been accepted")
		}
		membership.Status = next

		if user.Activated {
			return nil
		}
		updates := map[string]interface{}{
			"password_hash": hash,
			"activated":     true,
		}
		if v := strings.TrimSpace(input.FirstName); v != "" {
			updates["first_name"] = v
		}
		if v := strings.TrimSpace(input.LastName); v != "" {
			updates["last_name"] = v
		}
		return tx.Model(&user).Updates(updates).Error
	})
	if err != nil {
		return nil, s.transactionError(ctx, err)
	}

	token, err := s.sessionToken(ctx, &user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("invitation accepted",
		"user_id", user.ID,
		"organization_id", membership.OrganizationID,
	)

	return &AuthResponse{Token: token, User: &user, Membership: &membership}, nil
}

// GetUserByID loads a user with memberships, their organizations and owned
// organizations.
func (s *Service) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).
		Preload("Memberships.Organization").
		Preload("OwnedOrganizations").
		First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound(apperr.CodeUserNotFound, "User not found")
		}
		return nil, apperr.Internal(err)
	}
	return &user, nil
}

// GetMembership returns the membership of userID in orgID, or nil when none
// exists. It always reads the store so permission changes apply immediately.
func (s *Service) GetMembership(ctx context.Context, userID, orgID uuid.UUID) (*models.OrganizationMembership, error) {
	var m models.OrganizationMembership
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND organization_id = ?", userID, orgID).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Service) sessionToken(ctx context.Context, user *models.User) (string, error) {
	var memberships []models.OrganizationMembership
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", user.ID, models.MembershipStatusActive).
		Order("created_at ASC").
		Find(&memberships).Error; err != nil {
		return "", apperr.Internal(err)
	}

	claims := make([]MembershipClaim, len(memberships))
	for i := range memberships {
		claims[i] = NewMembershipClaim(&memberships[i])
	}

	token, err := s.jwt.GenerateToken(user.ID, user.Email, claims)
	if err != nil {
		return "", apperr.Internal(err)
	}
	return token, nil
}

func (s *Service) exists(ctx context.Context, model interface{}, query string, args ...interface{}) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(model).Where(query, args...).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// transactionError keeps taxonomy errors from inside a transaction and maps
// deadline expiry to a retryable failure.
func (s *Service) transactionError(ctx context.Context, err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperr.Transient(err, apperr.CodeTransactionTimeout, "Transaction timed out, please retry")
	}
	return apperr.Internal(err)
}
