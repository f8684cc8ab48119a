package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/hugh/rateboard/internal/database/models"
)

// Authenticator covers the account workflows exposed under /auth.
type Authenticator interface {
	Register(ctx context.Context, input RegisterInput) (*RegisterResult, error)
	Login(ctx context.Context, input LoginInput) (*AuthResponse, error)
	AcceptInvite(ctx context.Context, input AcceptInviteInput) (*AuthResponse, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// MembershipFinder is the store lookup the authorization gate depends on.
// A nil membership with a nil error means the user is not a member.
type MembershipFinder interface {
	GetMembership(ctx context.Context, userID, orgID uuid.UUID) (*models.OrganizationMembership, error)
}

// TokenService defines the interface for JWT token operations.
type TokenService interface {
	GenerateToken(userID uuid.UUID, email string, memberships []MembershipClaim) (string, error)
	GenerateInviteToken(userID, orgID uuid.UUID) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
	ValidateInviteToken(tokenString string) (*InviteClaims, error)
}

// Compile-time interface satisfaction checks
var (
	_ Authenticator    = (*Service)(nil)
	_ MembershipFinder = (*Service)(nil)
	_ TokenService     = (*JWTService)(nil)
)
