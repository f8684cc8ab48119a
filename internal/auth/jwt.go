package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/hugh/rateboard/internal/database/models"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

const (
	issuer = "rateboard"

	TokenUseSession = "session"
	TokenUseInvite  = "invite"
)

// MembershipClaim is the membership snapshot embedded in a session token. It
// is informational: authorization always re-reads the membership store.
type MembershipClaim struct {
	ID             uuid.UUID               `json:"id"`
	OrganizationID uuid.UUID               `json:"organizationId"`
	Role           models.Role             `json:"role"`
	Status         models.MembershipStatus `json:"status"`
	Permissions    []string                `json:"permissions"`
}

func NewMembershipClaim(m *models.OrganizationMembership) MembershipClaim {
	return MembershipClaim{
		ID:             m.ID,
		OrganizationID: m.OrganizationID,
		Role:           m.Role,
		Status:         m.Status,
		Permissions:    m.Permissions,
	}
}

type Claims struct {
	UserID      uuid.UUID         `json:"userId"`
	Email       string            `json:"email,omitempty"`
	Memberships []MembershipClaim `json:"organizations,omitempty"`
	TokenUse    string            `json:"tokenUse"`
	jwt.RegisteredClaims
}

// InviteClaims scope an invite credential to one organization.
type InviteClaims struct {
	UserID         uuid.UUID `json:"userId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	TokenUse       string    `json:"tokenUse"`
	jwt.RegisteredClaims
}

type JWTService struct {
	secret       []byte
	expiry       time.Duration
	inviteExpiry time.Duration
}

func NewJWTService(secret string, expiry, inviteExpiry time.Duration) *JWTService {
	return &JWTService{
		secret:       []byte(secret),
		expiry:       expiry,
		inviteExpiry: inviteExpiry,
	}
}

func (s *JWTService) registered(subject uuid.UUID, ttl time.Duration) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		Issuer:    issuer,
		Subject:   subject.String(),
		ID:        uuid.NewString(),
	}
}

func (s *JWTService) GenerateToken(userID uuid.UUID, email string, memberships []MembershipClaim) (string, error) {
	claims := Claims{
		UserID:           userID,
		Email:            email,
		Memberships:      memberships,
		TokenUse:         TokenUseSession,
		RegisteredClaims: s.registered(userID, s.expiry),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *JWTService) GenerateInviteToken(userID, orgID uuid.UUID) (string, error) {
	claims := InviteClaims{
		UserID:           userID,
		OrganizationID:   orgID,
		TokenUse:         TokenUseInvite,
		RegisteredClaims: s.registered(userID, s.inviteExpiry),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *JWTService) parse(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpiredToken
		}
		return ErrInvalidToken
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}

// ValidateToken accepts session tokens only; invite tokens are rejected.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if err := s.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.TokenUse != TokenUseSession || claims.UserID == uuid.Nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *JWTService) ValidateInviteToken(tokenString string) (*InviteClaims, error) {
	claims := &InviteClaims{}
	if err := s.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.TokenUse != TokenUseInvite || claims.UserID == uuid.Nil || claims.OrganizationID == uuid.Nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
