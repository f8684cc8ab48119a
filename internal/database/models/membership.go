package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleOwner      Role = "OWNER"
	RoleSupervisor Role = "SUPERVISOR"
	RoleEmployee   Role = "EMPLOYEE"
)

func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleSupervisor, RoleEmployee:
		return true
	}
	return false
}

type MembershipStatus string

const (
	MembershipStatusInvited MembershipStatus = "INVITED"
	MembershipStatusActive  MembershipStatus = "ACTIVE"
)

var ErrInvalidStatusTransition = errors.New("invalid membership status transition")

// membershipTransitions lists every allowed from -> to pair.
var membershipTransitions = map[MembershipStatus][]MembershipStatus{
	MembershipStatusInvited: {MembershipStatusActive},
}

// Transition returns the next status or ErrInvalidStatusTransition.
func (s MembershipStatus) Transition(to MembershipStatus) (MembershipStatus, error) {
	for _, next := range membershipTransitions[s] {
		if next == to {
			return to, nil
		}
	}
	return s, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, s, to)
}

type OrganizationMembership struct {
	Base
	UserID         uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_memberships_user_org" json:"userId"`
	OrganizationID uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_memberships_user_org;index" json:"organizationId"`
	Role           Role             `gorm:"not null;index" json:"role"`
	Permissions    []string         `gorm:"type:jsonb;serializer:json;not null" json:"permissions"`
	Status         MembershipStatus `gorm:"not null;default:'INVITED'" json:"status"`

	InvitedByID  *uuid.UUID `gorm:"type:uuid" json:"invitedById,omitempty"`
	InviteSentAt *time.Time `json:"inviteSentAt,omitempty"`

	// Relationships
	User         *User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Organization *Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
}

func (OrganizationMembership) TableName() string {
	return "organization_memberships"
}

func (m *OrganizationMembership) IsActive() bool {
	return m.Status == MembershipStatusActive
}
