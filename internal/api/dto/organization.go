package dto

import (
	"strings"

	"github.com/google/uuid"
	"github.com/hugh/rateboard/internal/api/validation"
	"github.com/hugh/rateboard/internal/database/models"
	"github.com/hugh/rateboard/internal/permission"
)

type InviteRequest struct {
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
}

func (r InviteRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Email == "" {
		errors["email"] = "Email is required"
	} else if !validation.IsValidEmail(strings.TrimSpace(r.Email)) {
		errors["email"] = "Invalid email format"
	}
	if !permission.Invitable(r.Role) {
		errors["role"] = "Role must be SUPERVISOR or EMPLOYEE"
	}

	return errors
}

type ResendInviteRequest struct {
	Email string `json:"email"`
}

func (r ResendInviteRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.Email == "" {
		errors["email"] = "Email is required"
	} else if !validation.IsValidEmail(strings.TrimSpace(r.Email)) {
		errors["email"] = "Invalid email format"
	}
	return errors
}

// MemberDTO is one row of a member listing.
type MemberDTO struct {
	MembershipID uuid.UUID               `json:"membershipId"`
	UserID       uuid.UUID               `json:"userId"`
	Email        string                  `json:"email"`
	FirstName    string                  `json:"firstName"`
	LastName     string                  `json:"lastName"`
	Role         models.Role             `json:"role"`
	Status       models.MembershipStatus `json:"status"`
}

func NewMemberDTO(m *models.OrganizationMembership) MemberDTO {
	out := MemberDTO{
		MembershipID: m.ID,
		UserID:       m.UserID,
		Role:         m.Role,
		Status:       m.Status,
	}
	if m.User != nil {
		out.Email = m.User.Email
		out.FirstName = m.User.FirstName
		out.LastName = m.User.LastName
	}
	return out
}
