package dto

import (
	"strings"

	"github.com/google/uuid"
	"github.com/hugh/rateboard/internal/api/validation"
	"github.com/hugh/rateboard/internal/database/models"
)

type RegisterRequest struct {
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	OrganizationName string `json:"organizationName"`
}

func (r RegisterRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if msg := validation.ValidateName("First name", r.FirstName); msg != "" {
		errors["firstName"] = msg
	}
	if msg := validation.ValidateName("Last name", r.LastName); msg != "" {
		errors["lastName"] = msg
	}
	if r.Email == "" {
		errors["email"] = "Email is required"
	} else if !validation.IsValidEmail(strings.TrimSpace(r.Email)) {
		errors["email"] = "Invalid email format"
	}
	if r.Password == "" {
		errors["password"] = "Password is required"
	} else if ok, msg := validation.IsValidPassword(r.Password); !ok {
		errors["password"] = msg
	}
	if msg := validation.ValidateName("Organization name", r.OrganizationName); msg != "" {
		errors["organizationName"] = msg
	}

	return errors
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Email == "" {
		errors["email"] = "Email is required"
	}
	if r.Password == "" {
		errors["password"] = "Password is required"
	}

	return errors
}

type AcceptInviteRequest struct {
	Token     string `json:"token"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Password  string `json:"password,omitempty"`
}

// Validate checks the token and, when given, the password. Whether a password
// is required depends on the account and is decided by the service.
func (r AcceptInviteRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if strings.TrimSpace(r.Token) == "" {
		errors["token"] = "Token is required"
	}
	if r.Password != "" {
		if ok, msg := validation.IsValidPassword(r.Password); !ok {
			errors["password"] = msg
		}
	}
	if len(r.FirstName) > 0 {
		if msg := validation.ValidateName("First name", r.FirstName); msg != "" {
			errors["firstName"] = msg
		}
	}
	if len(r.LastName) > 0 {
		if msg := validation.ValidateName("Last name", r.LastName); msg != "" {
			errors["lastName"] = msg
		}
	}

	return errors
}

type UserDTO struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Activated bool      `json:"activated"`
}

func NewUserDTO(u *models.User) UserDTO {
	return UserDTO{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Activated: u.Activated,
	}
}

type OrganizationDTO struct {
	ID      uuid.UUID                 `json:"id"`
	Name    string                    `json:"name"`
	OwnerID uuid.UUID                 `json:"ownerId"`
	Status  models.OrganizationStatus `json:"status"`
}

func NewOrganizationDTO(o *models.Organization) OrganizationDTO {
	return OrganizationDTO{
		ID:      o.ID,
		Name:    o.Name,
		OwnerID: o.OwnerID,
		Status:  o.Status,
	}
}

type MembershipDTO struct {
	ID             uuid.UUID               `json:"id"`
	OrganizationID uuid.UUID               `json:"organizationId"`
	Role           models.Role             `json:"role"`
	Status         models.MembershipStatus `json:"status"`
	Permissions    []string                `json:"permissions"`
	Organization   *OrganizationDTO        `json:"organization,omitempty"`
}

func NewMembershipDTO(m *models.OrganizationMembership) MembershipDTO {
	out := MembershipDTO{
		ID:             m.ID,
		OrganizationID: m.OrganizationID,
		Role:           m.Role,
		Status:         m.Status,
		Permissions:    m.Permissions,
	}
	if m.Organization != nil {
		org := NewOrganizationDTO(m.Organization)
		out.Organization = &org
	}
	return out
}

type RegisterResponse struct {
	User         UserDTO         `json:"user"`
	Organization OrganizationDTO `json:"organization"`
	Membership   MembershipDTO   `json:"membership"`
}

type AuthResponse struct {
	User       UserDTO        `json:"user"`
	Membership *MembershipDTO `json:"membership,omitempty"`
}

// WhoAmIResponse is the authenticated user with every membership and the
// organizations they own.
type WhoAmIResponse struct {
	UserDTO
	Memberships        []MembershipDTO   `json:"memberships"`
	OwnedOrganizations []OrganizationDTO `json:"ownedOrganizations"`
}

func NewWhoAmIResponse(u *models.User) WhoAmIResponse {
	resp := WhoAmIResponse{
		UserDTO:            NewUserDTO(u),
		Memberships:        make([]MembershipDTO, 0, len(u.Memberships)),
		OwnedOrganizations: make([]OrganizationDTO, 0, len(u.OwnedOrganizations)),
	}
	for i := range u.Memberships {
		resp.Memberships = append(resp.Memberships, NewMembershipDTO(&u.Memberships[i]))
	}
	for i := range u.OwnedOrganizations {
		resp.OwnedOrganizations = append(resp.OwnedOrganizations, NewOrganizationDTO(&u.OwnedOrganizations[i]))
	}
	return resp
}
