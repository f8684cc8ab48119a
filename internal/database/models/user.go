package models

type User struct {
	Base
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	PasswordHash string `gorm:"not null" json:"-"`

	// Activated is false for accounts created by an invitation until the
	// invite is accepted and a real password is chosen.
	Activated bool `gorm:"default:false;not null" json:"activated"`

	// Relationships
	Memberships        []OrganizationMembership `gorm:"foreignKey:UserID" json:"memberships,omitempty"`
	OwnedOrganizations []Organization           `gorm:"foreignKey:OwnerID" json:"ownedOrganizations,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// DisplayName falls back to the email for invited users without a name yet.
func (u *User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.Email
}
