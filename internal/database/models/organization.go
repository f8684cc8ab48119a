package models

import "github.com/google/uuid"

type OrganizationStatus string

const (
	OrganizationStatusActive   OrganizationStatus = "ACTIVE"
	OrganizationStatusInactive OrganizationStatus = "INACTIVE"
)

type Organization struct {
	Base
	Name    string             `gorm:"uniqueIndex;not null" json:"name"`
	OwnerID uuid.UUID          `gorm:"type:uuid;index;not null" json:"ownerId"`
	Status  OrganizationStatus `gorm:"not null;default:'ACTIVE'" json:"status"`

	// Relationships
	Owner       *User                    `gorm:"foreignKey:OwnerID" json:"-"`
	Memberships []OrganizationMembership `gorm:"foreignKey:OrganizationID" json:"-"`
	Criteria    []Criteria               `gorm:"foreignKey:OrganizationID" json:"-"`
}

func (Organization) TableName() string {
	return "organizations"
}

func (o *Organization) IsActive() bool {
	return o.Status == OrganizationStatusActive
}
