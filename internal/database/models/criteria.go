package models

import "github.com/google/uuid"

// Criteria is one axis employees are rated on within an organization.
type Criteria struct {
	Base
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_criteria_org_name" json:"organizationId"`
	Name           string    `gorm:"not null;uniqueIndex:idx_criteria_org_name" json:"name"`
	Description    string    `json:"description"`
	Weight         int       `gorm:"not null;default:1" json:"weight"`
	IsActive       bool      `gorm:"not null;default:true" json:"isActive"`

	Organization *Organization `gorm:"foreignKey:OrganizationID" json:"-"`
}

func (Criteria) TableName() string {
	return "criteria"
}
