package dto

import (
	"strings"

	"github.com/hugh/rateboard/internal/api/validation"
)

const (
	MinCriteriaWeight = 1
	MaxCriteriaWeight = 100
)

type CreateCriteriaRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Weight      *int   `json:"weight,omitempty"`
}

func (r CreateCriteriaRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if msg := validation.ValidateName("Name", r.Name); msg != "" {
		errors["name"] = msg
	}
	if len(r.Description) > 1000 {
		errors["description"] = "Description must be at most 1000 characters"
	}
	if r.Weight != nil && !validWeight(*r.Weight) {
		errors["weight"] = "Weight must be between 1 and 100"
	}

	return errors
}

// UpdateCriteriaRequest is a partial update; nil fields are left unchanged.
type UpdateCriteriaRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Weight      *int    `json:"weight,omitempty"`
	IsActive    *bool   `json:"isActive,omitempty"`
}

func (r UpdateCriteriaRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Name == nil && r.Description == nil && r.Weight == nil && r.IsActive == nil {
		errors["body"] = "At least one field must be provided"
	}
	if r.Name != nil {
		if msg := validation.ValidateName("Name", *r.Name); msg != "" {
			errors["name"] = msg
		}
	}
	if r.Description != nil && len(*r.Description) > 1000 {
		errors["description"] = "Description must be at most 1000 characters"
	}
	if r.Weight != nil && !validWeight(*r.Weight) {
		errors["weight"] = "Weight must be between 1 and 100"
	}

	return errors
}

// Updates returns the column map for gorm's Updates.
func (r UpdateCriteriaRequest) Updates() map[string]interface{} {
	updates := make(map[string]interface{})
	if r.Name != nil {
		updates["name"] = strings.TrimSpace(*r.Name)
	}
	if r.Description != nil {
		updates["description"] = *r.Description
	}
	if r.Weight != nil {
		updates["weight"] = *r.Weight
	}
	if r.IsActive != nil {
		updates["is_active"] = *r.IsActive
	}
	return updates
}

func validWeight(w int) bool {
	return w >= MinCriteriaWeight && w <= MaxCriteriaWeight
}
