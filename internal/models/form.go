package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	FieldTypeText     = "text"
	FieldTypeEmail    = "email"
	FieldTypePhone    = "phone"
	FieldTypeSelect   = "select"
	FieldTypeTextarea = "textarea"
	FieldTypeDate     = "date"
	FieldTypeCheckbox = "checkbox"

	FormStatusActive   = "active"
	FormStatusDraft    = "draft"
	FormStatusArchived = "archived"

	DefaultFormName = "Default Visitor Form"
)

type FormField struct {
	Name       string                 `json:"name"`
	Type       string                 `json:"type"`
	Label      string                 `json:"label"`
	Required   bool                   `json:"required"`
	Options    []string               `json:"options,omitempty"`
	Validation map[string]interface{} `json:"validation,omitempty"`
}

type Form struct {
	ID          uuid.UUID              `json:"id" db:"id"`
	CompanyID   *uuid.UUID             `json:"company_id" db:"company_id"`
	Name        string                 `json:"name" db:"name"`
	Description *string                `json:"description" db:"description"`
	Category    string                 `json:"category" db:"category"`
	Status      string                 `json:"status" db:"status"`
	Fields      []FormField            `json:"fields" db:"fields"`
	Layout      map[string]interface{} `json:"layout" db:"layout"`
	Theme       map[string]interface{} `json:"theme" db:"theme"`
	Settings    map[string]interface{} `json:"settings" db:"settings"`
	Version     int                    `json:"version" db:"version"`
	LocationIDs []uuid.UUID            `json:"location_ids" db:"location_ids"`
	CreatedBy   *string                `json:"created_by" db:"created_by"`
	CreatedAt   time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at" db:"updated_at"`
}

// DefaultVisitorFields is the field set of the global form created at startup.
func DefaultVisitorFields() []FormField {
	return []FormField{
		{Name: "full_name", Type: FieldTypeText, Label: "Full Name", Required: true},
		{Name: "company", Type: FieldTypeText, Label: "Company", Required: false},
		{Name: "email", Type: FieldTypeEmail, Label: "Email", Required: true},
		{Name: "phone", Type: FieldTypePhone, Label: "Phone", Required: false},
		{
			Name:     "visit_purpose",
			Type:     FieldTypeSelect,
			Label:    "Purpose of Visit",
			Required: true,
			Options:  []string{"Meeting", "Interview", "Delivery", "Maintenance", "Other"},
		},
		{Name: "host_name", Type: FieldTypeText, Label: "Host Name", Required: true},
		{Name: "notes", Type: FieldTypeTextarea, Label: "Additional Notes", Required: false},
	}
}
