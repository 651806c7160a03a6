package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	TriggerOnCheckin  = "on_checkin"
	TriggerOnCheckout = "on_checkout"

	ActionEmail        = "email"
	ActionSMS          = "sms"
	ActionWebhook      = "webhook"
	ActionNotification = "notification"
)

var validActionTypes = map[string]bool{
	ActionEmail:        true,
	ActionSMS:          true,
	ActionWebhook:      true,
	ActionNotification: true,
}

// IsValidActionType reports whether t names a supported workflow action.
func IsValidActionType(t string) bool {
	return validActionTypes[t]
}

type WorkflowAction struct {
	Type    string                 `json:"type"`
	Trigger string                 `json:"trigger"`
	Config  map[string]interface{} `json:"config"`
}

type Workflow struct {
	ID          uuid.UUID        `json:"id" db:"id"`
	CompanyID   uuid.UUID        `json:"company_id" db:"company_id"`
	Name        string           `json:"name" db:"name"`
	Description *string          `json:"description" db:"description"`
	FormID      *string          `json:"form_id" db:"form_id"`
	LocationIDs []uuid.UUID      `json:"location_ids" db:"location_ids"`
	Actions     []WorkflowAction `json:"actions" db:"actions"`
	IsActive    bool             `json:"is_active" db:"is_active"`
	CreatedBy   *uuid.UUID       `json:"created_by" db:"created_by"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at" db:"updated_at"`
}

// AppliesToLocation reports whether the workflow covers the location. An empty
// location list covers every location of the company.
func (w *Workflow) AppliesToLocation(locationID uuid.UUID) bool {
	if len(w.LocationIDs) == 0 {
		return true
	}
	for _, id := range w.LocationIDs {
		if id == locationID {
			return true
		}
	}
	return false
}
