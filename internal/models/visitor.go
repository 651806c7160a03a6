package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	VisitorStatusCheckedIn  = "checked_in"
	VisitorStatusCheckedOut = "checked_out"
	VisitorStatusExpired    = "expired"

	DefaultFormKey = "default"
)

type Visitor struct {
	ID           uuid.UUID              `json:"id" db:"id"`
	CompanyID    uuid.UUID              `json:"company_id" db:"company_id"`
	FormID       string                 `json:"form_id" db:"form_id"`
	LocationID   uuid.UUID              `json:"location_id" db:"location_id"`
	Data         map[string]interface{} `json:"data" db:"data"`
	CheckInTime  time.Time              `json:"check_in_time" db:"check_in_time"`
	CheckOutTime *time.Time             `json:"check_out_time" db:"check_out_time"`
	Status       string                 `json:"status" db:"status"`
	HostNotified bool                   `json:"host_notified" db:"host_notified"`
	Notes        *string                `json:"notes" db:"notes"`
	CreatedAt    time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at" db:"updated_at"`
}

// CheckedOut reports whether the visitor has left; such visitors never change again.
func (v *Visitor) CheckedOut() bool {
	return v.Status == VisitorStatusCheckedOut || v.CheckOutTime != nil
}

// DataString reads a string field from the submitted form data.
func (v *Visitor) DataString(key string) string {
	if v.Data == nil {
		return ""
	}
	if s, ok := v.Data[key].(string); ok {
		return s
	}
	return ""
}

// VisitorFilter narrows visitor listings. A nil LocationIDs means no location
// filter and a zero Limit means no limit.
type VisitorFilter struct {
	LocationIDs []uuid.UUID
	Status      string
	Limit       int
	Offset      int
}
