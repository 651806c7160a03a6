package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	DeviceStatusActive      = "active"
	DeviceStatusInactive    = "inactive"
	DeviceStatusOffline     = "offline"
	DeviceStatusMaintenance = "maintenance"

	DeviceTypeTablet = "tablet"
	DeviceTypeMobile = "mobile"

	// OnlineWindow is how recent a heartbeat must be for a device to count as online.
	OnlineWindow = 5 * time.Minute
)

type Device struct {
	ID            uuid.UUID              `json:"id" db:"id"`
	CompanyID     uuid.UUID              `json:"company_id" db:"company_id"`
	LocationID    uuid.UUID              `json:"location_id" db:"location_id"`
	Name          string                 `json:"name" db:"name"`
	DeviceType    string                 `json:"device_type" db:"device_type"`
	DeviceID      string                 `json:"device_id" db:"device_id"`
	DeviceToken   *string                `json:"-" db:"device_token"`
	Status        string                 `json:"status" db:"status"`
	IsOnline      bool                   `json:"is_online" db:"is_online"`
	LastHeartbeat *time.Time             `json:"last_heartbeat" db:"last_heartbeat"`
	LastSeen      *time.Time             `json:"last_seen" db:"last_seen"`
	Settings      map[string]interface{} `json:"settings" db:"settings"`
	AssignedForms []string               `json:"assigned_forms" db:"assigned_forms"`
	CreatedAt     time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at" db:"updated_at"`
}

// OnlineAt derives the liveness flag from the last heartbeat.
func (d *Device) OnlineAt(now time.Time) bool {
	if d.LastHeartbeat == nil {
		return false
	}
	return now.Sub(d.LastHeartbeat.UTC()) < OnlineWindow
}
