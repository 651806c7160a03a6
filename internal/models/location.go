package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	LocationStatusActive      = "active"
	LocationStatusInactive    = "inactive"
	LocationStatusMaintenance = "maintenance"
)

type Location struct {
	ID                 uuid.UUID              `json:"id" db:"id"`
	CompanyID          uuid.UUID              `json:"company_id" db:"company_id"`
	Name               string                 `json:"name" db:"name"`
	Address            *string                `json:"address" db:"address"`
	Latitude           *float64               `json:"latitude" db:"latitude"`
	Longitude          *float64               `json:"longitude" db:"longitude"`
	Timezone           string                 `json:"timezone" db:"timezone"`
	Status             string                 `json:"status" db:"status"`
	LinkingCode        string                 `json:"linking_code" db:"linking_code"`
	SubscriptionID     *uuid.UUID             `json:"subscription_id" db:"subscription_id"`
	SubscriptionStatus *string                `json:"subscription_status" db:"subscription_status"`
	SubscriptionPlan   *string                `json:"subscription_plan" db:"subscription_plan"`
	Settings           map[string]interface{} `json:"settings" db:"settings"`
	WorkingHours       map[string]interface{} `json:"working_hours" db:"working_hours"`
	ContactInfo        map[string]interface{} `json:"contact_info" db:"contact_info"`
	CreatedAt          time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at" db:"updated_at"`
	DeletedAt          *time.Time             `json:"deleted_at,omitempty" db:"deleted_at"`
}

// LocationSummary is a location row decorated for list views.
type LocationSummary struct {
	Location
	CompanyName    string `json:"company_name"`
	DeviceCount    int    `json:"device_count"`
	ActiveVisitors int    `json:"active_visitors"`
}

// DefaultWorkingHours is applied to new locations that do not send their own.
func DefaultWorkingHours() map[string]interface{} {
	weekday := map[string]interface{}{"open": "09:00", "close": "17:00", "closed": false}
	weekend := map[string]interface{}{"open": "09:00", "close": "17:00", "closed": true}
	hours := map[string]interface{}{}
	for _, day := range []string{"monday", "tuesday", "wednesday", "thursday", "friday"} {
		hours[day] = copyMap(weekday)
	}
	hours["saturday"] = copyMap(weekend)
	hours["sunday"] = copyMap(weekend)
	return hours
}

func copyMap(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
