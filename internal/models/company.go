package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	CompanyStatusActive    = "active"
	CompanyStatusInactive  = "inactive"
	CompanyStatusSuspended = "suspended"

	DefaultMaxLocations = 5
)

type Company struct {
	ID               uuid.UUID              `json:"id" db:"id"`
	Name             string                 `json:"name" db:"name"`
	Domain           *string                `json:"domain" db:"domain"`
	Status           string                 `json:"status" db:"status"`
	StripeCustomerID *string                `json:"stripe_customer_id,omitempty" db:"stripe_customer_id"`
	MaxLocations     int                    `json:"max_locations" db:"max_locations"`
	Settings         map[string]interface{} `json:"settings" db:"settings"`
	CreatedAt        time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at" db:"updated_at"`
	DeletedAt        *time.Time             `json:"deleted_at,omitempty" db:"deleted_at"`
}

// IsActive reports whether the company can be used for new work.
func (c *Company) IsActive() bool {
	return c.Status == CompanyStatusActive
}

// LocationLimit returns max_locations, falling back to the default for unset rows.
func (c *Company) LocationLimit() int {
	if c.MaxLocations <= 0 {
		return DefaultMaxLocations
	}
	return c.MaxLocations
}
