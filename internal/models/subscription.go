package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	SubscriptionStatusActive     = "active"
	SubscriptionStatusTrialing   = "trialing"
	SubscriptionStatusPastDue    = "past_due"
	SubscriptionStatusCanceled   = "canceled"
	SubscriptionStatusUnpaid     = "unpaid"
	SubscriptionStatusIncomplete = "incomplete"

	PlanBasic        = "basic"
	PlanProfessional = "professional"
	PlanEnterprise   = "enterprise"
)

// LiveSubscriptionStatuses are the statuses that still entitle a location to service.
var LiveSubscriptionStatuses = []string{
	SubscriptionStatusActive,
	SubscriptionStatusTrialing,
	SubscriptionStatusPastDue,
}

// IsLiveSubscriptionStatus reports whether status is one of LiveSubscriptionStatuses.
func IsLiveSubscriptionStatus(status string) bool {
	for _, s := range LiveSubscriptionStatuses {
		if s == status {
			return true
		}
	}
	return false
}

var subscriptionTransitions = map[string][]string{
	SubscriptionStatusTrialing: {SubscriptionStatusActive, SubscriptionStatusPastDue, SubscriptionStatusCanceled},
	SubscriptionStatusActive:   {SubscriptionStatusPastDue, SubscriptionStatusCanceled},
	SubscriptionStatusPastDue:  {SubscriptionStatusActive, SubscriptionStatusCanceled},
}

// CanTransition reports whether a subscription may move from one status to another.
// Repeating the current status is allowed so replayed webhooks stay idempotent.
func CanTransition(from, to string) bool {
	if from == to {
		return true
	}
	for _, next := range subscriptionTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Subscription struct {
	ID                   uuid.UUID              `json:"id" db:"id"`
	CompanyID            uuid.UUID              `json:"company_id" db:"company_id"`
	LocationID           *uuid.UUID             `json:"location_id" db:"location_id"`
	Plan                 string                 `json:"plan" db:"plan"`
	Status               string                 `json:"status" db:"status"`
	StripeSubscriptionID *string                `json:"stripe_subscription_id" db:"stripe_subscription_id"`
	StripeCustomerID     *string                `json:"stripe_customer_id" db:"stripe_customer_id"`
	StripePriceID        string                 `json:"stripe_price_id" db:"stripe_price_id"`
	CurrentPeriodStart   *time.Time             `json:"current_period_start" db:"current_period_start"`
	CurrentPeriodEnd     *time.Time             `json:"current_period_end" db:"current_period_end"`
	TrialEnd             *time.Time             `json:"trial_end" db:"trial_end"`
	CancelAtPeriodEnd    bool                   `json:"cancel_at_period_end" db:"cancel_at_period_end"`
	CanceledAt           *time.Time             `json:"canceled_at" db:"canceled_at"`
	MonthlyPrice         float64                `json:"monthly_price" db:"monthly_price"`
	Currency             string                 `json:"currency" db:"currency"`
	Metadata             map[string]interface{} `json:"metadata" db:"metadata"`
	CreatedAt            time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time              `json:"updated_at" db:"updated_at"`
}

// SubscriptionView is a subscription decorated with its linked location name.
type SubscriptionView struct {
	Subscription
	LocationName *string `json:"location_name"`
}

// MetadataMaxDevices returns metadata.max_devices when it holds a usable number.
func (s *Subscription) MetadataMaxDevices() (int, bool) {
	if s.Metadata == nil {
		return 0, false
	}
	switch v := s.Metadata["max_devices"].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	case int32:
		return int(v), true
	}
	return 0, false
}
