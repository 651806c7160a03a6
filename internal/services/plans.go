package services

import "github.com/geoyang/Visitor/internal/models"

// Plan is one row of the price list.
type Plan struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	MonthlyPrice float64  `json:"monthly_price"`
	Currency     string   `json:"currency"`
	MaxDevices   int      `json:"max_devices"`
	PriceID      string   `json:"price_id"`
	Features     []string `json:"features"`
}

const (
	defaultCurrency      = "usd"
	defaultPlanMaxDevice = 5
	unlimitedDevices     = "unlimited"
)

var plans = map[string]Plan{
	models.PlanBasic: {
		ID:           models.PlanBasic,
		Name:         "Basic",
		MonthlyPrice: 29.99,
		Currency:     defaultCurrency,
		MaxDevices:   5,
		PriceID:      "price_basic_monthly",
		Features:     []string{"Up to 5 devices", "Visitor check-in", "Basic analytics"},
	},
	models.PlanProfessional: {
		ID:           models.PlanProfessional,
		Name:         "Professional",
		MonthlyPrice: 79.99,
		Currency:     defaultCurrency,
		MaxDevices:   15,
		PriceID:      "price_professional_monthly",
		Features:     []string{"Up to 15 devices", "Custom forms", "Workflows", "Advanced analytics"},
	},
	models.PlanEnterprise: {
		ID:           models.PlanEnterprise,
		Name:         "Enterprise",
		MonthlyPrice: 199.99,
		Currency:     defaultCurrency,
		MaxDevices:   999,
		PriceID:      "price_enterprise_monthly",
		Features:     []string{"Unlimited devices", "Custom themes", "Priority support", "API access"},
	},
}

// LookupPlan returns the plan with the given id.
func LookupPlan(id string) (Plan, bool) {
	p, ok := plans[id]
	return p, ok
}

// Plans lists the price list in ascending price order.
func Plans() []Plan {
	return []Plan{plans[models.PlanBasic], plans[models.PlanProfessional], plans[models.PlanEnterprise]}
}

// PlanDeviceLimit is the per-location device cap of a plan; unknown plans get the basic cap.
func PlanDeviceLimit(plan string) int {
	if p, ok := plans[plan]; ok {
		return p.MaxDevices
	}
	return defaultPlanMaxDevice
}
