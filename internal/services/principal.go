package services

import (
	"github.com/geoyang/Visitor/internal/models"

	"github.com/google/uuid"
)

// Principal is whoever is calling a route that accepts both user tokens and
// device tokens. Exactly one of Tenant and Device is set.
type Principal struct {
	Tenant *models.TenantContext
	Device *models.Device
}

// Scope is the company filter for listings; nil means every company.
func (p Principal) Scope() *uuid.UUID {
	if p.Device != nil {
		id := p.Device.CompanyID
		return &id
	}
	return CompanyScope(p.Tenant)
}

// CompanyID is the company new rows are created in. Super admins have none.
func (p Principal) CompanyID() *uuid.UUID {
	scope := p.Scope()
	if scope == nil || *scope == uuid.Nil {
		return nil
	}
	return scope
}

// Owns reports whether the principal may change a row of companyID. A nil
// companyID marks a global row, which only super admins may change.
func (p Principal) Owns(companyID *uuid.UUID) bool {
	if p.Device == nil && p.Tenant.IsSuperAdmin() {
		return true
	}
	scope := p.Scope()
	return companyID != nil && scope != nil && *companyID == *scope
}

// ActorID identifies the principal in created_by columns.
func (p Principal) ActorID() string {
	if p.Device != nil {
		return p.Device.ID.String()
	}
	if p.Tenant != nil {
		return p.Tenant.UserID.String()
	}
	return ""
}
