package models

import "github.com/google/uuid"

// TenantContext is the resolved principal of an authenticated user request.
// Super admins carry uuid.Nil as CompanyID and BypassAll set; no company row backs them.
type TenantContext struct {
	UserID    uuid.UUID
	CompanyID uuid.UUID
	Role      string
	BypassAll bool
	User      *User
	Company   *Company
}

// IsSuperAdmin reports whether ownership checks are skipped for this context.
func (t *TenantContext) IsSuperAdmin() bool {
	return t != nil && t.BypassAll
}
