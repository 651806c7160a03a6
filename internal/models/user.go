package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleSuperAdmin   = "super_admin"
	RoleCompanyAdmin = "company_admin"
	RoleManager      = "manager"
	RoleEmployee     = "employee"
	RoleViewer       = "viewer"

	UserStatusActive    = "active"
	UserStatusInactive  = "inactive"
	UserStatusSuspended = "suspended"
)

var validRoles = map[string]bool{
	RoleSuperAdmin:   true,
	RoleCompanyAdmin: true,
	RoleManager:      true,
	RoleEmployee:     true,
	RoleViewer:       true,
}

// IsValidRole reports whether role is one of the known roles.
func IsValidRole(role string) bool {
	return validRoles[role]
}

type User struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	CompanyID     *uuid.UUID `json:"company_id" db:"company_id"`
	Email         string     `json:"email" db:"email"`
	PasswordHash  string     `json:"-" db:"password_hash"`
	FirstName     *string    `json:"first_name" db:"first_name"`
	LastName      *string    `json:"last_name" db:"last_name"`
	Role          string     `json:"role" db:"role"`
	Status        string     `json:"status" db:"status"`
	EmailVerified bool       `json:"email_verified" db:"email_verified"`
	Permissions   []string   `json:"permissions" db:"permissions"`
	LastLogin     *time.Time `json:"last_login" db:"last_login"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

func (u *User) IsSuperAdmin() bool {
	return u.Role == RoleSuperAdmin
}
