package models

import "time"

const TokenTypeBearer = "bearer"

// TokenResponse is returned by every login and registration endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// RegisterRequest creates a company and its first user.
type RegisterRequest struct {
	Email         string  `json:"email"`
	Password      string  `json:"password"`
	CompanyName   string  `json:"company_name"`
	CompanyDomain *string `json:"company_domain"`
	FirstName     *string `json:"first_name"`
	LastName      *string `json:"last_name"`
	Role          string  `json:"role"`
}

// CompanyRegisterRequest is the older registration body keyed by company.
type CompanyRegisterRequest struct {
	Name         string  `json:"name"`
	AccountEmail string  `json:"account_email"`
	Password     string  `json:"password"`
	Domain       *string `json:"domain"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// MeUser is the user half of GET /auth/me.
type MeUser struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	FirstName     *string    `json:"first_name"`
	LastName      *string    `json:"last_name"`
	Role          string     `json:"role"`
	Status        string     `json:"status"`
	EmailVerified bool       `json:"email_verified"`
	Permissions   []string   `json:"permissions"`
	LastLogin     *time.Time `json:"last_login"`
	CreatedAt     time.Time  `json:"created_at"`
}

// MeCompany is the company half of GET /auth/me; fields are null for super admins.
type MeCompany struct {
	ID        *string    `json:"id"`
	Name      *string    `json:"name"`
	Domain    *string    `json:"domain"`
	Status    *string    `json:"status"`
	CreatedAt *time.Time `json:"created_at"`
}

type MeResponse struct {
	User    MeUser    `json:"user"`
	Company MeCompany `json:"company"`
}

// CompanyAccount is the older company-centric account view.
type CompanyAccount struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	AccountEmail     string     `json:"account_email"`
	Domain           *string    `json:"domain"`
	Status           string     `json:"status"`
	EmailVerified    bool       `json:"email_verified"`
	Role             string     `json:"role"`
	RegistrationDate time.Time  `json:"registration_date"`
	LastLogin        *time.Time `json:"last_login"`
}
