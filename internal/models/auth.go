package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role enumerates administrator roles within a tenant.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleNormal     Role = "NORMAL"
	RoleAccountant Role = "ACCOUNTANT"
)

// Valid reports whether the role is one of the enumerated values.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleNormal, RoleAccountant:
		return true
	}
	return false
}

// Account is an administrator account stored in the accounts table.
type Account struct {
	ID               string     `db:"id" json:"id"`
	Name             string     `db:"name" json:"name"`
	Email            string     `db:"email" json:"email"`
	Role             Role       `db:"role" json:"role"`
	Tenant           string     `db:"tenant" json:"tenant"`
	TenantAddress    string     `db:"tenant_address" json:"tenant_address"`
	Salt             string     `db:"salt" json:"-"`
	PasswordHash     string     `db:"password_hash" json:"-"`
	LastLogin        *time.Time `db:"last_login" json:"last_login,omitempty"`
	ResetToken       *string    `db:"reset_token" json:"-"`
	ResetTokenExpiry *time.Time `db:"reset_token_expiry" json:"-"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// Claims is the session-token payload. It is reconstructed per request and
// never persisted beyond what the token encodes.
type Claims struct {
	AccountID     string `json:"account_id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Role          Role   `json:"role"`
	Tenant        string `json:"tenant"`
	TenantAddress string `json:"tenant_address"`
	jwt.RegisteredClaims
}

// SignupRequest holds the payload for registering an administrator.
type SignupRequest struct {
	Name          string `json:"name" validate:"required,min=2,max=30"`
	Email         string `json:"email" validate:"required,email,min=10,max=30"`
	Password      string `json:"password" validate:"required,min=8,max=10"`
	Role          Role   `json:"role" validate:"required,oneof=ADMIN NORMAL ACCOUNTANT"`
	Tenant        string `json:"tenant" validate:"required,min=10"`
	TenantAddress string `json:"tenant_address" validate:"required,min=10"`
}

// LoginRequest holds credentials for authenticating an administrator.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued session token and account info.
type LoginResponse struct {
	Token     string      `json:"token"`
	ExpiresIn int64       `json:"expires_in"`
	Account   AccountInfo `json:"account"`
}

// ForgotPasswordRequest initiates the password-reset flow.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest completes the password-reset flow.
type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=8,max=10"`
}

// AccountInfo describes the authenticated administrator in responses.
type AccountInfo struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Role          Role   `json:"role"`
	Tenant        string `json:"tenant"`
	TenantAddress string `json:"tenant_address"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
