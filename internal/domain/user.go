package domain

import "time"

// Role enumerates the capabilities a user holds within their tenant.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleAgent    Role = "agent"
	RoleCustomer Role = "customer"
)

// ValidRole reports whether the value is a known role.
func ValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleAgent, RoleCustomer:
		return true
	}
	return false
}

// User is the domain model for accounts belonging to a tenant.
// TenantID is immutable after creation; no write path updates it.
// Deactivation (IsActive=false) is the terminal lifecycle state;
// accounts are never physically deleted.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	TenantID     string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
