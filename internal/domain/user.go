package domain

import "time"

// Role enumerates principal roles across the platform.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleAgent      Role = "agent"
	RoleCustomer   Role = "customer"
)

// PermissionViewAllTickets lets an agent see every ticket instead of
// only the ones assigned to them.
const PermissionViewAllTickets = "view_all_tickets"

// User is the domain model for every principal: staff and customers alike.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CompanyID    *string
	Permissions  []string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPermission reports whether the user carries the capability string.
func (u *User) HasPermission(permission string) bool {
	for _, p := range u.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// ValidRole reports whether the value is a known role.
func ValidRole(r Role) bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleManager, RoleAgent, RoleCustomer:
		return true
	}
	return false
}
