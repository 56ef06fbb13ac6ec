// Package policy is the single place where role and tenant based
// visibility is decided. Every route builds its query scope here instead
// of carrying its own conditionals.
package policy

import (
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// Principal is the acting caller as resolved from the bearer token.
type Principal struct {
	UserID      string
	Role        domain.Role
	CompanyID   *string
	Permissions []string
}

// HasPermission reports whether the principal carries a capability string.
func (p Principal) HasPermission(permission string) bool {
	for _, perm := range p.Permissions {
		if perm == permission {
			return true
		}
	}
	return false
}

// TicketScope is a query predicate restricting which tickets a principal
// may see. Exactly one of the restriction shapes is active; All short
// circuits the rest.
type TicketScope struct {
	// All grants unrestricted visibility (admin, super_admin, agents
	// holding view_all_tickets).
	All bool
	// CreatedBy restricts to tickets authored by this user.
	CreatedBy string
	// AssignedTo restricts to tickets assigned to this user.
	AssignedTo string
	// CompanyIDs restricts to tickets belonging to any of these tenants.
	// When OwnCreated is set alongside it, CreatedBy holds the principal
	// and the predicate widens to
	// (company ∈ CompanyIDs OR created_by == CreatedBy).
	CompanyIDs []string
	OwnCreated bool
}

// TicketsFor computes the ticket visibility scope for a principal.
// managerCompanies is the resolved {employer company} ∪ {created
// companies} id set and is only consulted for managers; resolving it is
// the caller's job (see ScopeResolver) so this function stays pure.
//
// A manager with an empty company set degrades to "own authored tickets
// only" — never to everything and never to an always-false predicate.
func TicketsFor(p Principal, managerCompanies []string) TicketScope {
	switch p.Role {
	case domain.RoleSuperAdmin, domain.RoleAdmin:
		return TicketScope{All: true}
	case domain.RoleAgent:
		if p.HasPermission(domain.PermissionViewAllTickets) {
			return TicketScope{All: true}
		}
		return TicketScope{AssignedTo: p.UserID}
	case domain.RoleManager:
		if len(managerCompanies) == 0 {
			return TicketScope{CreatedBy: p.UserID}
		}
		return TicketScope{CompanyIDs: managerCompanies, CreatedBy: p.UserID, OwnCreated: true}
	default:
		return TicketScope{CreatedBy: p.UserID}
	}
}

// UserScope restricts which user records a principal may list.
type UserScope struct {
	All bool
	// CompanyIDs restricts to members of these tenants (manager scope).
	CompanyIDs []string
	// CompanyID is an explicit caller-supplied filter, honored for
	// privileged roles on top of All.
	CompanyID *string
	// SelfOnly restricts to the principal's own record. Agents and
	// customers are kept off the listing routes by role gating upstream;
	// this is the conservative result should one slip through.
	SelfOnly bool
}

// UsersFor computes user visibility. companyFilter is the optional
// explicit ?companyId= query filter.
func UsersFor(p Principal, managerCompanies []string, companyFilter *string) UserScope {
	switch p.Role {
	case domain.RoleSuperAdmin, domain.RoleAdmin:
		return UserScope{All: true, CompanyID: companyFilter}
	case domain.RoleManager:
		ids := managerCompanies
		if p.CompanyID != nil && !containsString(ids, *p.CompanyID) {
			ids = append(append([]string{}, ids...), *p.CompanyID)
		}
		if len(ids) == 0 {
			return UserScope{SelfOnly: true}
		}
		return UserScope{CompanyIDs: ids}
	default:
		return UserScope{SelfOnly: true}
	}
}

// CompanyScope restricts which companies a principal may list.
type CompanyScope struct {
	All bool
	// OwnID matches the manager's employer company by id.
	OwnID *string
	// CreatedBy matches companies the manager created.
	CreatedBy string
	// Type is an optional explicit filter intersected with the rest.
	Type *domain.CompanyType
	// None yields an empty result set (non-privileged roles).
	None bool
}

// CompaniesFor computes company visibility with an optional type filter.
func CompaniesFor(p Principal, typeFilter *domain.CompanyType) CompanyScope {
	switch p.Role {
	case domain.RoleSuperAdmin, domain.RoleAdmin:
		return CompanyScope{All: true, Type: typeFilter}
	case domain.RoleManager:
		return CompanyScope{OwnID: p.CompanyID, CreatedBy: p.UserID, Type: typeFilter}
	default:
		return CompanyScope{None: true}
	}
}

// CanUpdateUser reports whether the principal may mutate the target user
// record: the owner themselves, or any of super_admin/admin/manager.
func CanUpdateUser(p Principal, targetID string) bool {
	if p.UserID == targetID {
		return true
	}
	switch p.Role {
	case domain.RoleSuperAdmin, domain.RoleAdmin, domain.RoleManager:
		return true
	}
	return false
}

// CanMutateCompany reports whether the principal may create, update or
// delete company records at all; visibility still applies on top.
func CanMutateCompany(p Principal) bool {
	switch p.Role {
	case domain.RoleSuperAdmin, domain.RoleAdmin, domain.RoleManager:
		return true
	}
	return false
}

// CanManageEmailConfig gates the email-config operations: super_admin, or
// the manager whose employer company is the target.
func CanManageEmailConfig(p Principal, companyID string) bool {
	if p.Role == domain.RoleSuperAdmin {
		return true
	}
	if p.Role == domain.RoleManager && p.CompanyID != nil && *p.CompanyID == companyID {
		return true
	}
	return false
}

// CanDeleteTicket gates hard ticket deletion.
func CanDeleteTicket(p Principal) bool {
	switch p.Role {
	case domain.RoleSuperAdmin, domain.RoleAdmin, domain.RoleManager:
		return true
	}
	return false
}

// CanCreateTicket gates ticket creation: customers, agents and managers
// open tickets; admins administer them.
func CanCreateTicket(p Principal) bool {
	switch p.Role {
	case domain.RoleCustomer, domain.RoleAgent, domain.RoleManager:
		return true
	}
	return false
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
