package auth

import (
	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// Action identifies an operation subject to authorization.
type Action string

const (
	ActionCreateTicket       Action = "ticket:create"
	ActionReadOwnTickets     Action = "ticket:read_own"
	ActionReadAllTickets     Action = "ticket:read_all"
	ActionUpdateTicketStatus Action = "ticket:update_status"
	ActionAssignTicket       Action = "ticket:assign"
	ActionDeleteTicket       Action = "ticket:delete"
	ActionManageUsers        Action = "user:manage"
)

var actionRoles = map[Action][]domain.Role{
	ActionCreateTicket:       {domain.RoleCustomer},
	ActionReadOwnTickets:     {domain.RoleCustomer, domain.RoleAgent, domain.RoleAdmin},
	ActionReadAllTickets:     {domain.RoleAdmin, domain.RoleAgent},
	ActionUpdateTicketStatus: {domain.RoleAdmin, domain.RoleAgent},
	ActionAssignTicket:       {domain.RoleAdmin},
	ActionDeleteTicket:       {domain.RoleAdmin},
	ActionManageUsers:        {domain.RoleAdmin},
}

// TenantMatches reports whether the actor belongs to the resource's tenant.
// No role bypasses this predicate, including admin.
func TenantMatches(actor *domain.User, resourceTenant string) bool {
	if actor == nil || resourceTenant == "" {
		return false
	}
	return actor.TenantID == resourceTenant
}

// RoleAllows reports whether the role is gated in for the action.
func RoleAllows(role domain.Role, action Action) bool {
	for _, allowed := range actionRoles[action] {
		if role == allowed {
			return true
		}
	}
	return false
}

// Allow decides whether the actor may perform the action against a
// resource owned by resourceTenant. The tenant predicate is evaluated
// first and independently of the role predicate; both failures are
// Forbidden.
func Allow(actor *domain.User, action Action, resourceTenant string) error {
	if !TenantMatches(actor, resourceTenant) {
		return apperrors.NewForbidden("tenant mismatch")
	}
	if !RoleAllows(actor.Role, action) {
		return apperrors.NewForbidden("insufficient role")
	}
	return nil
}
