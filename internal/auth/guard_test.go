package auth

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

func guardUser(role domain.Role, tenant string) *domain.User {
	return &domain.User{ID: "u-1", Role: role, TenantID: tenant, IsActive: true}
}

func TestTenantMatches(t *testing.T) {
	t.Parallel()

	t.Run("matching tenant", func(t *testing.T) {
		require.True(t, TenantMatches(guardUser(domain.RoleCustomer, "acme"), "acme"))
	})

	t.Run("mismatched tenant", func(t *testing.T) {
		require.False(t, TenantMatches(guardUser(domain.RoleAdmin, "acme"), "globex"))
	})

	t.Run("nil actor", func(t *testing.T) {
		require.False(t, TenantMatches(nil, "acme"))
	})

	t.Run("empty resource tenant", func(t *testing.T) {
		require.False(t, TenantMatches(guardUser(domain.RoleAdmin, "acme"), ""))
	})
}

func TestRoleAllows(t *testing.T) {
	t.Parallel()

	cases := []struct {
		role    domain.Role
		action  Action
		allowed bool
	}{
		{domain.RoleCustomer, ActionCreateTicket, true},
		{domain.RoleAgent, ActionCreateTicket, false},
		{domain.RoleAdmin, ActionCreateTicket, false},

		{domain.RoleCustomer, ActionReadAllTickets, false},
		{domain.RoleAgent, ActionReadAllTickets, true},
		{domain.RoleAdmin, ActionReadAllTickets, true},

		{domain.RoleCustomer, ActionUpdateTicketStatus, false},
		{domain.RoleAgent, ActionUpdateTicketStatus, true},
		{domain.RoleAdmin, ActionUpdateTicketStatus, true},

		{domain.RoleCustomer, ActionAssignTicket, false},
		{domain.RoleAgent, ActionAssignTicket, false},
		{domain.RoleAdmin, ActionAssignTicket, true},

		{domain.RoleCustomer, ActionDeleteTicket, false},
		{domain.RoleAgent, ActionDeleteTicket, false},
		{domain.RoleAdmin, ActionDeleteTicket, true},

		{domain.RoleCustomer, ActionManageUsers, false},
		{domain.RoleAgent, ActionManageUsers, false},
		{domain.RoleAdmin, ActionManageUsers, true},
	}

	for _, tc := range cases {
		require.Equal(t, tc.allowed, RoleAllows(tc.role, tc.action),
			"role %s action %s", tc.role, tc.action)
	}
}

func TestAllow(t *testing.T) {
	t.Parallel()

	t.Run("allows matching tenant and role", func(t *testing.T) {
		require.NoError(t, Allow(guardUser(domain.RoleAdmin, "acme"), ActionDeleteTicket, "acme"))
	})

	t.Run("tenant mismatch is forbidden even for admin", func(t *testing.T) {
		err := Allow(guardUser(domain.RoleAdmin, "acme"), ActionDeleteTicket, "globex")
		require.Error(t, err)
		require.True(t, apperrors.IsCode(err, "FORBIDDEN"))
	})

	t.Run("tenant is checked before role", func(t *testing.T) {
		// A customer with neither tenant nor role must fail on tenant.
		err := Allow(guardUser(domain.RoleCustomer, "acme"), ActionDeleteTicket, "globex")
		require.Error(t, err)
		domainErr := apperrors.ToDomainError(err)
		require.Equal(t, "tenant mismatch", domainErr.Message)
	})

	t.Run("role failure is forbidden", func(t *testing.T) {
		err := Allow(guardUser(domain.RoleCustomer, "acme"), ActionDeleteTicket, "acme")
		require.Error(t, err)
		require.True(t, apperrors.IsCode(err, "FORBIDDEN"))
	})

	t.Run("unknown action denies every role", func(t *testing.T) {
		err := Allow(guardUser(domain.RoleAdmin, "acme"), Action("ticket:unknown"), "acme")
		require.Error(t, err)
	})
}
