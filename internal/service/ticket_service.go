package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// TicketService is the tenant-scoped lifecycle manager for tickets. Every
// operation takes the resolved actor by parameter, runs the authorization
// guard, and reaches storage only through tenant-mandatory queries. A
// ticket that is absent or belongs to another tenant surfaces as the same
// NotFound, so existence never leaks across tenants.
type TicketService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    domain.TicketPriority
}

// TicketListFilter describes listing filters.
type TicketListFilter struct {
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	Limit      int
	Offset     int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
	}
}

// Create opens a new ticket for a customer. The tenant id is copied from
// the actor, never taken from input.
func (s *TicketService) Create(ctx context.Context, actor *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	if err := auth.Allow(actor, auth.ActionCreateTicket, actor.TenantID); err != nil {
		return nil, err
	}

	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	if input.Title == "" || input.Description == "" || input.Priority == "" {
		return nil, apperrors.NewValidationError("title, description, priority required", nil)
	}
	if !domain.ValidTicketPriority(input.Priority) {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": input.Priority})
	}

	ticket := &domain.Ticket{
		Title:       input.Title,
		Description: input.Description,
		Priority:    input.Priority,
		Status:      domain.TicketStatusOpen,
		CreatedBy:   actor.ID,
		TenantID:    actor.TenantID,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, actor, events.EventTicketCreated, events.TicketCreatedPayload{
		TicketID: ticket.ID,
		Title:    ticket.Title,
		Priority: ticket.Priority,
	})
	return ticket, nil
}

// GetByID fetches a single ticket within the actor's tenant. Customers
// only see tickets they created; a foreign ticket looks exactly like a
// missing one.
func (s *TicketService) GetByID(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	if err := auth.Allow(actor, auth.ActionReadOwnTickets, actor.TenantID); err != nil {
		return nil, err
	}
	ticket, err := s.tickets.GetByID(ctx, actor.TenantID, ticketID)
	if err != nil {
		return nil, notFoundTicket(err, ticketID)
	}
	if actor.Role == domain.RoleCustomer && ticket.CreatedBy != actor.ID {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	return ticket, nil
}

// ListMine returns the actor's own tickets.
func (s *TicketService) ListMine(ctx context.Context, actor *domain.User, filter TicketListFilter) ([]domain.Ticket, error) {
	if err := auth.Allow(actor, auth.ActionReadOwnTickets, actor.TenantID); err != nil {
		return nil, err
	}
	repoFilter := repository.TicketFilter{
		CreatedBy:  &actor.ID,
		Statuses:   filter.Statuses,
		Priorities: filter.Priorities,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	tickets, err := s.tickets.List(ctx, actor.TenantID, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ListAll returns every ticket in the actor's tenant (admin/agent only).
func (s *TicketService) ListAll(ctx context.Context, actor *domain.User, filter TicketListFilter) ([]domain.Ticket, error) {
	if err := auth.Allow(actor, auth.ActionReadAllTickets, actor.TenantID); err != nil {
		return nil, err
	}
	repoFilter := repository.TicketFilter{
		Statuses:   filter.Statuses,
		Priorities: filter.Priorities,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	tickets, err := s.tickets.List(ctx, actor.TenantID, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// Filter returns tenant tickets matching status/priority filters
// (admin/agent only).
func (s *TicketService) Filter(ctx context.Context, actor *domain.User, filter TicketListFilter) ([]domain.Ticket, error) {
	for _, status := range filter.Statuses {
		if !domain.ValidTicketStatus(status) {
			return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": status})
		}
	}
	for _, priority := range filter.Priorities {
		if !domain.ValidTicketPriority(priority) {
			return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": priority})
		}
	}
	return s.ListAll(ctx, actor, filter)
}

// ListByUser returns tickets created by the given user within the actor's
// tenant (admin/agent only). A user id from another tenant simply matches
// nothing.
func (s *TicketService) ListByUser(ctx context.Context, actor *domain.User, userID string, filter TicketListFilter) ([]domain.Ticket, error) {
	if err := auth.Allow(actor, auth.ActionReadAllTickets, actor.TenantID); err != nil {
		return nil, err
	}
	repoFilter := repository.TicketFilter{
		CreatedBy:  &userID,
		Statuses:   filter.Statuses,
		Priorities: filter.Priorities,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	tickets, err := s.tickets.List(ctx, actor.TenantID, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// UpdateStatus sets a new status (admin/agent). Any member of the status
// enum is accepted; no transition graph is enforced. Setting deleted this
// way requires the delete capability.
func (s *TicketService) UpdateStatus(ctx context.Context, actor *domain.User, ticketID string, newStatus domain.TicketStatus) (*domain.Ticket, error) {
	if err := auth.Allow(actor, auth.ActionUpdateTicketStatus, actor.TenantID); err != nil {
		return nil, err
	}
	if !domain.ValidTicketStatus(newStatus) {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": newStatus})
	}
	if newStatus == domain.TicketStatusDeleted {
		if err := auth.Allow(actor, auth.ActionDeleteTicket, actor.TenantID); err != nil {
			return nil, err
		}
	}

	ticket, err := s.tickets.UpdateStatus(ctx, actor.TenantID, ticketID, newStatus)
	if err != nil {
		return nil, notFoundTicket(err, ticketID)
	}

	s.publish(ctx, actor, events.EventTicketStatusChanged, events.TicketStatusChangedPayload{
		TicketID:  ticket.ID,
		NewStatus: ticket.Status,
	})
	return ticket, nil
}

// Assign sets the assignee and forces status to in_progress (admin only).
// The assignee must be an active agent or admin of the ticket's tenant.
func (s *TicketService) Assign(ctx context.Context, actor *domain.User, ticketID, assigneeID string) (*domain.Ticket, error) {
	if err := auth.Allow(actor, auth.ActionAssignTicket, actor.TenantID); err != nil {
		return nil, err
	}

	assignee, err := s.users.GetByIDInTenant(ctx, actor.TenantID, assigneeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewValidationError("assignee not found in tenant", map[string]any{"assignee_id": assigneeID})
		}
		return nil, apperrors.MapError(err)
	}
	if !assignee.IsActive {
		return nil, apperrors.NewConflict("assignee deactivated", map[string]any{"assignee_id": assigneeID})
	}
	if assignee.Role == domain.RoleCustomer {
		return nil, apperrors.NewValidationError("assignee must be an agent or admin", map[string]any{"assignee_id": assigneeID})
	}

	ticket, err := s.tickets.Assign(ctx, actor.TenantID, ticketID, assignee.ID)
	if err != nil {
		return nil, notFoundTicket(err, ticketID)
	}

	s.publish(ctx, actor, events.EventTicketAssigned, events.TicketAssignedPayload{
		TicketID:   ticket.ID,
		AssigneeID: assignee.ID,
	})
	return ticket, nil
}

// SoftDelete marks a ticket deleted (admin only). The row is retained.
// Re-deleting an already-deleted ticket succeeds and leaves it deleted.
func (s *TicketService) SoftDelete(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	if err := auth.Allow(actor, auth.ActionDeleteTicket, actor.TenantID); err != nil {
		return nil, err
	}

	ticket, err := s.tickets.UpdateStatus(ctx, actor.TenantID, ticketID, domain.TicketStatusDeleted)
	if err != nil {
		return nil, notFoundTicket(err, ticketID)
	}

	s.publish(ctx, actor, events.EventTicketDeleted, events.TicketDeletedPayload{
		TicketID: ticket.ID,
	})
	return ticket, nil
}

func notFoundTicket(err error, ticketID string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	return apperrors.MapError(err)
}

func (s *TicketService) publish(ctx context.Context, actor *domain.User, eventType events.EventType, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:       uuid.NewString(),
		Type:     eventType,
		TenantID: actor.TenantID,
		Actor: events.Actor{
			UserID:   actor.ID,
			Role:     actor.Role,
			TenantID: actor.TenantID,
		},
		Timestamp: time.Now(),
		Payload:   payload,
	})
}
