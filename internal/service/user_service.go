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

// UserService manages accounts within a tenant. All operations are
// admin-gated except Get, which a user may call on themselves. Lookups
// are scoped to the actor's tenant; a user from another tenant is
// indistinguishable from a missing one.
type UserService struct {
	users      repository.UserRepository
	dispatcher events.Dispatcher
}

// UserDependencies bundles collaborators for the user service.
type UserDependencies struct {
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
}

// UserUpdateInput carries optional profile fields.
type UserUpdateInput struct {
	Name  *string
	Email *string
}

// UserListFilter describes admin listing parameters.
type UserListFilter struct {
	Role   *domain.Role
	Active *bool
	Limit  int
	Offset int
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	return &UserService{users: deps.UserRepo, dispatcher: deps.Dispatcher}
}

// List returns users of the actor's tenant (admin only).
func (s *UserService) List(ctx context.Context, actor *domain.User, filter UserListFilter) ([]domain.User, error) {
	if err := auth.Allow(actor, auth.ActionManageUsers, actor.TenantID); err != nil {
		return nil, err
	}
	repoFilter := repository.UserFilter{
		Role:   filter.Role,
		Active: filter.Active,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	users, err := s.users.List(ctx, actor.TenantID, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

// ListByRole returns tenant users holding the given role (admin only).
func (s *UserService) ListByRole(ctx context.Context, actor *domain.User, role domain.Role) ([]domain.User, error) {
	if !domain.ValidRole(role) {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": role})
	}
	return s.List(ctx, actor, UserListFilter{Role: &role})
}

// Get fetches a tenant user. Admins may fetch anyone in their tenant;
// other roles only themselves.
func (s *UserService) Get(ctx context.Context, actor *domain.User, userID string) (*domain.User, error) {
	if actor.ID != userID {
		if err := auth.Allow(actor, auth.ActionManageUsers, actor.TenantID); err != nil {
			return nil, err
		}
	}
	user, err := s.users.GetByIDInTenant(ctx, actor.TenantID, userID)
	if err != nil {
		return nil, notFoundUser(err, userID)
	}
	return user, nil
}

// Update changes profile fields of a tenant user (admin only). The
// tenant id is immutable; there is no input or query that writes it.
func (s *UserService) Update(ctx context.Context, actor *domain.User, userID string, input UserUpdateInput) (*domain.User, error) {
	if err := auth.Allow(actor, auth.ActionManageUsers, actor.TenantID); err != nil {
		return nil, err
	}
	if input.Name == nil && input.Email == nil {
		return nil, apperrors.NewValidationError("nothing to update", nil)
	}
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, apperrors.NewValidationError("name must not be empty", nil)
	}
	if input.Email != nil {
		normalized := strings.TrimSpace(strings.ToLower(*input.Email))
		if normalized == "" {
			return nil, apperrors.NewValidationError("email must not be empty", nil)
		}
		input.Email = &normalized
	}

	user, err := s.users.UpdateProfile(ctx, actor.TenantID, userID, input.Name, input.Email)
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, apperrors.NewConflict("email already registered", map[string]any{"email": *input.Email})
		}
		return nil, notFoundUser(err, userID)
	}
	return user, nil
}

// ChangeRole sets the role of a tenant user (admin only).
func (s *UserService) ChangeRole(ctx context.Context, actor *domain.User, userID string, role domain.Role) (*domain.User, error) {
	if err := auth.Allow(actor, auth.ActionManageUsers, actor.TenantID); err != nil {
		return nil, err
	}
	if !domain.ValidRole(role) {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": role})
	}
	user, err := s.users.SetRole(ctx, actor.TenantID, userID, role)
	if err != nil {
		return nil, notFoundUser(err, userID)
	}
	return user, nil
}

// Deactivate flips a tenant user to inactive (admin only). This is the
// terminal account state; in-flight sessions are rejected on their next
// request because identity is re-resolved live.
func (s *UserService) Deactivate(ctx context.Context, actor *domain.User, userID string) (*domain.User, error) {
	if err := auth.Allow(actor, auth.ActionManageUsers, actor.TenantID); err != nil {
		return nil, err
	}
	user, err := s.users.SetActive(ctx, actor.TenantID, userID, false)
	if err != nil {
		return nil, notFoundUser(err, userID)
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:       uuid.NewString(),
			Type:     events.EventUserDeactivated,
			TenantID: actor.TenantID,
			Actor: events.Actor{
				UserID:   actor.ID,
				Role:     actor.Role,
				TenantID: actor.TenantID,
			},
			Timestamp: time.Now(),
			Payload:   events.UserDeactivatedPayload{UserID: user.ID},
		})
	}
	return user, nil
}

func notFoundUser(err error, userID string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("user", map[string]any{"user_id": userID})
	}
	return apperrors.MapError(err)
}
