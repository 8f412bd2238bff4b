package rbac

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/profixcrm/profixcrm/internal"
	"github.com/profixcrm/profixcrm/internal/core/events"
)

const (
	EventRoleAssigned      = "rbac.role_assigned"
	EventPermissionGranted = "rbac.permission_granted"
	EventDeskAssigned      = "rbac.desk_assigned"
)

// Service resolves effective permissions and performs the idempotent
// assignment operations. Resolution is stateless per call; assignment
// safety under concurrency comes from the storage layer's unique
// constraints, not from application-level check-then-insert.
type Service struct {
	repo     Repository
	eventBus *events.EventBus
	logger   *slog.Logger
}

func NewService(repo Repository, eventBus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		eventBus: eventBus,
		logger:   logger,
	}
}

// activeUser loads the user row and rejects missing or deactivated users.
// Resolution never runs for inactive users: a disabled account holds no
// effective permissions no matter what its roles say.
func (s *Service) activeUser(ctx context.Context, userID int64) (*UserState, error) {
	state, err := s.repo.GetUserState(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !state.IsActive {
		return nil, internal.ErrUserInactive
	}
	return state, nil
}

// ResolveEffectivePermissions returns the distinct union of permissions of
// all roles the user holds. An empty set is a valid outcome meaning "no
// access", not an error.
func (s *Service) ResolveEffectivePermissions(ctx context.Context, userID int64) (PermissionSet, error) {
	if _, err := s.activeUser(ctx, userID); err != nil {
		return nil, err
	}

	names, err := s.repo.EffectivePermissions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve effective permissions: %w", err)
	}

	return NewPermissionSet(names...), nil
}

// HasPermission runs a single indexed existence check; it never
// materializes the full permission set.
func (s *Service) HasPermission(ctx context.Context, userID int64, permission Permission) (bool, error) {
	if !permission.Valid() {
		return false, internal.NewValidationError("unknown permission: "+permission.String(), internal.ErrCodeUnknownPermission)
	}

	if _, err := s.activeUser(ctx, userID); err != nil {
		return false, err
	}

	ok, err := s.repo.HasPermission(ctx, userID, permission.String())
	if err != nil {
		return false, fmt.Errorf("check permission %s: %w", permission, err)
	}
	return ok, nil
}

// ResolveLeadVisibilityScope picks the user's lead visibility scope in
// priority order all > desk > assigned > none.
func (s *Service) ResolveLeadVisibilityScope(ctx context.Context, userID int64) (Scope, error) {
	perms, err := s.ResolveEffectivePermissions(ctx, userID)
	if err != nil {
		return ScopeNone, err
	}
	return ResolveScope(perms), nil
}

// CanCreateLeadInDesk allows creation when the user holds the generic
// leads.create grant and the target desk is among the user's assigned
// desks. There are no per-desk permission rows.
func (s *Service) CanCreateLeadInDesk(ctx context.Context, userID, deskID int64) (bool, error) {
	ok, err := s.HasPermission(ctx, userID, PermLeadsCreate)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	member, err := s.repo.IsDeskMember(ctx, userID, deskID)
	if err != nil {
		return false, fmt.Errorf("check desk membership: %w", err)
	}
	return member, nil
}

func (s *Service) IsDeskMember(ctx context.Context, userID, deskID int64) (bool, error) {
	return s.repo.IsDeskMember(ctx, userID, deskID)
}

func (s *Service) UserDeskIDs(ctx context.Context, userID int64) ([]int64, error) {
	return s.repo.UserDeskIDs(ctx, userID)
}

// AssignRole grants a role to a user. Calling it again with the same pair
// is a no-op; the unique constraint on user_roles backs the guarantee.
func (s *Service) AssignRole(ctx context.Context, userID int64, roleName string, assignedBy *int64) error {
	if _, err := s.repo.GetUserState(ctx, userID); err != nil {
		return err
	}

	role, err := s.repo.GetRoleByName(ctx, roleName)
	if err != nil {
		return err
	}

	inserted, err := s.repo.EnsureUserRole(ctx, userID, role.ID, assignedBy)
	if err != nil {
		return fmt.Errorf("assign role %s to user %d: %w", roleName, userID, err)
	}

	if inserted {
		s.logger.Info("role assigned", "user_id", userID, "role", roleName)
		s.publish(ctx, EventRoleAssigned, map[string]interface{}{
			"user_id": userID,
			"role":    roleName,
		})
	}
	return nil
}

// GrantPermission grants a catalog permission to a role, idempotently.
func (s *Service) GrantPermission(ctx context.Context, roleID int64, permission Permission, grantedBy *int64) error {
	if !permission.Valid() {
		return internal.NewValidationError("unknown permission: "+permission.String(), internal.ErrCodeUnknownPermission)
	}

	role, err := s.repo.GetRoleByID(ctx, roleID)
	if err != nil {
		return err
	}

	permID, err := s.repo.GetPermissionID(ctx, permission.String())
	if err != nil {
		return err
	}

	inserted, err := s.repo.EnsureRolePermission(ctx, roleID, permID, grantedBy)
	if err != nil {
		return fmt.Errorf("grant %s to role %s: %w", permission, role.Name, err)
	}

	if inserted {
		s.logger.Info("permission granted", "role", role.Name, "permission", permission.String())
		s.publish(ctx, EventPermissionGranted, map[string]interface{}{
			"role_id":    roleID,
			"role":       role.Name,
			"permission": permission.String(),
		})
	}
	return nil
}

// AssignDesk adds a user to a desk, idempotently.
func (s *Service) AssignDesk(ctx context.Context, deskID, userID int64, assignedBy *int64) error {
	exists, err := s.repo.DeskExists(ctx, deskID)
	if err != nil {
		return fmt.Errorf("check desk %d: %w", deskID, err)
	}
	if !exists {
		return internal.ErrDeskNotFound
	}

	if _, err := s.repo.GetUserState(ctx, userID); err != nil {
		return err
	}

	inserted, err := s.repo.EnsureDeskUser(ctx, deskID, userID, assignedBy)
	if err != nil {
		return fmt.Errorf("assign user %d to desk %d: %w", userID, deskID, err)
	}

	if inserted {
		s.logger.Info("desk assigned", "user_id", userID, "desk_id", deskID)
		s.publish(ctx, EventDeskAssigned, map[string]interface{}{
			"user_id": userID,
			"desk_id": deskID,
		})
	}
	return nil
}

func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

func (s *Service) ListPermissions(ctx context.Context) []PermissionInfo {
	return Catalog()
}

// DescribeUserAccess assembles the full resolved access state for one user.
// Unlike resolution it also works for inactive users, since the diagnose
// surface exists exactly to answer "why can't this account see anything".
func (s *Service) DescribeUserAccess(ctx context.Context, userID int64) (*AccessReport, error) {
	state, err := s.repo.GetUserState(ctx, userID)
	if err != nil {
		return nil, err
	}

	roles, err := s.repo.RolesForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("roles for user %d: %w", userID, err)
	}

	names, err := s.repo.EffectivePermissions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("effective permissions for user %d: %w", userID, err)
	}
	perms := NewPermissionSet(names...)

	deskIDs, err := s.repo.UserDeskIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("desks for user %d: %w", userID, err)
	}

	scope := ScopeNone
	if state.IsActive {
		scope = ResolveScope(perms)
	}

	return &AccessReport{
		UserID:      state.ID,
		Email:       state.Email,
		Username:    state.Username,
		IsActive:    state.IsActive,
		Roles:       roles,
		Permissions: perms.Names(),
		DeskIDs:     deskIDs,
		LeadScope:   scope,
	}, nil
}

func (s *Service) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if s.eventBus == nil {
		return
	}
	event := events.BaseEvent{
		ID:        fmt.Sprintf("%s-%d", eventType, time.Now().UnixNano()),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
	if err := s.eventBus.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish event", "event_type", eventType, "error", err)
	}
}
