package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/profixcrm/profixcrm/internal"
	"github.com/profixcrm/profixcrm/internal/auth"
	"github.com/profixcrm/profixcrm/internal/core/events"
	"github.com/profixcrm/profixcrm/internal/rbac"
)

const (
	EventUserCreated     = "user.created"
	EventUserDeactivated = "user.deactivated"
	EventPasswordReset   = "user.password_reset"
)

type Service struct {
	repo       RepositoryAPI
	access     rbac.ServiceAPI
	eventBus   *events.EventBus
	logger     *slog.Logger
	bcryptCost int
}

func NewService(repo RepositoryAPI, access rbac.ServiceAPI, eventBus *events.EventBus, logger *slog.Logger, bcryptCost int) *Service {
	return &Service{
		repo:       repo,
		access:     access,
		eventBus:   eventBus,
		logger:     logger,
		bcryptCost: bcryptCost,
	}
}

func (s *Service) CreateUser(ctx context.Context, dto CreateUserDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	if existing, err := s.repo.GetByEmail(ctx, dto.Email); err != nil && !errors.Is(err, internal.ErrUserNotFound) {
		return nil, internal.NewInternalError("failed to create user", err)
	} else if existing != nil {
		return nil, internal.NewConflictError("A user with this email already exists", internal.ErrCodeDuplicateEmail)
	}

	if existing, err := s.repo.GetByUsername(ctx, dto.Username); err != nil && !errors.Is(err, internal.ErrUserNotFound) {
		return nil, internal.NewInternalError("failed to create user", err)
	} else if existing != nil {
		return nil, internal.NewConflictError("A user with this username already exists", internal.ErrCodeDuplicateUsername)
	}

	hash, err := auth.HashPassword(dto.Password, s.bcryptCost)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	u := &User{
		Username:  dto.Username,
		Email:     dto.Email,
		FirstName: dto.FirstName,
		LastName:  dto.LastName,
		IsActive:  true,
	}
	if err := s.repo.Create(ctx, u, hash); err != nil {
		s.logger.Error("CreateUser: insert failed", "error", err, "email", dto.Email)
		return nil, internal.NewInternalError("failed to create user", err)
	}

	s.logger.Info("user created", "user_id", u.ID, "username", u.Username)
	s.publish(ctx, EventUserCreated, u.ID, map[string]interface{}{"username": u.Username})
	return u, nil
}

func (s *Service) GetUser(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// GetProfile resolves the user's full access picture: roles, effective
// permissions and the lead visibility scope derived from them. Works for
// inactive accounts too, so admins can inspect them.
func (s *Service) GetProfile(ctx context.Context, id int64) (*Profile, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	report, err := s.access.DescribeUserAccess(ctx, id)
	if err != nil {
		return nil, err
	}

	roles := make([]string, len(report.Roles))
	for i, role := range report.Roles {
		roles[i] = role.Name
	}

	return &Profile{
		User:        *u,
		Roles:       roles,
		Permissions: report.Permissions,
		LeadScope:   report.LeadScope,
	}, nil
}

func (s *Service) ListUsers(ctx context.Context, includeInactive bool) ([]User, error) {
	return s.repo.List(ctx, includeInactive)
}

func (s *Service) UpdateUser(ctx context.Context, id int64, dto UpdateUserDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if dto.Email != nil && *dto.Email != u.Email {
		existing, err := s.repo.GetByEmail(ctx, *dto.Email)
		if err != nil && !errors.Is(err, internal.ErrUserNotFound) {
			return nil, internal.NewInternalError("failed to update user", err)
		}
		if existing != nil {
			return nil, internal.NewConflictError("A user with this email already exists", internal.ErrCodeDuplicateEmail)
		}
		u.Email = *dto.Email
	}
	if dto.FirstName != nil {
		u.FirstName = *dto.FirstName
	}
	if dto.LastName != nil {
		u.LastName = *dto.LastName
	}

	if err := s.repo.Update(ctx, u); err != nil {
		s.logger.Error("UpdateUser: update failed", "error", err, "user_id", id)
		return nil, internal.NewInternalError("failed to update user", err)
	}
	return u, nil
}

// SetUserActive flips the account flag. Deactivation leaves role and desk
// rows intact; an inactive account simply resolves no permissions.
func (s *Service) SetUserActive(ctx context.Context, id int64, active bool) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		s.logger.Error("SetUserActive: update failed", "error", err, "user_id", id)
		return internal.NewInternalError("failed to update user status", err)
	}
	if !active {
		s.publish(ctx, EventUserDeactivated, id, nil)
	}
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, id int64, dto ResetPasswordDTO) error {
	if err := dto.Validate(); err != nil {
		return internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}

	hash, err := auth.HashPassword(dto.NewPassword, s.bcryptCost)
	if err != nil {
		return internal.NewInternalError("failed to hash password", err)
	}
	if err := s.repo.SetPasswordHash(ctx, id, hash); err != nil {
		s.logger.Error("ResetPassword: update failed", "error", err, "user_id", id)
		return internal.NewInternalError("failed to reset password", err)
	}

	s.logger.Info("password reset", "user_id", id)
	s.publish(ctx, EventPasswordReset, id, nil)
	return nil
}

func (s *Service) publish(ctx context.Context, eventType string, userID int64, data map[string]interface{}) {
	if s.eventBus == nil {
		return
	}
	if data == nil {
		data = map[string]interface{}{}
	}
	data["user_id"] = userID

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
