package desk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/profixcrm/profixcrm/internal"
	"github.com/profixcrm/profixcrm/internal/core/events"
)

const (
	EventDeskCreated     = "desk.created"
	EventDeskDeactivated = "desk.deactivated"
	EventPrimaryDeskSet  = "desk.primary_set"
)

type Service struct {
	repo     RepositoryAPI
	eventBus *events.EventBus
	logger   *slog.Logger
}

func NewService(repo RepositoryAPI, eventBus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		eventBus: eventBus,
		logger:   logger,
	}
}

func (s *Service) CreateDesk(ctx context.Context, dto CreateDeskDTO) (*Desk, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	existing, err := s.repo.GetByName(ctx, dto.Name)
	if err != nil && !errors.Is(err, internal.ErrDeskNotFound) {
		s.logger.Error("CreateDesk: name lookup failed", "error", err, "name", dto.Name)
		return nil, internal.NewInternalError("failed to create desk", err)
	}
	if existing != nil {
		return nil, internal.NewConflictError("A desk with this name already exists", internal.ErrCodeDuplicateDesk)
	}

	d := &Desk{
		Name:        dto.Name,
		Description: dto.Description,
		IsActive:    true,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		s.logger.Error("CreateDesk: insert failed", "error", err, "name", dto.Name)
		return nil, internal.NewInternalError("failed to create desk", err)
	}

	s.publish(ctx, EventDeskCreated, d.ID, map[string]any{"name": d.Name})
	return d, nil
}

func (s *Service) GetDesk(ctx context.Context, id int64) (*Desk, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListDesks(ctx context.Context, includeInactive bool) ([]Desk, error) {
	return s.repo.List(ctx, includeInactive)
}

func (s *Service) UpdateDesk(ctx context.Context, id int64, dto UpdateDeskDTO) (*Desk, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if dto.Name != nil && *dto.Name != d.Name {
		existing, err := s.repo.GetByName(ctx, *dto.Name)
		if err != nil && !errors.Is(err, internal.ErrDeskNotFound) {
			return nil, internal.NewInternalError("failed to update desk", err)
		}
		if existing != nil {
			return nil, internal.NewConflictError("A desk with this name already exists", internal.ErrCodeDuplicateDesk)
		}
		d.Name = *dto.Name
	}
	if dto.Description != nil {
		d.Description = *dto.Description
	}
	if dto.IsActive != nil {
		d.IsActive = *dto.IsActive
	}

	if err := s.repo.Update(ctx, d); err != nil {
		s.logger.Error("UpdateDesk: update failed", "error", err, "desk_id", id)
		return nil, internal.NewInternalError("failed to update desk", err)
	}
	return d, nil
}

// DeactivateDesk keeps membership rows so visibility history stays auditable.
func (s *Service) DeactivateDesk(ctx context.Context, id int64) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		s.logger.Error("DeactivateDesk: update failed", "error", err, "desk_id", id)
		return internal.NewInternalError("failed to deactivate desk", err)
	}
	s.publish(ctx, EventDeskDeactivated, id, nil)
	return nil
}

func (s *Service) ListMembers(ctx context.Context, deskID int64) ([]Member, error) {
	if _, err := s.repo.GetByID(ctx, deskID); err != nil {
		return nil, err
	}
	return s.repo.Members(ctx, deskID)
}

// SetPrimaryDesk marks deskID primary for the user and clears any previous
// primary in the same transaction. The user must already be a member.
func (s *Service) SetPrimaryDesk(ctx context.Context, deskID, userID int64) error {
	if _, err := s.repo.GetByID(ctx, deskID); err != nil {
		return err
	}
	if err := s.repo.SetPrimary(ctx, deskID, userID); err != nil {
		if appErr, ok := internal.IsAppError(err); ok {
			return appErr
		}
		s.logger.Error("SetPrimaryDesk: update failed", "error", err, "desk_id", deskID, "user_id", userID)
		return internal.NewInternalError("failed to set primary desk", err)
	}
	s.publish(ctx, EventPrimaryDeskSet, deskID, map[string]any{"user_id": userID})
	return nil
}

func (s *Service) publish(ctx context.Context, eventType string, deskID int64, data map[string]interface{}) {
	if s.eventBus == nil {
		return
	}
	if data == nil {
		data = map[string]interface{}{}
	}
	data["desk_id"] = deskID

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
