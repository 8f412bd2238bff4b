package lead

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/profixcrm/profixcrm/internal"
	"github.com/profixcrm/profixcrm/internal/core/events"
	"github.com/profixcrm/profixcrm/internal/rbac"
)

const (
	EventLeadCreated  = "lead.created"
	EventLeadAssigned = "lead.assigned"
	EventLeadUpdated  = "lead.updated"
)

const defaultPageSize = 50

type Service struct {
	repo     RepositoryAPI
	access   rbac.ServiceAPI
	eventBus *events.EventBus
	logger   *slog.Logger
}

func NewService(repo RepositoryAPI, access rbac.ServiceAPI, eventBus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		access:   access,
		eventBus: eventBus,
		logger:   logger,
	}
}

// ListLeads returns the leads the user may see under their visibility
// scope. A desk-scoped user with no desk assignments gets an empty page,
// not an error; a user with no visibility permission at all gets a typed
// forbidden error.
func (s *Service) ListLeads(ctx context.Context, userID int64, filter Filter) (*LeadPage, error) {
	scope, err := s.access.ResolveLeadVisibilityScope(ctx, userID)
	if err != nil {
		return nil, err
	}

	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = defaultPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	constraint, empty, err := s.constraintFor(ctx, scope, userID)
	if err != nil {
		return nil, err
	}

	page := &LeadPage{
		Leads:  []Lead{},
		Scope:  scope,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	if empty {
		return page, nil
	}

	leads, err := s.repo.List(ctx, constraint, filter)
	if err != nil {
		s.logger.Error("ListLeads: query failed", "error", err, "user_id", userID, "scope", scope)
		return nil, internal.NewInternalError("failed to list leads", err)
	}
	total, err := s.repo.Count(ctx, constraint, filter)
	if err != nil {
		return nil, internal.NewInternalError("failed to count leads", err)
	}

	page.Leads = leads
	page.Total = total
	return page, nil
}

// GetLead fetches one lead if the user's scope covers it. A lead outside
// the scope reads as not found rather than forbidden so that denial never
// confirms existence.
func (s *Service) GetLead(ctx context.Context, userID, leadID int64) (*Lead, error) {
	scope, err := s.access.ResolveLeadVisibilityScope(ctx, userID)
	if err != nil {
		return nil, err
	}
	if scope == rbac.ScopeNone {
		return nil, internal.ErrNoLeadVisibility
	}

	l, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		return nil, err
	}

	visible, err := s.covers(ctx, scope, userID, l)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, internal.ErrLeadNotFound
	}
	return l, nil
}

// CreateLead requires the create permission, and membership in the target
// desk when one is given. Leads created without a desk stay unrouted until
// assigned.
func (s *Service) CreateLead(ctx context.Context, userID int64, dto CreateLeadDTO) (*Lead, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	allowed, err := s.access.HasPermission(ctx, userID, rbac.PermLeadsCreate)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, internal.ErrPermissionDenied
	}

	if dto.DeskID != nil {
		ok, err := s.access.CanCreateLeadInDesk(ctx, userID, *dto.DeskID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, internal.ErrDeskScopeViolation
		}
	}

	l := &Lead{
		FirstName: dto.FirstName,
		LastName:  dto.LastName,
		Email:     dto.Email,
		Phone:     dto.Phone,
		Status:    StatusNew,
		DeskID:    dto.DeskID,
		CreatedBy: userID,
	}
	if err := s.repo.Create(ctx, l); err != nil {
		s.logger.Error("CreateLead: insert failed", "error", err, "user_id", userID)
		return nil, internal.NewInternalError("failed to create lead", err)
	}

	s.logger.Info("lead created", "lead_id", l.ID, "created_by", userID, "desk_id", l.DeskID)
	s.publish(ctx, EventLeadCreated, l.ID, map[string]interface{}{
		"created_by": userID,
		"desk_id":    l.DeskID,
	})
	return l, nil
}

// UpdateLead requires the edit permission and scope coverage of the lead.
func (s *Service) UpdateLead(ctx context.Context, userID, leadID int64, dto UpdateLeadDTO) (*Lead, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	allowed, err := s.access.HasPermission(ctx, userID, rbac.PermLeadsEdit)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, internal.ErrPermissionDenied
	}

	l, err := s.GetLead(ctx, userID, leadID)
	if err != nil {
		return nil, err
	}

	if dto.FirstName != nil {
		l.FirstName = *dto.FirstName
	}
	if dto.LastName != nil {
		l.LastName = *dto.LastName
	}
	if dto.Phone != nil {
		l.Phone = *dto.Phone
	}
	if dto.Status != nil {
		l.Status = Status(*dto.Status)
	}

	if err := s.repo.Update(ctx, l); err != nil {
		s.logger.Error("UpdateLead: update failed", "error", err, "lead_id", leadID)
		return nil, internal.NewInternalError("failed to update lead", err)
	}

	s.publish(ctx, EventLeadUpdated, l.ID, map[string]interface{}{"updated_by": userID})
	return l, nil
}

// AssignLead requires the assign permission. When the lead sits on a desk,
// the new assignee must be a member of that desk.
func (s *Service) AssignLead(ctx context.Context, actorID, leadID int64, dto AssignLeadDTO) error {
	allowed, err := s.access.HasPermission(ctx, actorID, rbac.PermLeadsAssign)
	if err != nil {
		return err
	}
	if !allowed {
		return internal.ErrPermissionDenied
	}

	l, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		return err
	}

	if dto.AssigneeID != nil && l.DeskID != nil {
		member, err := s.access.IsDeskMember(ctx, *dto.AssigneeID, *l.DeskID)
		if err != nil {
			return err
		}
		if !member {
			return internal.ErrDeskScopeViolation
		}
	}

	if err := s.repo.Assign(ctx, leadID, dto.AssigneeID); err != nil {
		s.logger.Error("AssignLead: update failed", "error", err, "lead_id", leadID)
		return internal.NewInternalError("failed to assign lead", err)
	}

	s.logger.Info("lead assigned", "lead_id", leadID, "assignee", dto.AssigneeID, "actor", actorID)
	s.publish(ctx, EventLeadAssigned, leadID, map[string]interface{}{
		"assignee_id": dto.AssigneeID,
		"actor_id":    actorID,
	})
	return nil
}

func (s *Service) VisibilityScope(ctx context.Context, userID int64) (rbac.Scope, error) {
	return s.access.ResolveLeadVisibilityScope(ctx, userID)
}

// constraintFor translates a visibility scope into the repository-level
// restriction. The bool result reports a constraint that can match nothing,
// which short-circuits the query.
func (s *Service) constraintFor(ctx context.Context, scope rbac.Scope, userID int64) (ScopeConstraint, bool, error) {
	switch scope {
	case rbac.ScopeAll:
		return ScopeConstraint{Unrestricted: true}, false, nil
	case rbac.ScopeDesk:
		deskIDs, err := s.access.UserDeskIDs(ctx, userID)
		if err != nil {
			return ScopeConstraint{}, false, err
		}
		if len(deskIDs) == 0 {
			return ScopeConstraint{}, true, nil
		}
		return ScopeConstraint{DeskIDs: deskIDs}, false, nil
	case rbac.ScopeAssigned:
		return ScopeConstraint{AssignedTo: &userID}, false, nil
	default:
		return ScopeConstraint{}, false, internal.ErrNoLeadVisibility
	}
}

func (s *Service) covers(ctx context.Context, scope rbac.Scope, userID int64, l *Lead) (bool, error) {
	switch scope {
	case rbac.ScopeAll:
		return true, nil
	case rbac.ScopeDesk:
		if l.DeskID == nil {
			return false, nil
		}
		return s.access.IsDeskMember(ctx, userID, *l.DeskID)
	case rbac.ScopeAssigned:
		return l.AssignedTo != nil && *l.AssignedTo == userID, nil
	default:
		return false, nil
	}
}

func (s *Service) publish(ctx context.Context, eventType string, leadID int64, data map[string]interface{}) {
	if s.eventBus == nil {
		return
	}
	if data == nil {
		data = map[string]interface{}{}
	}
	data["lead_id"] = leadID

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
