package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/profixcrm/profixcrm/internal"
	"github.com/profixcrm/profixcrm/internal/lead"

	leadmodel "github.com/profixcrm/profixcrm/internal/core/datamodel/lead"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, l *lead.Lead) error {
	row := leadmodel.Lead{
		FirstName:  l.FirstName,
		LastName:   l.LastName,
		Email:      l.Email,
		Phone:      l.Phone,
		Status:     string(l.Status),
		DeskID:     l.DeskID,
		AssignedTo: l.AssignedTo,
		CreatedBy:  l.CreatedBy,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("create lead: %w", err)
	}

	l.ID = row.ID
	l.CreatedAt = row.CreatedAt
	l.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*lead.Lead, error) {
	var row leadmodel.Lead
	err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, internal.ErrLeadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get lead %d: %w", id, err)
	}
	return toDomain(&row), nil
}

func (r *Repository) List(ctx context.Context, constraint lead.ScopeConstraint, filter lead.Filter) ([]lead.Lead, error) {
	query := r.scoped(ctx, constraint, filter).
		Order("created_at DESC, id DESC").
		Limit(filter.Limit).
		Offset(filter.Offset)

	var rows []leadmodel.Lead
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}

	leads := make([]lead.Lead, len(rows))
	for i := range rows {
		leads[i] = *toDomain(&rows[i])
	}
	return leads, nil
}

func (r *Repository) Count(ctx context.Context, constraint lead.ScopeConstraint, filter lead.Filter) (int64, error) {
	var count int64
	if err := r.scoped(ctx, constraint, filter).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count leads: %w", err)
	}
	return count, nil
}

func (r *Repository) Update(ctx context.Context, l *lead.Lead) error {
	err := r.db.WithContext(ctx).Model(&leadmodel.Lead{}).
		Where("id = ?", l.ID).
		Updates(map[string]interface{}{
			"first_name": l.FirstName,
			"last_name":  l.LastName,
			"phone":      l.Phone,
			"status":     string(l.Status),
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}).Error
	if err != nil {
		return fmt.Errorf("update lead %d: %w", l.ID, err)
	}
	return nil
}

func (r *Repository) Assign(ctx context.Context, leadID int64, assigneeID *int64) error {
	result := r.db.WithContext(ctx).Model(&leadmodel.Lead{}).
		Where("id = ?", leadID).
		Updates(map[string]interface{}{
			"assigned_to": assigneeID,
			"updated_at":  gorm.Expr("CURRENT_TIMESTAMP"),
		})
	if result.Error != nil {
		return fmt.Errorf("assign lead %d: %w", leadID, result.Error)
	}
	if result.RowsAffected == 0 {
		return internal.ErrLeadNotFound
	}
	return nil
}

// scoped applies the mandatory visibility constraint first, then the
// caller's optional filters on top of it.
func (r *Repository) scoped(ctx context.Context, constraint lead.ScopeConstraint, filter lead.Filter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&leadmodel.Lead{})

	switch {
	case constraint.Unrestricted:
	case constraint.AssignedTo != nil:
		query = query.Where("assigned_to = ?", *constraint.AssignedTo)
	case len(constraint.DeskIDs) > 0:
		query = query.Where("desk_id IN ?", constraint.DeskIDs)
	default:
		// an empty constraint matches nothing
		query = query.Where("1 = 0")
	}

	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}
	if filter.DeskID != nil {
		query = query.Where("desk_id = ?", *filter.DeskID)
	}
	return query
}

func toDomain(row *leadmodel.Lead) *lead.Lead {
	return &lead.Lead{
		ID:         row.ID,
		FirstName:  row.FirstName,
		LastName:   row.LastName,
		Email:      row.Email,
		Phone:      row.Phone,
		Status:     lead.Status(row.Status),
		DeskID:     row.DeskID,
		AssignedTo: row.AssignedTo,
		CreatedBy:  row.CreatedBy,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
}
