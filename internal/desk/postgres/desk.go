package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/profixcrm/profixcrm/internal"
	"github.com/profixcrm/profixcrm/internal/desk"

	deskmodel "github.com/profixcrm/profixcrm/internal/core/datamodel/desk"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, d *desk.Desk) error {
	row := deskmodel.Desk{
		Name:        d.Name,
		Description: d.Description,
		IsActive:    d.IsActive,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("create desk: %w", err)
	}

	d.ID = row.ID
	d.CreatedAt = row.CreatedAt
	d.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*desk.Desk, error) {
	var row deskmodel.Desk
	err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, internal.ErrDeskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get desk %d: %w", id, err)
	}
	return toDomain(&row), nil
}

func (r *Repository) GetByName(ctx context.Context, name string) (*desk.Desk, error) {
	var row deskmodel.Desk
	err := r.db.WithContext(ctx).First(&row, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, internal.ErrDeskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get desk by name %q: %w", name, err)
	}
	return toDomain(&row), nil
}

func (r *Repository) List(ctx context.Context, includeInactive bool) ([]desk.Desk, error) {
	query := r.db.WithContext(ctx).Order("name")
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}

	var rows []deskmodel.Desk
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list desks: %w", err)
	}

	desks := make([]desk.Desk, len(rows))
	for i := range rows {
		desks[i] = *toDomain(&rows[i])
	}
	return desks, nil
}

func (r *Repository) Update(ctx context.Context, d *desk.Desk) error {
	err := r.db.WithContext(ctx).Model(&deskmodel.Desk{}).
		Where("id = ?", d.ID).
		Updates(map[string]interface{}{
			"name":        d.Name,
			"description": d.Description,
			"is_active":   d.IsActive,
			"updated_at":  gorm.Expr("CURRENT_TIMESTAMP"),
		}).Error
	if err != nil {
		return fmt.Errorf("update desk %d: %w", d.ID, err)
	}
	return nil
}

func (r *Repository) SetActive(ctx context.Context, id int64, active bool) error {
	err := r.db.WithContext(ctx).Model(&deskmodel.Desk{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  active,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}).Error
	if err != nil {
		return fmt.Errorf("set desk %d active=%t: %w", id, active, err)
	}
	return nil
}

func (r *Repository) Members(ctx context.Context, deskID int64) ([]desk.Member, error) {
	var members []desk.Member
	err := r.db.WithContext(ctx).
		Table("desk_users du").
		Select("du.user_id, u.username, u.email, du.is_primary, du.created_at AS joined_at").
		Joins("JOIN users u ON u.id = du.user_id").
		Where("du.desk_id = ?", deskID).
		Order("u.username").
		Scan(&members).Error
	if err != nil {
		return nil, fmt.Errorf("list members of desk %d: %w", deskID, err)
	}
	return members, nil
}

// SetPrimary clears any previous primary desk for the user and flags the
// target membership, all in one transaction. The user must already be a
// member of the target desk.
func (r *Repository) SetPrimary(ctx context.Context, deskID, userID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&deskmodel.DeskUser{}).
			Where("desk_id = ? AND user_id = ?", deskID, userID).
			Count(&count).Error; err != nil {
			return fmt.Errorf("check desk membership: %w", err)
		}
		if count == 0 {
			return internal.ErrDeskScopeViolation
		}

		if err := tx.Model(&deskmodel.DeskUser{}).
			Where("user_id = ? AND is_primary = ?", userID, true).
			Update("is_primary", false).Error; err != nil {
			return fmt.Errorf("clear primary desk: %w", err)
		}

		if err := tx.Model(&deskmodel.DeskUser{}).
			Where("desk_id = ? AND user_id = ?", deskID, userID).
			Update("is_primary", true).Error; err != nil {
			return fmt.Errorf("set primary desk: %w", err)
		}
		return nil
	})
}

func toDomain(row *deskmodel.Desk) *desk.Desk {
	return &desk.Desk{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		IsActive:    row.IsActive,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}
