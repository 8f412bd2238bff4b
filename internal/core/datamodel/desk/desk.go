package desk

import "time"

type Desk struct {
	ID          int64     `gorm:"primaryKey"`
	Name        string    `gorm:"column:name;uniqueIndex;not null"`
	Description string    `gorm:"column:description"`
	IsActive    bool      `gorm:"column:is_active;default:true"`
	CreatedAt   time.Time `gorm:"column:created_at;default:now()"`
	UpdatedAt   time.Time `gorm:"column:updated_at;default:now()"`
}

func (Desk) TableName() string { return "desks" }

// DeskUser scopes lead visibility: a user sees desk-scoped leads only for
// desks they appear in here. At most one row per user has IsPrimary set.
type DeskUser struct {
	ID         int64     `gorm:"primaryKey"`
	DeskID     int64     `gorm:"column:desk_id;not null;uniqueIndex:idx_desk_users_natural"`
	UserID     int64     `gorm:"column:user_id;not null;uniqueIndex:idx_desk_users_natural"`
	IsPrimary  bool      `gorm:"column:is_primary;default:false"`
	AssignedBy *int64    `gorm:"column:assigned_by"`
	CreatedAt  time.Time `gorm:"column:created_at;default:now()"`
}

func (DeskUser) TableName() string { return "desk_users" }
