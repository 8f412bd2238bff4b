package lead

import "time"

type Lead struct {
	ID         int64     `gorm:"primaryKey"`
	FirstName  string    `gorm:"column:first_name;not null"`
	LastName   string    `gorm:"column:last_name;not null"`
	Email      string    `gorm:"column:email;index"`
	Phone      string    `gorm:"column:phone"`
	Status     string    `gorm:"column:status;not null;default:'new'"`
	DeskID     *int64    `gorm:"column:desk_id;index"`
	AssignedTo *int64    `gorm:"column:assigned_to;index"`
	CreatedBy  int64     `gorm:"column:created_by;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;default:now()"`
	UpdatedAt  time.Time `gorm:"column:updated_at;default:now()"`
}

func (Lead) TableName() string { return "leads" }
