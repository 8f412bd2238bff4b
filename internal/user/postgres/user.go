package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/profixcrm/profixcrm/internal"
	"github.com/profixcrm/profixcrm/internal/user"

	usermodel "github.com/profixcrm/profixcrm/internal/core/datamodel/user"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, u *user.User, passwordHash string) error {
	row := usermodel.User{
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: passwordHash,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsActive:     u.IsActive,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	u.ID = row.ID
	u.CreatedAt = row.CreatedAt
	u.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	return r.getOne(ctx, "id = ?", id)
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.getOne(ctx, "email = ?", email)
}

func (r *Repository) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	return r.getOne(ctx, "username = ?", username)
}

func (r *Repository) getOne(ctx context.Context, query string, arg interface{}) (*user.User, error) {
	var row usermodel.User
	err := r.db.WithContext(ctx).First(&row, query, arg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, internal.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return toDomain(&row), nil
}

func (r *Repository) List(ctx context.Context, includeInactive bool) ([]user.User, error) {
	query := r.db.WithContext(ctx).Order("username")
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}

	var rows []usermodel.User
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	users := make([]user.User, len(rows))
	for i := range rows {
		users[i] = *toDomain(&rows[i])
	}
	return users, nil
}

func (r *Repository) Update(ctx context.Context, u *user.User) error {
	err := r.db.WithContext(ctx).Model(&usermodel.User{}).
		Where("id = ?", u.ID).
		Updates(map[string]interface{}{
			"email":      u.Email,
			"first_name": u.FirstName,
			"last_name":  u.LastName,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}).Error
	if err != nil {
		return fmt.Errorf("update user %d: %w", u.ID, err)
	}
	return nil
}

func (r *Repository) SetActive(ctx context.Context, id int64, active bool) error {
	err := r.db.WithContext(ctx).Model(&usermodel.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  active,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}).Error
	if err != nil {
		return fmt.Errorf("set user %d active=%t: %w", id, active, err)
	}
	return nil
}

func (r *Repository) SetPasswordHash(ctx context.Context, id int64, passwordHash string) error {
	err := r.db.WithContext(ctx).Model(&usermodel.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"password_hash": passwordHash,
			"updated_at":    gorm.Expr("CURRENT_TIMESTAMP"),
		}).Error
	if err != nil {
		return fmt.Errorf("set password for user %d: %w", id, err)
	}
	return nil
}

func toDomain(row *usermodel.User) *user.User {
	return &user.User{
		ID:        row.ID,
		Username:  row.Username,
		Email:     row.Email,
		FirstName: row.FirstName,
		LastName:  row.LastName,
		IsActive:  row.IsActive,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}
