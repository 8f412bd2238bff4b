package postgres

import (
	"database/sql"
	"errors"

	"gorm.io/gorm"

	"github.com/profixcrm/profixcrm/internal"
	"github.com/profixcrm/profixcrm/internal/auth"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetCredentialsForEmail(email string) (int64, string, bool, error) {
	var (
		userID       int64
		passwordHash string
		isActive     bool
	)

	query := `SELECT id, password_hash, is_active FROM users WHERE email = ?`
	row := r.db.Raw(query, email).Row()
	if err := row.Scan(&userID, &passwordHash, &isActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, "", false, internal.ErrUserNotFound
		}
		return 0, "", false, err
	}
	return userID, passwordHash, isActive, nil
}

func (r *Repository) GetUserWithPermissions(userID int64) (*auth.User, error) {
	var user auth.User

	query := `SELECT id, email, username FROM users WHERE id = ? AND is_active = true`
	row := r.db.Raw(query, userID).Row()
	if err := row.Scan(&user.ID, &user.Email, &user.Username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}

	permQuery := `SELECT DISTINCT p.name
	              FROM permissions p
	              JOIN role_permissions rp ON rp.permission_id = p.id
	              JOIN user_roles ur ON ur.role_id = rp.role_id
	              WHERE ur.user_id = ?
	              ORDER BY p.name`

	rows, err := r.db.Raw(permQuery, userID).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var permissions []string
	for rows.Next() {
		var permName string
		if err := rows.Scan(&permName); err != nil {
			return nil, err
		}
		permissions = append(permissions, permName)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	user.Permissions = permissions
	return &user, nil
}
