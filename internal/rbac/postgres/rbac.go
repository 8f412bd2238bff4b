package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/profixcrm/profixcrm/internal"
	deskDatamodel "github.com/profixcrm/profixcrm/internal/core/datamodel/desk"
	userDatamodel "github.com/profixcrm/profixcrm/internal/core/datamodel/user"
	"github.com/profixcrm/profixcrm/internal/rbac"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository implements rbac.Repository using GORM.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) rbac.Repository {
	return &Repository{db: db}
}

func (r *Repository) GetUserState(ctx context.Context, userID int64) (*rbac.UserState, error) {
	var state rbac.UserState

	query := `SELECT id, email, username, is_active FROM users WHERE id = ?`
	row := r.db.WithContext(ctx).Raw(query, userID).Row()
	if err := row.Scan(&state.ID, &state.Email, &state.Username, &state.IsActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, internal.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user state: %w", err)
	}
	return &state, nil
}

// EffectivePermissions joins user_roles to role_permissions to permissions
// and collapses duplicates across roles with DISTINCT. No grants means an
// empty slice, never an error.
func (r *Repository) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	query := `SELECT DISTINCT p.name
	          FROM permissions p
	          JOIN role_permissions rp ON rp.permission_id = p.id
	          JOIN user_roles ur ON ur.role_id = rp.role_id
	          WHERE ur.user_id = ?
	          ORDER BY p.name`

	rows, err := r.db.WithContext(ctx).Raw(query, userID).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (r *Repository) HasPermission(ctx context.Context, userID int64, permission string) (bool, error) {
	query := `SELECT EXISTS(
	            SELECT 1
	            FROM user_roles ur
	            JOIN role_permissions rp ON rp.role_id = ur.role_id
	            JOIN permissions p ON p.id = rp.permission_id
	            WHERE ur.user_id = ? AND p.name = ?)`

	var exists bool
	row := r.db.WithContext(ctx).Raw(query, userID, permission).Row()
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *Repository) RolesForUser(ctx context.Context, userID int64) ([]rbac.Role, error) {
	var models []userDatamodel.Role
	err := r.db.WithContext(ctx).
		Joins("JOIN user_roles ur ON ur.role_id = roles.id").
		Where("ur.user_id = ?", userID).
		Order("roles.name ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return rolesFromModels(models), nil
}

func (r *Repository) UserDeskIDs(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&deskDatamodel.DeskUser{}).
		Where("user_id = ?", userID).
		Order("desk_id ASC").
		Pluck("desk_id", &ids).Error
	return ids, err
}

func (r *Repository) IsDeskMember(ctx context.Context, userID, deskID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM desk_users WHERE user_id = ? AND desk_id = ?)`

	var exists bool
	row := r.db.WithContext(ctx).Raw(query, userID, deskID).Row()
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *Repository) DeskExists(ctx context.Context, deskID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM desks WHERE id = ?)`

	var exists bool
	row := r.db.WithContext(ctx).Raw(query, deskID).Row()
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *Repository) ListRoles(ctx context.Context) ([]rbac.Role, error) {
	var models []userDatamodel.Role
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	return rolesFromModels(models), nil
}

func (r *Repository) GetRoleByID(ctx context.Context, roleID int64) (*rbac.Role, error) {
	var model userDatamodel.Role
	if err := r.db.WithContext(ctx).Where("id = ?", roleID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrRoleNotFound
		}
		return nil, err
	}
	role := roleFromModel(model)
	return &role, nil
}

func (r *Repository) GetRoleByName(ctx context.Context, name string) (*rbac.Role, error) {
	var model userDatamodel.Role
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrRoleNotFound
		}
		return nil, err
	}
	role := roleFromModel(model)
	return &role, nil
}

func (r *Repository) GetPermissionID(ctx context.Context, name string) (int64, error) {
	var model userDatamodel.Permission
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, internal.ErrPermissionNotFound
		}
		return 0, err
	}
	return model.ID, nil
}

// EnsureRole inserts the role if absent and returns its id either way.
func (r *Repository) EnsureRole(ctx context.Context, name, displayName, description string) (int64, error) {
	model := userDatamodel.Role{
		Name:        name,
		DisplayName: displayName,
		Description: description,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&model).Error
	if err != nil {
		return 0, err
	}

	if model.ID == 0 {
		// conflict path: the row already existed
		if err := r.db.WithContext(ctx).Where("name = ?", name).First(&model).Error; err != nil {
			return 0, err
		}
	}
	return model.ID, nil
}

// EnsurePermission inserts a catalog entry if absent, deriving module and
// action from the dotted name so the columns are never blank.
func (r *Repository) EnsurePermission(ctx context.Context, info rbac.PermissionInfo) (int64, error) {
	model := userDatamodel.Permission{
		Name:        info.Name.String(),
		DisplayName: info.DisplayName,
		Description: info.Description,
		Module:      info.Name.Module(),
		Action:      info.Name.Action(),
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&model).Error
	if err != nil {
		return 0, err
	}

	if model.ID == 0 {
		if err := r.db.WithContext(ctx).Where("name = ?", info.Name.String()).First(&model).Error; err != nil {
			return 0, err
		}
	}
	return model.ID, nil
}

// EnsureUserRole is an insert-or-ignore on the (user_id, role_id) natural
// key. The unique constraint makes the operation safe under concurrent
// callers; there is no check-then-insert window.
func (r *Repository) EnsureUserRole(ctx context.Context, userID, roleID int64, assignedBy *int64) (bool, error) {
	model := userDatamodel.UserRole{
		UserID:     userID,
		RoleID:     roleID,
		AssignedBy: assignedBy,
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "role_id"}},
			DoNothing: true,
		}).
		Create(&model)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *Repository) EnsureRolePermission(ctx context.Context, roleID, permissionID int64, grantedBy *int64) (bool, error) {
	model := userDatamodel.RolePermission{
		RoleID:       roleID,
		PermissionID: permissionID,
		GrantedBy:    grantedBy,
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "role_id"}, {Name: "permission_id"}},
			DoNothing: true,
		}).
		Create(&model)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *Repository) EnsureDeskUser(ctx context.Context, deskID, userID int64, assignedBy *int64) (bool, error) {
	model := deskDatamodel.DeskUser{
		DeskID:     deskID,
		UserID:     userID,
		AssignedBy: assignedBy,
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "desk_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&model)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func roleFromModel(m userDatamodel.Role) rbac.Role {
	return rbac.Role{
		ID:          m.ID,
		Name:        m.Name,
		DisplayName: m.DisplayName,
		Description: m.Description,
		CreatedAt:   m.CreatedAt,
	}
}

func rolesFromModels(models []userDatamodel.Role) []rbac.Role {
	roles := make([]rbac.Role, len(models))
	for i, m := range models {
		roles[i] = roleFromModel(m)
	}
	return roles
}
