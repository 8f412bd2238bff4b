package user

import (
	"context"
	"time"

	"github.com/profixcrm/profixcrm/internal/rbac"
)

// User is the account profile. PasswordHash never leaves the repository
// layer; the domain type carries only presentable fields.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Profile is a user together with their resolved access: roles, effective
// permissions and lead visibility scope.
type Profile struct {
	User        User       `json:"user"`
	Roles       []string   `json:"roles"`
	Permissions []string   `json:"permissions"`
	LeadScope   rbac.Scope `json:"lead_scope"`
}

type RepositoryAPI interface {
	Create(ctx context.Context, u *User, passwordHash string) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context, includeInactive bool) ([]User, error)
	Update(ctx context.Context, u *User) error
	SetActive(ctx context.Context, id int64, active bool) error
	SetPasswordHash(ctx context.Context, id int64, passwordHash string) error
}

type ServiceAPI interface {
	CreateUser(ctx context.Context, dto CreateUserDTO) (*User, error)
	GetUser(ctx context.Context, id int64) (*User, error)
	GetProfile(ctx context.Context, id int64) (*Profile, error)
	ListUsers(ctx context.Context, includeInactive bool) ([]User, error)
	UpdateUser(ctx context.Context, id int64, dto UpdateUserDTO) (*User, error)
	SetUserActive(ctx context.Context, id int64, active bool) error
	ResetPassword(ctx context.Context, id int64, dto ResetPasswordDTO) error
}
