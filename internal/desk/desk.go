package desk

import (
	"context"
	"time"
)

// Desk groups users for lead routing. Membership drives desk-scoped lead
// visibility, so deactivating a desk never deletes its membership rows.
type Desk struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Member is one user's membership on a desk.
type Member struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	IsPrimary bool      `json:"is_primary"`
	JoinedAt  time.Time `json:"joined_at"`
}

type RepositoryAPI interface {
	Create(ctx context.Context, d *Desk) error
	GetByID(ctx context.Context, id int64) (*Desk, error)
	GetByName(ctx context.Context, name string) (*Desk, error)
	List(ctx context.Context, includeInactive bool) ([]Desk, error)
	Update(ctx context.Context, d *Desk) error
	SetActive(ctx context.Context, id int64, active bool) error

	Members(ctx context.Context, deskID int64) ([]Member, error)
	SetPrimary(ctx context.Context, deskID, userID int64) error
}

type ServiceAPI interface {
	CreateDesk(ctx context.Context, dto CreateDeskDTO) (*Desk, error)
	GetDesk(ctx context.Context, id int64) (*Desk, error)
	ListDesks(ctx context.Context, includeInactive bool) ([]Desk, error)
	UpdateDesk(ctx context.Context, id int64, dto UpdateDeskDTO) (*Desk, error)
	DeactivateDesk(ctx context.Context, id int64) error

	ListMembers(ctx context.Context, deskID int64) ([]Member, error)
	SetPrimaryDesk(ctx context.Context, deskID, userID int64) error
}
