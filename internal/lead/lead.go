package lead

import (
	"context"
	"time"

	"github.com/profixcrm/profixcrm/internal/rbac"
)

// Status is the lead lifecycle stage.
type Status string

const (
	StatusNew       Status = "new"
	StatusContacted Status = "contacted"
	StatusQualified Status = "qualified"
	StatusConverted Status = "converted"
	StatusLost      Status = "lost"
)

var validStatuses = map[Status]struct{}{
	StatusNew:       {},
	StatusContacted: {},
	StatusQualified: {},
	StatusConverted: {},
	StatusLost:      {},
}

func (s Status) Valid() bool {
	_, ok := validStatuses[s]
	return ok
}

type Lead struct {
	ID         int64     `json:"id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone,omitempty"`
	Status     Status    `json:"status"`
	DeskID     *int64    `json:"desk_id,omitempty"`
	AssignedTo *int64    `json:"assigned_to,omitempty"`
	CreatedBy  int64     `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Filter narrows a lead listing on top of the caller's visibility scope.
// The scope constraint is mandatory; the filter only tightens it further.
type Filter struct {
	Status *Status
	DeskID *int64
	Limit  int
	Offset int
}

// ScopeConstraint is the visibility restriction the repository applies to
// every query. Exactly one of the fields is set for desk and assigned
// scopes; an unrestricted constraint means the caller sees everything.
type ScopeConstraint struct {
	Unrestricted bool
	DeskIDs      []int64
	AssignedTo   *int64
}

type RepositoryAPI interface {
	Create(ctx context.Context, l *Lead) error
	GetByID(ctx context.Context, id int64) (*Lead, error)
	List(ctx context.Context, constraint ScopeConstraint, filter Filter) ([]Lead, error)
	Count(ctx context.Context, constraint ScopeConstraint, filter Filter) (int64, error)
	Update(ctx context.Context, l *Lead) error
	Assign(ctx context.Context, leadID int64, assigneeID *int64) error
}

type ServiceAPI interface {
	ListLeads(ctx context.Context, userID int64, filter Filter) (*LeadPage, error)
	GetLead(ctx context.Context, userID, leadID int64) (*Lead, error)
	CreateLead(ctx context.Context, userID int64, dto CreateLeadDTO) (*Lead, error)
	UpdateLead(ctx context.Context, userID, leadID int64, dto UpdateLeadDTO) (*Lead, error)
	AssignLead(ctx context.Context, actorID, leadID int64, dto AssignLeadDTO) error
	VisibilityScope(ctx context.Context, userID int64) (rbac.Scope, error)
}

// LeadPage is a scoped listing slice with its total under the same scope.
type LeadPage struct {
	Leads  []Lead     `json:"leads"`
	Total  int64      `json:"total"`
	Scope  rbac.Scope `json:"scope"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}
