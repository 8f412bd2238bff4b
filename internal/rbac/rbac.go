package rbac

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/profixcrm/profixcrm/internal"
)

// Permission is a capability from the fixed catalog below. Permission names
// are flat, lower-case, dotted strings compared by exact match: holding
// leads.view.all grants nothing about any other leads.view.* permission.
type Permission string

const (
	PermLeadsViewAll      Permission = "leads.view.all"
	PermLeadsViewDesk     Permission = "leads.view.desk"
	PermLeadsViewAssigned Permission = "leads.view.assigned"
	PermLeadsCreate       Permission = "leads.create"
	PermLeadsEdit         Permission = "leads.edit"
	PermLeadsAssign       Permission = "leads.assign"

	PermUsersView   Permission = "users.view"
	PermUsersCreate Permission = "users.create"
	PermUsersEdit   Permission = "users.edit"

	PermRolesView Permission = "roles.view"
	PermRolesEdit Permission = "roles.edit"

	PermDesksView   Permission = "desks.view"
	PermDesksCreate Permission = "desks.create"
	PermDesksEdit   Permission = "desks.edit"
)

// PermissionInfo describes a catalog entry as stored in the permissions table.
type PermissionInfo struct {
	Name        Permission `json:"name"`
	DisplayName string     `json:"display_name"`
	Description string     `json:"description"`
}

var catalog = []PermissionInfo{
	{PermLeadsViewAll, "View All Leads", "See every lead regardless of desk or assignment"},
	{PermLeadsViewDesk, "View Desk Leads", "See leads belonging to the user's assigned desks"},
	{PermLeadsViewAssigned, "View Assigned Leads", "See only leads assigned to the user"},
	{PermLeadsCreate, "Create Leads", "Create leads in the user's assigned desks"},
	{PermLeadsEdit, "Edit Leads", "Edit visible leads"},
	{PermLeadsAssign, "Assign Leads", "Assign leads to users within the user's desks"},
	{PermUsersView, "View Users", "List and inspect user accounts"},
	{PermUsersCreate, "Create Users", "Create user accounts"},
	{PermUsersEdit, "Edit Users", "Edit user accounts, reset passwords, toggle status"},
	{PermRolesView, "View Roles", "List roles and their permissions"},
	{PermRolesEdit, "Edit Roles", "Assign roles and grant permissions"},
	{PermDesksView, "View Desks", "List desks and memberships"},
	{PermDesksCreate, "Create Desks", "Create desks"},
	{PermDesksEdit, "Edit Desks", "Edit desks and manage desk membership"},
}

var catalogIndex = func() map[Permission]PermissionInfo {
	idx := make(map[Permission]PermissionInfo, len(catalog))
	for _, info := range catalog {
		idx[info.Name] = info
	}
	return idx
}()

// Catalog returns the full permission catalog in declaration order.
func Catalog() []PermissionInfo {
	out := make([]PermissionInfo, len(catalog))
	copy(out, catalog)
	return out
}

func (p Permission) String() string { return string(p) }

func (p Permission) Valid() bool {
	_, ok := catalogIndex[p]
	return ok
}

// Module is the segment before the first dot, Action everything after it.
func (p Permission) Module() string {
	if i := strings.Index(string(p), "."); i > 0 {
		return string(p)[:i]
	}
	return string(p)
}

func (p Permission) Action() string {
	if i := strings.Index(string(p), "."); i > 0 {
		return string(p)[i+1:]
	}
	return ""
}

// ParsePermission validates a free-text permission name against the catalog,
// turning typos into load-time errors instead of silent denial.
func ParsePermission(name string) (Permission, error) {
	p := Permission(name)
	if !p.Valid() {
		return "", internal.NewValidationError("unknown permission: "+name, internal.ErrCodeUnknownPermission)
	}
	return p, nil
}

// PermissionSet is the effective permission set of a user: the distinct
// union of the permissions of all roles the user holds.
type PermissionSet map[Permission]struct{}

func NewPermissionSet(names ...string) PermissionSet {
	set := make(PermissionSet, len(names))
	for _, n := range names {
		set[Permission(n)] = struct{}{}
	}
	return set
}

func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

func (s PermissionSet) HasAny(perms ...Permission) bool {
	for _, p := range perms {
		if s.Has(p) {
			return true
		}
	}
	return false
}

func (s PermissionSet) Len() int { return len(s) }

// Names returns the sorted permission names, the shape handlers serialize.
func (s PermissionSet) Names() []string {
	names := make([]string, 0, len(s))
	for p := range s {
		names = append(names, string(p))
	}
	sort.Strings(names)
	return names
}

// Scope is the lead visibility level a user resolves to. Exactly one scope
// applies per user, picked in priority order all > desk > assigned > none.
type Scope string

const (
	ScopeAll      Scope = "all"
	ScopeDesk     Scope = "desk"
	ScopeAssigned Scope = "assigned"
	ScopeNone     Scope = "none"
)

// ResolveScope picks the visibility scope for an effective permission set.
func ResolveScope(perms PermissionSet) Scope {
	switch {
	case perms.Has(PermLeadsViewAll):
		return ScopeAll
	case perms.Has(PermLeadsViewDesk):
		return ScopeDesk
	case perms.Has(PermLeadsViewAssigned):
		return ScopeAssigned
	default:
		return ScopeNone
	}
}

// Role is the domain view of a role row.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// AccessReport is the diagnostic view of a user's resolved access state,
// returned by the /users/{id}/access endpoint and the diagnose command.
type AccessReport struct {
	UserID      int64    `json:"user_id"`
	Email       string   `json:"email"`
	Username    string   `json:"username"`
	IsActive    bool     `json:"is_active"`
	Roles       []Role   `json:"roles"`
	Permissions []string `json:"permissions"`
	DeskIDs     []int64  `json:"desk_ids"`
	LeadScope   Scope    `json:"lead_scope"`
}

// UserState is the minimal user row the resolver needs.
type UserState struct {
	ID       int64
	Email    string
	Username string
	IsActive bool
}

// Repository is the storage contract for permission resolution and the
// idempotent assignment operations. Lookups that find no grants return
// empty results; missing entities return the typed NotFound errors from
// the internal package; anything else is an infrastructure failure.
type Repository interface {
	GetUserState(ctx context.Context, userID int64) (*UserState, error)
	EffectivePermissions(ctx context.Context, userID int64) ([]string, error)
	HasPermission(ctx context.Context, userID int64, permission string) (bool, error)
	RolesForUser(ctx context.Context, userID int64) ([]Role, error)
	UserDeskIDs(ctx context.Context, userID int64) ([]int64, error)
	IsDeskMember(ctx context.Context, userID, deskID int64) (bool, error)
	DeskExists(ctx context.Context, deskID int64) (bool, error)

	ListRoles(ctx context.Context) ([]Role, error)
	GetRoleByID(ctx context.Context, roleID int64) (*Role, error)
	GetRoleByName(ctx context.Context, name string) (*Role, error)
	GetPermissionID(ctx context.Context, name string) (int64, error)

	EnsureRole(ctx context.Context, name, displayName, description string) (int64, error)
	EnsurePermission(ctx context.Context, info PermissionInfo) (int64, error)
	EnsureUserRole(ctx context.Context, userID, roleID int64, assignedBy *int64) (bool, error)
	EnsureRolePermission(ctx context.Context, roleID, permissionID int64, grantedBy *int64) (bool, error)
	EnsureDeskUser(ctx context.Context, deskID, userID int64, assignedBy *int64) (bool, error)
}

// ServiceAPI is the integration surface the web layer and CLI call on every
// authenticated request to gate access and filter query results.
type ServiceAPI interface {
	ResolveEffectivePermissions(ctx context.Context, userID int64) (PermissionSet, error)
	HasPermission(ctx context.Context, userID int64, permission Permission) (bool, error)
	ResolveLeadVisibilityScope(ctx context.Context, userID int64) (Scope, error)
	CanCreateLeadInDesk(ctx context.Context, userID, deskID int64) (bool, error)
	IsDeskMember(ctx context.Context, userID, deskID int64) (bool, error)
	UserDeskIDs(ctx context.Context, userID int64) ([]int64, error)

	AssignRole(ctx context.Context, userID int64, roleName string, assignedBy *int64) error
	GrantPermission(ctx context.Context, roleID int64, permission Permission, grantedBy *int64) error
	AssignDesk(ctx context.Context, deskID, userID int64, assignedBy *int64) error

	ListRoles(ctx context.Context) ([]Role, error)
	ListPermissions(ctx context.Context) []PermissionInfo
	DescribeUserAccess(ctx context.Context, userID int64) (*AccessReport, error)
}
