package rbac_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/profixcrm/profixcrm/internal"
	"github.com/profixcrm/profixcrm/internal/rbac"
)

func TestRBACService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "RBACService Suite")
}

type mockRepository struct {
	users       map[int64]*rbac.UserState
	permissions map[int64][]string
	roles       map[int64][]rbac.Role
	deskIDs     map[int64][]int64
	desks       map[int64]bool

	rolesByName map[string]*rbac.Role
	rolesByID   map[int64]*rbac.Role
	permIDs     map[string]int64

	userRoles map[[2]int64]bool
	rolePerms map[[2]int64]bool
	deskUsers map[[2]int64]bool

	queryError error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		users:       make(map[int64]*rbac.UserState),
		permissions: make(map[int64][]string),
		roles:       make(map[int64][]rbac.Role),
		deskIDs:     make(map[int64][]int64),
		desks:       make(map[int64]bool),
		rolesByName: make(map[string]*rbac.Role),
		rolesByID:   make(map[int64]*rbac.Role),
		permIDs:     make(map[string]int64),
		userRoles:   make(map[[2]int64]bool),
		rolePerms:   make(map[[2]int64]bool),
		deskUsers:   make(map[[2]int64]bool),
	}
}

func (m *mockRepository) addUser(id int64, active bool) {
	m.users[id] = &rbac.UserState{ID: id, Email: "u@example.com", Username: "u", IsActive: active}
}

func (m *mockRepository) addRole(id int64, name string) {
	role := &rbac.Role{ID: id, Name: name}
	m.rolesByName[name] = role
	m.rolesByID[id] = role
}

func (m *mockRepository) GetUserState(ctx context.Context, userID int64) (*rbac.UserState, error) {
	if m.queryError != nil {
		return nil, m.queryError
	}
	state, ok := m.users[userID]
	if !ok {
		return nil, internal.ErrUserNotFound
	}
	return state, nil
}

func (m *mockRepository) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	if m.queryError != nil {
		return nil, m.queryError
	}
	return m.permissions[userID], nil
}

func (m *mockRepository) HasPermission(ctx context.Context, userID int64, permission string) (bool, error) {
	if m.queryError != nil {
		return false, m.queryError
	}
	for _, p := range m.permissions[userID] {
		if p == permission {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepository) RolesForUser(ctx context.Context, userID int64) ([]rbac.Role, error) {
	return m.roles[userID], nil
}

func (m *mockRepository) UserDeskIDs(ctx context.Context, userID int64) ([]int64, error) {
	return m.deskIDs[userID], nil
}

func (m *mockRepository) IsDeskMember(ctx context.Context, userID, deskID int64) (bool, error) {
	for _, id := range m.deskIDs[userID] {
		if id == deskID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepository) DeskExists(ctx context.Context, deskID int64) (bool, error) {
	return m.desks[deskID], nil
}

func (m *mockRepository) ListRoles(ctx context.Context) ([]rbac.Role, error) {
	var out []rbac.Role
	for _, r := range m.rolesByID {
		out = append(out, *r)
	}
	return out, nil
}

func (m *mockRepository) GetRoleByID(ctx context.Context, roleID int64) (*rbac.Role, error) {
	role, ok := m.rolesByID[roleID]
	if !ok {
		return nil, internal.ErrRoleNotFound
	}
	return role, nil
}

func (m *mockRepository) GetRoleByName(ctx context.Context, name string) (*rbac.Role, error) {
	role, ok := m.rolesByName[name]
	if !ok {
		return nil, internal.ErrRoleNotFound
	}
	return role, nil
}

func (m *mockRepository) GetPermissionID(ctx context.Context, name string) (int64, error) {
	id, ok := m.permIDs[name]
	if !ok {
		return 0, internal.ErrPermissionNotFound
	}
	return id, nil
}

func (m *mockRepository) EnsureRole(ctx context.Context, name, displayName, description string) (int64, error) {
	if role, ok := m.rolesByName[name]; ok {
		return role.ID, nil
	}
	id := int64(len(m.rolesByID) + 1)
	m.addRole(id, name)
	return id, nil
}

func (m *mockRepository) EnsurePermission(ctx context.Context, info rbac.PermissionInfo) (int64, error) {
	if id, ok := m.permIDs[info.Name.String()]; ok {
		return id, nil
	}
	id := int64(len(m.permIDs) + 1)
	m.permIDs[info.Name.String()] = id
	return id, nil
}

func (m *mockRepository) EnsureUserRole(ctx context.Context, userID, roleID int64, assignedBy *int64) (bool, error) {
	key := [2]int64{userID, roleID}
	if m.userRoles[key] {
		return false, nil
	}
	m.userRoles[key] = true
	return true, nil
}

func (m *mockRepository) EnsureRolePermission(ctx context.Context, roleID, permissionID int64, grantedBy *int64) (bool, error) {
	key := [2]int64{roleID, permissionID}
	if m.rolePerms[key] {
		return false, nil
	}
	m.rolePerms[key] = true
	return true, nil
}

func (m *mockRepository) EnsureDeskUser(ctx context.Context, deskID, userID int64, assignedBy *int64) (bool, error) {
	key := [2]int64{deskID, userID}
	if m.deskUsers[key] {
		return false, nil
	}
	m.deskUsers[key] = true
	return true, nil
}

var _ = Describe("RBAC Service", func() {
	var (
		repo    *mockRepository
		service *rbac.Service
		ctx     context.Context
	)

	BeforeEach(func() {
		repo = newMockRepository()
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
		service = rbac.NewService(repo, nil, logger)
		ctx = context.Background()
	})

	Describe("ResolveEffectivePermissions", func() {
		It("returns the distinct union of all role permissions", func() {
			repo.addUser(1, true)
			repo.permissions[1] = []string{"leads.view.desk", "leads.create", "leads.view.desk"}

			perms, err := service.ResolveEffectivePermissions(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(perms.Len()).To(Equal(2))
			Expect(perms.Has(rbac.PermLeadsViewDesk)).To(BeTrue())
			Expect(perms.Has(rbac.PermLeadsCreate)).To(BeTrue())
		})

		It("treats a user with roles but no grants as an empty set, not an error", func() {
			repo.addUser(1, true)

			perms, err := service.ResolveEffectivePermissions(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(perms.Len()).To(BeZero())
		})

		It("rejects a missing user with a not-found error", func() {
			_, err := service.ResolveEffectivePermissions(ctx, 99)
			Expect(errors.Is(err, internal.ErrUserNotFound)).To(BeTrue())
		})

		It("rejects an inactive user", func() {
			repo.addUser(1, false)
			repo.permissions[1] = []string{"leads.view.all"}

			_, err := service.ResolveEffectivePermissions(ctx, 1)
			Expect(errors.Is(err, internal.ErrUserInactive)).To(BeTrue())
		})
	})

	Describe("HasPermission", func() {
		It("matches permission names exactly", func() {
			repo.addUser(1, true)
			repo.permissions[1] = []string{"leads.view.all"}

			ok, err := service.HasPermission(ctx, 1, rbac.PermLeadsViewAll)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())

			ok, err = service.HasPermission(ctx, 1, rbac.PermLeadsViewDesk)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse(), "holding leads.view.all must not imply leads.view.desk")
		})

		It("rejects names outside the catalog", func() {
			repo.addUser(1, true)

			_, err := service.HasPermission(ctx, 1, rbac.Permission("leads.view"))
			Expect(err).To(HaveOccurred())

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeUnknownPermission))
		})
	})

	Describe("ResolveLeadVisibilityScope", func() {
		It("picks all over desk over assigned", func() {
			repo.addUser(1, true)
			repo.permissions[1] = []string{"leads.view.assigned", "leads.view.desk", "leads.view.all"}

			scope, err := service.ResolveLeadVisibilityScope(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(scope).To(Equal(rbac.ScopeAll))
		})

		It("falls back to desk when all is absent", func() {
			repo.addUser(1, true)
			repo.permissions[1] = []string{"leads.view.assigned", "leads.view.desk"}

			scope, err := service.ResolveLeadVisibilityScope(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(scope).To(Equal(rbac.ScopeDesk))
		})

		It("resolves none for a user without any view permission", func() {
			repo.addUser(1, true)
			repo.permissions[1] = []string{"leads.create"}

			scope, err := service.ResolveLeadVisibilityScope(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(scope).To(Equal(rbac.ScopeNone))
		})
	})

	Describe("CanCreateLeadInDesk", func() {
		BeforeEach(func() {
			repo.addUser(1, true)
			repo.permissions[1] = []string{"leads.create"}
			repo.deskIDs[1] = []int64{2}
		})

		It("allows creation in an assigned desk", func() {
			ok, err := service.CanCreateLeadInDesk(ctx, 1, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
		})

		It("denies creation in a foreign desk", func() {
			ok, err := service.CanCreateLeadInDesk(ctx, 1, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("denies without the create permission even on an assigned desk", func() {
			repo.permissions[1] = nil

			ok, err := service.CanCreateLeadInDesk(ctx, 1, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})
	})

	Describe("AssignRole", func() {
		BeforeEach(func() {
			repo.addUser(1, true)
			repo.addRole(10, "sales_agent")
		})

		It("inserts once and is a no-op on repeat", func() {
			Expect(service.AssignRole(ctx, 1, "sales_agent", nil)).To(Succeed())
			Expect(repo.userRoles[[2]int64{1, 10}]).To(BeTrue())

			Expect(service.AssignRole(ctx, 1, "sales_agent", nil)).To(Succeed())
			Expect(len(repo.userRoles)).To(Equal(1))
		})

		It("fails for an unknown role", func() {
			err := service.AssignRole(ctx, 1, "nonexistent", nil)
			Expect(errors.Is(err, internal.ErrRoleNotFound)).To(BeTrue())
		})

		It("fails for an unknown user", func() {
			err := service.AssignRole(ctx, 42, "sales_agent", nil)
			Expect(errors.Is(err, internal.ErrUserNotFound)).To(BeTrue())
		})
	})

	Describe("GrantPermission", func() {
		BeforeEach(func() {
			repo.addRole(10, "sales_agent")
			repo.permIDs["leads.view.assigned"] = 7
		})

		It("grants idempotently", func() {
			Expect(service.GrantPermission(ctx, 10, rbac.PermLeadsViewAssigned, nil)).To(Succeed())
			Expect(service.GrantPermission(ctx, 10, rbac.PermLeadsViewAssigned, nil)).To(Succeed())
			Expect(len(repo.rolePerms)).To(Equal(1))
		})

		It("rejects permissions outside the catalog", func() {
			err := service.GrantPermission(ctx, 10, rbac.Permission("desk.2.create"), nil)
			Expect(err).To(HaveOccurred())

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeUnknownPermission))
		})
	})

	Describe("AssignDesk", func() {
		BeforeEach(func() {
			repo.addUser(1, true)
			repo.desks[2] = true
		})

		It("adds the membership once", func() {
			Expect(service.AssignDesk(ctx, 2, 1, nil)).To(Succeed())
			Expect(service.AssignDesk(ctx, 2, 1, nil)).To(Succeed())
			Expect(len(repo.deskUsers)).To(Equal(1))
		})

		It("fails for a missing desk", func() {
			err := service.AssignDesk(ctx, 9, 1, nil)
			Expect(errors.Is(err, internal.ErrDeskNotFound)).To(BeTrue())
		})
	})

	Describe("DescribeUserAccess", func() {
		It("reports an inactive user with scope none but full stored state", func() {
			repo.addUser(1, false)
			repo.permissions[1] = []string{"leads.view.all"}
			repo.roles[1] = []rbac.Role{{ID: 10, Name: "admin"}}
			repo.deskIDs[1] = []int64{2, 3}

			report, err := service.DescribeUserAccess(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.IsActive).To(BeFalse())
			Expect(report.LeadScope).To(Equal(rbac.ScopeNone))
			Expect(report.Permissions).To(ConsistOf("leads.view.all"))
			Expect(report.DeskIDs).To(ConsistOf(int64(2), int64(3)))
		})

		It("reports resolved scope for an active user", func() {
			repo.addUser(1, true)
			repo.permissions[1] = []string{"leads.view.desk", "leads.create"}

			report, err := service.DescribeUserAccess(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.LeadScope).To(Equal(rbac.ScopeDesk))
			Expect(report.Permissions).To(Equal([]string{"leads.create", "leads.view.desk"}), "permission names are sorted")
		})
	})
})
