package desk_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/profixcrm/profixcrm/internal"
	"github.com/profixcrm/profixcrm/internal/desk"
)

func TestDeskService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "DeskService Suite")
}

type mockDeskRepository struct {
	desks      map[int64]*desk.Desk
	members    map[int64][]desk.Member
	primaryErr error
	nextID     int64
}

func newMockDeskRepository() *mockDeskRepository {
	return &mockDeskRepository{
		desks:   make(map[int64]*desk.Desk),
		members: make(map[int64][]desk.Member),
		nextID:  1,
	}
}

func (m *mockDeskRepository) Create(ctx context.Context, d *desk.Desk) error {
	d.ID = m.nextID
	m.nextID++
	d.CreatedAt = time.Now()
	d.UpdatedAt = time.Now()
	copied := *d
	m.desks[d.ID] = &copied
	return nil
}

func (m *mockDeskRepository) GetByID(ctx context.Context, id int64) (*desk.Desk, error) {
	d, ok := m.desks[id]
	if !ok {
		return nil, internal.ErrDeskNotFound
	}
	copied := *d
	return &copied, nil
}

func (m *mockDeskRepository) GetByName(ctx context.Context, name string) (*desk.Desk, error) {
	for _, d := range m.desks {
		if d.Name == name {
			copied := *d
			return &copied, nil
		}
	}
	return nil, internal.ErrDeskNotFound
}

func (m *mockDeskRepository) List(ctx context.Context, includeInactive bool) ([]desk.Desk, error) {
	var out []desk.Desk
	for _, d := range m.desks {
		if !includeInactive && !d.IsActive {
			continue
		}
		out = append(out, *d)
	}
	return out, nil
}

func (m *mockDeskRepository) Update(ctx context.Context, d *desk.Desk) error {
	if _, ok := m.desks[d.ID]; !ok {
		return internal.ErrDeskNotFound
	}
	copied := *d
	m.desks[d.ID] = &copied
	return nil
}

func (m *mockDeskRepository) SetActive(ctx context.Context, id int64, active bool) error {
	d, ok := m.desks[id]
	if !ok {
		return internal.ErrDeskNotFound
	}
	d.IsActive = active
	return nil
}

func (m *mockDeskRepository) Members(ctx context.Context, deskID int64) ([]desk.Member, error) {
	return m.members[deskID], nil
}

func (m *mockDeskRepository) SetPrimary(ctx context.Context, deskID, userID int64) error {
	return m.primaryErr
}

var _ = Describe("Desk Service", func() {
	var (
		repo    *mockDeskRepository
		service *desk.Service
		ctx     context.Context
	)

	BeforeEach(func() {
		repo = newMockDeskRepository()
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
		service = desk.NewService(repo, nil, logger)
		ctx = context.Background()
	})

	Describe("CreateDesk", func() {
		It("creates an active desk", func() {
			d, err := service.CreateDesk(ctx, desk.CreateDeskDTO{Name: "Sales EU"})
			Expect(err).NotTo(HaveOccurred())
			Expect(d.IsActive).To(BeTrue())
			Expect(d.ID).NotTo(BeZero())
		})

		It("rejects a duplicate name as a conflict", func() {
			_, err := service.CreateDesk(ctx, desk.CreateDeskDTO{Name: "Sales EU"})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.CreateDesk(ctx, desk.CreateDeskDTO{Name: "Sales EU"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeDuplicateDesk))
		})

		It("requires a name", func() {
			_, err := service.CreateDesk(ctx, desk.CreateDeskDTO{})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})
	})

	Describe("UpdateDesk", func() {
		var id int64

		BeforeEach(func() {
			d, err := service.CreateDesk(ctx, desk.CreateDeskDTO{Name: "Sales EU"})
			Expect(err).NotTo(HaveOccurred())
			id = d.ID
		})

		It("renames a desk", func() {
			name := "Sales EMEA"
			d, err := service.UpdateDesk(ctx, id, desk.UpdateDeskDTO{Name: &name})
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Name).To(Equal("Sales EMEA"))
		})

		It("refuses to take another desk's name", func() {
			_, err := service.CreateDesk(ctx, desk.CreateDeskDTO{Name: "Sales APAC"})
			Expect(err).NotTo(HaveOccurred())

			name := "Sales APAC"
			_, err = service.UpdateDesk(ctx, id, desk.UpdateDeskDTO{Name: &name})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeDuplicateDesk))
		})

		It("reports an unknown desk as not found", func() {
			_, err := service.UpdateDesk(ctx, 999, desk.UpdateDeskDTO{})
			Expect(errors.Is(err, internal.ErrDeskNotFound)).To(BeTrue())
		})
	})

	Describe("DeactivateDesk", func() {
		It("flips the desk inactive and keeps its members", func() {
			d, err := service.CreateDesk(ctx, desk.CreateDeskDTO{Name: "Sales EU"})
			Expect(err).NotTo(HaveOccurred())
			repo.members[d.ID] = []desk.Member{{UserID: 10, Username: "agent"}}

			Expect(service.DeactivateDesk(ctx, d.ID)).To(Succeed())

			got, err := repo.GetByID(ctx, d.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.IsActive).To(BeFalse())
			Expect(repo.members[d.ID]).To(HaveLen(1))
		})

		It("reports an unknown desk as not found", func() {
			err := service.DeactivateDesk(ctx, 999)
			Expect(errors.Is(err, internal.ErrDeskNotFound)).To(BeTrue())
		})
	})

	Describe("SetPrimaryDesk", func() {
		var id int64

		BeforeEach(func() {
			d, err := service.CreateDesk(ctx, desk.CreateDeskDTO{Name: "Sales EU"})
			Expect(err).NotTo(HaveOccurred())
			id = d.ID
		})

		It("propagates the membership violation from storage", func() {
			repo.primaryErr = internal.ErrDeskScopeViolation

			err := service.SetPrimaryDesk(ctx, id, 10)
			Expect(errors.Is(err, internal.ErrDeskScopeViolation)).To(BeTrue())
		})

		It("wraps storage failures as internal errors", func() {
			repo.primaryErr = errors.New("connection reset")

			err := service.SetPrimaryDesk(ctx, id, 10)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeInternal))
		})

		It("succeeds for a member", func() {
			Expect(service.SetPrimaryDesk(ctx, id, 10)).To(Succeed())
		})
	})
})
