package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/profixcrm/profixcrm/internal"
	"github.com/profixcrm/profixcrm/internal/lead"
)

func TestLeadRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "LeadRepository Suite")
}

type SQLiteLead struct {
	ID         int64     `gorm:"primaryKey"`
	FirstName  string    `gorm:"column:first_name;not null"`
	LastName   string    `gorm:"column:last_name;default:''"`
	Email      string    `gorm:"column:email;index"`
	Phone      string    `gorm:"column:phone;default:''"`
	Status     string    `gorm:"column:status;not null;default:'new'"`
	DeskID     *int64    `gorm:"column:desk_id;index"`
	AssignedTo *int64    `gorm:"column:assigned_to;index"`
	CreatedBy  int64     `gorm:"column:created_by;not null"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

func (SQLiteLead) TableName() string { return "leads" }

func int64Ptr(v int64) *int64 { return &v }

var _ = Describe("LeadRepository", func() {
	var (
		db   *gorm.DB
		repo *Repository
		ctx  context.Context
	)

	seed := func(deskID, assignedTo *int64, status string) int64 {
		row := SQLiteLead{
			FirstName:  "Ada",
			Email:      "ada@example.com",
			Status:     status,
			DeskID:     deskID,
			AssignedTo: assignedTo,
			CreatedBy:  99,
		}
		Expect(db.Create(&row).Error).NotTo(HaveOccurred())
		return row.ID
	}

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
		Expect(err).NotTo(HaveOccurred())
		Expect(db.AutoMigrate(&SQLiteLead{})).To(Succeed())

		repo = NewRepository(db)
		ctx = context.Background()
	})

	Describe("List", func() {
		BeforeEach(func() {
			seed(int64Ptr(1), nil, "new")
			seed(int64Ptr(2), int64Ptr(10), "contacted")
			seed(nil, int64Ptr(10), "new")
			seed(nil, nil, "qualified")
		})

		It("returns every row when unrestricted", func() {
			leads, err := repo.List(ctx, lead.ScopeConstraint{Unrestricted: true}, lead.Filter{Limit: 50})
			Expect(err).NotTo(HaveOccurred())
			Expect(leads).To(HaveLen(4))
		})

		It("restricts to the given desks", func() {
			constraint := lead.ScopeConstraint{DeskIDs: []int64{2}}
			leads, err := repo.List(ctx, constraint, lead.Filter{Limit: 50})
			Expect(err).NotTo(HaveOccurred())
			Expect(leads).To(HaveLen(1))
			Expect(*leads[0].DeskID).To(Equal(int64(2)))

			count, err := repo.Count(ctx, constraint, lead.Filter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(int64(1)))
		})

		It("restricts to the assignee", func() {
			leads, err := repo.List(ctx, lead.ScopeConstraint{AssignedTo: int64Ptr(10)}, lead.Filter{Limit: 50})
			Expect(err).NotTo(HaveOccurred())
			Expect(leads).To(HaveLen(2))
			for _, l := range leads {
				Expect(*l.AssignedTo).To(Equal(int64(10)))
			}
		})

		It("matches nothing under an empty constraint", func() {
			leads, err := repo.List(ctx, lead.ScopeConstraint{}, lead.Filter{Limit: 50})
			Expect(err).NotTo(HaveOccurred())
			Expect(leads).To(BeEmpty())
		})

		It("applies the status filter inside the scope", func() {
			status := lead.StatusNew
			leads, err := repo.List(ctx, lead.ScopeConstraint{Unrestricted: true}, lead.Filter{Status: &status, Limit: 50})
			Expect(err).NotTo(HaveOccurred())
			Expect(leads).To(HaveLen(2))
		})
	})

	Describe("Assign", func() {
		It("sets and clears the assignee", func() {
			id := seed(int64Ptr(1), nil, "new")

			Expect(repo.Assign(ctx, id, int64Ptr(20))).To(Succeed())
			l, err := repo.GetByID(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(*l.AssignedTo).To(Equal(int64(20)))

			Expect(repo.Assign(ctx, id, nil)).To(Succeed())
			l, err = repo.GetByID(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(l.AssignedTo).To(BeNil())
		})

		It("reports a missing lead", func() {
			err := repo.Assign(ctx, 999, int64Ptr(20))
			Expect(errors.Is(err, internal.ErrLeadNotFound)).To(BeTrue())
		})
	})

	Describe("GetByID", func() {
		It("maps a missing row to the typed error", func() {
			_, err := repo.GetByID(ctx, 999)
			Expect(errors.Is(err, internal.ErrLeadNotFound)).To(BeTrue())
		})
	})

	Describe("Create", func() {
		It("round-trips a lead and backfills generated fields", func() {
			l := &lead.Lead{
				FirstName: "Grace",
				Email:     "grace@example.com",
				Status:    lead.StatusNew,
				DeskID:    int64Ptr(3),
				CreatedBy: 7,
			}
			Expect(repo.Create(ctx, l)).To(Succeed())
			Expect(l.ID).NotTo(BeZero())

			got, err := repo.GetByID(ctx, l.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.FirstName).To(Equal("Grace"))
			Expect(*got.DeskID).To(Equal(int64(3)))
			Expect(got.CreatedBy).To(Equal(int64(7)))
		})
	})
})
