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
	"github.com/profixcrm/profixcrm/internal/desk"
)

func TestDeskRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "DeskRepository Suite")
}

type SQLiteDesk struct {
	ID          int64     `gorm:"primaryKey"`
	Name        string    `gorm:"uniqueIndex;not null"`
	Description string    `gorm:"default:''"`
	IsActive    bool      `gorm:"column:is_active;default:true"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (SQLiteDesk) TableName() string { return "desks" }

type SQLiteDeskUser struct {
	ID         int64     `gorm:"primaryKey"`
	DeskID     int64     `gorm:"column:desk_id;not null;uniqueIndex:idx_desk_users_natural"`
	UserID     int64     `gorm:"column:user_id;not null;uniqueIndex:idx_desk_users_natural"`
	IsPrimary  bool      `gorm:"column:is_primary;default:false"`
	AssignedBy *int64    `gorm:"column:assigned_by"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (SQLiteDeskUser) TableName() string { return "desk_users" }

type SQLiteMemberUser struct {
	ID        int64     `gorm:"primaryKey"`
	Username  string    `gorm:"uniqueIndex;not null"`
	Email     string    `gorm:"uniqueIndex;not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (SQLiteMemberUser) TableName() string { return "users" }

var _ = Describe("DeskRepository", func() {
	var (
		db   *gorm.DB
		repo *Repository
		ctx  context.Context
	)

	createDesk := func(name string, active bool) int64 {
		d := &desk.Desk{Name: name, IsActive: active}
		Expect(repo.Create(ctx, d)).To(Succeed())
		return d.ID
	}

	addMember := func(deskID, userID int64, primary bool) {
		row := SQLiteDeskUser{DeskID: deskID, UserID: userID, IsPrimary: primary}
		Expect(db.Create(&row).Error).NotTo(HaveOccurred())
	}

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
		Expect(err).NotTo(HaveOccurred())
		Expect(db.AutoMigrate(&SQLiteDesk{}, &SQLiteDeskUser{}, &SQLiteMemberUser{})).To(Succeed())

		repo = NewRepository(db)
		ctx = context.Background()
	})

	Describe("List", func() {
		It("hides inactive desks unless asked", func() {
			createDesk("Sales EU", true)
			createDesk("Sales Legacy", false)

			active, err := repo.List(ctx, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(active).To(HaveLen(1))
			Expect(active[0].Name).To(Equal("Sales EU"))

			all, err := repo.List(ctx, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(2))
		})
	})

	Describe("GetByName", func() {
		It("finds a desk by its unique name", func() {
			id := createDesk("Sales EU", true)

			d, err := repo.GetByName(ctx, "Sales EU")
			Expect(err).NotTo(HaveOccurred())
			Expect(d.ID).To(Equal(id))
		})

		It("maps a missing row to the typed error", func() {
			_, err := repo.GetByName(ctx, "nope")
			Expect(errors.Is(err, internal.ErrDeskNotFound)).To(BeTrue())
		})
	})

	Describe("Members", func() {
		It("joins user details ordered by username", func() {
			id := createDesk("Sales EU", true)
			Expect(db.Create(&SQLiteMemberUser{ID: 10, Username: "zoe", Email: "zoe@example.com"}).Error).NotTo(HaveOccurred())
			Expect(db.Create(&SQLiteMemberUser{ID: 11, Username: "ada", Email: "ada@example.com"}).Error).NotTo(HaveOccurred())
			addMember(id, 10, true)
			addMember(id, 11, false)

			members, err := repo.Members(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(members).To(HaveLen(2))
			Expect(members[0].Username).To(Equal("ada"))
			Expect(members[1].Username).To(Equal("zoe"))
			Expect(members[1].IsPrimary).To(BeTrue())
		})
	})

	Describe("SetPrimary", func() {
		It("moves the primary flag between memberships", func() {
			deskA := createDesk("Sales EU", true)
			deskB := createDesk("Sales APAC", true)
			addMember(deskA, 10, true)
			addMember(deskB, 10, false)

			Expect(repo.SetPrimary(ctx, deskB, 10)).To(Succeed())

			var rows []SQLiteDeskUser
			Expect(db.Where("user_id = ?", 10).Order("desk_id").Find(&rows).Error).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(2))
			Expect(rows[0].IsPrimary).To(BeFalse())
			Expect(rows[1].IsPrimary).To(BeTrue())
		})

		It("rejects a user who is not a member", func() {
			id := createDesk("Sales EU", true)

			err := repo.SetPrimary(ctx, id, 10)
			Expect(errors.Is(err, internal.ErrDeskScopeViolation)).To(BeTrue())

			var count int64
			Expect(db.Model(&SQLiteDeskUser{}).Where("is_primary = ?", true).Count(&count).Error).NotTo(HaveOccurred())
			Expect(count).To(BeZero())
		})
	})
})
