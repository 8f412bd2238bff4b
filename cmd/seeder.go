package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/profixcrm/profixcrm/internal/auth"
	"github.com/profixcrm/profixcrm/internal/core/events"
	"github.com/profixcrm/profixcrm/internal/rbac"
	rbacrepo "github.com/profixcrm/profixcrm/internal/rbac/postgres"
	"github.com/profixcrm/profixcrm/pkg/logger"
)

var clearData bool

// rolePermissions is the default grant matrix. Admin gets the full catalog;
// managers see their desks; agents see only their own leads.
var seedRoles = []struct {
	Name        string
	DisplayName string
	Description string
	Permissions []rbac.Permission
}{
	{
		Name:        "admin",
		DisplayName: "Administrator",
		Description: "Full access to every module",
		Permissions: nil, // filled with the whole catalog below
	},
	{
		Name:        "desk_manager",
		DisplayName: "Desk Manager",
		Description: "Manages leads and agents on assigned desks",
		Permissions: []rbac.Permission{
			rbac.PermLeadsViewDesk,
			rbac.PermLeadsCreate,
			rbac.PermLeadsEdit,
			rbac.PermLeadsAssign,
			rbac.PermUsersView,
			rbac.PermDesksView,
		},
	},
	{
		Name:        "sales_agent",
		DisplayName: "Sales Agent",
		Description: "Works own assigned leads",
		Permissions: []rbac.Permission{
			rbac.PermLeadsViewAssigned,
			rbac.PermLeadsCreate,
			rbac.PermLeadsEdit,
		},
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the permission catalog, default roles and an admin account",
	Long:  `Seed the database with the permission catalog, default roles, a default desk and an initial admin user. Safe to run repeatedly.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to init orm: %v", err)
		}

		ctx := context.Background()

		if clearData {
			for _, table := range []string{"role_permissions", "user_roles", "desk_users"} {
				if err := gormDB.WithContext(ctx).Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared assignment tables")
		}

		repo := rbacrepo.NewRepository(gormDB)
		svc := rbac.NewService(repo, events.NewEventBus(logger.LoggerWrapper()), logger.LoggerWrapper())

		// permission catalog
		for _, info := range rbac.Catalog() {
			if _, err := repo.EnsurePermission(ctx, info); err != nil {
				log.Fatalf("failed to ensure permission %s: %v", info.Name, err)
			}
		}
		fmt.Printf("Ensured %d catalog permissions\n", len(rbac.Catalog()))

		// roles and their grants
		for _, r := range seedRoles {
			roleID, err := repo.EnsureRole(ctx, r.Name, r.DisplayName, r.Description)
			if err != nil {
				log.Fatalf("failed to ensure role %s: %v", r.Name, err)
			}

			perms := r.Permissions
			if r.Name == "admin" {
				for _, info := range rbac.Catalog() {
					perms = append(perms, rbac.Permission(info.Name))
				}
			}
			for _, p := range perms {
				if err := svc.GrantPermission(ctx, roleID, p, nil); err != nil {
					log.Fatalf("failed to grant %s to %s: %v", p, r.Name, err)
				}
			}
			fmt.Printf("Ensured role %s with %d permissions\n", r.Name, len(perms))
		}

		// default desk
		var deskID int64
		if err := gormDB.WithContext(ctx).Raw("SELECT id FROM desks WHERE name = ?", "Main Desk").Scan(&deskID).Error; err != nil || deskID == 0 {
			if err := gormDB.WithContext(ctx).Exec(
				"INSERT INTO desks (name, description, is_active, created_at, updated_at) VALUES (?, ?, true, now(), now()) ON CONFLICT (name) DO NOTHING",
				"Main Desk", "Default desk").Error; err != nil {
				log.Fatalf("failed to seed default desk: %v", err)
			}
			fmt.Println("Seeded default desk: Main Desk")
		}

		// initial admin account
		adminEmail := os.Getenv("SEED_ADMIN_EMAIL")
		if adminEmail == "" {
			adminEmail = "admin@profixcrm.local"
		}
		adminPassword := os.Getenv("SEED_ADMIN_PASSWORD")
		if adminPassword == "" {
			adminPassword = "changeme123"
		}

		var adminID int64
		if err := gormDB.WithContext(ctx).Raw("SELECT id FROM users WHERE email = ?", adminEmail).Scan(&adminID).Error; err != nil {
			log.Fatalf("failed to look up admin user: %v", err)
		}
		if adminID == 0 {
			hash, err := auth.HashPassword(adminPassword, cfg.Security.BCryptCost)
			if err != nil {
				log.Fatalf("failed to hash admin password: %v", err)
			}
			if err := gormDB.WithContext(ctx).Exec(
				"INSERT INTO users (username, email, password_hash, first_name, last_name, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, true, now(), now())",
				"admin", adminEmail, hash, "System", "Administrator").Error; err != nil {
				log.Fatalf("failed to insert admin user: %v", err)
			}
			if err := gormDB.WithContext(ctx).Raw("SELECT id FROM users WHERE email = ?", adminEmail).Scan(&adminID).Error; err != nil {
				log.Fatalf("failed to look up admin user after insert: %v", err)
			}
			fmt.Println("Seeded admin user:", adminEmail)
		}

		if err := svc.AssignRole(ctx, adminID, "admin", nil); err != nil {
			log.Fatalf("failed to assign admin role: %v", err)
		}
		fmt.Println("Admin role ensured for:", adminEmail)
	},
}

func init() {
	seedCmd.Flags().BoolVar(&clearData, "clear", false, "Clear existing assignment data before seeding")
}
