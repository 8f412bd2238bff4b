package cmd

import (
	"fmt"
	"log"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

var diagnoseEmail string

// diagnoseCmd prints the raw access picture for one account straight from
// the database, bypassing the service layer. Useful when a user reports
// missing permissions and the question is whether the rows exist at all.
var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Dump the stored roles, permissions and desks for a user",
	Run: func(cmd *cobra.Command, args []string) {
		if diagnoseEmail == "" {
			log.Fatal("--email is required")
		}

		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		var u struct {
			ID       int64  `db:"id"`
			Username string `db:"username"`
			IsActive bool   `db:"is_active"`
		}
		if err := db.Get(&u, "SELECT id, username, is_active FROM users WHERE email = $1", diagnoseEmail); err != nil {
			log.Fatalf("user %s not found: %v", diagnoseEmail, err)
		}

		fmt.Printf("User #%d %s (active=%t)\n", u.ID, u.Username, u.IsActive)

		var roles []string
		if err := db.Select(&roles,
			`SELECT r.name FROM roles r
			 JOIN user_roles ur ON ur.role_id = r.id
			 WHERE ur.user_id = $1 ORDER BY r.name`, u.ID); err != nil {
			log.Fatalf("failed to load roles: %v", err)
		}
		fmt.Printf("Roles (%d):\n", len(roles))
		for _, r := range roles {
			fmt.Println("  -", r)
		}

		var perms []string
		if err := db.Select(&perms,
			`SELECT DISTINCT p.name FROM permissions p
			 JOIN role_permissions rp ON rp.permission_id = p.id
			 JOIN user_roles ur ON ur.role_id = rp.role_id
			 WHERE ur.user_id = $1 ORDER BY p.name`, u.ID); err != nil {
			log.Fatalf("failed to load permissions: %v", err)
		}
		fmt.Printf("Effective permissions (%d):\n", len(perms))
		for _, p := range perms {
			fmt.Println("  -", p)
		}

		var desks []struct {
			ID        int64  `db:"id"`
			Name      string `db:"name"`
			IsPrimary bool   `db:"is_primary"`
		}
		if err := db.Select(&desks,
			`SELECT d.id, d.name, du.is_primary FROM desks d
			 JOIN desk_users du ON du.desk_id = d.id
			 WHERE du.user_id = $1 ORDER BY d.name`, u.ID); err != nil {
			log.Fatalf("failed to load desks: %v", err)
		}
		fmt.Printf("Desks (%d):\n", len(desks))
		for _, d := range desks {
			marker := ""
			if d.IsPrimary {
				marker = " (primary)"
			}
			fmt.Printf("  - #%d %s%s\n", d.ID, d.Name, marker)
		}
	},
}

func init() {
	diagnoseCmd.Flags().StringVar(&diagnoseEmail, "email", "", "email of the user to inspect")
}
