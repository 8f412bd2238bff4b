package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/profixcrm/profixcrm/internal/auth"
)

var (
	resetEmail    string
	resetPassword string
)

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password",
	Short: "Reset a user's password from the command line",
	Run: func(cmd *cobra.Command, args []string) {
		if resetEmail == "" || resetPassword == "" {
			log.Fatal("--email and --password are required")
		}
		if len(resetPassword) < 8 {
			log.Fatal("password must be at least 8 characters")
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

		hash, err := auth.HashPassword(resetPassword, cfg.Security.BCryptCost)
		if err != nil {
			log.Fatalf("failed to hash password: %v", err)
		}

		result, err := db.Exec(
			"UPDATE users SET password_hash = $1, updated_at = now() WHERE email = $2",
			hash, resetEmail)
		if err != nil {
			log.Fatalf("failed to update password: %v", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			log.Fatalf("no user with email %s", resetEmail)
		}

		fmt.Println("Password reset for:", resetEmail)
	},
}

func init() {
	resetPasswordCmd.Flags().StringVar(&resetEmail, "email", "", "email of the user")
	resetPasswordCmd.Flags().StringVar(&resetPassword, "password", "", "new password")
}
