package cmd

import (
	"fmt"
	"log"

	"github.com/cpdo/zoning-tracker/internal"
	"github.com/cpdo/zoning-tracker/internal/user"
	"github.com/spf13/cobra"
)

var (
	clearData    bool
	seedPassword string
)

type seedUser struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Role      string
}

var seedUsers = []seedUser{
	{"admin", "admin@cpdo.local", "System", "Administrator", internal.RoleAdmin},
	{"planner", "planner@cpdo.local", "Maria", "Santos", internal.RoleUser},
	{"encoder", "encoder@cpdo.local", "Jose", "Reyes", internal.RoleUser},
	{"viewer", "viewer@cpdo.local", "Ana", "Cruz", internal.RoleViewer},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with an administrator and sample accounts for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer sqlDB.Close()

		db, err := initGorm(sqlDB)
		if err != nil {
			log.Fatalf("failed to init gorm: %v", err)
		}

		if clearData {
			for _, table := range []string{"audit_logs", "attached_files", "documents", "sequence_counters", "users"} {
				if err := db.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		hash, err := user.HashPassword(seedPassword, cfg.Security.BCryptCost)
		if err != nil {
			log.Fatalf("failed to hash seed password: %v", err)
		}

		for _, u := range seedUsers {
			var exists int
			row := db.Raw("SELECT 1 FROM users WHERE LOWER(username) = LOWER(?) OR LOWER(email) = LOWER(?)", u.Username, u.Email).Row()
			if err := row.Scan(&exists); err == nil {
				fmt.Printf("%s user already exists; skipping\n", u.Username)
				continue
			}

			name := u.FirstName + " " + u.LastName
			if err := db.Exec(
				"INSERT INTO users (username, email, password_hash, name, first_name, last_name, designation, section, role, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, 'CPCD', 'Plans', ?, now(), now())",
				u.Username, u.Email, hash, name, u.FirstName, u.LastName, u.Role,
			).Error; err != nil {
				log.Fatalf("failed to insert %s user: %v", u.Username, err)
			}
			fmt.Printf("Seeded %s user: %s (%s)\n", u.Role, u.Username, u.Email)
		}

		fmt.Println("Users seeded successfully")
	},
}

func init() {
	seedCmd.Flags().BoolVar(&clearData, "clear", false, "Clear existing data before seeding")
	seedCmd.Flags().StringVar(&seedPassword, "password", "password123", "Password given to every seeded account")
}
