package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/pratik-mahalle/watchpost/internal/config"
	"github.com/pratik-mahalle/watchpost/internal/repository/postgres"
	"github.com/pratik-mahalle/watchpost/migrations"
)

func main() {
	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Database.Driver == "memory" {
		fmt.Println("DB_DRIVER is memory, nothing to migrate")
		return
	}

	db, err := postgres.New(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	files, err := migrations.GetFS(db.Driver)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load migrations: %v\n", err)
		os.Exit(1)
	}

	switch cmd {
	case "up":
		applied, err := postgres.RunMigrations(db, files)
		for _, name := range applied {
			fmt.Printf("✓ Migration %s completed successfully\n", name)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
			os.Exit(1)
		}
		if len(applied) == 0 {
			fmt.Println("Database is up to date")
			return
		}
		fmt.Println("\nAll migrations completed successfully!")

	case "status":
		status, err := postgres.MigrationStatus(db, files)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read migration status: %v\n", err)
			os.Exit(1)
		}
		names := make([]string, 0, len(status))
		for name := range status {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			state := "pending"
			if status[name] {
				state = "applied"
			}
			fmt.Printf("%-40s %s\n", name, state)
		}

	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q, expected up or status\n", cmd)
		os.Exit(2)
	}
}
