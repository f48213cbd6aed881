package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"murmur-chat/config"
	"murmur-chat/pkg/database"
)

const usage = `
Murmur Chat - Database CLI Tool

Usage:
  migrate [command] [flags]

Commands:
  up          Run all SQL migrations
  status      Show database connection status
  seed        Seed the database with demo data

Flags:
  -migrations string   Path to migrations directory (default "migrations")
  -users int           Number of demo users to seed (default 5)

Examples:
  go run cmd/migrate/main.go up
  go run cmd/migrate/main.go seed
`

func main() {
	migrationsDir := flag.String("migrations", "migrations", "Path to migrations directory")
	userCount := flag.Int("users", 5, "Number of demo users to seed")

	flag.Usage = func() {
		fmt.Print(usage)
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	command := flag.Arg(0)

	cfg := config.LoadConfig()
	database.Connect(cfg)
	defer database.Close()

	switch command {
	case "up":
		runMigrationsUp(*migrationsDir)
	case "status":
		showStatus()
	case "seed":
		runSeed(*userCount)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}

func runMigrationsUp(migrationsDir string) {
	log.Println("Running migrations...")

	if err := database.ApplyRawMigrations(migrationsDir); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	log.Println("Migrations completed successfully")
}

func showStatus() {
	log.Println("Checking database status...")

	if err := database.HealthCheck(context.Background()); err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Database connection: OK")

	tables := []string{"users", "user_blocks", "messages", "message_reactions", "message_hidden"}
	for _, table := range tables {
		exists, err := database.TableExists(table)
		if err != nil {
			log.Printf("Error checking table %s: %v", table, err)
			continue
		}
		if exists {
			log.Printf("Table %-20s exists", table)
		} else {
			log.Printf("Table %-20s does not exist", table)
		}
	}
}

func runSeed(userCount int) {
	log.Println("Seeding database...")

	cfg := database.DefaultSeedConfig()
	cfg.UserCount = userCount
	if err := database.Seed(cfg); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("Seeding completed")
}
