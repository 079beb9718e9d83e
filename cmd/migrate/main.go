package main

import (
	"database/sql"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	// Load .env file
	if err := godotenv.Load("../../.env"); err != nil {
		log.Println("No .env file found, checking current dir")
		if err := godotenv.Load(".env"); err != nil {
			log.Println("No .env file found")
		}
	}

	dbURL := os.Getenv("TEAMS_DATABASE_URL")
	if dbURL == "" {
		log.Fatal("TEAMS_DATABASE_URL is required")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	// Read migration file
	// Assuming running from cmd/migrate
	migrationPath := "../../migrations/create_teams_table.sql"
	content, err := os.ReadFile(migrationPath)
	if err != nil {
		cwd, _ := os.Getwd()
		log.Printf("Current working directory: %s", cwd)
		log.Fatalf("Failed to read migration file: %v", err)
	}

	log.Println("Running migration...")
	_, err = db.Exec(string(content))
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	log.Println("Migration applied successfully!")
}
