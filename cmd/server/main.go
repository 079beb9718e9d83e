package main

import (
	"database/sql"
	"log"
	"os"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"

	"github.com/phonginreallife/ocmwrap/internal/config"
	"github.com/phonginreallife/ocmwrap/router"
)

func main() {
	log.Println("Starting server...")

	// Load Config
	configPath := os.Getenv("ocmwrap_CONFIG_PATH")

	if err := config.LoadConfig(configPath); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Teams database connection (optional, falls back to config teams)
	var pg *sql.DB
	if config.App.TeamsDatabaseURL != "" {
		var err error
		pg, err = sql.Open("postgres", config.App.TeamsDatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to teams database: %v", err)
		}
		defer pg.Close()

		// Test database connection
		if err := pg.Ping(); err != nil {
			log.Fatalf("Failed to ping teams database: %v", err)
		}

		// Set timezone to UTC for consistent time handling
		if _, err := pg.Exec("SET TIME ZONE 'UTC'"); err != nil {
			log.Printf("Failed to set timezone to UTC: %v", err)
		} else {
			log.Println("  Set database timezone to UTC")
		}

		log.Println("  Connected to teams database successfully")
	}

	// Redis connection (optional, falls back to file snapshot store)
	var redisClient *redis.Client
	if config.App.RedisURL != "" {
		opts, err := redis.ParseURL(config.App.RedisURL)
		if err != nil {
			log.Fatalf("Failed to parse REDIS_URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
	}

	r := router.NewGinRouter(pg, redisClient)

	log.Printf("Listening on :%s", config.App.Port)
	if err := r.Run(":" + config.App.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
