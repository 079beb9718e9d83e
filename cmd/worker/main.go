package main

import (
	"database/sql"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"

	"github.com/phonginreallife/ocmwrap/db"
	"github.com/phonginreallife/ocmwrap/internal/config"
	"github.com/phonginreallife/ocmwrap/internal/ocm"
	"github.com/phonginreallife/ocmwrap/services"
	"github.com/phonginreallife/ocmwrap/workers"
)

func main() {
	log.Println("Starting workers...")

	// Load Config
	configPath := os.Getenv("ocmwrap_CONFIG_PATH")

	if err := config.LoadConfig(configPath); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Team directory: Postgres when configured, else the teams map from config
	var entries []db.TeamEntry
	if config.App.TeamsDatabaseURL != "" {
		pg, err := sql.Open("postgres", config.App.TeamsDatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to teams database: %v", err)
		}
		defer pg.Close()

		// Test database connection
		if err := pg.Ping(); err != nil {
			log.Fatalf("Failed to ping teams database: %v", err)
		}
		log.Println("  Connected to teams database successfully")

		entries, err = db.LoadTeamEntries(pg)
		if err != nil {
			log.Fatalf("Failed to load teams: %v", err)
		}
	} else {
		entries = config.App.TeamEntries()
	}
	log.Printf("  Loaded %d teams", len(entries))

	// Snapshot store: Redis when configured, else a JSON file in the data dir
	var store services.SnapshotStore
	if config.App.RedisURL != "" {
		opts, err := redis.ParseURL(config.App.RedisURL)
		if err != nil {
			log.Fatalf("Failed to parse REDIS_URL: %v", err)
		}
		store = services.NewRedisSnapshotStore(redis.NewClient(opts), services.DefaultSnapshotKey)
	} else {
		store = services.NewFileSnapshotStore(filepath.Join(config.App.DataDir, services.DefaultSnapshotFile))
	}
	log.Printf("  Snapshot store: %s", store.Location())

	// Initialize services
	directory := services.NewDirectory(entries)
	client := ocm.NewClient(config.App.OCMBaseURL)
	cacheService := services.NewCacheService(directory, client, store, config.App.CacheTTLHours, config.App.CacheWindowMonths)

	// Initialize workers
	cacheWarmer := workers.NewCacheWarmer(cacheService, config.App.CacheWarmIntervalMinutes)

	// Start workers in separate goroutines
	var wg sync.WaitGroup

	// Start cache warmer
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Println("Starting cache warmer...")
		cacheWarmer.StartCacheWarmer()
	}()

	// Wait for interrupt signal
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	log.Println("Workers started successfully. Press Ctrl+C to stop.")
	<-c

	log.Println("Shutting down workers...")
	// Workers will stop when main goroutine exits
}
