package router

import (
	"database/sql"
	"log"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/phonginreallife/ocmwrap/db"
	"github.com/phonginreallife/ocmwrap/handlers"
	"github.com/phonginreallife/ocmwrap/internal/config"
	"github.com/phonginreallife/ocmwrap/internal/ocm"
	"github.com/phonginreallife/ocmwrap/services"
)

func NewGinRouter(pg *sql.DB, redisClient *redis.Client) *gin.Engine {
	r := gin.Default()

	// Add CORS middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Team directory: Postgres when connected, else the teams map from config
	var entries []db.TeamEntry
	if pg != nil {
		loaded, err := db.LoadTeamEntries(pg)
		if err != nil {
			log.Printf("⚠️ Failed to load teams from database, falling back to config: %v", err)
		} else {
			entries = loaded
			log.Printf("✅ Loaded %d teams from database", len(entries))
		}
	}
	if entries == nil {
		entries = config.App.TeamEntries()
		log.Printf("✅ Loaded %d teams from config", len(entries))
	}
	directory := services.NewDirectory(entries)

	// Snapshot storage: Redis when connected (shared across replicas), else a
	// JSON file under the data dir
	var store services.SnapshotStore
	if redisClient != nil {
		store = services.NewRedisSnapshotStore(redisClient, services.DefaultSnapshotKey)
	} else {
		store = services.NewFileSnapshotStore(filepath.Join(config.App.DataDir, services.DefaultSnapshotFile))
	}
	log.Printf("[Cache] Snapshot store: %s", store.Location())

	// Initialize services
	client := ocm.NewClient(config.App.OCMBaseURL)
	scheduleService := services.NewScheduleService(directory, client)
	cacheService := services.NewCacheService(directory, client, store, config.App.CacheTTLHours, config.App.CacheWindowMonths)

	// Initialize handlers
	scheduleHandler := handlers.NewScheduleHandler(scheduleService, cacheService)

	// Initialize middleware
	authMiddleware := handlers.NewAPIAuthMiddleware(services.NewAPIAuthService(config.App.APIJWTSecret))

	// PUBLIC ENDPOINTS (no authentication required)

	// Health check endpoint
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// PROTECTED ENDPOINTS (bearer auth enforced when API_JWT_SECRET is set)
	protected := r.Group("/")
	protected.Use(authMiddleware.RequireAuth())
	{
		// SCHEDULE RESOLUTION
		protected.POST("/getSchedule", scheduleHandler.GetSchedule)

		// ON-CALL LOOKUPS
		oncallRoutes := protected.Group("/oncall")
		{
			oncallRoutes.GET("/upcoming", scheduleHandler.GetUpcoming)
			oncallRoutes.GET("/next", scheduleHandler.GetNextOnCall)
		}

		// SNAPSHOT MANAGEMENT
		cacheRoutes := protected.Group("/cache")
		{
			cacheRoutes.POST("/refresh", scheduleHandler.RefreshCache)
		}
	}

	return r
}
