package config

import (
	"log"
	"os"
	"sort"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/phonginreallife/ocmwrap/db"
)

// TeamConfig is one team directory entry as written in the config file.
type TeamConfig struct {
	CredentialRef string   `mapstructure:"credential_ref"`
	Groups        []string `mapstructure:"groups"`
}

// Config holds all application configuration
type Config struct {
	Port             string `mapstructure:"port"`
	OCMBaseURL       string `mapstructure:"ocm_base_url"`
	RedisURL         string `mapstructure:"redis_url"`
	TeamsDatabaseURL string `mapstructure:"teams_database_url"`
	APIJWTSecret     string `mapstructure:"api_jwt_secret"`

	// Data storage
	DataDir string `mapstructure:"data_dir"`

	// Snapshot cache
	CacheTTLHours            int `mapstructure:"cache_ttl_hours"`
	CacheWindowMonths        int `mapstructure:"cache_window_months"`
	CacheWarmIntervalMinutes int `mapstructure:"cache_warm_interval_minutes"`

	// Team directory (file-based deployments; TEAMS_DATABASE_URL overrides)
	Teams map[string]TeamConfig `mapstructure:"teams"`
}

// App holds the global config instance
var App Config

// LoadConfig loads configuration from file and environment variables
func LoadConfig(path string) error {
	// Auto-load .env file if present (Local Development Convenience)
	// This makes 'go run' work without manually exporting env vars
	if err := godotenv.Load(); err != nil {
		// Ignore error if .env doesn't exist (e.g. in Production/Docker)
	} else {
		log.Println("✅ Loaded .env file")
	}

	v := viper.New()

	// Set default values
	v.SetDefault("port", "8080")
	v.SetDefault("ocm_base_url", "https://oncallmanager.ibm.com")
	v.SetDefault("data_dir", "./data")
	v.SetDefault("cache_ttl_hours", 6)
	v.SetDefault("cache_window_months", 3)
	v.SetDefault("cache_warm_interval_minutes", 30)

	// Config file settings
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.SetConfigName("ocmwrap")
		v.SetConfigType("yaml")
	}

	// Environment variable settings
	v.SetEnvPrefix("ocmwrap")

	// Bind standard environment variables (Docker/deploy compatibility)
	// This allows using standard keys like PORT instead of ocmwrap_PORT
	_ = v.BindEnv("port", "PORT")
	_ = v.BindEnv("ocm_base_url", "OCM_BASE_URL")
	_ = v.BindEnv("redis_url", "REDIS_URL")
	_ = v.BindEnv("teams_database_url", "TEAMS_DATABASE_URL")
	_ = v.BindEnv("api_jwt_secret", "API_JWT_SECRET")
	_ = v.BindEnv("data_dir", "DATA_DIR")
	_ = v.BindEnv("cache_ttl_hours", "CACHE_TTL_HOURS")
	_ = v.BindEnv("cache_window_months", "CACHE_WINDOW_MONTHS")
	_ = v.BindEnv("cache_warm_interval_minutes", "CACHE_WARM_INTERVAL_MINUTES")

	v.AutomaticEnv()

	// 1. Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("ℹ️  No config file found, using defaults and environment variables")
		} else {
			return err
		}
	} else {
		log.Printf("✅ Loaded config from: %s", v.ConfigFileUsed())
	}

	// 2. Unmarshal into struct
	if err := v.Unmarshal(&App); err != nil {
		return err
	}

	// 3. Backfill environment variables for code that still uses os.Getenv()
	setEnvIfEmpty("PORT", App.Port)
	setEnvIfEmpty("OCM_BASE_URL", App.OCMBaseURL)
	setEnvIfEmpty("REDIS_URL", App.RedisURL)
	setEnvIfEmpty("TEAMS_DATABASE_URL", App.TeamsDatabaseURL)
	setEnvIfEmpty("DATA_DIR", App.DataDir)

	return nil
}

// TeamEntries converts the configured team map into directory entries, ordered
// by team name so resolution precedence is deterministic.
func (c Config) TeamEntries() []db.TeamEntry {
	names := make([]string, 0, len(c.Teams))
	for name := range c.Teams {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]db.TeamEntry, 0, len(names))
	for _, name := range names {
		team := c.Teams[name]
		entries = append(entries, db.TeamEntry{
			Name:          name,
			CredentialRef: team.CredentialRef,
			Groups:        team.Groups,
		})
	}
	return entries
}

func setEnvIfEmpty(key, value string) {
	if value != "" && os.Getenv(key) == "" {
		os.Setenv(key, value)
	}
}
