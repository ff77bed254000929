// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/aristath/capacity-planner/internal/modules/rollup"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Directory holding capacity.db (always absolute)
	LogLevel string
	Port     int
	DevMode  bool

	// OptimizeSchedule is a cron spec for re-optimizing active periods; empty disables it
	OptimizeSchedule      string
	MaintenanceSchedule   string
	NearCapacityThreshold float64
	RunRetention          int // Optimization runs kept per period
	Archive               ArchiveConfig
}

// ArchiveConfig configures the optional S3 archive of run snapshots.
// Archiving is disabled when Bucket is empty.
type ArchiveConfig struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string // Custom endpoint for S3-compatible stores
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// Enabled reports whether run snapshots should be archived
func (a ArchiveConfig) Enabled() bool {
	return a.Bucket != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("CAPACITY_DATA_DIR", "./data")

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:               absDataDir,
		Port:                  getEnvAsInt("PORT", 8080),
		DevMode:               getEnvAsBool("DEV_MODE", false),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		OptimizeSchedule:      getEnv("OPTIMIZE_SCHEDULE", ""),
		MaintenanceSchedule:   getEnv("MAINTENANCE_SCHEDULE", "0 3 * * *"),
		NearCapacityThreshold: getEnvAsFloat("NEAR_CAPACITY_THRESHOLD", rollup.DefaultNearCapacityThreshold),
		RunRetention:          getEnvAsInt("RUN_RETENTION", 20),
		Archive: ArchiveConfig{
			Bucket:          getEnv("ARCHIVE_S3_BUCKET", ""),
			Prefix:          getEnv("ARCHIVE_S3_PREFIX", "capacity-runs"),
			Region:          getEnv("ARCHIVE_S3_REGION", "us-east-1"),
			Endpoint:        getEnv("ARCHIVE_S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("ARCHIVE_S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("ARCHIVE_S3_SECRET_ACCESS_KEY", ""),
			UsePathStyle:    getEnvAsBool("ARCHIVE_S3_PATH_STYLE", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is usable
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.NearCapacityThreshold <= 0 {
		return fmt.Errorf("near capacity threshold must be positive, got %v", c.NearCapacityThreshold)
	}
	if c.RunRetention < 1 {
		return fmt.Errorf("run retention must be at least 1, got %d", c.RunRetention)
	}
	// Static credentials come in pairs
	if (c.Archive.AccessKeyID == "") != (c.Archive.SecretAccessKey == "") {
		return fmt.Errorf("ARCHIVE_S3_ACCESS_KEY_ID and ARCHIVE_S3_SECRET_ACCESS_KEY must be set together")
	}
	return nil
}

// DatabasePath returns the sqlite file inside the data directory
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "capacity.db")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
