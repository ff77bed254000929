package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/capacity-planner/internal/config"
	"github.com/aristath/capacity-planner/internal/database"
)

// InitializeDatabase opens capacity.db and applies the schema
func InitializeDatabase(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	db, err := database.New(database.Config{
		Path:    cfg.DatabasePath(),
		Profile: database.ProfileStandard,
		Name:    "capacity",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize capacity database: %w", err)
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate capacity database: %w", err)
	}

	log.Info().Str("path", db.Path()).Msg("Database initialized")

	return &Container{DataDir: cfg.DataDir, DB: db}, nil
}
