package di

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/capacity-planner/internal/config"
	"github.com/aristath/capacity-planner/internal/events"
	"github.com/aristath/capacity-planner/internal/modules/optimization"
	"github.com/aristath/capacity-planner/internal/modules/planning"
	"github.com/aristath/capacity-planner/internal/modules/rollup"
	"github.com/aristath/capacity-planner/internal/reliability"
)

// InitializeServices creates the services on top of the repositories
func InitializeServices(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	container.EventManager = events.NewManager(log)
	container.PlanLoader = planning.NewLoader(container.Stores(), log)

	container.OptimizationService = optimization.NewService(
		container.PlanLoader,
		container.AssignmentRepo,
		container.EventManager,
		log,
	)
	container.RollupService = rollup.NewService(container.PlanLoader, cfg.NearCapacityThreshold, log)

	if cfg.Archive.Enabled() {
		archive, err := reliability.NewSnapshotArchive(ctx, cfg.Archive, log)
		if err != nil {
			return fmt.Errorf("failed to initialize snapshot archive: %w", err)
		}
		container.SnapshotArchive = archive
		container.OptimizationService.SetArchiver(archive)
		log.Info().Str("bucket", cfg.Archive.Bucket).Msg("Run snapshot archiving enabled")
	}

	return nil
}
