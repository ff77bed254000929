package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/capacity-planner/internal/config"
	"github.com/aristath/capacity-planner/internal/reliability"
	"github.com/aristath/capacity-planner/internal/scheduler"
)

// RegisterJobs creates the background jobs and schedules the ones with a cron spec.
// The scheduler is returned unstarted.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	jobs := &JobInstances{
		Scheduler: scheduler.New(log),
		ReoptimizePeriods: scheduler.NewReoptimizeActivePeriodsJob(
			container.PeriodRepo,
			container.OptimizationService,
			log,
		),
		DailyMaintenance: reliability.NewDailyMaintenanceJob(
			container.DB,
			container.AssignmentRepo,
			cfg.RunRetention,
			cfg.DataDir,
			log,
		),
	}

	if cfg.OptimizeSchedule != "" {
		if err := jobs.Scheduler.AddJob(cfg.OptimizeSchedule, jobs.ReoptimizePeriods); err != nil {
			return nil, fmt.Errorf("invalid OPTIMIZE_SCHEDULE: %w", err)
		}
	}
	if cfg.MaintenanceSchedule != "" {
		if err := jobs.Scheduler.AddJob(cfg.MaintenanceSchedule, jobs.DailyMaintenance); err != nil {
			return nil, fmt.Errorf("invalid MAINTENANCE_SCHEDULE: %w", err)
		}
	}

	return jobs, nil
}
