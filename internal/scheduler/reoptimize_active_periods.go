package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/capacity-planner/internal/domain"
	"github.com/aristath/capacity-planner/internal/modules/optimization"
)

// PeriodLister finds the planning periods that contain a given day
type PeriodLister interface {
	ListActivePeriods(ctx context.Context, day time.Time) ([]domain.PlanningPeriod, error)
}

// PeriodOptimizer recalculates one planning period
type PeriodOptimizer interface {
	CalculateOptimalAllocations(ctx context.Context, periodID int64) (*optimization.OptimizationResult, error)
}

// ReoptimizeActivePeriodsJob recalculates every period that is running today,
// so allocations follow absences and overheads entered since the last run.
type ReoptimizeActivePeriodsJob struct {
	periods   PeriodLister
	optimizer PeriodOptimizer
	timeout   time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

// NewReoptimizeActivePeriodsJob creates a new ReoptimizeActivePeriodsJob
func NewReoptimizeActivePeriodsJob(periods PeriodLister, optimizer PeriodOptimizer, log zerolog.Logger) *ReoptimizeActivePeriodsJob {
	return &ReoptimizeActivePeriodsJob{
		periods:   periods,
		optimizer: optimizer,
		timeout:   5 * time.Minute,
		now:       time.Now,
		log:       log.With().Str("job", "reoptimize_active_periods").Logger(),
	}
}

// Name returns the job name
func (j *ReoptimizeActivePeriodsJob) Name() string {
	return "reoptimize_active_periods"
}

// Run executes the job. One failing period does not stop the others.
func (j *ReoptimizeActivePeriodsJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	periods, err := j.periods.ListActivePeriods(ctx, j.now())
	if err != nil {
		return fmt.Errorf("failed to list active periods: %w", err)
	}

	var errs []error
	optimized := 0
	for _, p := range periods {
		result, err := j.optimizer.CalculateOptimalAllocations(ctx, p.ID)
		if err != nil {
			j.log.Warn().Err(err).Int64("period_id", p.ID).Msg("Scheduled optimization failed")
			errs = append(errs, err)
			continue
		}
		optimized++
		j.log.Debug().
			Int64("period_id", p.ID).
			Str("run_id", result.RunID).
			Int("infeasible", len(result.InfeasibleProjects)).
			Msg("Period re-optimized")
	}

	j.log.Info().
		Int("active", len(periods)).
		Int("optimized", optimized).
		Msg("Active periods re-optimized")

	return errors.Join(errs...)
}
