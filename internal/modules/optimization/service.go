package optimization

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/capacity-planner/internal/domain"
	"github.com/aristath/capacity-planner/internal/events"
	"github.com/aristath/capacity-planner/internal/metrics"
	"github.com/aristath/capacity-planner/internal/modules/planning"
	"github.com/aristath/capacity-planner/internal/utils"
)

const moduleName = "optimization"

// Archiver copies a committed run snapshot to long-term storage and returns where it went
type Archiver interface {
	Archive(ctx context.Context, run domain.OptimizationRun) (string, error)
}

// Service runs the optimizer against stored planning periods and commits the result
type Service struct {
	loader    *planning.Loader
	store     domain.AssignmentStore
	optimizer *Optimizer
	events    *events.Manager
	archiver  Archiver
	locks     *periodLocks
	now       func() time.Time
	log       zerolog.Logger
}

// NewService creates the optimization service
func NewService(loader *planning.Loader, store domain.AssignmentStore, eventManager *events.Manager, log zerolog.Logger) *Service {
	return &Service{
		loader:    loader,
		store:     store,
		optimizer: NewOptimizer(log),
		events:    eventManager,
		locks:     newPeriodLocks(),
		now:       time.Now,
		log:       log.With().Str("service", "optimization").Logger(),
	}
}

// SetArchiver enables snapshot archiving after each committed run
func (s *Service) SetArchiver(a Archiver) {
	s.archiver = a
}

// CalculateOptimalAllocations loads a period, optimizes it and commits every calculated
// assignment together with the run record. Runs of the same period are serialized.
// The returned error is always a *RunError; nothing is written when it is non-nil.
func (s *Service) CalculateOptimalAllocations(ctx context.Context, periodID int64) (*OptimizationResult, error) {
	unlock := s.locks.lock(periodID)
	defer unlock()

	timer := utils.NewTimer("optimize_period", 5*time.Second, s.log)

	result, run, err := s.run(ctx, periodID)
	if err != nil {
		runErr := Classify(periodID, err)
		s.fail(runErr)
		return nil, runErr
	}

	duration := timer.Stop()
	s.record(result, duration)
	s.archive(ctx, *run)

	s.log.Info().
		Str("run_id", result.RunID).
		Int64("period_id", periodID).
		Int("calculations", len(result.Calculations)).
		Int("infeasible", len(result.InfeasibleProjects)).
		Int("warnings", len(result.Warnings)).
		Dur("duration", duration).
		Msg("Optimization run committed")

	return result, nil
}

func (s *Service) run(ctx context.Context, periodID int64) (*OptimizationResult, *domain.OptimizationRun, error) {
	plan, err := s.loader.Load(ctx, periodID)
	if err != nil {
		return nil, nil, err
	}

	result, err := s.optimizer.Optimize(BuildInput(plan))
	if err != nil {
		return nil, nil, err
	}
	result.RunID = uuid.New().String()
	result.CalculatedAt = s.now().UTC().Truncate(time.Second)

	snapshot, err := EncodeSnapshot(result)
	if err != nil {
		return nil, nil, err
	}
	run := domain.OptimizationRun{
		ID:               result.RunID,
		PlanningPeriodID: periodID,
		CalculatedAt:     result.CalculatedAt,
		Snapshot:         snapshot,
	}
	if err := s.store.SaveCalculations(ctx, run, result.Calculations); err != nil {
		return nil, nil, err
	}
	return result, &run, nil
}

// LatestRun returns the result of the last committed run of a period
func (s *Service) LatestRun(ctx context.Context, periodID int64) (*OptimizationResult, error) {
	run, err := s.store.GetLatestRun(ctx, periodID)
	if err != nil {
		return nil, err
	}
	result, err := DecodeSnapshot(run.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to decode run %s: %w", run.ID, err)
	}
	return result, nil
}

// BuildInput flattens a loaded plan into optimizer input
func BuildInput(plan *planning.Plan) Input {
	projectNames := make(map[int64]string, len(plan.Projects))
	for id, p := range plan.Projects {
		projectNames[id] = p.Name
	}
	personNames := make(map[int64]string, len(plan.People))
	for id, p := range plan.People {
		personNames[id] = p.Name
	}
	return Input{
		Period:       plan.Period,
		Assignments:  plan.Assignments,
		Requirements: plan.Requirements,
		ProjectNames: projectNames,
		PersonNames:  personNames,
		NetHours:     plan.NetHours(),
	}
}

// EncodeSnapshot serializes a result for the run audit record.
// Field names follow the JSON tags so archived snapshots read the same as API responses.
func EncodeSnapshot(result *OptimizationResult) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(result); err != nil {
		return nil, fmt.Errorf("failed to encode run snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeSnapshot reverses EncodeSnapshot
func DecodeSnapshot(data []byte) (*OptimizationResult, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	var result OptimizationResult
	if err := dec.Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode run snapshot: %w", err)
	}
	return &result, nil
}

func (s *Service) record(result *OptimizationResult, duration time.Duration) {
	period := strconv.FormatInt(result.PlanningPeriodID, 10)

	metrics.OptimizationRunsTotal.WithLabelValues("success").Inc()
	metrics.OptimizationDurationSeconds.Observe(duration.Seconds())
	metrics.AssignmentsCalculated.WithLabelValues(period).Set(float64(len(result.Calculations)))
	metrics.InfeasibleProjects.WithLabelValues(period).Set(float64(len(result.InfeasibleProjects)))
	metrics.OptimizationWarningsTotal.Add(float64(len(result.Warnings)))

	shortfall := map[domain.Priority]float64{
		domain.PriorityLow: 0, domain.PriorityMedium: 0, domain.PriorityHigh: 0, domain.PriorityBlocker: 0,
	}
	for _, p := range result.InfeasibleProjects {
		shortfall[p.Priority] += p.Shortfall
	}
	for priority, hours := range shortfall {
		metrics.ShortfallHours.WithLabelValues(period, priority.String()).Set(hours)
	}

	s.events.Emit(moduleName, &events.OptimizationCompletedData{
		RunID:              result.RunID,
		PlanningPeriodID:   result.PlanningPeriodID,
		Calculations:       len(result.Calculations),
		InfeasibleProjects: len(result.InfeasibleProjects),
		Warnings:           len(result.Warnings),
		DurationMs:         duration.Milliseconds(),
	})
	for _, p := range result.InfeasibleProjects {
		s.events.Emit(moduleName, &events.ProjectUnderStaffedData{
			RunID:               result.RunID,
			PlanningPeriodID:    result.PlanningPeriodID,
			ProjectID:           p.ProjectID,
			ProjectName:         p.ProjectName,
			Priority:            p.Priority.String(),
			Shortfall:           p.Shortfall,
			ShortfallPercentage: p.ShortfallPercentage,
		})
	}
	for _, personID := range result.OverCommittedPeople {
		s.events.Emit(moduleName, &events.PersonOverCommittedData{
			RunID:            result.RunID,
			PlanningPeriodID: result.PlanningPeriodID,
			PersonID:         personID,
		})
	}
}

func (s *Service) fail(err *RunError) {
	metrics.OptimizationRunsTotal.WithLabelValues(string(err.Kind)).Inc()

	s.log.Error().
		Err(err).
		Int64("period_id", err.PeriodID).
		Str("kind", string(err.Kind)).
		Msg("Optimization run failed")

	s.events.Emit(moduleName, &events.OptimizationFailedData{
		PlanningPeriodID: err.PeriodID,
		Kind:             string(err.Kind),
		Error:            err.Error(),
	})
}

// archive runs after the commit; a failed upload never undoes a committed run
func (s *Service) archive(ctx context.Context, run domain.OptimizationRun) {
	if s.archiver == nil {
		return
	}
	location, err := s.archiver.Archive(ctx, run)
	if err != nil {
		metrics.ArchiveUploadsTotal.WithLabelValues("error").Inc()
		s.log.Warn().Err(err).Str("run_id", run.ID).Msg("Failed to archive run snapshot")
		return
	}
	metrics.ArchiveUploadsTotal.WithLabelValues("success").Inc()
	s.events.Emit(moduleName, &events.SnapshotArchivedData{RunID: run.ID, Location: location})
}

// periodLocks hands out one mutex per planning period
type periodLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newPeriodLocks() *periodLocks {
	return &periodLocks{locks: make(map[int64]*sync.Mutex)}
}

func (l *periodLocks) lock(periodID int64) func() {
	l.mu.Lock()
	m, ok := l.locks[periodID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[periodID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
