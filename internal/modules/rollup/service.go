package rollup

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/aristath/capacity-planner/internal/domain"
	"github.com/aristath/capacity-planner/internal/metrics"
	"github.com/aristath/capacity-planner/internal/modules/planning"
)

// Service answers capacity queries from the last committed optimization state
type Service struct {
	loader       *planning.Loader
	nearCapacity float64
	log          zerolog.Logger
}

// NewService creates the rollup service. A non-positive threshold falls back to DefaultNearCapacityThreshold.
func NewService(loader *planning.Loader, nearCapacity float64, log zerolog.Logger) *Service {
	if nearCapacity <= 0 {
		nearCapacity = DefaultNearCapacityThreshold
	}
	return &Service{
		loader:       loader,
		nearCapacity: nearCapacity,
		log:          log.With().Str("service", "rollup").Logger(),
	}
}

// CapacityOverview builds the period-wide view
func (s *Service) CapacityOverview(ctx context.Context, periodID int64) (*CapacityOverview, error) {
	plan, err := s.loader.Load(ctx, periodID)
	if err != nil {
		return nil, err
	}

	ov := BuildOverview(plan, s.nearCapacity)
	metrics.OverCommittedPeople.WithLabelValues(strconv.FormatInt(periodID, 10)).Set(float64(ov.OverCommittedPeople))

	s.log.Debug().
		Int64("period_id", periodID).
		Int("people", ov.TotalPeople).
		Int("projects", ov.TotalProjects).
		Int("over_committed", ov.OverCommittedPeople).
		Msg("Built capacity overview")
	return &ov, nil
}

// PersonCapacity builds one person's view
func (s *Service) PersonCapacity(ctx context.Context, periodID, personID int64) (*PersonCapacity, error) {
	plan, err := s.loader.Load(ctx, periodID)
	if err != nil {
		return nil, err
	}
	pc, ok := BuildPersonCapacity(plan, personID, s.nearCapacity)
	if !ok {
		return nil, fmt.Errorf("person %d: %w", personID, domain.ErrNotFound)
	}
	return &pc, nil
}

// ProjectStaffing builds one project's view. Projects without a requirement in the period are not found.
func (s *Service) ProjectStaffing(ctx context.Context, periodID, projectID int64) (*ProjectStaffing, error) {
	plan, err := s.loader.Load(ctx, periodID)
	if err != nil {
		return nil, err
	}
	req, ok := plan.Requirement(projectID)
	if !ok {
		return nil, fmt.Errorf("requirement of project %d in period %d: %w", projectID, periodID, domain.ErrNotFound)
	}
	ps := BuildProjectStaffing(plan, req)
	return &ps, nil
}
