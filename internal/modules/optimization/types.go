package optimization

import (
	"time"

	"github.com/aristath/capacity-planner/internal/domain"
)

// StaffedThreshold is the staffing percentage treated as fully staffed
const StaffedThreshold = 99.95

// Input is everything one optimization run reads
type Input struct {
	Period       domain.PlanningPeriod
	Assignments  []domain.Assignment
	Requirements []domain.ProjectRequirement
	ProjectNames map[int64]string
	PersonNames  map[int64]string
	// NetHours holds net available hours of each assignment's person over the
	// assignment range, keyed by assignment id
	NetHours map[int64]float64
}

// OptimizationResult is the outcome of a successful run.
// Infeasible projects and warnings are data, not failures.
type OptimizationResult struct {
	RunID              string                         `json:"run_id,omitempty"`
	PlanningPeriodID   int64                          `json:"planning_period_id"`
	Success            bool                           `json:"success"`
	Calculations       []domain.AssignmentCalculation `json:"calculations"`
	InfeasibleProjects []ProjectShortfall             `json:"infeasible_projects"`
	Warnings           []string                       `json:"warnings"`

	// OverCommittedPeople lists people whose pinned assignments alone exceed their time
	OverCommittedPeople []int64   `json:"over_committed_people"`
	CalculatedAt        time.Time `json:"calculated_at"`
}

// ProjectShortfall reports a project whose requirement could not be met
type ProjectShortfall struct {
	ProjectID              int64           `json:"project_id"`
	ProjectName            string          `json:"project_name"`
	Priority               domain.Priority `json:"priority"`
	RequiredHours          float64         `json:"required_hours"`
	AchievedEffectiveHours float64         `json:"available_effective_hours"`
	Shortfall              float64         `json:"shortfall"`
	ShortfallPercentage    float64         `json:"shortfall_percentage"`
}
