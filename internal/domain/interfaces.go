package domain

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by stores when a requested record does not exist
var ErrNotFound = errors.New("record not found")

// PeriodStore reads planning periods
type PeriodStore interface {
	GetPeriod(ctx context.Context, id int64) (*PlanningPeriod, error)
	ListPeriods(ctx context.Context) ([]PlanningPeriod, error)
	// ListActivePeriods returns periods whose range contains day
	ListActivePeriods(ctx context.Context, day time.Time) ([]PlanningPeriod, error)
}

// PersonStore reads people
type PersonStore interface {
	GetPerson(ctx context.Context, id int64) (*Person, error)
	ListPeople(ctx context.Context) ([]Person, error)
}

// ProjectStore reads projects
type ProjectStore interface {
	GetProject(ctx context.Context, id int64) (*Project, error)
	ListProjects(ctx context.Context) ([]Project, error)
}

// RequirementStore reads per-period project requirements
type RequirementStore interface {
	ListRequirements(ctx context.Context, periodID int64) ([]ProjectRequirement, error)
	GetRequirement(ctx context.Context, projectID, periodID int64) (*ProjectRequirement, error)
}

// AssignmentCalculation is the optimizer output for one unpinned assignment
type AssignmentCalculation struct {
	AssignmentID         int64   `json:"assignment_id"`
	AllocationPercentage float64 `json:"calculated_allocation_percentage"`
	EffectiveHours       float64 `json:"calculated_effective_hours"`
}

// OptimizationRun is the audit record committed together with a run's calculations
type OptimizationRun struct {
	ID               string    `json:"id"`
	PlanningPeriodID int64     `json:"planning_period_id"`
	CalculatedAt     time.Time `json:"calculated_at"`
	Snapshot         []byte    `json:"-"`
}

// AssignmentStore reads assignments and owns the write-back of calculated fields.
// SaveCalculations must commit every calculation and the run record atomically.
type AssignmentStore interface {
	ListAssignments(ctx context.Context, periodID int64) ([]Assignment, error)
	SaveCalculations(ctx context.Context, run OptimizationRun, calcs []AssignmentCalculation) error
	GetLatestRun(ctx context.Context, periodID int64) (*OptimizationRun, error)
}

// AbsenceStore reads absences overlapping a date range
type AbsenceStore interface {
	ListAbsences(ctx context.Context, r DateRange) ([]Absence, error)
}

// HolidayStore reads holidays overlapping a date range
type HolidayStore interface {
	ListHolidays(ctx context.Context, r DateRange) ([]Holiday, error)
}

// OverheadStore reads the recurring commitments of every person for a period
type OverheadStore interface {
	ListCommitments(ctx context.Context, periodID int64) (map[int64][]OverheadCommitment, error)
}
