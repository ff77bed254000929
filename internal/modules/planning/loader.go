package planning

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/aristath/capacity-planner/internal/domain"
	"github.com/aristath/capacity-planner/internal/modules/deductions"
)

// ErrMalformedPeriod is returned when a stored period starts after it ends
var ErrMalformedPeriod = errors.New("planning period starts after it ends")

// Stores groups the read stores a Plan is loaded from
type Stores struct {
	Periods      domain.PeriodStore
	People       domain.PersonStore
	Projects     domain.ProjectStore
	Requirements domain.RequirementStore
	Assignments  domain.AssignmentStore
	Absences     domain.AbsenceStore
	Holidays     domain.HolidayStore
	Overheads    domain.OverheadStore
}

// Loader reads a planning period and everything it references
type Loader struct {
	stores Stores
	log    zerolog.Logger
}

// NewLoader creates a plan loader
func NewLoader(stores Stores, log zerolog.Logger) *Loader {
	return &Loader{
		stores: stores,
		log:    log.With().Str("service", "planning_loader").Logger(),
	}
}

// Load builds the Plan of a period.
// A missing period wraps domain.ErrNotFound; an inverted one wraps ErrMalformedPeriod.
func (l *Loader) Load(ctx context.Context, periodID int64) (*Plan, error) {
	period, err := l.stores.Periods.GetPeriod(ctx, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to load planning period %d: %w", periodID, err)
	}
	if !period.Range().Valid() {
		return nil, fmt.Errorf("%w: period %d (%s)", ErrMalformedPeriod, periodID, period.Range())
	}

	people, err := l.stores.People.ListPeople(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load people: %w", err)
	}
	projects, err := l.stores.Projects.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load projects: %w", err)
	}
	requirements, err := l.stores.Requirements.ListRequirements(ctx, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to load requirements: %w", err)
	}
	assignments, err := l.stores.Assignments.ListAssignments(ctx, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to load assignments: %w", err)
	}
	absences, err := l.stores.Absences.ListAbsences(ctx, period.Range())
	if err != nil {
		return nil, fmt.Errorf("failed to load absences: %w", err)
	}
	holidays, err := l.stores.Holidays.ListHolidays(ctx, period.Range())
	if err != nil {
		return nil, fmt.Errorf("failed to load holidays: %w", err)
	}
	commitments, err := l.stores.Overheads.ListCommitments(ctx, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to load overhead commitments: %w", err)
	}

	sort.Slice(assignments, func(i, j int) bool { return assignments[i].ID < assignments[j].ID })
	sort.Slice(requirements, func(i, j int) bool { return requirements[i].ProjectID < requirements[j].ProjectID })

	plan := &Plan{
		Period:       *period,
		People:       make(map[int64]domain.Person, len(people)),
		Projects:     make(map[int64]domain.Project, len(projects)),
		Requirements: requirements,
		Assignments:  assignments,
		Resolver:     deductions.NewResolver(deductions.NewSnapshot(absences, holidays, commitments)),
	}
	for _, p := range people {
		plan.People[p.ID] = p
	}
	for _, p := range projects {
		plan.Projects[p.ID] = p
	}

	l.log.Debug().
		Int64("period_id", periodID).
		Int("assignments", len(assignments)).
		Int("requirements", len(requirements)).
		Int("absences", len(absences)).
		Int("holidays", len(holidays)).
		Msg("Loaded planning period")

	return plan, nil
}
