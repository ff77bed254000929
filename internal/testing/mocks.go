package testing

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aristath/capacity-planner/internal/domain"
)

// MemoryStore is an in-memory implementation of every planner store for unit tests.
// Set Err to make every read fail; set CommitErr to make only SaveCalculations fail.
type MemoryStore struct {
	mu sync.RWMutex

	Periods      map[int64]domain.PlanningPeriod
	People       []domain.Person
	Projects     []domain.Project
	Requirements []domain.ProjectRequirement
	Assignments  []domain.Assignment
	Absences     []domain.Absence
	Holidays     []domain.Holiday
	Commitments  map[int64][]domain.OverheadCommitment
	Runs         []domain.OptimizationRun

	Err       error
	CommitErr error
	Commits   int
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		Periods:     make(map[int64]domain.PlanningPeriod),
		Commitments: make(map[int64][]domain.OverheadCommitment),
	}
}

// GetPeriod implements domain.PeriodStore
func (m *MemoryStore) GetPeriod(ctx context.Context, id int64) (*domain.PlanningPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	p, ok := m.Periods[id]
	if !ok {
		return nil, fmt.Errorf("planning period %d: %w", id, domain.ErrNotFound)
	}
	return &p, nil
}

// ListPeriods implements domain.PeriodStore
func (m *MemoryStore) ListPeriods(ctx context.Context) ([]domain.PlanningPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []domain.PlanningPeriod
	for _, p := range m.Periods {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListActivePeriods implements domain.PeriodStore
func (m *MemoryStore) ListActivePeriods(ctx context.Context, day time.Time) ([]domain.PlanningPeriod, error) {
	all, err := m.ListPeriods(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.PlanningPeriod
	for _, p := range all {
		if p.Range().Contains(day) {
			out = append(out, p)
		}
	}
	return out, nil
}

// GetPerson implements domain.PersonStore
func (m *MemoryStore) GetPerson(ctx context.Context, id int64) (*domain.Person, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, p := range m.People {
		if p.ID == id {
			p := p
			return &p, nil
		}
	}
	return nil, fmt.Errorf("person %d: %w", id, domain.ErrNotFound)
}

// ListPeople implements domain.PersonStore
func (m *MemoryStore) ListPeople(ctx context.Context) ([]domain.Person, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return append([]domain.Person(nil), m.People...), nil
}

// GetProject implements domain.ProjectStore
func (m *MemoryStore) GetProject(ctx context.Context, id int64) (*domain.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, p := range m.Projects {
		if p.ID == id {
			p := p
			return &p, nil
		}
	}
	return nil, fmt.Errorf("project %d: %w", id, domain.ErrNotFound)
}

// ListProjects implements domain.ProjectStore
func (m *MemoryStore) ListProjects(ctx context.Context) ([]domain.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return append([]domain.Project(nil), m.Projects...), nil
}

// ListRequirements implements domain.RequirementStore
func (m *MemoryStore) ListRequirements(ctx context.Context, periodID int64) ([]domain.ProjectRequirement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []domain.ProjectRequirement
	for _, r := range m.Requirements {
		if r.PlanningPeriodID == periodID {
			out = append(out, r)
		}
	}
	return out, nil
}

// GetRequirement implements domain.RequirementStore
func (m *MemoryStore) GetRequirement(ctx context.Context, projectID, periodID int64) (*domain.ProjectRequirement, error) {
	reqs, err := m.ListRequirements(ctx, periodID)
	if err != nil {
		return nil, err
	}
	for _, r := range reqs {
		if r.ProjectID == projectID {
			return &r, nil
		}
	}
	return nil, fmt.Errorf("requirement of project %d: %w", projectID, domain.ErrNotFound)
}

// ListAssignments implements domain.AssignmentStore
func (m *MemoryStore) ListAssignments(ctx context.Context, periodID int64) ([]domain.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []domain.Assignment
	for _, a := range m.Assignments {
		if a.PlanningPeriodID == periodID {
			out = append(out, a)
		}
	}
	return out, nil
}

// SaveCalculations implements domain.AssignmentStore. Unknown and pinned assignments are skipped.
func (m *MemoryStore) SaveCalculations(ctx context.Context, run domain.OptimizationRun, calcs []domain.AssignmentCalculation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if m.CommitErr != nil {
		return m.CommitErr
	}

	byID := make(map[int64]domain.AssignmentCalculation, len(calcs))
	for _, c := range calcs {
		byID[c.AssignmentID] = c
	}
	at := run.CalculatedAt
	for i, a := range m.Assignments {
		c, ok := byID[a.ID]
		if !ok || a.IsPinned {
			continue
		}
		alloc, hours := c.AllocationPercentage, c.EffectiveHours
		m.Assignments[i].CalculatedAllocationPercentage = &alloc
		m.Assignments[i].CalculatedEffectiveHours = &hours
		m.Assignments[i].LastCalculatedAt = &at
	}
	m.Runs = append(m.Runs, run)
	m.Commits++
	return nil
}

// GetLatestRun implements domain.AssignmentStore
func (m *MemoryStore) GetLatestRun(ctx context.Context, periodID int64) (*domain.OptimizationRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for i := len(m.Runs) - 1; i >= 0; i-- {
		if m.Runs[i].PlanningPeriodID == periodID {
			run := m.Runs[i]
			return &run, nil
		}
	}
	return nil, fmt.Errorf("optimization run of period %d: %w", periodID, domain.ErrNotFound)
}

// ListAbsences implements domain.AbsenceStore
func (m *MemoryStore) ListAbsences(ctx context.Context, r domain.DateRange) ([]domain.Absence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []domain.Absence
	for _, a := range m.Absences {
		if _, ok := r.Intersect(a.Range()); ok {
			out = append(out, a)
		}
	}
	return out, nil
}

// ListHolidays implements domain.HolidayStore
func (m *MemoryStore) ListHolidays(ctx context.Context, r domain.DateRange) ([]domain.Holiday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []domain.Holiday
	for _, h := range m.Holidays {
		if _, ok := r.Intersect(h.Range()); ok {
			out = append(out, h)
		}
	}
	return out, nil
}

// ListCommitments implements domain.OverheadStore
func (m *MemoryStore) ListCommitments(ctx context.Context, periodID int64) (map[int64][]domain.OverheadCommitment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make(map[int64][]domain.OverheadCommitment, len(m.Commitments))
	for k, v := range m.Commitments {
		out[k] = append([]domain.OverheadCommitment(nil), v...)
	}
	return out, nil
}

// SetErr changes the injected read error under the store lock
func (m *MemoryStore) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}
