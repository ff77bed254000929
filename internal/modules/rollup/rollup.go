// Package rollup aggregates committed allocations into per-person, per-project and
// period-wide capacity views. It only reads stored state and never runs the optimizer.
package rollup

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/aristath/capacity-planner/internal/domain"
	"github.com/aristath/capacity-planner/internal/modules/deductions"
	"github.com/aristath/capacity-planner/internal/modules/planning"
)

// DefaultNearCapacityThreshold is the utilization percentage from which a person counts as near capacity
const DefaultNearCapacityThreshold = 85.0

// viableThreshold matches the optimizer's fully staffed tolerance
const viableThreshold = 99.95

// AssignmentSummary is one assignment as seen from the assigned person
type AssignmentSummary struct {
	AssignmentID         int64   `json:"assignment_id"`
	ProjectID            int64   `json:"project_id"`
	ProjectName          string  `json:"project_name"`
	IsPinned             bool    `json:"is_pinned"`
	AllocationPercentage float64 `json:"allocation_percentage"`
	ProductivityFactor   float64 `json:"productivity_factor"`
	AvailableHours       float64 `json:"available_hours"`
	AllocatedHours       float64 `json:"allocated_hours"`
	EffectiveHours       float64 `json:"effective_hours"`
}

// PersonCapacity is a person's load over a planning period
type PersonCapacity struct {
	PersonID              int64               `json:"person_id"`
	PersonName            string              `json:"person_name"`
	PersonEmail           string              `json:"person_email"`
	TotalAvailableHours   float64             `json:"total_available_hours"`
	TotalAllocatedHours   float64             `json:"total_allocated_hours"`
	TotalEffectiveHours   float64             `json:"total_effective_hours"`
	UtilizationPercentage float64             `json:"utilization_percentage"`
	IsOverCommitted       bool                `json:"is_over_committed"`
	IsNearCapacity        bool                `json:"is_near_capacity"`
	Assignments           []AssignmentSummary `json:"assignments"`

	BaseAvailableHours    float64 `json:"base_available_hours"`
	WorkingDays           int     `json:"working_days"`
	AbsenceDays           int     `json:"absence_days"`
	AbsenceHours          float64 `json:"absence_hours"`
	HolidayDays           int     `json:"holiday_days"`
	HolidayHours          float64 `json:"holiday_hours"`
	OverheadHours         float64 `json:"overhead_hours"`
	OptionalOverheadHours float64 `json:"optional_overhead_hours"`

	LastCalculatedAt *time.Time `json:"last_calculated_at,omitempty"`
}

// PersonAssignmentSummary is one assignment as seen from the project
type PersonAssignmentSummary struct {
	AssignmentID          int64   `json:"assignment_id"`
	PersonID              int64   `json:"person_id"`
	PersonName            string  `json:"person_name"`
	IsPinned              bool    `json:"is_pinned"`
	AllocationPercentage  float64 `json:"allocation_percentage"`
	ProductivityFactor    float64 `json:"productivity_factor"`
	AvailableHours        float64 `json:"available_hours"`
	AllocatedHours        float64 `json:"allocated_hours"`
	EffectiveHours        float64 `json:"effective_hours"`
	AbsenceDays           int     `json:"absence_days"`
	AbsenceHours          float64 `json:"absence_hours"`
	HolidayDays           int     `json:"holiday_days"`
	HolidayHours          float64 `json:"holiday_hours"`
	OverheadHours         float64 `json:"overhead_hours"`
	OptionalOverheadHours float64 `json:"optional_overhead_hours"`
}

// ProjectStaffing is how well a project's requirement is covered
type ProjectStaffing struct {
	ProjectID           int64                     `json:"project_id"`
	ProjectName         string                    `json:"project_name"`
	Priority            domain.Priority           `json:"priority"`
	RequiredHours       float64                   `json:"required_hours"`
	TotalAllocatedHours float64                   `json:"total_allocated_hours"`
	TotalEffectiveHours float64                   `json:"total_effective_hours"`
	StaffingPercentage  float64                   `json:"staffing_percentage"`
	IsViable            bool                      `json:"is_viable"`
	Shortfall           float64                   `json:"shortfall"`
	AssignedPeople      []PersonAssignmentSummary `json:"assigned_people"`
	LastCalculatedAt    *time.Time                `json:"last_calculated_at,omitempty"`
}

// CapacityOverview is the period-wide rollup
type CapacityOverview struct {
	PlanningPeriodID      int64             `json:"planning_period_id"`
	TotalPeople           int               `json:"total_people"`
	TotalProjects         int               `json:"total_projects"`
	OverCommittedPeople   int               `json:"over_committed_people"`
	NearCapacityPeople    int               `json:"near_capacity_people"`
	UnderStaffedProjects  int               `json:"under_staffed_projects"`
	NearCapacityThreshold float64           `json:"near_capacity_threshold"`
	TotalAvailableHours   float64           `json:"total_available_hours"`
	TotalAllocatedHours   float64           `json:"total_allocated_hours"`
	TotalEffectiveHours   float64           `json:"total_effective_hours"`
	TotalRequiredHours    float64           `json:"total_required_hours"`
	PeopleCapacity        []PersonCapacity  `json:"people_capacity"`
	ProjectStaffing       []ProjectStaffing `json:"project_staffing"`
	LastCalculatedAt      *time.Time        `json:"last_calculated_at,omitempty"`
}

// share is the stored outcome of one assignment
type share struct {
	allocation float64 // fraction of the assignment's productive envelope
	pool       float64 // fraction of the person's time
	available  float64
	effective  float64
}

// allocated is the time the assignment takes from the person
func (s share) allocated() float64 {
	return s.pool * s.available
}

func assignmentShare(a domain.Assignment, available float64) share {
	s := share{available: available}
	pf := a.Productivity()
	if a.IsPinned {
		s.allocation = a.PinnedFraction()
		s.pool = s.allocation
		s.effective = s.allocation * available * pf
		return s
	}
	if a.CalculatedAllocationPercentage != nil && *a.CalculatedAllocationPercentage > 0 {
		s.allocation = *a.CalculatedAllocationPercentage
	}
	if a.CalculatedEffectiveHours != nil && *a.CalculatedEffectiveHours > 0 {
		s.effective = *a.CalculatedEffectiveHours
	}
	s.pool = s.allocation * pf
	return s
}

// BuildPersonCapacity rolls up a person's assignments in the plan.
// ok is false when the person is unknown.
func BuildPersonCapacity(plan *planning.Plan, personID int64, nearCapacity float64) (PersonCapacity, bool) {
	person, ok := plan.People[personID]
	if !ok {
		return PersonCapacity{}, false
	}
	breakdown := plan.PersonBreakdown(personID)

	pc := PersonCapacity{
		PersonID:              person.ID,
		PersonName:            person.Name,
		PersonEmail:           person.Email,
		TotalAvailableHours:   breakdown.NetHours,
		Assignments:           []AssignmentSummary{},
		BaseAvailableHours:    breakdown.BaseHours,
		WorkingDays:           breakdown.WorkingDays,
		AbsenceDays:           breakdown.AbsenceDays,
		AbsenceHours:          breakdown.AbsenceHours,
		HolidayDays:           breakdown.HolidayDays,
		HolidayHours:          breakdown.HolidayHours,
		OverheadHours:         breakdown.OverheadHours,
		OptionalOverheadHours: breakdown.WeightedOptionalOverheadHours,
	}

	var allocated, effective []float64
	for _, a := range plan.AssignmentsOf(personID) {
		s := assignmentShare(a, plan.AssignmentBreakdown(a).NetHours)
		allocated = append(allocated, s.allocated())
		effective = append(effective, s.effective)
		pc.Assignments = append(pc.Assignments, AssignmentSummary{
			AssignmentID:         a.ID,
			ProjectID:            a.ProjectID,
			ProjectName:          plan.ProjectName(a.ProjectID),
			IsPinned:             a.IsPinned,
			AllocationPercentage: s.allocation,
			ProductivityFactor:   a.Productivity(),
			AvailableHours:       s.available,
			AllocatedHours:       s.allocated(),
			EffectiveHours:       s.effective,
		})
		pc.LastCalculatedAt = latest(pc.LastCalculatedAt, a)
	}

	pc.TotalAllocatedHours = floats.Sum(allocated)
	pc.TotalEffectiveHours = floats.Sum(effective)
	pc.UtilizationPercentage = percentage(pc.TotalAllocatedHours, pc.TotalAvailableHours)
	pc.IsOverCommitted = pc.UtilizationPercentage > 100
	pc.IsNearCapacity = pc.UtilizationPercentage >= nearCapacity
	return pc, true
}

// BuildProjectStaffing rolls up the assignments covering one requirement
func BuildProjectStaffing(plan *planning.Plan, req domain.ProjectRequirement) ProjectStaffing {
	ps := ProjectStaffing{
		ProjectID:      req.ProjectID,
		ProjectName:    plan.ProjectName(req.ProjectID),
		Priority:       req.Priority,
		RequiredHours:  req.RequiredHours,
		AssignedPeople: []PersonAssignmentSummary{},
	}

	var allocated, effective []float64
	for _, a := range plan.AssignmentsFor(req.ProjectID) {
		b := plan.AssignmentBreakdown(a)
		s := assignmentShare(a, b.NetHours)
		allocated = append(allocated, s.allocated())
		effective = append(effective, s.effective)
		ps.AssignedPeople = append(ps.AssignedPeople, personSummary(plan, a, s, b))
		ps.LastCalculatedAt = latest(ps.LastCalculatedAt, a)
	}

	ps.TotalAllocatedHours = floats.Sum(allocated)
	ps.TotalEffectiveHours = floats.Sum(effective)
	if req.RequiredHours <= 0 {
		ps.StaffingPercentage = 100
	} else {
		ps.StaffingPercentage = percentage(ps.TotalEffectiveHours, req.RequiredHours)
	}
	ps.IsViable = ps.StaffingPercentage >= viableThreshold
	if !ps.IsViable {
		ps.Shortfall = req.RequiredHours - ps.TotalEffectiveHours
	}
	return ps
}

// BuildOverview rolls up every person and every project with a requirement in the period
func BuildOverview(plan *planning.Plan, nearCapacity float64) CapacityOverview {
	ov := CapacityOverview{
		PlanningPeriodID:      plan.Period.ID,
		NearCapacityThreshold: nearCapacity,
		PeopleCapacity:        []PersonCapacity{},
		ProjectStaffing:       []ProjectStaffing{},
	}

	var available, allocated, effective, required []float64
	for _, id := range peopleByName(plan) {
		pc, _ := BuildPersonCapacity(plan, id, nearCapacity)
		if pc.IsOverCommitted {
			ov.OverCommittedPeople++
		}
		if pc.IsNearCapacity {
			ov.NearCapacityPeople++
		}
		available = append(available, pc.TotalAvailableHours)
		allocated = append(allocated, pc.TotalAllocatedHours)
		effective = append(effective, pc.TotalEffectiveHours)
		ov.LastCalculatedAt = later(ov.LastCalculatedAt, pc.LastCalculatedAt)
		ov.PeopleCapacity = append(ov.PeopleCapacity, pc)
	}

	for _, req := range requirementsByName(plan) {
		ps := BuildProjectStaffing(plan, req)
		if !ps.IsViable {
			ov.UnderStaffedProjects++
		}
		required = append(required, req.RequiredHours)
		ov.ProjectStaffing = append(ov.ProjectStaffing, ps)
	}

	ov.TotalPeople = len(ov.PeopleCapacity)
	ov.TotalProjects = len(ov.ProjectStaffing)
	ov.TotalAvailableHours = floats.Sum(available)
	ov.TotalAllocatedHours = floats.Sum(allocated)
	ov.TotalEffectiveHours = floats.Sum(effective)
	ov.TotalRequiredHours = floats.Sum(required)
	return ov
}

func personSummary(plan *planning.Plan, a domain.Assignment, s share, b deductions.Breakdown) PersonAssignmentSummary {
	name := ""
	if p, ok := plan.People[a.PersonID]; ok {
		name = p.Name
	}
	return PersonAssignmentSummary{
		AssignmentID:          a.ID,
		PersonID:              a.PersonID,
		PersonName:            name,
		IsPinned:              a.IsPinned,
		AllocationPercentage:  s.allocation,
		ProductivityFactor:    a.Productivity(),
		AvailableHours:        s.available,
		AllocatedHours:        s.allocated(),
		EffectiveHours:        s.effective,
		AbsenceDays:           b.AbsenceDays,
		AbsenceHours:          b.AbsenceHours,
		HolidayDays:           b.HolidayDays,
		HolidayHours:          b.HolidayHours,
		OverheadHours:         b.OverheadHours,
		OptionalOverheadHours: b.WeightedOptionalOverheadHours,
	}
}

func peopleByName(plan *planning.Plan) []int64 {
	ids := make([]int64, 0, len(plan.People))
	for id := range plan.People {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := plan.People[ids[i]], plan.People[ids[j]]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
	return ids
}

func requirementsByName(plan *planning.Plan) []domain.ProjectRequirement {
	seen := make(map[int64]bool, len(plan.Requirements))
	reqs := make([]domain.ProjectRequirement, 0, len(plan.Requirements))
	for _, r := range plan.Requirements {
		if seen[r.ProjectID] {
			continue
		}
		seen[r.ProjectID] = true
		reqs = append(reqs, r)
	}
	sort.Slice(reqs, func(i, j int) bool {
		a, b := plan.ProjectName(reqs[i].ProjectID), plan.ProjectName(reqs[j].ProjectID)
		if a != b {
			return a < b
		}
		return reqs[i].ProjectID < reqs[j].ProjectID
	})
	return reqs
}

func percentage(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return part / whole * 100
}

func latest(current *time.Time, a domain.Assignment) *time.Time {
	if a.IsPinned {
		return current
	}
	return later(current, a.LastCalculatedAt)
}

func later(a, b *time.Time) *time.Time {
	if b == nil {
		return a
	}
	if a == nil || b.After(*a) {
		t := *b
		return &t
	}
	return a
}
