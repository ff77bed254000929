// Package optimization distributes people's capacity across prioritized project demands
// and reports projects that cannot be fully staffed.
package optimization

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"

	"github.com/aristath/capacity-planner/internal/domain"
)

const epsilon = 1e-9

const (
	warnNoAssignments   = "No assignments found for this planning period"
	warnNoRequirement   = "Project ID %d has assignments but no requirement defined"
	warnPinnedOverAlloc = "%s is over-committed by pinned assignments (%.1f%% reserved)"
)

// Optimizer is the deterministic greedy allocation policy.
// It holds no state between runs; identical input yields identical output.
type Optimizer struct {
	log zerolog.Logger
}

// NewOptimizer creates an optimizer
func NewOptimizer(log zerolog.Logger) *Optimizer {
	return &Optimizer{log: log.With().Str("component", "optimizer").Logger()}
}

// Optimize computes allocations for every unpinned assignment in the input.
// Pinned assignments are never part of the returned calculations.
func (o *Optimizer) Optimize(in Input) (*OptimizationResult, error) {
	if !in.Period.Range().Valid() {
		return nil, &RunError{
			Kind:     KindMalformedPeriod,
			PeriodID: in.Period.ID,
			Err:      fmt.Errorf("range %s", in.Period.Range()),
		}
	}

	result := &OptimizationResult{
		PlanningPeriodID:   in.Period.ID,
		Success:            true,
		Calculations:       []domain.AssignmentCalculation{},
		InfeasibleProjects: []ProjectShortfall{},
		Warnings:           []string{},
	}
	if len(in.Assignments) == 0 {
		result.Warnings = append(result.Warnings, warnNoAssignments)
	}

	assignments := make([]domain.Assignment, len(in.Assignments))
	copy(assignments, in.Assignments)
	sort.Slice(assignments, func(i, j int) bool { return assignments[i].ID < assignments[j].ID })

	byProject := make(map[int64][]domain.Assignment)
	ledger := NewPersonAllocationLedger()
	for _, a := range assignments {
		byProject[a.ProjectID] = append(byProject[a.ProjectID], a)
		if a.IsPinned {
			ledger.Reserve(a.PersonID, a.PinnedFraction())
		}
	}
	result.OverCommittedPeople = append([]int64{}, ledger.OverCommitted()...)
	for _, personID := range result.OverCommittedPeople {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf(warnPinnedOverAlloc, personName(in.PersonNames, personID), ledger.Reserved(personID)*100))
	}

	requirements := orderRequirements(in.Requirements)
	calcs := make(map[int64]domain.AssignmentCalculation)

	for _, req := range requirements {
		o.staffProject(req, byProject[req.ProjectID], in.NetHours, ledger, calcs)
	}

	// Assignments on projects nobody asked for keep no share of anyone's pool
	required := make(map[int64]bool, len(requirements))
	for _, req := range requirements {
		required[req.ProjectID] = true
	}
	for _, projectID := range sortedKeys(byProject) {
		if required[projectID] {
			continue
		}
		result.Warnings = append(result.Warnings, fmt.Sprintf(warnNoRequirement, projectID))
		for _, a := range byProject[projectID] {
			if !a.IsPinned {
				calcs[a.ID] = domain.AssignmentCalculation{AssignmentID: a.ID}
			}
		}
	}

	for _, req := range requirements {
		if shortfall, ok := o.shortfall(req, byProject[req.ProjectID], in, calcs); ok {
			result.InfeasibleProjects = append(result.InfeasibleProjects, shortfall)
		}
	}

	for _, id := range sortedKeys(calcs) {
		result.Calculations = append(result.Calculations, calcs[id])
	}

	o.log.Debug().
		Int64("period_id", in.Period.ID).
		Int("calculations", len(result.Calculations)).
		Int("infeasible", len(result.InfeasibleProjects)).
		Int("warnings", len(result.Warnings)).
		Msg("Optimization computed")

	return result, nil
}

// staffProject fills a project's remaining need from its unpinned assignments,
// largest ceiling first, consuming each person's pool as it goes.
func (o *Optimizer) staffProject(
	req domain.ProjectRequirement,
	assignments []domain.Assignment,
	netHours map[int64]float64,
	ledger *PersonAllocationLedger,
	calcs map[int64]domain.AssignmentCalculation,
) {
	var pinnedHours []float64
	var open []domain.Assignment
	for _, a := range assignments {
		if a.IsPinned {
			pinnedHours = append(pinnedHours, pinnedEffectiveHours(a, netHours[a.ID]))
			continue
		}
		open = append(open, a)
		calcs[a.ID] = domain.AssignmentCalculation{AssignmentID: a.ID}
	}

	need := req.RequiredHours - floats.Sum(pinnedHours)
	if need <= epsilon || len(open) == 0 {
		return
	}

	ceiling := func(a domain.Assignment) float64 {
		return envelope(a, netHours[a.ID]) * ledger.Free(a.PersonID)
	}
	sort.SliceStable(open, func(i, j int) bool {
		ci, cj := ceiling(open[i]), ceiling(open[j])
		if ci != cj {
			return ci > cj
		}
		return open[i].ID < open[j].ID
	})

	for _, a := range open {
		if need <= epsilon {
			break
		}
		env := envelope(a, netHours[a.ID])
		if env <= 0 {
			continue
		}
		// Earlier assignments of the same person may have drained the pool since sorting
		hours := math.Min(ceiling(a), need)
		if hours <= 0 {
			continue
		}
		calcs[a.ID] = domain.AssignmentCalculation{
			AssignmentID:         a.ID,
			AllocationPercentage: hours / env,
			EffectiveHours:       hours,
		}
		ledger.Consume(a.PersonID, hours/netHours[a.ID])
		need -= hours

		o.log.Debug().
			Int64("project_id", req.ProjectID).
			Int64("assignment_id", a.ID).
			Float64("hours", hours).
			Msg("Allocated assignment")
	}
}

func (o *Optimizer) shortfall(
	req domain.ProjectRequirement,
	assignments []domain.Assignment,
	in Input,
	calcs map[int64]domain.AssignmentCalculation,
) (ProjectShortfall, bool) {
	if req.RequiredHours <= 0 {
		return ProjectShortfall{}, false
	}

	contributions := make([]float64, 0, len(assignments))
	for _, a := range assignments {
		if a.IsPinned {
			contributions = append(contributions, pinnedEffectiveHours(a, in.NetHours[a.ID]))
		} else {
			contributions = append(contributions, calcs[a.ID].EffectiveHours)
		}
	}
	achieved := floats.Sum(contributions)
	if achieved/req.RequiredHours*100 >= StaffedThreshold {
		return ProjectShortfall{}, false
	}

	missing := req.RequiredHours - achieved
	return ProjectShortfall{
		ProjectID:              req.ProjectID,
		ProjectName:            projectName(in.ProjectNames, req.ProjectID),
		Priority:               req.Priority,
		RequiredHours:          req.RequiredHours,
		AchievedEffectiveHours: achieved,
		Shortfall:              missing,
		ShortfallPercentage:    missing / req.RequiredHours * 100,
	}, true
}

// envelope is the most productive hours an assignment could yield with the whole pool
func envelope(a domain.Assignment, net float64) float64 {
	if net <= 0 {
		return 0
	}
	return net * a.Productivity()
}

func pinnedEffectiveHours(a domain.Assignment, net float64) float64 {
	return a.PinnedFraction() * envelope(a, net)
}

// orderRequirements sorts by priority descending then project id, dropping duplicate projects
func orderRequirements(reqs []domain.ProjectRequirement) []domain.ProjectRequirement {
	ordered := make([]domain.ProjectRequirement, len(reqs))
	copy(ordered, reqs)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority > ordered[j].Priority
		}
		return ordered[i].ProjectID < ordered[j].ProjectID
	})

	seen := make(map[int64]bool, len(ordered))
	out := ordered[:0]
	for _, r := range ordered {
		if seen[r.ProjectID] {
			continue
		}
		seen[r.ProjectID] = true
		out = append(out, r)
	}
	return out
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func projectName(names map[int64]string, id int64) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	return fmt.Sprintf("Project %d", id)
}

func personName(names map[int64]string, id int64) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	return fmt.Sprintf("Person %d", id)
}
