// Package planning assembles everything known about one planning period into a Plan,
// the read model the optimizer and the rollup views are computed from.
package planning

import (
	"fmt"
	"sort"

	"github.com/aristath/capacity-planner/internal/domain"
	"github.com/aristath/capacity-planner/internal/modules/deductions"
)

// Plan is an immutable view of a planning period and the data referenced by it
type Plan struct {
	Period       domain.PlanningPeriod
	People       map[int64]domain.Person
	Projects     map[int64]domain.Project
	Requirements []domain.ProjectRequirement
	Assignments  []domain.Assignment
	Resolver     *deductions.Resolver
}

// ClippedRange returns the part of the assignment inside the period.
// ok is false when nothing of the assignment falls inside the period or its range is inverted.
func (p *Plan) ClippedRange(a domain.Assignment) (domain.DateRange, bool) {
	if !a.Range().Valid() {
		return domain.DateRange{}, false
	}
	return p.Period.Range().Intersect(a.Range())
}

// AssignmentBreakdown resolves the net hours the assigned person has over the assignment range.
// Unknown people and empty ranges resolve to a zero breakdown.
func (p *Plan) AssignmentBreakdown(a domain.Assignment) deductions.Breakdown {
	person, ok := p.People[a.PersonID]
	if !ok {
		return deductions.Breakdown{}
	}
	rng, ok := p.ClippedRange(a)
	if !ok {
		return deductions.Breakdown{}
	}
	b, err := p.Resolver.NetAvailableHours(person, rng.Start, rng.End)
	if err != nil {
		return deductions.Breakdown{}
	}
	return b
}

// NetHours returns net available hours keyed by assignment id
func (p *Plan) NetHours() map[int64]float64 {
	net := make(map[int64]float64, len(p.Assignments))
	for _, a := range p.Assignments {
		net[a.ID] = p.AssignmentBreakdown(a).NetHours
	}
	return net
}

// PersonBreakdown resolves a person's capacity over the union of their assignment ranges,
// or over the whole period when they have no assignment in it.
func (p *Plan) PersonBreakdown(personID int64) deductions.Breakdown {
	person, ok := p.People[personID]
	if !ok {
		return deductions.Breakdown{}
	}

	var ranges []domain.DateRange
	for _, a := range p.AssignmentsOf(personID) {
		if rng, ok := p.ClippedRange(a); ok {
			ranges = append(ranges, rng)
		}
	}
	if len(ranges) == 0 {
		ranges = []domain.DateRange{p.Period.Range()}
	}

	var total deductions.Breakdown
	for _, rng := range MergeRanges(ranges) {
		b, err := p.Resolver.NetAvailableHours(person, rng.Start, rng.End)
		if err != nil {
			continue
		}
		total = total.Add(b)
	}
	return total
}

// AssignmentsOf returns the assignments of a person, ordered by id
func (p *Plan) AssignmentsOf(personID int64) []domain.Assignment {
	var out []domain.Assignment
	for _, a := range p.Assignments {
		if a.PersonID == personID {
			out = append(out, a)
		}
	}
	return out
}

// AssignmentsFor returns the assignments of a project, ordered by id
func (p *Plan) AssignmentsFor(projectID int64) []domain.Assignment {
	var out []domain.Assignment
	for _, a := range p.Assignments {
		if a.ProjectID == projectID {
			out = append(out, a)
		}
	}
	return out
}

// Requirement returns the project's requirement in this period, if any
func (p *Plan) Requirement(projectID int64) (domain.ProjectRequirement, bool) {
	for _, r := range p.Requirements {
		if r.ProjectID == projectID {
			return r, true
		}
	}
	return domain.ProjectRequirement{}, false
}

// ProjectName returns the project name, falling back to its id
func (p *Plan) ProjectName(projectID int64) string {
	if proj, ok := p.Projects[projectID]; ok && proj.Name != "" {
		return proj.Name
	}
	return fmt.Sprintf("Project %d", projectID)
}

// PersonIDs returns the ids of everyone assigned in the period, ascending
func (p *Plan) PersonIDs() []int64 {
	seen := make(map[int64]struct{})
	var ids []int64
	for _, a := range p.Assignments {
		if _, ok := seen[a.PersonID]; ok {
			continue
		}
		seen[a.PersonID] = struct{}{}
		ids = append(ids, a.PersonID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// MergeRanges merges overlapping and adjacent ranges into a sorted disjoint list
func MergeRanges(ranges []domain.DateRange) []domain.DateRange {
	if len(ranges) == 0 {
		return nil
	}
	sorted := make([]domain.DateRange, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	merged := []domain.DateRange{sorted[0]}
	for _, r := range sorted[1:] {
		last := &merged[len(merged)-1]
		if !r.Start.After(last.End.AddDate(0, 0, 1)) {
			if r.End.After(last.End) {
				last.End = r.End
			}
			continue
		}
		merged = append(merged, r)
	}
	return merged
}
