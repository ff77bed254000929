package optimization

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/capacity-planner/internal/domain"
)

func floatPtr(v float64) *float64 { return &v }

func weekPeriod() domain.PlanningPeriod {
	start := domain.Date(2024, time.January, 8)
	return domain.PlanningPeriod{ID: 1, Name: "Week 2", Start: start, End: start.AddDate(0, 0, 6)}
}

func unpinned(id, personID, projectID int64, pf float64) domain.Assignment {
	return domain.Assignment{ID: id, PersonID: personID, ProjectID: projectID, PlanningPeriodID: 1, ProductivityFactor: pf}
}

func pinned(id, personID, projectID int64, pf, pct float64) domain.Assignment {
	a := unpinned(id, personID, projectID, pf)
	a.IsPinned = true
	a.PinnedAllocationPercentage = floatPtr(pct)
	return a
}

func requirement(projectID int64, hours float64, priority domain.Priority) domain.ProjectRequirement {
	return domain.ProjectRequirement{ProjectID: projectID, PlanningPeriodID: 1, RequiredHours: hours, Priority: priority}
}

func calcByID(t *testing.T, result *OptimizationResult, id int64) domain.AssignmentCalculation {
	t.Helper()
	for _, c := range result.Calculations {
		if c.AssignmentID == id {
			return c
		}
	}
	t.Fatalf("no calculation for assignment %d", id)
	return domain.AssignmentCalculation{}
}

func optimize(t *testing.T, in Input) *OptimizationResult {
	t.Helper()
	result, err := NewOptimizer(zerolog.Nop()).Optimize(in)
	require.NoError(t, err)
	require.True(t, result.Success)
	return result
}

func TestOptimize_WorkedExample(t *testing.T) {
	in := Input{
		Period: weekPeriod(),
		Assignments: []domain.Assignment{
			unpinned(1, 1, 100, 0.5), // X
			unpinned(2, 1, 200, 0.5), // Y
		},
		Requirements: []domain.ProjectRequirement{
			requirement(200, 30, domain.PriorityLow),
			requirement(100, 20, domain.PriorityBlocker),
		},
		ProjectNames: map[int64]string{100: "X", 200: "Y"},
		NetHours:     map[int64]float64{1: 40, 2: 40},
	}

	result := optimize(t, in)

	x := calcByID(t, result, 1)
	assert.InDelta(t, 20.0, x.EffectiveHours, 1e-9)
	assert.InDelta(t, 1.0, x.AllocationPercentage, 1e-9)

	y := calcByID(t, result, 2)
	assert.InDelta(t, 10.0, y.EffectiveHours, 1e-9)
	assert.InDelta(t, 0.5, y.AllocationPercentage, 1e-9)

	require.Len(t, result.InfeasibleProjects, 1)
	short := result.InfeasibleProjects[0]
	assert.Equal(t, int64(200), short.ProjectID)
	assert.Equal(t, "Y", short.ProjectName)
	assert.Equal(t, domain.PriorityLow, short.Priority)
	assert.InDelta(t, 10.0, short.AchievedEffectiveHours, 1e-9)
	assert.InDelta(t, 20.0, short.Shortfall, 1e-9)
	assert.InDelta(t, 66.666, short.ShortfallPercentage, 0.01)
	assert.Empty(t, result.Warnings)
}

func TestOptimize_PriorityPrecedence(t *testing.T) {
	// The low priority project has the smaller id and would win a first-come policy
	in := Input{
		Period: weekPeriod(),
		Assignments: []domain.Assignment{
			unpinned(1, 1, 1, 1),
			unpinned(2, 1, 2, 1),
		},
		Requirements: []domain.ProjectRequirement{
			requirement(1, 30, domain.PriorityLow),
			requirement(2, 30, domain.PriorityBlocker),
		},
		NetHours: map[int64]float64{1: 40, 2: 40},
	}

	result := optimize(t, in)

	assert.InDelta(t, 30.0, calcByID(t, result, 2).EffectiveHours, 1e-9)
	assert.InDelta(t, 10.0, calcByID(t, result, 1).EffectiveHours, 1e-9)
	require.Len(t, result.InfeasibleProjects, 1)
	assert.Equal(t, int64(1), result.InfeasibleProjects[0].ProjectID)
	assert.InDelta(t, 20.0, result.InfeasibleProjects[0].Shortfall, 1e-9)
}

func TestOptimize_LargestCeilingFillsFirst(t *testing.T) {
	in := Input{
		Period: weekPeriod(),
		Assignments: []domain.Assignment{
			unpinned(1, 1, 1, 1),   // ceiling 20
			unpinned(2, 2, 1, 1),   // ceiling 40
			unpinned(3, 3, 1, 0.5), // ceiling 20, tie with 1 broken by id
		},
		Requirements: []domain.ProjectRequirement{requirement(1, 50, domain.PriorityMedium)},
		NetHours:     map[int64]float64{1: 20, 2: 40, 3: 40},
	}

	result := optimize(t, in)

	assert.InDelta(t, 40.0, calcByID(t, result, 2).EffectiveHours, 1e-9)
	assert.InDelta(t, 10.0, calcByID(t, result, 1).EffectiveHours, 1e-9)
	assert.InDelta(t, 0.5, calcByID(t, result, 1).AllocationPercentage, 1e-9)
	assert.Zero(t, calcByID(t, result, 3).EffectiveHours)
	assert.Empty(t, result.InfeasibleProjects)
}

func TestOptimize_PinnedCoversNeed(t *testing.T) {
	in := Input{
		Period: weekPeriod(),
		Assignments: []domain.Assignment{
			pinned(1, 1, 1, 1, 0.5), // 20 effective hours
			unpinned(2, 2, 1, 1),
		},
		Requirements: []domain.ProjectRequirement{requirement(1, 20, domain.PriorityHigh)},
		NetHours:     map[int64]float64{1: 40, 2: 40},
	}

	result := optimize(t, in)

	require.Len(t, result.Calculations, 1, "pinned assignments are never recalculated")
	assert.Equal(t, domain.AssignmentCalculation{AssignmentID: 2}, result.Calculations[0])
	assert.Empty(t, result.InfeasibleProjects)
}

func TestOptimize_PinnedReservesPool(t *testing.T) {
	in := Input{
		Period: weekPeriod(),
		Assignments: []domain.Assignment{
			pinned(1, 1, 1, 1, 0.75),
			unpinned(2, 1, 2, 1),
		},
		Requirements: []domain.ProjectRequirement{
			requirement(1, 30, domain.PriorityLow),
			requirement(2, 40, domain.PriorityBlocker),
		},
		NetHours: map[int64]float64{1: 40, 2: 40},
	}

	result := optimize(t, in)

	c := calcByID(t, result, 2)
	assert.InDelta(t, 10.0, c.EffectiveHours, 1e-9)
	assert.InDelta(t, 0.25, c.AllocationPercentage, 1e-9)
	require.Len(t, result.InfeasibleProjects, 1)
	assert.Equal(t, int64(2), result.InfeasibleProjects[0].ProjectID)
}

func TestOptimize_PinnedOverCommitment(t *testing.T) {
	in := Input{
		Period: weekPeriod(),
		Assignments: []domain.Assignment{
			pinned(1, 1, 1, 1, 0.8),
			pinned(2, 1, 2, 1, 0.5),
			unpinned(3, 1, 3, 1),
		},
		Requirements: []domain.ProjectRequirement{requirement(3, 10, domain.PriorityBlocker)},
		PersonNames:  map[int64]string{1: "Alice"},
		NetHours:     map[int64]float64{1: 40, 2: 40, 3: 40},
	}

	result := optimize(t, in)

	assert.Zero(t, calcByID(t, result, 3).AllocationPercentage)
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "Alice is over-committed by pinned assignments")
	assert.Equal(t, []int64{1}, result.OverCommittedPeople)
	require.Len(t, result.InfeasibleProjects, 1)
	assert.InDelta(t, 100.0, result.InfeasibleProjects[0].ShortfallPercentage, 1e-9)
}

func TestOptimize_ZeroCapacityIsNotAnError(t *testing.T) {
	in := Input{
		Period:       weekPeriod(),
		Assignments:  []domain.Assignment{unpinned(1, 1, 1, 1)},
		Requirements: []domain.ProjectRequirement{requirement(1, 10, domain.PriorityMedium)},
		NetHours:     map[int64]float64{1: 0},
	}

	result := optimize(t, in)

	assert.Equal(t, domain.AssignmentCalculation{AssignmentID: 1}, calcByID(t, result, 1))
	assert.Empty(t, result.Warnings)
	assert.Len(t, result.InfeasibleProjects, 1)
}

func TestOptimize_ZeroRequirementAlwaysSatisfied(t *testing.T) {
	in := Input{
		Period:       weekPeriod(),
		Assignments:  []domain.Assignment{unpinned(1, 1, 1, 1)},
		Requirements: []domain.ProjectRequirement{requirement(1, 0, domain.PriorityMedium)},
		NetHours:     map[int64]float64{1: 40},
	}

	result := optimize(t, in)

	assert.Zero(t, calcByID(t, result, 1).EffectiveHours)
	assert.Empty(t, result.InfeasibleProjects)
}

func TestOptimize_RequiredProjectWithoutAssignments(t *testing.T) {
	in := Input{
		Period:       weekPeriod(),
		Assignments:  []domain.Assignment{unpinned(1, 1, 1, 1)},
		Requirements: []domain.ProjectRequirement{requirement(1, 10, domain.PriorityMedium), requirement(2, 8, domain.PriorityLow)},
		NetHours:     map[int64]float64{1: 40},
	}

	result := optimize(t, in)

	require.Len(t, result.InfeasibleProjects, 1)
	assert.Equal(t, int64(2), result.InfeasibleProjects[0].ProjectID)
	assert.InDelta(t, 8.0, result.InfeasibleProjects[0].Shortfall, 1e-9)
}

func TestOptimize_ProjectWithoutRequirement(t *testing.T) {
	in := Input{
		Period:      weekPeriod(),
		Assignments: []domain.Assignment{unpinned(1, 1, 7, 1), pinned(2, 1, 7, 1, 0.2)},
		NetHours:    map[int64]float64{1: 40, 2: 40},
	}

	result := optimize(t, in)

	require.Len(t, result.Calculations, 1)
	assert.Zero(t, result.Calculations[0].AllocationPercentage)
	assert.Equal(t, []string{"Project ID 7 has assignments but no requirement defined"}, result.Warnings)
}

func TestOptimize_NoAssignments(t *testing.T) {
	result := optimize(t, Input{Period: weekPeriod()})

	assert.Empty(t, result.Calculations)
	assert.Equal(t, []string{"No assignments found for this planning period"}, result.Warnings)
}

func TestOptimize_MalformedPeriod(t *testing.T) {
	period := weekPeriod()
	period.Start, period.End = period.End, period.Start

	_, err := NewOptimizer(zerolog.Nop()).Optimize(Input{Period: period})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedPeriod))
	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, KindMalformedPeriod, runErr.Kind)
}

func TestOptimize_ProductivityClamped(t *testing.T) {
	in := Input{
		Period:       weekPeriod(),
		Assignments:  []domain.Assignment{unpinned(1, 1, 1, 1.7)},
		Requirements: []domain.ProjectRequirement{requirement(1, 100, domain.PriorityMedium)},
		NetHours:     map[int64]float64{1: 40},
	}

	result := optimize(t, in)

	c := calcByID(t, result, 1)
	assert.InDelta(t, 40.0, c.EffectiveHours, 1e-9)
	assert.InDelta(t, 1.0, c.AllocationPercentage, 1e-9)
}

func TestOptimize_CapacityBound(t *testing.T) {
	in := Input{
		Period: weekPeriod(),
		Assignments: []domain.Assignment{
			unpinned(1, 1, 1, 0.8),
			unpinned(2, 1, 2, 0.6),
			unpinned(3, 1, 3, 1),
			unpinned(4, 2, 3, 0.9),
		},
		Requirements: []domain.ProjectRequirement{
			requirement(1, 25, domain.PriorityHigh),
			requirement(2, 25, domain.PriorityHigh),
			requirement(3, 25, domain.PriorityLow),
		},
		NetHours: map[int64]float64{1: 40, 2: 40, 3: 40, 4: 32},
	}

	result := optimize(t, in)

	pool := map[int64]float64{}
	for _, a := range in.Assignments {
		c := calcByID(t, result, a.ID)
		pool[a.PersonID] += c.AllocationPercentage * a.Productivity()
	}
	for personID, share := range pool {
		assert.LessOrEqual(t, share, 1.0+1e-9, "person %d", personID)
	}
}

func TestOptimize_Idempotent(t *testing.T) {
	in := Input{
		Period: weekPeriod(),
		Assignments: []domain.Assignment{
			unpinned(3, 2, 1, 0.7),
			unpinned(1, 1, 1, 0.9),
			pinned(2, 1, 2, 1, 0.3),
			unpinned(4, 2, 2, 0.5),
		},
		Requirements: []domain.ProjectRequirement{
			requirement(2, 35, domain.PriorityMedium),
			requirement(1, 33.3, domain.PriorityMedium),
		},
		NetHours: map[int64]float64{1: 36, 2: 36, 3: 28.8, 4: 28.8},
	}

	first := optimize(t, in)
	second := optimize(t, in)

	assert.Equal(t, first.Calculations, second.Calculations)
	assert.Equal(t, first.InfeasibleProjects, second.InfeasibleProjects)
	assert.Equal(t, first.Warnings, second.Warnings)
}
