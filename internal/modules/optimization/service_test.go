package optimization

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/capacity-planner/internal/domain"
	"github.com/aristath/capacity-planner/internal/events"
	"github.com/aristath/capacity-planner/internal/modules/planning"
	testingpkg "github.com/aristath/capacity-planner/internal/testing"
)

// newScenario mirrors the sqlite planning fixture in memory:
// Alice nets 22h, Bob 32h; Apollo (blocker, 20h), Hermes (low, 30h), Zeus without requirement.
func newScenario() *testingpkg.MemoryStore {
	store := testingpkg.NewMemoryStore()
	monday := domain.Date(2024, time.January, 8)
	sunday := domain.Date(2024, time.January, 14)
	country := int64(1)

	store.Periods[1] = domain.PlanningPeriod{ID: 1, Name: "Week 2", Start: monday, End: sunday}
	store.People = []domain.Person{
		{ID: 1, Name: "Alice", AvailableHoursPerWeek: 40, WorkingDays: domain.WorkWeek, CountryID: &country},
		{ID: 2, Name: "Bob", AvailableHoursPerWeek: 32,
			WorkingDays: domain.NewWeekdaySet(time.Monday, time.Tuesday, time.Wednesday, time.Thursday)},
	}
	store.Projects = []domain.Project{{ID: 1, Name: "Apollo"}, {ID: 2, Name: "Hermes"}, {ID: 3, Name: "Zeus"}}
	store.Requirements = []domain.ProjectRequirement{
		{ProjectID: 1, PlanningPeriodID: 1, RequiredHours: 20, Priority: domain.PriorityBlocker},
		{ProjectID: 2, PlanningPeriodID: 1, RequiredHours: 30, Priority: domain.PriorityLow},
	}

	quarter := 0.25
	assignment := func(id, personID, projectID int64, pf float64) domain.Assignment {
		return domain.Assignment{ID: id, PersonID: personID, ProjectID: projectID, PlanningPeriodID: 1,
			ProductivityFactor: pf, Start: monday, End: sunday}
	}
	bobApollo := assignment(3, 2, 1, 1)
	bobApollo.IsPinned = true
	bobApollo.PinnedAllocationPercentage = &quarter
	store.Assignments = []domain.Assignment{
		assignment(1, 1, 1, 0.5),
		assignment(2, 1, 2, 0.5),
		bobApollo,
		assignment(4, 2, 3, 1),
	}

	wednesday := monday.AddDate(0, 0, 2)
	store.Absences = []domain.Absence{{ID: 1, PersonID: 1, Start: wednesday, End: wednesday, Days: 1}}
	tuesday := monday.AddDate(0, 0, 1)
	store.Holidays = []domain.Holiday{{ID: 1, CountryID: country, Start: tuesday, End: tuesday}}
	store.Commitments[1] = []domain.OverheadCommitment{
		{Source: "overhead", Name: "Standup", EffortHours: 2, EffortPeriod: domain.EffortWeekly, Weight: 1},
	}
	return store
}

func newTestService(store *testingpkg.MemoryStore) (*Service, *[]events.Event) {
	loader := planning.NewLoader(planning.Stores{
		Periods:      store,
		People:       store,
		Projects:     store,
		Requirements: store,
		Assignments:  store,
		Absences:     store,
		Holidays:     store,
		Overheads:    store,
	}, zerolog.Nop())

	manager := events.NewManager(zerolog.Nop())
	var mu sync.Mutex
	var emitted []events.Event
	manager.Subscribe(func(e events.Event) {
		mu.Lock()
		defer mu.Unlock()
		emitted = append(emitted, e)
	})

	return NewService(loader, store, manager, zerolog.Nop()), &emitted
}

func countEvents(emitted []events.Event, typ events.EventType) int {
	n := 0
	for _, e := range emitted {
		if e.Type == typ {
			n++
		}
	}
	return n
}

type fakeArchiver struct {
	runs []domain.OptimizationRun
	err  error
}

func (f *fakeArchiver) Archive(ctx context.Context, run domain.OptimizationRun) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.runs = append(f.runs, run)
	return "s3://bucket/" + run.ID, nil
}

func TestService_CommitsScenario(t *testing.T) {
	store := newScenario()
	svc, emitted := newTestService(store)

	result, err := svc.CalculateOptimalAllocations(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.NotEmpty(t, result.RunID)
	assert.False(t, result.CalculatedAt.IsZero())

	require.Len(t, result.Calculations, 3)
	aliceApollo := calcByID(t, result, 1)
	assert.InDelta(t, 11.0, aliceApollo.EffectiveHours, 1e-9)
	assert.InDelta(t, 1.0, aliceApollo.AllocationPercentage, 1e-9)
	aliceHermes := calcByID(t, result, 2)
	assert.InDelta(t, 5.5, aliceHermes.EffectiveHours, 1e-9)
	assert.InDelta(t, 0.5, aliceHermes.AllocationPercentage, 1e-9)
	assert.Zero(t, calcByID(t, result, 4).EffectiveHours)

	require.Len(t, result.InfeasibleProjects, 2)
	apollo, hermes := result.InfeasibleProjects[0], result.InfeasibleProjects[1]
	assert.Equal(t, "Apollo", apollo.ProjectName)
	assert.InDelta(t, 19.0, apollo.AchievedEffectiveHours, 1e-9)
	assert.InDelta(t, 1.0, apollo.Shortfall, 1e-9)
	assert.InDelta(t, 5.0, apollo.ShortfallPercentage, 1e-9)
	assert.Equal(t, "Hermes", hermes.ProjectName)
	assert.InDelta(t, 24.5, hermes.Shortfall, 1e-9)
	assert.InDelta(t, 81.6667, hermes.ShortfallPercentage, 1e-3)
	assert.Contains(t, result.Warnings, "Project ID 3 has assignments but no requirement defined")

	assert.Equal(t, 1, store.Commits)
	require.Len(t, store.Runs, 1)
	assert.Equal(t, result.RunID, store.Runs[0].ID)

	for _, a := range store.Assignments {
		if a.IsPinned {
			assert.Nil(t, a.CalculatedAllocationPercentage, "pinned assignment %d was written", a.ID)
			continue
		}
		require.NotNil(t, a.CalculatedEffectiveHours)
	}

	assert.Equal(t, 1, countEvents(*emitted, events.OptimizationCompleted))
	assert.Equal(t, 2, countEvents(*emitted, events.ProjectUnderStaffed))
	assert.Zero(t, countEvents(*emitted, events.OptimizationFailed))
}

func TestService_LatestRunDecodesSnapshot(t *testing.T) {
	store := newScenario()
	svc, _ := newTestService(store)
	ctx := context.Background()

	_, err := svc.LatestRun(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	committed, err := svc.CalculateOptimalAllocations(ctx, 1)
	require.NoError(t, err)

	latest, err := svc.LatestRun(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, committed.RunID, latest.RunID)
	assert.True(t, committed.CalculatedAt.Equal(latest.CalculatedAt))
	assert.Equal(t, committed.Calculations, latest.Calculations)
	assert.Equal(t, committed.InfeasibleProjects, latest.InfeasibleProjects)
	assert.Equal(t, committed.Warnings, latest.Warnings)
}

func TestService_PeriodNotFound(t *testing.T) {
	store := newScenario()
	svc, emitted := newTestService(store)

	result, err := svc.CalculateOptimalAllocations(context.Background(), 42)
	assert.Nil(t, result)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPeriodNotFound)

	var runErr *RunError
	require.True(t, errors.As(err, &runErr))
	assert.Equal(t, KindPeriodNotFound, runErr.Kind)
	assert.Equal(t, int64(42), runErr.PeriodID)

	assert.Zero(t, store.Commits)
	assert.Equal(t, 1, countEvents(*emitted, events.OptimizationFailed))
}

func TestService_MalformedPeriod(t *testing.T) {
	store := newScenario()
	p := store.Periods[1]
	p.Start, p.End = p.End, p.Start
	store.Periods[1] = p
	svc, _ := newTestService(store)

	_, err := svc.CalculateOptimalAllocations(context.Background(), 1)
	assert.ErrorIs(t, err, ErrMalformedPeriod)
	assert.Zero(t, store.Commits)
}

func TestService_StorageFailuresWriteNothing(t *testing.T) {
	t.Run("read", func(t *testing.T) {
		store := newScenario()
		store.SetErr(errors.New("disk I/O error"))
		svc, _ := newTestService(store)

		_, err := svc.CalculateOptimalAllocations(context.Background(), 1)
		assert.ErrorIs(t, err, ErrStorageUnavailable)
		assert.Zero(t, store.Commits)
	})

	t.Run("commit", func(t *testing.T) {
		store := newScenario()
		store.CommitErr = errors.New("database is locked")
		svc, emitted := newTestService(store)

		_, err := svc.CalculateOptimalAllocations(context.Background(), 1)
		assert.ErrorIs(t, err, ErrStorageUnavailable)
		assert.Empty(t, store.Runs)
		for _, a := range store.Assignments {
			assert.Nil(t, a.CalculatedEffectiveHours)
		}
		assert.Zero(t, countEvents(*emitted, events.OptimizationCompleted))
	})
}

func TestService_IdempotentRuns(t *testing.T) {
	store := newScenario()
	svc, _ := newTestService(store)
	ctx := context.Background()

	first, err := svc.CalculateOptimalAllocations(ctx, 1)
	require.NoError(t, err)
	second, err := svc.CalculateOptimalAllocations(ctx, 1)
	require.NoError(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, first.Calculations, second.Calculations)
	assert.Equal(t, first.InfeasibleProjects, second.InfeasibleProjects)
	assert.Equal(t, 2, store.Commits)
}

func TestService_ConcurrentRunsAreSerialized(t *testing.T) {
	store := newScenario()
	svc, _ := newTestService(store)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CalculateOptimalAllocations(context.Background(), 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 8, store.Commits)
	assert.Len(t, store.Runs, 8)
}

func TestService_Archiver(t *testing.T) {
	t.Run("archives committed runs", func(t *testing.T) {
		store := newScenario()
		svc, emitted := newTestService(store)
		archiver := &fakeArchiver{}
		svc.SetArchiver(archiver)

		result, err := svc.CalculateOptimalAllocations(context.Background(), 1)
		require.NoError(t, err)
		require.Len(t, archiver.runs, 1)
		assert.Equal(t, result.RunID, archiver.runs[0].ID)
		assert.NotEmpty(t, archiver.runs[0].Snapshot)
		assert.Equal(t, 1, countEvents(*emitted, events.SnapshotArchived))
	})

	t.Run("upload failure keeps the run", func(t *testing.T) {
		store := newScenario()
		svc, _ := newTestService(store)
		svc.SetArchiver(&fakeArchiver{err: errors.New("bucket missing")})

		_, err := svc.CalculateOptimalAllocations(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, 1, store.Commits)
	})
}

func TestSnapshotRoundTrip(t *testing.T) {
	result := &OptimizationResult{
		RunID:            "run",
		PlanningPeriodID: 3,
		Success:          true,
		Calculations:     []domain.AssignmentCalculation{{AssignmentID: 1, AllocationPercentage: 0.5, EffectiveHours: 4}},
		InfeasibleProjects: []ProjectShortfall{{
			ProjectID: 2, ProjectName: "Hermes", Priority: domain.PriorityHigh, RequiredHours: 10, Shortfall: 6, ShortfallPercentage: 60,
		}},
		Warnings:            []string{"careful"},
		OverCommittedPeople: []int64{9},
		CalculatedAt:        time.Date(2024, time.January, 8, 9, 0, 0, 0, time.UTC),
	}

	data, err := EncodeSnapshot(result)
	require.NoError(t, err)
	decoded, err := DecodeSnapshot(data)
	require.NoError(t, err)

	assert.Equal(t, result.Calculations, decoded.Calculations)
	assert.Equal(t, result.InfeasibleProjects, decoded.InfeasibleProjects)
	assert.Equal(t, domain.PriorityHigh, decoded.InfeasibleProjects[0].Priority)
	assert.Equal(t, []int64{9}, decoded.OverCommittedPeople)
	assert.True(t, result.CalculatedAt.Equal(decoded.CalculatedAt))

	_, err = DecodeSnapshot([]byte{})
	assert.Error(t, err)
}
