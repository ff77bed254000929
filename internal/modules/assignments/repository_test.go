package assignments

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/capacity-planner/internal/domain"
	testingpkg "github.com/aristath/capacity-planner/internal/testing"
)

func TestRepository_ListAssignments(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "assignments")
	defer cleanup()
	f := testingpkg.SeedPlanningFixture(t, db.Conn())

	repo := NewRepository(db.Conn(), zerolog.Nop())

	list, err := repo.ListAssignments(context.Background(), f.PeriodID)
	require.NoError(t, err)
	require.Len(t, list, 4)

	bobApollo := list[2]
	assert.Equal(t, f.BobApollo, bobApollo.ID)
	assert.True(t, bobApollo.IsPinned)
	require.NotNil(t, bobApollo.PinnedAllocationPercentage)
	assert.InDelta(t, 0.25, *bobApollo.PinnedAllocationPercentage, 1e-9)
	assert.Nil(t, bobApollo.CalculatedAllocationPercentage)
	assert.Equal(t, domain.Date(2024, time.January, 8), bobApollo.Start)
}

func TestRepository_SaveCalculationsSkipsPinned(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "assignments")
	defer cleanup()
	f := testingpkg.SeedPlanningFixture(t, db.Conn())

	repo := NewRepository(db.Conn(), zerolog.Nop())
	ctx := context.Background()
	at := time.Date(2024, time.January, 7, 12, 0, 0, 0, time.UTC)

	err := repo.SaveCalculations(ctx, domain.OptimizationRun{
		ID: "run-1", PlanningPeriodID: f.PeriodID, CalculatedAt: at, Snapshot: []byte{0x80},
	}, []domain.AssignmentCalculation{
		{AssignmentID: f.AliceApollo, AllocationPercentage: 1, EffectiveHours: 11},
		{AssignmentID: f.BobApollo, AllocationPercentage: 0.9, EffectiveHours: 99},
	})
	require.NoError(t, err)

	alice, err := repo.GetAssignment(ctx, f.AliceApollo)
	require.NoError(t, err)
	require.NotNil(t, alice.CalculatedEffectiveHours)
	assert.InDelta(t, 11.0, *alice.CalculatedEffectiveHours, 1e-9)
	require.NotNil(t, alice.LastCalculatedAt)
	assert.True(t, at.Equal(*alice.LastCalculatedAt))

	bob, err := repo.GetAssignment(ctx, f.BobApollo)
	require.NoError(t, err)
	assert.Nil(t, bob.CalculatedEffectiveHours, "pinned rows are never written")
	assert.InDelta(t, 0.25, *bob.PinnedAllocationPercentage, 1e-9)

	run, err := repo.GetLatestRun(ctx, f.PeriodID)
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, []byte{0x80}, run.Snapshot)
	assert.True(t, at.Equal(run.CalculatedAt))
}

func TestRepository_SaveCalculationsIsAtomic(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "assignments")
	defer cleanup()
	f := testingpkg.SeedPlanningFixture(t, db.Conn())

	repo := NewRepository(db.Conn(), zerolog.Nop())
	ctx := context.Background()
	run := domain.OptimizationRun{ID: "dup", PlanningPeriodID: f.PeriodID, CalculatedAt: time.Now(), Snapshot: []byte{1}}

	require.NoError(t, repo.SaveCalculations(ctx, run, nil))

	// Reusing the run id fails on the audit insert after the update already ran
	err := repo.SaveCalculations(ctx, run, []domain.AssignmentCalculation{
		{AssignmentID: f.AliceHermes, AllocationPercentage: 0.5, EffectiveHours: 5.5},
	})
	require.Error(t, err)

	hermes, err := repo.GetAssignment(ctx, f.AliceHermes)
	require.NoError(t, err)
	assert.Nil(t, hermes.CalculatedEffectiveHours, "failed run leaves prior state untouched")
}

func TestRepository_GetLatestRunAndPrune(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "assignments")
	defer cleanup()
	f := testingpkg.SeedPlanningFixture(t, db.Conn())

	repo := NewRepository(db.Conn(), zerolog.Nop())
	ctx := context.Background()

	_, err := repo.GetLatestRun(ctx, f.PeriodID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	base := time.Date(2024, time.January, 7, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		run := domain.OptimizationRun{ID: id, PlanningPeriodID: f.PeriodID, CalculatedAt: base.Add(time.Duration(i) * time.Hour), Snapshot: []byte{byte(i)}}
		require.NoError(t, repo.SaveCalculations(ctx, run, nil))
	}

	latest, err := repo.GetLatestRun(ctx, f.PeriodID)
	require.NoError(t, err)
	assert.Equal(t, "c", latest.ID)

	deleted, err := repo.PruneRuns(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var remaining int
	require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM optimization_runs").Scan(&remaining))
	assert.Equal(t, 2, remaining)
}

func TestRepository_CreateAssignment(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "assignments")
	defer cleanup()
	f := testingpkg.SeedPlanningFixture(t, db.Conn())

	repo := NewRepository(db.Conn(), zerolog.Nop())
	ctx := context.Background()
	pct := 0.4

	id, err := repo.CreateAssignment(ctx, domain.Assignment{
		PersonID: f.AliceID, ProjectID: f.ZeusID, PlanningPeriodID: f.PeriodID, ProductivityFactor: 0.8,
		Start: domain.Date(2024, time.January, 10), End: domain.Date(2024, time.January, 12),
		IsPinned: true, PinnedAllocationPercentage: &pct,
	})
	require.NoError(t, err)

	a, err := repo.GetAssignment(ctx, id)
	require.NoError(t, err)
	assert.True(t, a.IsPinned)
	assert.InDelta(t, 0.4, *a.PinnedAllocationPercentage, 1e-9)
	assert.InDelta(t, 0.8, a.ProductivityFactor, 1e-9)

	_, err = repo.GetAssignment(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
