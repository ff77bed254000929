package holidays

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

func TestRepository(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "holidays")
	defer cleanup()
	f := testingpkg.SeedPlanningFixture(t, db.Conn())

	repo := NewRepository(db.Conn(), zerolog.Nop())
	ctx := context.Background()

	be, err := repo.CreateCountry(ctx, domain.Country{ISOCode: "BE", Name: "Belgium"})
	require.NoError(t, err)

	// Partially overlaps the fixture week
	_, err = repo.CreateHoliday(ctx, domain.Holiday{
		CountryID: be,
		Name:      "Winter break",
		Start:     domain.Date(2024, time.January, 12),
		End:       domain.Date(2024, time.January, 19),
	})
	require.NoError(t, err)

	week := domain.NewDateRange(domain.Date(2024, time.January, 8), domain.Date(2024, time.January, 14))
	holidays, err := repo.ListHolidays(ctx, week)
	require.NoError(t, err)
	require.Len(t, holidays, 2)
	assert.Equal(t, f.CountryID, holidays[0].CountryID)
	assert.Equal(t, "Founders Day", holidays[0].Name)
	assert.Equal(t, be, holidays[1].CountryID)

	later := domain.NewDateRange(domain.Date(2024, time.February, 1), domain.Date(2024, time.February, 7))
	holidays, err = repo.ListHolidays(ctx, later)
	require.NoError(t, err)
	assert.Empty(t, holidays)

	countries, err := repo.ListCountries(ctx)
	require.NoError(t, err)
	require.Len(t, countries, 2)
	assert.Equal(t, "Belgium", countries[0].Name)
}
