package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriority_Ordering(t *testing.T) {
	assert.True(t, PriorityBlocker > PriorityHigh)
	assert.True(t, PriorityHigh > PriorityMedium)
	assert.True(t, PriorityMedium > PriorityLow)
}

func TestParsePriority(t *testing.T) {
	tests := []struct {
		input    string
		expected Priority
		wantErr  bool
	}{
		{"low", PriorityLow, false},
		{"Medium", PriorityMedium, false},
		{"HIGH", PriorityHigh, false},
		{"blocker", PriorityBlocker, false},
		{"", PriorityMedium, false},
		{"urgent", PriorityLow, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			p, err := ParsePriority(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, p)
		})
	}
}

func TestPriority_JSON(t *testing.T) {
	req := ProjectRequirement{ProjectID: 7, RequiredHours: 20, Priority: PriorityBlocker}

	data, err := json.Marshal(req)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"priority":"blocker"`)

	var decoded ProjectRequirement
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, PriorityBlocker, decoded.Priority)
}

func TestAssignment_ProductivityClamped(t *testing.T) {
	assert.Equal(t, 1.0, Assignment{ProductivityFactor: 1.4}.Productivity())
	assert.Equal(t, 0.0, Assignment{ProductivityFactor: -0.2}.Productivity())
	assert.Equal(t, 0.65, Assignment{ProductivityFactor: 0.65}.Productivity())
}

func TestAssignment_PinnedFraction(t *testing.T) {
	pinned := 0.4
	negative := -0.1

	assert.Equal(t, 0.4, Assignment{IsPinned: true, PinnedAllocationPercentage: &pinned}.PinnedFraction())
	assert.Equal(t, 0.0, Assignment{IsPinned: true, PinnedAllocationPercentage: &negative}.PinnedFraction())
	assert.Equal(t, 0.0, Assignment{IsPinned: true}.PinnedFraction())
}

func TestDateRange(t *testing.T) {
	r := NewDateRange(Date(2024, time.January, 8), Date(2024, time.January, 14))

	assert.True(t, r.Valid())
	assert.Equal(t, 7, r.Days())
	assert.True(t, r.Contains(Date(2024, time.January, 8)))
	assert.True(t, r.Contains(time.Date(2024, time.January, 14, 18, 30, 0, 0, time.UTC)))
	assert.False(t, r.Contains(Date(2024, time.January, 15)))

	inverted := DateRange{Start: r.End, End: r.Start}
	assert.False(t, inverted.Valid())
	assert.Equal(t, 0, inverted.Days())
}

func TestDateRange_Intersect(t *testing.T) {
	period := NewDateRange(Date(2024, time.January, 1), Date(2024, time.January, 31))

	overlap, ok := period.Intersect(NewDateRange(Date(2023, time.December, 28), Date(2024, time.January, 3)))
	require.True(t, ok)
	assert.Equal(t, Date(2024, time.January, 1), overlap.Start)
	assert.Equal(t, Date(2024, time.January, 3), overlap.End)

	_, ok = period.Intersect(NewDateRange(Date(2024, time.February, 1), Date(2024, time.February, 2)))
	assert.False(t, ok)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, Date(2024, time.March, 15), d)
	assert.Equal(t, "2024-03-15", FormatDate(d))

	_, err = ParseDate("15/03/2024")
	assert.Error(t, err)
}
