package optimization

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aristath/capacity-planner/internal/domain"
	"github.com/aristath/capacity-planner/internal/modules/planning"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		kind     ErrorKind
		sentinel error
	}{
		{"missing period", fmt.Errorf("failed to load planning period 3: %w", domain.ErrNotFound), KindPeriodNotFound, ErrPeriodNotFound},
		{"inverted period", fmt.Errorf("%w: period 3", planning.ErrMalformedPeriod), KindMalformedPeriod, ErrMalformedPeriod},
		{"database failure", errors.New("database is locked"), KindStorageUnavailable, ErrStorageUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runErr := Classify(3, tt.err)

			assert.Equal(t, tt.kind, runErr.Kind)
			assert.Equal(t, int64(3), runErr.PeriodID)
			assert.ErrorIs(t, runErr, tt.sentinel)
			assert.ErrorIs(t, runErr, tt.err)
			assert.Contains(t, runErr.Error(), string(tt.kind))
		})
	}

	assert.Nil(t, Classify(3, nil))

	existing := &RunError{Kind: KindMalformedPeriod, PeriodID: 9}
	assert.Same(t, existing, Classify(3, fmt.Errorf("wrapped: %w", existing)))
}
