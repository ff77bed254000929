package optimization

import (
	"errors"
	"fmt"

	"github.com/aristath/capacity-planner/internal/domain"
	"github.com/aristath/capacity-planner/internal/modules/planning"
)

// ErrorKind classifies fatal optimization failures
type ErrorKind string

const (
	KindPeriodNotFound     ErrorKind = "period_not_found"
	KindStorageUnavailable ErrorKind = "storage_unavailable"
	KindMalformedPeriod    ErrorKind = "malformed_period"
)

var (
	// ErrPeriodNotFound matches runs against a planning period that does not exist
	ErrPeriodNotFound = errors.New("planning period not found")
	// ErrStorageUnavailable matches runs that could not read or commit their data
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrMalformedPeriod matches runs against a period whose start is after its end
	ErrMalformedPeriod = errors.New("malformed planning period")
)

// RunError is the only error a run returns. Nothing is written when a run fails.
type RunError struct {
	Kind     ErrorKind
	PeriodID int64
	Err      error
}

func (e *RunError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("optimization of period %d failed: %s", e.PeriodID, e.Kind)
	}
	return fmt.Sprintf("optimization of period %d failed: %s: %v", e.PeriodID, e.Kind, e.Err)
}

// Unwrap exposes both the kind sentinel and the underlying cause to errors.Is
func (e *RunError) Unwrap() []error {
	errs := []error{e.sentinel()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func (e *RunError) sentinel() error {
	switch e.Kind {
	case KindPeriodNotFound:
		return ErrPeriodNotFound
	case KindMalformedPeriod:
		return ErrMalformedPeriod
	default:
		return ErrStorageUnavailable
	}
}

// Classify turns a load or commit error into a RunError
func Classify(periodID int64, err error) *RunError {
	if err == nil {
		return nil
	}
	var runErr *RunError
	if errors.As(err, &runErr) {
		return runErr
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return &RunError{Kind: KindPeriodNotFound, PeriodID: periodID, Err: err}
	case errors.Is(err, planning.ErrMalformedPeriod):
		return &RunError{Kind: KindMalformedPeriod, PeriodID: periodID, Err: err}
	default:
		return &RunError{Kind: KindStorageUnavailable, PeriodID: periodID, Err: err}
	}
}
