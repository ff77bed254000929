// Package assignments stores assignments and commits optimization results.
package assignments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/capacity-planner/internal/database"
	"github.com/aristath/capacity-planner/internal/domain"
)

const assignmentColumns = `id, person_id, project_id, planning_period_id, productivity_factor, start_date, end_date,
	is_pinned, pinned_allocation_percentage, calculated_allocation_percentage, calculated_effective_hours,
	last_calculated_at, created_at`

// Repository handles assignment database operations.
// It is the only writer of calculated_* columns and never touches pinned_* columns.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new assignment repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "assignments").Logger(),
	}
}

// ListAssignments returns the assignments of a period ordered by id
func (r *Repository) ListAssignments(ctx context.Context, periodID int64) ([]domain.Assignment, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+assignmentColumns+" FROM assignments WHERE planning_period_id = ? ORDER BY id", periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var out []domain.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assignments: %w", err)
	}
	return out, nil
}

// GetAssignment returns an assignment by id, wrapping domain.ErrNotFound when missing
func (r *Repository) GetAssignment(ctx context.Context, id int64) (*domain.Assignment, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+assignmentColumns+" FROM assignments WHERE id = ?", id)
	a, err := scanAssignment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("assignment %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment %d: %w", id, err)
	}
	return a, nil
}

// CreateAssignment inserts an assignment and returns its id
func (r *Repository) CreateAssignment(ctx context.Context, a domain.Assignment) (int64, error) {
	var pinned sql.NullFloat64
	if a.PinnedAllocationPercentage != nil {
		pinned = sql.NullFloat64{Float64: *a.PinnedAllocationPercentage, Valid: true}
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO assignments (person_id, project_id, planning_period_id, productivity_factor,
			start_date, end_date, is_pinned, pinned_allocation_percentage)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.PersonID, a.ProjectID, a.PlanningPeriodID, a.ProductivityFactor,
		domain.FormatDate(a.Start), domain.FormatDate(a.End), a.IsPinned, pinned)
	if err != nil {
		return 0, fmt.Errorf("failed to insert assignment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get assignment id: %w", err)
	}
	return id, nil
}

// SaveCalculations writes every calculation and the run record in one transaction.
// Pinned assignments are filtered in SQL so a concurrent pin is never overwritten.
func (r *Repository) SaveCalculations(ctx context.Context, run domain.OptimizationRun, calcs []domain.AssignmentCalculation) error {
	at := run.CalculatedAt.Unix()

	err := database.WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			UPDATE assignments
			SET calculated_allocation_percentage = ?, calculated_effective_hours = ?, last_calculated_at = ?
			WHERE id = ? AND planning_period_id = ? AND is_pinned = 0`)
		if err != nil {
			return fmt.Errorf("failed to prepare calculation update: %w", err)
		}
		defer stmt.Close()

		for _, c := range calcs {
			if _, err := stmt.ExecContext(ctx, c.AllocationPercentage, c.EffectiveHours, at, c.AssignmentID, run.PlanningPeriodID); err != nil {
				return fmt.Errorf("failed to update assignment %d: %w", c.AssignmentID, err)
			}
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO optimization_runs (id, planning_period_id, calculated_at, snapshot) VALUES (?, ?, ?, ?)",
			run.ID, run.PlanningPeriodID, at, run.Snapshot); err != nil {
			return fmt.Errorf("failed to insert optimization run: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save calculations for period %d: %w", run.PlanningPeriodID, err)
	}

	r.log.Debug().
		Str("run_id", run.ID).
		Int64("period_id", run.PlanningPeriodID).
		Int("calculations", len(calcs)).
		Msg("Committed optimization run")
	return nil
}

// GetLatestRun returns the most recent committed run of a period
func (r *Repository) GetLatestRun(ctx context.Context, periodID int64) (*domain.OptimizationRun, error) {
	var (
		run domain.OptimizationRun
		at  int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, planning_period_id, calculated_at, snapshot
		FROM optimization_runs
		WHERE planning_period_id = ?
		ORDER BY calculated_at DESC, rowid DESC
		LIMIT 1`, periodID).Scan(&run.ID, &run.PlanningPeriodID, &at, &run.Snapshot)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("optimization run of period %d: %w", periodID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest optimization run: %w", err)
	}
	run.CalculatedAt = time.Unix(at, 0).UTC()
	return &run, nil
}

// PruneRuns keeps the newest keep runs of every period and deletes the rest
func (r *Repository) PruneRuns(ctx context.Context, keep int) (int64, error) {
	if keep < 1 {
		keep = 1
	}
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM optimization_runs
		WHERE rowid IN (
			SELECT rowid FROM (
				SELECT rowid, ROW_NUMBER() OVER (
					PARTITION BY planning_period_id ORDER BY calculated_at DESC, rowid DESC
				) AS rn
				FROM optimization_runs
			) WHERE rn > ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune optimization runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned optimization runs: %w", err)
	}
	if n > 0 {
		r.log.Info().Int64("deleted", n).Int("kept_per_period", keep).Msg("Pruned optimization runs")
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAssignment(s scanner) (*domain.Assignment, error) {
	var (
		a                  domain.Assignment
		start, end         string
		pinnedPct, calcPct sql.NullFloat64
		calcHours          sql.NullFloat64
		lastCalculated     sql.NullInt64
		createdAt          int64
	)
	if err := s.Scan(&a.ID, &a.PersonID, &a.ProjectID, &a.PlanningPeriodID, &a.ProductivityFactor,
		&start, &end, &a.IsPinned, &pinnedPct, &calcPct, &calcHours, &lastCalculated, &createdAt); err != nil {
		return nil, err
	}

	var err error
	if a.Start, err = domain.ParseDate(start); err != nil {
		return nil, fmt.Errorf("assignment %d: %w", a.ID, err)
	}
	if a.End, err = domain.ParseDate(end); err != nil {
		return nil, fmt.Errorf("assignment %d: %w", a.ID, err)
	}
	if pinnedPct.Valid {
		v := pinnedPct.Float64
		a.PinnedAllocationPercentage = &v
	}
	if calcPct.Valid {
		v := calcPct.Float64
		a.CalculatedAllocationPercentage = &v
	}
	if calcHours.Valid {
		v := calcHours.Float64
		a.CalculatedEffectiveHours = &v
	}
	if lastCalculated.Valid {
		t := time.Unix(lastCalculated.Int64, 0).UTC()
		a.LastCalculatedAt = &t
	}
	a.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &a, nil
}
