// Package overheads stores recurring non-project commitments: period overheads and job tasks.
package overheads

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/capacity-planner/internal/domain"
)

// DefaultOptionalWeight is the expected share of an optional task actually performed
const DefaultOptionalWeight = 0.5

const (
	SourceOverhead = "overhead"
	SourceJob      = "job"
)

// Repository handles overhead and job database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new overhead repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "overheads").Logger(),
	}
}

// ListCommitments flattens both overhead sources of a period into per-person commitments
func (r *Repository) ListCommitments(ctx context.Context, periodID int64) (map[int64][]domain.OverheadCommitment, error) {
	out := make(map[int64][]domain.OverheadCommitment)

	rows, err := r.db.QueryContext(ctx, `
		SELECT oa.person_id, o.name, oa.effort_hours, oa.effort_period
		FROM overhead_assignments oa
		JOIN overheads o ON o.id = oa.overhead_id
		WHERE o.planning_period_id = ?
		ORDER BY oa.person_id, oa.id`, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to query overhead assignments: %w", err)
	}
	if err := collect(rows, out, false); err != nil {
		return nil, fmt.Errorf("failed to read overhead assignments: %w", err)
	}

	rows, err = r.db.QueryContext(ctx, `
		SELECT pja.person_id, t.name, t.effort_hours, t.effort_period, t.is_optional, t.optional_weight
		FROM person_job_assignments pja
		JOIN job_overhead_tasks t ON t.job_id = pja.job_id
		WHERE pja.planning_period_id = ?
		ORDER BY pja.person_id, t.id`, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to query job overhead tasks: %w", err)
	}
	if err := collect(rows, out, true); err != nil {
		return nil, fmt.Errorf("failed to read job overhead tasks: %w", err)
	}

	return out, nil
}

func collect(rows *sql.Rows, out map[int64][]domain.OverheadCommitment, fromJobs bool) error {
	defer rows.Close()
	for rows.Next() {
		var (
			personID int64
			c        domain.OverheadCommitment
			period   string
			optional bool
			weight   float64
		)
		dest := []interface{}{&personID, &c.Name, &c.EffortHours, &period}
		if fromJobs {
			dest = append(dest, &optional, &weight)
		}
		if err := rows.Scan(dest...); err != nil {
			return err
		}

		c.EffortPeriod = domain.EffortPeriod(period)
		c.Source = SourceOverhead
		c.Weight = 1
		if fromJobs {
			c.Source = SourceJob
			c.IsOptional = optional
			if optional {
				c.Weight = weight
			}
		}
		out[personID] = append(out[personID], c)
	}
	return rows.Err()
}

// CreateOverhead inserts a period overhead and returns its id
func (r *Repository) CreateOverhead(ctx context.Context, o domain.Overhead) (int64, error) {
	return r.insert(ctx, "overhead",
		"INSERT INTO overheads (planning_period_id, name, description) VALUES (?, ?, ?)",
		o.PlanningPeriodID, o.Name, nullString(o.Description))
}

// AssignOverhead records a person's effort on an overhead
func (r *Repository) AssignOverhead(ctx context.Context, a domain.OverheadAssignment) (int64, error) {
	return r.insert(ctx, "overhead assignment",
		"INSERT INTO overhead_assignments (overhead_id, person_id, effort_hours, effort_period) VALUES (?, ?, ?, ?)",
		a.OverheadID, a.PersonID, a.EffortHours, string(a.EffortPeriod))
}

// CreateJob inserts a job template and returns its id
func (r *Repository) CreateJob(ctx context.Context, j domain.Job) (int64, error) {
	return r.insert(ctx, "job",
		"INSERT INTO jobs (name, description) VALUES (?, ?)",
		j.Name, nullString(j.Description))
}

// CreateJobTask inserts a job overhead task. Optional tasks without a weight get DefaultOptionalWeight.
func (r *Repository) CreateJobTask(ctx context.Context, t domain.JobOverheadTask) (int64, error) {
	weight := t.OptionalWeight
	if t.IsOptional && weight == 0 {
		weight = DefaultOptionalWeight
	}
	return r.insert(ctx, "job overhead task", `
		INSERT INTO job_overhead_tasks (job_id, name, description, effort_hours, effort_period, is_optional, optional_weight)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.JobID, t.Name, nullString(t.Description), t.EffortHours, string(t.EffortPeriod), t.IsOptional, domain.Clamp01(weight))
}

// AssignJob gives a person a job for a planning period
func (r *Repository) AssignJob(ctx context.Context, a domain.PersonJobAssignment) (int64, error) {
	return r.insert(ctx, "person job assignment",
		"INSERT INTO person_job_assignments (person_id, job_id, planning_period_id) VALUES (?, ?, ?)",
		a.PersonID, a.JobID, a.PlanningPeriodID)
}

func (r *Repository) insert(ctx context.Context, what, query string, args ...interface{}) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert %s: %w", what, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get %s id: %w", what, err)
	}
	return id, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
