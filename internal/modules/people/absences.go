package people

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/capacity-planner/internal/domain"
)

// AbsenceRepository handles absence database operations
type AbsenceRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewAbsenceRepository creates a new absence repository
func NewAbsenceRepository(db *sql.DB, log zerolog.Logger) *AbsenceRepository {
	return &AbsenceRepository{
		db:  db,
		log: log.With().Str("repo", "absences").Logger(),
	}
}

// ListAbsences returns absences overlapping r. ISO dates compare correctly as text.
func (r *AbsenceRepository) ListAbsences(ctx context.Context, rng domain.DateRange) ([]domain.Absence, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, person_id, start_date, end_date, days, reason, created_at
		FROM absences
		WHERE start_date <= ? AND end_date >= ?
		ORDER BY person_id, start_date, id`,
		domain.FormatDate(rng.End), domain.FormatDate(rng.Start))
	if err != nil {
		return nil, fmt.Errorf("failed to query absences: %w", err)
	}
	defer rows.Close()

	var absences []domain.Absence
	for rows.Next() {
		var (
			a          domain.Absence
			start, end string
			reason     sql.NullString
			createdAt  int64
		)
		if err := rows.Scan(&a.ID, &a.PersonID, &start, &end, &a.Days, &reason, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan absence: %w", err)
		}
		if a.Start, err = domain.ParseDate(start); err != nil {
			return nil, fmt.Errorf("absence %d: %w", a.ID, err)
		}
		if a.End, err = domain.ParseDate(end); err != nil {
			return nil, fmt.Errorf("absence %d: %w", a.ID, err)
		}
		a.Reason = reason.String
		a.CreatedAt = time.Unix(createdAt, 0).UTC()
		absences = append(absences, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating absences: %w", err)
	}
	return absences, nil
}

// CreateAbsence inserts an absence and returns its id
func (r *AbsenceRepository) CreateAbsence(ctx context.Context, a domain.Absence) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO absences (person_id, start_date, end_date, days, reason) VALUES (?, ?, ?, ?, ?)",
		a.PersonID, domain.FormatDate(a.Start), domain.FormatDate(a.End), a.Days,
		sql.NullString{String: a.Reason, Valid: a.Reason != ""})
	if err != nil {
		return 0, fmt.Errorf("failed to insert absence: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get absence id: %w", err)
	}
	return id, nil
}
