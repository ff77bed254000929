// Package periods stores planning periods.
package periods

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/capacity-planner/internal/domain"
)

const periodColumns = "id, name, start_date, end_date, created_at"

// Repository handles planning period database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new planning period repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "periods").Logger(),
	}
}

// GetPeriod returns a period by id, wrapping domain.ErrNotFound when it does not exist
func (r *Repository) GetPeriod(ctx context.Context, id int64) (*domain.PlanningPeriod, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+periodColumns+" FROM planning_periods WHERE id = ?", id)
	p, err := scanPeriod(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("planning period %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get planning period %d: %w", id, err)
	}
	return p, nil
}

// ListPeriods returns every period, most recent first
func (r *Repository) ListPeriods(ctx context.Context) ([]domain.PlanningPeriod, error) {
	return r.query(ctx, "SELECT "+periodColumns+" FROM planning_periods ORDER BY start_date DESC, id DESC")
}

// ListActivePeriods returns the periods containing day
func (r *Repository) ListActivePeriods(ctx context.Context, day time.Time) ([]domain.PlanningPeriod, error) {
	d := domain.FormatDate(day)
	return r.query(ctx,
		"SELECT "+periodColumns+" FROM planning_periods WHERE start_date <= ? AND end_date >= ? ORDER BY id",
		d, d)
}

// CreatePeriod inserts a period and returns its id
func (r *Repository) CreatePeriod(ctx context.Context, p domain.PlanningPeriod) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO planning_periods (name, start_date, end_date) VALUES (?, ?, ?)",
		nullString(p.Name), domain.FormatDate(p.Start), domain.FormatDate(p.End))
	if err != nil {
		return 0, fmt.Errorf("failed to insert planning period: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get planning period id: %w", err)
	}
	r.log.Debug().Int64("period_id", id).Str("range", p.Range().String()).Msg("Created planning period")
	return id, nil
}

func (r *Repository) query(ctx context.Context, query string, args ...interface{}) ([]domain.PlanningPeriod, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query planning periods: %w", err)
	}
	defer rows.Close()

	var periods []domain.PlanningPeriod
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan planning period: %w", err)
		}
		periods = append(periods, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating planning periods: %w", err)
	}
	return periods, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPeriod(s scanner) (*domain.PlanningPeriod, error) {
	var (
		p          domain.PlanningPeriod
		name       sql.NullString
		start, end string
		createdAt  int64
	)
	if err := s.Scan(&p.ID, &name, &start, &end, &createdAt); err != nil {
		return nil, err
	}

	var err error
	if p.Start, err = domain.ParseDate(start); err != nil {
		return nil, err
	}
	if p.End, err = domain.ParseDate(end); err != nil {
		return nil, err
	}
	p.Name = name.String
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &p, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
