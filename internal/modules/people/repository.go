// Package people stores people and their absences.
package people

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/capacity-planner/internal/domain"
)

const personColumns = "id, name, email, available_hours_per_week, working_days, country_id, created_at"

// Repository handles person database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new person repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "people").Logger(),
	}
}

// GetPerson returns a person by id, wrapping domain.ErrNotFound when missing
func (r *Repository) GetPerson(ctx context.Context, id int64) (*domain.Person, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+personColumns+" FROM people WHERE id = ?", id)
	p, err := scanPerson(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("person %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get person %d: %w", id, err)
	}
	return p, nil
}

// ListPeople returns every person ordered by id
func (r *Repository) ListPeople(ctx context.Context) ([]domain.Person, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+personColumns+" FROM people ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query people: %w", err)
	}
	defer rows.Close()

	var people []domain.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		people = append(people, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating people: %w", err)
	}
	return people, nil
}

// CreatePerson inserts a person and returns its id. An empty weekday set defaults to Mon-Fri.
func (r *Repository) CreatePerson(ctx context.Context, p domain.Person) (int64, error) {
	days := p.WorkingDays
	if days.IsEmpty() {
		days = domain.WorkWeek
	}
	var country sql.NullInt64
	if p.CountryID != nil {
		country = sql.NullInt64{Int64: *p.CountryID, Valid: true}
	}

	res, err := r.db.ExecContext(ctx,
		"INSERT INTO people (name, email, available_hours_per_week, working_days, country_id) VALUES (?, ?, ?, ?, ?)",
		p.Name, p.Email, p.AvailableHoursPerWeek, days.String(), country)
	if err != nil {
		return 0, fmt.Errorf("failed to insert person: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get person id: %w", err)
	}
	r.log.Debug().Int64("person_id", id).Str("working_days", days.String()).Msg("Created person")
	return id, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPerson(s scanner) (*domain.Person, error) {
	var (
		p         domain.Person
		days      string
		country   sql.NullInt64
		createdAt int64
	)
	if err := s.Scan(&p.ID, &p.Name, &p.Email, &p.AvailableHoursPerWeek, &days, &country, &createdAt); err != nil {
		return nil, err
	}

	set, err := domain.ParseWeekdaySet(days)
	if err != nil {
		return nil, fmt.Errorf("person %d: %w", p.ID, err)
	}
	p.WorkingDays = set
	if country.Valid {
		id := country.Int64
		p.CountryID = &id
	}
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &p, nil
}
