// Package holidays stores countries and their public holidays.
package holidays

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/capacity-planner/internal/domain"
)

// Repository handles country and holiday database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new holiday repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "holidays").Logger(),
	}
}

// ListHolidays returns holidays of every country overlapping rng
func (r *Repository) ListHolidays(ctx context.Context, rng domain.DateRange) ([]domain.Holiday, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, country_id, name, start_date, end_date, created_at
		FROM holidays
		WHERE start_date <= ? AND end_date >= ?
		ORDER BY country_id, start_date, id`,
		domain.FormatDate(rng.End), domain.FormatDate(rng.Start))
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer rows.Close()

	var holidays []domain.Holiday
	for rows.Next() {
		var (
			h          domain.Holiday
			name       sql.NullString
			start, end string
			createdAt  int64
		)
		if err := rows.Scan(&h.ID, &h.CountryID, &name, &start, &end, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan holiday: %w", err)
		}
		if h.Start, err = domain.ParseDate(start); err != nil {
			return nil, fmt.Errorf("holiday %d: %w", h.ID, err)
		}
		if h.End, err = domain.ParseDate(end); err != nil {
			return nil, fmt.Errorf("holiday %d: %w", h.ID, err)
		}
		h.Name = name.String
		h.CreatedAt = time.Unix(createdAt, 0).UTC()
		holidays = append(holidays, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holidays: %w", err)
	}
	return holidays, nil
}

// ListCountries returns every country ordered by name
func (r *Repository) ListCountries(ctx context.Context) ([]domain.Country, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, iso_code, name, created_at FROM countries ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query countries: %w", err)
	}
	defer rows.Close()

	var countries []domain.Country
	for rows.Next() {
		var (
			c         domain.Country
			createdAt int64
		)
		if err := rows.Scan(&c.ID, &c.ISOCode, &c.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan country: %w", err)
		}
		c.CreatedAt = time.Unix(createdAt, 0).UTC()
		countries = append(countries, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating countries: %w", err)
	}
	return countries, nil
}

// CreateCountry inserts a country and returns its id
func (r *Repository) CreateCountry(ctx context.Context, c domain.Country) (int64, error) {
	res, err := r.db.ExecContext(ctx, "INSERT INTO countries (iso_code, name) VALUES (?, ?)", c.ISOCode, c.Name)
	if err != nil {
		return 0, fmt.Errorf("failed to insert country: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get country id: %w", err)
	}
	return id, nil
}

// CreateHoliday inserts a holiday and returns its id
func (r *Repository) CreateHoliday(ctx context.Context, h domain.Holiday) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO holidays (country_id, name, start_date, end_date) VALUES (?, ?, ?, ?)",
		h.CountryID, sql.NullString{String: h.Name, Valid: h.Name != ""},
		domain.FormatDate(h.Start), domain.FormatDate(h.End))
	if err != nil {
		return 0, fmt.Errorf("failed to insert holiday: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get holiday id: %w", err)
	}
	r.log.Debug().Int64("holiday_id", id).Int64("country_id", h.CountryID).Msg("Created holiday")
	return id, nil
}
