// Package calendar converts a person's weekly availability pattern into hours over date ranges.
package calendar

import (
	"errors"
	"fmt"
	"time"

	"github.com/aristath/capacity-planner/internal/domain"
)

// ErrInvalidRange is returned when a range starts after it ends
var ErrInvalidRange = errors.New("invalid range: start is after end")

// HoursPerWorkingDay spreads the weekly hours evenly over the person's working days.
// A person without working days has no hours.
func HoursPerWorkingDay(person domain.Person) float64 {
	n := person.WorkingDays.Len()
	if n == 0 {
		return 0
	}
	return person.AvailableHoursPerWeek / float64(n)
}

// WorkingDays counts the days in [start, end] whose weekday is in pattern
func WorkingDays(pattern domain.WeekdaySet, start, end time.Time) int {
	r := domain.NewDateRange(start, end)
	if !r.Valid() || pattern.IsEmpty() {
		return 0
	}

	// Whole weeks contribute the full pattern; only the remainder needs walking
	days := r.Days()
	count := (days / 7) * pattern.Len()
	day := r.Start.AddDate(0, 0, (days/7)*7)
	for ; !day.After(r.End); day = day.AddDate(0, 0, 1) {
		if pattern.Has(day.Weekday()) {
			count++
		}
	}
	return count
}

// WorkingDates lists the days in [start, end] whose weekday is in pattern
func WorkingDates(pattern domain.WeekdaySet, start, end time.Time) []time.Time {
	r := domain.NewDateRange(start, end)
	if !r.Valid() {
		return nil
	}
	var dates []time.Time
	r.Each(func(day time.Time) {
		if pattern.Has(day.Weekday()) {
			dates = append(dates, day)
		}
	})
	return dates
}

// Weeks returns the fractional number of weeks covered by [start, end]
func Weeks(start, end time.Time) float64 {
	return float64(domain.NewDateRange(start, end).Days()) / 7.0
}

// AvailableHours returns the raw hours a person can work in [start, end],
// before absences, holidays and overhead are taken into account.
func AvailableHours(person domain.Person, start, end time.Time) (float64, error) {
	r := domain.NewDateRange(start, end)
	if !r.Valid() {
		return 0, fmt.Errorf("%w: %s > %s", ErrInvalidRange, domain.FormatDate(r.Start), domain.FormatDate(r.End))
	}
	return HoursPerWorkingDay(person) * float64(WorkingDays(person.WorkingDays, r.Start, r.End)), nil
}
