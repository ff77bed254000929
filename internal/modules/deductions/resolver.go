// Package deductions turns raw calendar hours into net available hours by subtracting
// absences, public holidays and recurring overhead commitments.
package deductions

import (
	"math"
	"time"

	"github.com/aristath/capacity-planner/internal/domain"
	"github.com/aristath/capacity-planner/internal/modules/calendar"
)

// Breakdown keeps every term of the net hours computation for display and audit.
// NetHours = max(0, BaseHours - AbsenceHours - HolidayHours - TotalOverheadHours()).
type Breakdown struct {
	HoursPerWorkingDay            float64 `json:"hours_per_working_day"`
	WorkingDays                   int     `json:"working_days"`
	BaseHours                     float64 `json:"base_available_hours"`
	AbsenceDays                   int     `json:"absence_days"`
	AbsenceHours                  float64 `json:"absence_hours"`
	HolidayDays                   int     `json:"holiday_days"`
	HolidayHours                  float64 `json:"holiday_hours"`
	OverheadHours                 float64 `json:"overhead_hours"`
	OptionalOverheadHours         float64 `json:"optional_overhead_hours"`
	WeightedOptionalOverheadHours float64 `json:"weighted_optional_overhead_hours"`
	NetHours                      float64 `json:"net_available_hours"`
}

// TotalOverheadHours is the overhead actually deducted: required plus expected optional hours
func (b Breakdown) TotalOverheadHours() float64 {
	return b.OverheadHours + b.WeightedOptionalOverheadHours
}

// Add accumulates another breakdown, used when summing disjoint ranges
func (b Breakdown) Add(other Breakdown) Breakdown {
	b.WorkingDays += other.WorkingDays
	b.BaseHours += other.BaseHours
	b.AbsenceDays += other.AbsenceDays
	b.AbsenceHours += other.AbsenceHours
	b.HolidayDays += other.HolidayDays
	b.HolidayHours += other.HolidayHours
	b.OverheadHours += other.OverheadHours
	b.OptionalOverheadHours += other.OptionalOverheadHours
	b.WeightedOptionalOverheadHours += other.WeightedOptionalOverheadHours
	b.NetHours += other.NetHours
	if b.HoursPerWorkingDay == 0 {
		b.HoursPerWorkingDay = other.HoursPerWorkingDay
	}
	return b
}

// Resolver computes net available hours against a period snapshot
type Resolver struct {
	snapshot Snapshot
}

// NewResolver creates a resolver over the given snapshot
func NewResolver(snapshot Snapshot) *Resolver {
	return &Resolver{snapshot: snapshot}
}

// NetAvailableHours returns the full deduction breakdown for a person over [start, end].
// Fails with calendar.ErrInvalidRange when start > end.
func (r *Resolver) NetAvailableHours(person domain.Person, start, end time.Time) (Breakdown, error) {
	base, err := calendar.AvailableHours(person, start, end)
	if err != nil {
		return Breakdown{}, err
	}

	rng := domain.NewDateRange(start, end)
	hpd := calendar.HoursPerWorkingDay(person)
	b := Breakdown{
		HoursPerWorkingDay: hpd,
		WorkingDays:        calendar.WorkingDays(person.WorkingDays, rng.Start, rng.End),
		BaseHours:          base,
	}

	absent := r.absenceDays(person, rng)
	b.AbsenceDays = len(absent)
	b.AbsenceHours = hpd * float64(b.AbsenceDays)

	b.HolidayDays = r.holidayDays(person, rng, absent)
	b.HolidayHours = hpd * float64(b.HolidayDays)

	weeks := calendar.Weeks(rng.Start, rng.End)
	for _, c := range r.snapshot.Commitments(person.ID) {
		var hours float64
		switch c.EffortPeriod {
		case domain.EffortWeekly:
			hours = c.EffortHours * weeks
		case domain.EffortDaily:
			hours = c.EffortHours * float64(b.WorkingDays)
		}
		if c.IsOptional {
			b.OptionalOverheadHours += hours
			b.WeightedOptionalOverheadHours += hours * domain.Clamp01(c.Weight)
		} else {
			b.OverheadHours += hours
		}
	}

	b.NetHours = math.Max(0, b.BaseHours-b.AbsenceHours-b.HolidayHours-b.TotalOverheadHours())
	return b, nil
}

// absenceDays returns the set of working days inside rng covered by any absence.
// Overlapping absences share days, so each day is counted once.
func (r *Resolver) absenceDays(person domain.Person, rng domain.DateRange) map[time.Time]struct{} {
	days := make(map[time.Time]struct{})
	for _, a := range r.snapshot.Absences(person.ID) {
		overlap, ok := rng.Intersect(a.Range())
		if !ok {
			continue
		}
		overlap.Each(func(day time.Time) {
			if person.WorkingDays.Has(day.Weekday()) {
				days[day] = struct{}{}
			}
		})
	}
	return days
}

// holidayDays counts working days inside rng that are holidays in the person's
// country and not already deducted as absence.
func (r *Resolver) holidayDays(person domain.Person, rng domain.DateRange, absent map[time.Time]struct{}) int {
	if person.CountryID == nil {
		return 0
	}
	days := make(map[time.Time]struct{})
	for _, h := range r.snapshot.Holidays(*person.CountryID) {
		overlap, ok := rng.Intersect(h.Range())
		if !ok {
			continue
		}
		overlap.Each(func(day time.Time) {
			if !person.WorkingDays.Has(day.Weekday()) {
				return
			}
			if _, isAbsent := absent[day]; isAbsent {
				return
			}
			days[day] = struct{}{}
		})
	}
	return len(days)
}
