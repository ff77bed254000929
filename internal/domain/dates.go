package domain

import (
	"fmt"
	"time"
)

// DateLayout is the ISO-8601 calendar date layout used at every storage and API boundary
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD string into a UTC midnight time
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders a date as YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Date builds a UTC midnight date
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// TruncateDay drops the time-of-day component and normalizes to UTC
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateRange is a closed calendar interval [Start, End]
type DateRange struct {
	Start time.Time `json:"start_date"`
	End   time.Time `json:"end_date"`
}

// NewDateRange builds a range from two dates, normalized to whole days
func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: TruncateDay(start), End: TruncateDay(end)}
}

// Valid reports whether Start <= End
func (r DateRange) Valid() bool {
	return !r.End.Before(r.Start)
}

// Days returns the number of calendar days in the range, 0 when inverted
func (r DateRange) Days() int {
	if !r.Valid() {
		return 0
	}
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// Contains reports whether the given day lies inside the range
func (r DateRange) Contains(day time.Time) bool {
	day = TruncateDay(day)
	return !day.Before(r.Start) && !day.After(r.End)
}

// Intersect returns the overlap of two ranges; ok is false when they do not overlap
func (r DateRange) Intersect(other DateRange) (DateRange, bool) {
	start := r.Start
	if other.Start.After(start) {
		start = other.Start
	}
	end := r.End
	if other.End.Before(end) {
		end = other.End
	}
	out := DateRange{Start: start, End: end}
	return out, out.Valid()
}

// Each calls fn for every day in the range in ascending order
func (r DateRange) Each(fn func(day time.Time)) {
	for day := r.Start; !day.After(r.End); day = day.AddDate(0, 0, 1) {
		fn(day)
	}
}

func (r DateRange) String() string {
	return FormatDate(r.Start) + ".." + FormatDate(r.End)
}
