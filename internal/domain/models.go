// Package domain provides the core capacity planning entities shared by every module.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// Priority is the demand urgency of a project requirement within a planning period
type Priority int

const (
	PriorityLow     Priority = 0
	PriorityMedium  Priority = 10
	PriorityHigh    Priority = 20
	PriorityBlocker Priority = 30
)

// String returns the lowercase priority name
func (p Priority) String() string {
	switch {
	case p >= PriorityBlocker:
		return "blocker"
	case p >= PriorityHigh:
		return "high"
	case p >= PriorityMedium:
		return "medium"
	default:
		return "low"
	}
}

// ParsePriority accepts the priority name (any case)
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return PriorityLow, nil
	case "medium", "":
		return PriorityMedium, nil
	case "high":
		return PriorityHigh, nil
	case "blocker":
		return PriorityBlocker, nil
	}
	return PriorityLow, fmt.Errorf("unknown priority %q", s)
}

// MarshalText implements encoding.TextMarshaler
func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (p *Priority) UnmarshalText(text []byte) error {
	parsed, err := ParsePriority(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// EffortPeriod is the cadence of a recurring overhead commitment
type EffortPeriod string

const (
	EffortDaily  EffortPeriod = "daily"
	EffortWeekly EffortPeriod = "weekly"
)

// PlanningPeriod is a closed date interval work is planned in
type PlanningPeriod struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name,omitempty"`
	Start     time.Time `json:"start_date"`
	End       time.Time `json:"end_date"`
	CreatedAt time.Time `json:"created_at"`
}

// Range returns the period as a DateRange
func (p PlanningPeriod) Range() DateRange {
	return DateRange{Start: p.Start, End: p.End}
}

// Person is someone whose time is planned
type Person struct {
	ID                    int64      `json:"id"`
	Name                  string     `json:"name"`
	Email                 string     `json:"email"`
	AvailableHoursPerWeek float64    `json:"available_hours_per_week"`
	WorkingDays           WeekdaySet `json:"working_days"`
	CountryID             *int64     `json:"country_id,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
}

// Project is a global unit of work; demand is expressed per period through requirements
type Project struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProjectRequirement is the demand of a project in one planning period
type ProjectRequirement struct {
	ID               int64     `json:"id"`
	ProjectID        int64     `json:"project_id"`
	PlanningPeriodID int64     `json:"planning_period_id"`
	RequiredHours    float64   `json:"required_hours"`
	Priority         Priority  `json:"priority"`
	CreatedAt        time.Time `json:"created_at"`
}

// Assignment links a person to a project within a planning period.
// Pinned fields belong to the person editing the plan; calculated fields belong to the optimizer.
type Assignment struct {
	ID                             int64      `json:"id"`
	PersonID                       int64      `json:"person_id"`
	ProjectID                      int64      `json:"project_id"`
	PlanningPeriodID               int64      `json:"planning_period_id"`
	ProductivityFactor             float64    `json:"productivity_factor"`
	Start                          time.Time  `json:"start_date"`
	End                            time.Time  `json:"end_date"`
	IsPinned                       bool       `json:"is_pinned"`
	PinnedAllocationPercentage     *float64   `json:"pinned_allocation_percentage,omitempty"`
	CalculatedAllocationPercentage *float64   `json:"calculated_allocation_percentage,omitempty"`
	CalculatedEffectiveHours       *float64   `json:"calculated_effective_hours,omitempty"`
	LastCalculatedAt               *time.Time `json:"last_calculated_at,omitempty"`
	CreatedAt                      time.Time  `json:"created_at"`
}

// Range returns the assignment's own date range
func (a Assignment) Range() DateRange {
	return DateRange{Start: a.Start, End: a.End}
}

// Productivity returns the productivity factor clamped to [0,1]
func (a Assignment) Productivity() float64 {
	return Clamp01(a.ProductivityFactor)
}

// PinnedFraction returns the pinned allocation (0 when unset or negative)
func (a Assignment) PinnedFraction() float64 {
	if a.PinnedAllocationPercentage == nil || *a.PinnedAllocationPercentage < 0 {
		return 0
	}
	return *a.PinnedAllocationPercentage
}

// Absence is time a person is away; Days is the business-day count recorded by the editor
type Absence struct {
	ID        int64     `json:"id"`
	PersonID  int64     `json:"person_id"`
	Start     time.Time `json:"start_date"`
	End       time.Time `json:"end_date"`
	Days      int       `json:"days"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Range returns the absence dates
func (a Absence) Range() DateRange {
	return DateRange{Start: a.Start, End: a.End}
}

// Country scopes public holidays
type Country struct {
	ID        int64     `json:"id"`
	ISOCode   string    `json:"iso_code"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Holiday is a public holiday (possibly several days) of a country
type Holiday struct {
	ID        int64     `json:"id"`
	CountryID int64     `json:"country_id"`
	Name      string    `json:"name,omitempty"`
	Start     time.Time `json:"start_date"`
	End       time.Time `json:"end_date"`
	CreatedAt time.Time `json:"created_at"`
}

// Range returns the holiday dates
func (h Holiday) Range() DateRange {
	return DateRange{Start: h.Start, End: h.End}
}

// Overhead is a period-scoped recurring activity (meetings, support rotations)
type Overhead struct {
	ID               int64     `json:"id"`
	PlanningPeriodID int64     `json:"planning_period_id"`
	Name             string    `json:"name"`
	Description      string    `json:"description,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// OverheadAssignment is one person's effort on an Overhead
type OverheadAssignment struct {
	ID           int64        `json:"id"`
	OverheadID   int64        `json:"overhead_id"`
	PersonID     int64        `json:"person_id"`
	EffortHours  float64      `json:"effort_hours"`
	EffortPeriod EffortPeriod `json:"effort_period"`
	CreatedAt    time.Time    `json:"created_at"`
}

// Job is a role template carrying recurring overhead tasks
type Job struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// JobOverheadTask is a recurring task of a job. Optional tasks count with OptionalWeight.
type JobOverheadTask struct {
	ID             int64        `json:"id"`
	JobID          int64        `json:"job_id"`
	Name           string       `json:"name"`
	Description    string       `json:"description,omitempty"`
	EffortHours    float64      `json:"effort_hours"`
	EffortPeriod   EffortPeriod `json:"effort_period"`
	IsOptional     bool         `json:"is_optional"`
	OptionalWeight float64      `json:"optional_weight"`
	CreatedAt      time.Time    `json:"created_at"`
}

// PersonJobAssignment gives a person a job for one planning period
type PersonJobAssignment struct {
	ID               int64     `json:"id"`
	PersonID         int64     `json:"person_id"`
	JobID            int64     `json:"job_id"`
	PlanningPeriodID int64     `json:"planning_period_id"`
	CreatedAt        time.Time `json:"created_at"`
}

// OverheadCommitment is a recurring time commitment of one person, flattened from
// either an OverheadAssignment or a JobOverheadTask
type OverheadCommitment struct {
	Source       string       `json:"source"`
	Name         string       `json:"name"`
	EffortHours  float64      `json:"effort_hours"`
	EffortPeriod EffortPeriod `json:"effort_period"`
	IsOptional   bool         `json:"is_optional"`
	Weight       float64      `json:"weight"`
}

// Clamp01 bounds v to [0,1]
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
