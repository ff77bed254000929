package domain

import (
	"fmt"
	"math/bits"
	"strings"
	"time"
)

// WeekdaySet is a bitmask of the seven weekdays, bit i set for time.Weekday(i)
type WeekdaySet uint8

const allWeekdays WeekdaySet = 1<<7 - 1

// WorkWeek is the Monday to Friday pattern used when nothing else is configured
var WorkWeek = NewWeekdaySet(time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday)

var weekdayCodes = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// NewWeekdaySet builds a set from the given weekdays
func NewWeekdaySet(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s = s.With(d)
	}
	return s
}

// With returns a copy of the set including d
func (s WeekdaySet) With(d time.Weekday) WeekdaySet {
	if d < time.Sunday || d > time.Saturday {
		return s
	}
	return s | 1<<uint(d)
}

// Has reports whether d is in the set
func (s WeekdaySet) Has(d time.Weekday) bool {
	return s&(1<<uint(d)) != 0
}

// Len returns the number of weekdays in the set
func (s WeekdaySet) Len() int {
	return bits.OnesCount8(uint8(s & allWeekdays))
}

// IsEmpty reports whether no weekday is set
func (s WeekdaySet) IsEmpty() bool {
	return s&allWeekdays == 0
}

// Days lists the weekdays in Monday-first order
func (s WeekdaySet) Days() []time.Weekday {
	days := make([]time.Weekday, 0, s.Len())
	for i := 1; i <= 7; i++ {
		d := time.Weekday(i % 7)
		if s.Has(d) {
			days = append(days, d)
		}
	}
	return days
}

// String renders the set as comma-separated three letter codes, e.g. "Mon,Tue,Wed"
func (s WeekdaySet) String() string {
	codes := make([]string, 0, s.Len())
	for _, d := range s.Days() {
		codes = append(codes, weekdayCodes[d])
	}
	return strings.Join(codes, ",")
}

// ParseWeekdaySet parses the comma-separated storage encoding ("Mon,Tue,Wed,Thu,Fri").
// Blank entries are ignored; unknown codes are an error.
func ParseWeekdaySet(raw string) (WeekdaySet, error) {
	var s WeekdaySet
	for _, part := range strings.Split(raw, ",") {
		code := strings.TrimSpace(part)
		if code == "" {
			continue
		}
		found := false
		for i, c := range weekdayCodes {
			if strings.EqualFold(c, code) {
				s = s.With(time.Weekday(i))
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown weekday code %q", code)
		}
	}
	return s, nil
}

// MarshalText implements encoding.TextMarshaler
func (s WeekdaySet) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *WeekdaySet) UnmarshalText(text []byte) error {
	parsed, err := ParseWeekdaySet(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
