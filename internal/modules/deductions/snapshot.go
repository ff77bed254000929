package deductions

import (
	"sort"

	"github.com/aristath/capacity-planner/internal/domain"
)

// Snapshot is the deduction data of one planning period, indexed for lookups.
// It is immutable once built so a resolver can be shared across a whole run.
type Snapshot struct {
	absences    map[int64][]domain.Absence
	holidays    map[int64][]domain.Holiday
	commitments map[int64][]domain.OverheadCommitment
}

// NewSnapshot indexes absences by person and holidays by country.
// commitments must already be restricted to the planning period.
func NewSnapshot(
	absences []domain.Absence,
	holidays []domain.Holiday,
	commitments map[int64][]domain.OverheadCommitment,
) Snapshot {
	s := Snapshot{
		absences:    make(map[int64][]domain.Absence),
		holidays:    make(map[int64][]domain.Holiday),
		commitments: make(map[int64][]domain.OverheadCommitment, len(commitments)),
	}
	for _, a := range absences {
		s.absences[a.PersonID] = append(s.absences[a.PersonID], a)
	}
	for _, h := range holidays {
		s.holidays[h.CountryID] = append(s.holidays[h.CountryID], h)
	}
	for personID, list := range commitments {
		cp := make([]domain.OverheadCommitment, len(list))
		copy(cp, list)
		// Stable order keeps floating point sums reproducible
		sort.SliceStable(cp, func(i, j int) bool {
			if cp[i].Source != cp[j].Source {
				return cp[i].Source < cp[j].Source
			}
			return cp[i].Name < cp[j].Name
		})
		s.commitments[personID] = cp
	}
	return s
}

// Absences returns the absences recorded for a person
func (s Snapshot) Absences(personID int64) []domain.Absence {
	return s.absences[personID]
}

// Holidays returns the holidays of a country
func (s Snapshot) Holidays(countryID int64) []domain.Holiday {
	return s.holidays[countryID]
}

// Commitments returns a person's recurring overhead for the period
func (s Snapshot) Commitments(personID int64) []domain.OverheadCommitment {
	return s.commitments[personID]
}
