package optimization

import (
	"math"
	"sort"
)

// PersonAllocationLedger tracks how much of each person's capacity pool is taken.
// Pinned reservations are recorded first, then calculated assignments consume what is left.
type PersonAllocationLedger struct {
	reserved map[int64]float64
	consumed map[int64]float64
}

// NewPersonAllocationLedger creates an empty ledger
func NewPersonAllocationLedger() *PersonAllocationLedger {
	return &PersonAllocationLedger{
		reserved: make(map[int64]float64),
		consumed: make(map[int64]float64),
	}
}

// Reserve records a pinned share of a person's pool
func (l *PersonAllocationLedger) Reserve(personID int64, share float64) {
	if share <= 0 {
		return
	}
	l.reserved[personID] += share
}

// Consume records a calculated share of a person's pool
func (l *PersonAllocationLedger) Consume(personID int64, share float64) {
	if share <= 0 {
		return
	}
	l.consumed[personID] += share
}

// Reserved returns the pinned share of a person's pool
func (l *PersonAllocationLedger) Reserved(personID int64) float64 {
	return l.reserved[personID]
}

// Consumed returns the calculated share of a person's pool
func (l *PersonAllocationLedger) Consumed(personID int64) float64 {
	return l.consumed[personID]
}

// Free returns the share of a person's pool still available.
// A person over-committed by pinned assignments has none.
func (l *PersonAllocationLedger) Free(personID int64) float64 {
	if l.IsOverCommitted(personID) {
		return 0
	}
	return math.Max(0, 1-l.reserved[personID]-l.consumed[personID])
}

// IsOverCommitted reports whether pinned reservations exceed the whole pool
func (l *PersonAllocationLedger) IsOverCommitted(personID int64) bool {
	return l.reserved[personID] > 1+epsilon
}

// OverCommitted lists people whose pinned reservations exceed their pool, ascending
func (l *PersonAllocationLedger) OverCommitted() []int64 {
	var ids []int64
	for id := range l.reserved {
		if l.IsOverCommitted(id) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
