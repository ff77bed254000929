package events

// EventType identifies what happened
type EventType string

const (
	OptimizationCompleted EventType = "OPTIMIZATION_COMPLETED"
	OptimizationFailed    EventType = "OPTIMIZATION_FAILED"
	ProjectUnderStaffed   EventType = "PROJECT_UNDER_STAFFED"
	PersonOverCommitted   EventType = "PERSON_OVER_COMMITTED"
	SnapshotArchived      EventType = "SNAPSHOT_ARCHIVED"
	ErrorOccurred         EventType = "ERROR_OCCURRED"
)
