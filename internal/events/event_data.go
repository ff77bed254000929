package events

// EventData is implemented by every typed event payload
type EventData interface {
	EventType() EventType
}

// OptimizationCompletedData describes a committed optimization run
type OptimizationCompletedData struct {
	RunID              string `json:"run_id"`
	PlanningPeriodID   int64  `json:"planning_period_id"`
	Calculations       int    `json:"calculations"`
	InfeasibleProjects int    `json:"infeasible_projects"`
	Warnings           int    `json:"warnings"`
	DurationMs         int64  `json:"duration_ms"`
}

// EventType returns the event type for OptimizationCompletedData
func (d *OptimizationCompletedData) EventType() EventType {
	return OptimizationCompleted
}

// OptimizationFailedData describes a run that was aborted without writing anything
type OptimizationFailedData struct {
	PlanningPeriodID int64  `json:"planning_period_id"`
	Kind             string `json:"kind"`
	Error            string `json:"error"`
}

// EventType returns the event type for OptimizationFailedData
func (d *OptimizationFailedData) EventType() EventType {
	return OptimizationFailed
}

// ProjectUnderStaffedData reports a project left short after a run
type ProjectUnderStaffedData struct {
	RunID               string  `json:"run_id"`
	PlanningPeriodID    int64   `json:"planning_period_id"`
	ProjectID           int64   `json:"project_id"`
	ProjectName         string  `json:"project_name"`
	Priority            string  `json:"priority"`
	Shortfall           float64 `json:"shortfall"`
	ShortfallPercentage float64 `json:"shortfall_percentage"`
}

// EventType returns the event type for ProjectUnderStaffedData
func (d *ProjectUnderStaffedData) EventType() EventType {
	return ProjectUnderStaffed
}

// PersonOverCommittedData reports a person whose pinned assignments exceed their time
type PersonOverCommittedData struct {
	RunID            string `json:"run_id"`
	PlanningPeriodID int64  `json:"planning_period_id"`
	PersonID         int64  `json:"person_id"`
}

// EventType returns the event type for PersonOverCommittedData
func (d *PersonOverCommittedData) EventType() EventType {
	return PersonOverCommitted
}

// SnapshotArchivedData reports a run snapshot copied to object storage
type SnapshotArchivedData struct {
	RunID    string `json:"run_id"`
	Location string `json:"location"`
}

// EventType returns the event type for SnapshotArchivedData
func (d *SnapshotArchivedData) EventType() EventType {
	return SnapshotArchived
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}

// PeriodScoped is implemented by payloads that belong to one planning period
type PeriodScoped interface {
	PeriodID() int64
}

// PeriodID returns the planning period of the run
func (d *OptimizationCompletedData) PeriodID() int64 { return d.PlanningPeriodID }

// PeriodID returns the planning period of the failed run
func (d *OptimizationFailedData) PeriodID() int64 { return d.PlanningPeriodID }

// PeriodID returns the planning period of the run
func (d *ProjectUnderStaffedData) PeriodID() int64 { return d.PlanningPeriodID }

// PeriodID returns the planning period of the run
func (d *PersonOverCommittedData) PeriodID() int64 { return d.PlanningPeriodID }
