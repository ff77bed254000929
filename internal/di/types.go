// Package di wires the planner's databases, repositories, services and jobs.
package di

import (
	"github.com/aristath/capacity-planner/internal/database"
	"github.com/aristath/capacity-planner/internal/events"
	"github.com/aristath/capacity-planner/internal/modules/assignments"
	"github.com/aristath/capacity-planner/internal/modules/holidays"
	"github.com/aristath/capacity-planner/internal/modules/optimization"
	"github.com/aristath/capacity-planner/internal/modules/overheads"
	"github.com/aristath/capacity-planner/internal/modules/people"
	"github.com/aristath/capacity-planner/internal/modules/periods"
	"github.com/aristath/capacity-planner/internal/modules/planning"
	"github.com/aristath/capacity-planner/internal/modules/projects"
	"github.com/aristath/capacity-planner/internal/modules/rollup"
	"github.com/aristath/capacity-planner/internal/reliability"
	"github.com/aristath/capacity-planner/internal/scheduler"
)

// Container holds all dependencies for the application.
// It is created by Wire() and handed to the server for access to services.
type Container struct {
	DataDir string
	DB      *database.DB

	// Repositories
	PeriodRepo     *periods.Repository
	PersonRepo     *people.Repository
	AbsenceRepo    *people.AbsenceRepository
	ProjectRepo    *projects.Repository
	AssignmentRepo *assignments.Repository
	HolidayRepo    *holidays.Repository
	OverheadRepo   *overheads.Repository

	// Services
	EventManager        *events.Manager
	PlanLoader          *planning.Loader
	OptimizationService *optimization.Service
	RollupService       *rollup.Service
	SnapshotArchive     *reliability.SnapshotArchive // nil when archiving is disabled
}

// JobInstances holds the background jobs and the scheduler running them
type JobInstances struct {
	Scheduler         *scheduler.Scheduler
	ReoptimizePeriods *scheduler.ReoptimizeActivePeriodsJob
	DailyMaintenance  *reliability.DailyMaintenanceJob
}

// All returns every job, for manual triggering
func (j *JobInstances) All() []scheduler.Job {
	return []scheduler.Job{j.ReoptimizePeriods, j.DailyMaintenance}
}
