package di

import (
	"github.com/rs/zerolog"

	"github.com/aristath/capacity-planner/internal/modules/assignments"
	"github.com/aristath/capacity-planner/internal/modules/holidays"
	"github.com/aristath/capacity-planner/internal/modules/overheads"
	"github.com/aristath/capacity-planner/internal/modules/people"
	"github.com/aristath/capacity-planner/internal/modules/periods"
	"github.com/aristath/capacity-planner/internal/modules/planning"
	"github.com/aristath/capacity-planner/internal/modules/projects"
)

// InitializeRepositories creates the sqlite repositories on the container's database
func InitializeRepositories(container *Container, log zerolog.Logger) {
	conn := container.DB.Conn()

	container.PeriodRepo = periods.NewRepository(conn, log)
	container.PersonRepo = people.NewRepository(conn, log)
	container.AbsenceRepo = people.NewAbsenceRepository(conn, log)
	container.ProjectRepo = projects.NewRepository(conn, log)
	container.AssignmentRepo = assignments.NewRepository(conn, log)
	container.HolidayRepo = holidays.NewRepository(conn, log)
	container.OverheadRepo = overheads.NewRepository(conn, log)
}

// Stores exposes the repositories as the plan loader's read stores
func (c *Container) Stores() planning.Stores {
	return planning.Stores{
		Periods:      c.PeriodRepo,
		People:       c.PersonRepo,
		Projects:     c.ProjectRepo,
		Requirements: c.ProjectRepo,
		Assignments:  c.AssignmentRepo,
		Absences:     c.AbsenceRepo,
		Holidays:     c.HolidayRepo,
		Overheads:    c.OverheadRepo,
	}
}
