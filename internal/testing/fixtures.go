package testing

import (
	"database/sql"
	"testing"
)

// Fixture holds the ids of a seeded planning scenario.
//
// The scenario is one Mon-Fri week (2024-01-08..2024-01-14) with:
//   - Alice: 40h/week, Mon-Fri, country NL, one absence day (Wed)
//   - Bob: 32h/week, Mon-Thu, no country
//   - Apollo: Blocker, 20h required; Alice unpinned (pf 0.5), Bob pinned at 25% (pf 1.0)
//   - Hermes: Low, 30h required; Alice unpinned (pf 0.5)
//   - Zeus: assigned to Bob but without a requirement
//   - a NL holiday on Tuesday and a weekly 2h standup overhead for Alice
type Fixture struct {
	PeriodID  int64
	CountryID int64

	AliceID int64
	BobID   int64

	ApolloID int64
	HermesID int64
	ZeusID   int64

	AliceApollo int64
	AliceHermes int64
	BobApollo   int64
	BobZeus     int64
}

// SeedPlanningFixture inserts the reference scenario with plain SQL
func SeedPlanningFixture(t *testing.T, db *sql.DB) Fixture {
	t.Helper()

	var f Fixture
	insert := func(query string, args ...interface{}) int64 {
		t.Helper()
		res, err := db.Exec(query, args...)
		if err != nil {
			t.Fatalf("Failed to seed fixture (%s): %v", query, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			t.Fatalf("Failed to read fixture id: %v", err)
		}
		return id
	}

	f.PeriodID = insert(`INSERT INTO planning_periods (name, start_date, end_date) VALUES ('Week 2', '2024-01-08', '2024-01-14')`)
	f.CountryID = insert(`INSERT INTO countries (iso_code, name) VALUES ('NL', 'Netherlands')`)

	f.AliceID = insert(`INSERT INTO people (name, email, available_hours_per_week, working_days, country_id)
		VALUES ('Alice', 'alice@example.com', 40, 'Mon,Tue,Wed,Thu,Fri', ?)`, f.CountryID)
	f.BobID = insert(`INSERT INTO people (name, email, available_hours_per_week, working_days)
		VALUES ('Bob', 'bob@example.com', 32, 'Mon,Tue,Wed,Thu')`)

	f.ApolloID = insert(`INSERT INTO projects (name, description) VALUES ('Apollo', 'Launch')`)
	f.HermesID = insert(`INSERT INTO projects (name) VALUES ('Hermes')`)
	f.ZeusID = insert(`INSERT INTO projects (name) VALUES ('Zeus')`)

	insert(`INSERT INTO project_requirements (project_id, planning_period_id, required_hours, priority) VALUES (?, ?, 20, 30)`,
		f.ApolloID, f.PeriodID)
	insert(`INSERT INTO project_requirements (project_id, planning_period_id, required_hours, priority) VALUES (?, ?, 30, 0)`,
		f.HermesID, f.PeriodID)

	assignment := `INSERT INTO assignments (person_id, project_id, planning_period_id, productivity_factor, start_date, end_date, is_pinned, pinned_allocation_percentage)
		VALUES (?, ?, ?, ?, '2024-01-08', '2024-01-14', ?, ?)`
	f.AliceApollo = insert(assignment, f.AliceID, f.ApolloID, f.PeriodID, 0.5, 0, nil)
	f.AliceHermes = insert(assignment, f.AliceID, f.HermesID, f.PeriodID, 0.5, 0, nil)
	f.BobApollo = insert(assignment, f.BobID, f.ApolloID, f.PeriodID, 1.0, 1, 0.25)
	f.BobZeus = insert(assignment, f.BobID, f.ZeusID, f.PeriodID, 1.0, 0, nil)

	insert(`INSERT INTO absences (person_id, start_date, end_date, days, reason) VALUES (?, '2024-01-10', '2024-01-10', 1, 'Dentist')`, f.AliceID)
	insert(`INSERT INTO holidays (country_id, name, start_date, end_date) VALUES (?, 'Founders Day', '2024-01-09', '2024-01-09')`, f.CountryID)

	overheadID := insert(`INSERT INTO overheads (planning_period_id, name) VALUES (?, 'Standup')`, f.PeriodID)
	insert(`INSERT INTO overhead_assignments (overhead_id, person_id, effort_hours, effort_period) VALUES (?, ?, 2, 'weekly')`,
		overheadID, f.AliceID)

	return f
}
