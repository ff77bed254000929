// Package projects stores projects and their per-period requirements.
package projects

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/capacity-planner/internal/domain"
)

// Repository handles project and requirement database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new project repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "projects").Logger(),
	}
}

// GetProject returns a project by id, wrapping domain.ErrNotFound when missing
func (r *Repository) GetProject(ctx context.Context, id int64) (*domain.Project, error) {
	var (
		p         domain.Project
		desc      sql.NullString
		createdAt int64
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, description, created_at FROM projects WHERE id = ?", id,
	).Scan(&p.ID, &p.Name, &desc, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project %d: %w", id, err)
	}
	p.Description = desc.String
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &p, nil
}

// ListProjects returns every project ordered by id
func (r *Repository) ListProjects(ctx context.Context) ([]domain.Project, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, description, created_at FROM projects ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	var projects []domain.Project
	for rows.Next() {
		var (
			p         domain.Project
			desc      sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&p.ID, &p.Name, &desc, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		p.Description = desc.String
		p.CreatedAt = time.Unix(createdAt, 0).UTC()
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}
	return projects, nil
}

// CreateProject inserts a project and returns its id
func (r *Repository) CreateProject(ctx context.Context, p domain.Project) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO projects (name, description) VALUES (?, ?)",
		p.Name, sql.NullString{String: p.Description, Valid: p.Description != ""})
	if err != nil {
		return 0, fmt.Errorf("failed to insert project: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get project id: %w", err)
	}
	r.log.Debug().Int64("project_id", id).Str("name", p.Name).Msg("Created project")
	return id, nil
}

const requirementColumns = "id, project_id, planning_period_id, required_hours, priority, created_at"

// ListRequirements returns the requirements of a period ordered by project id
func (r *Repository) ListRequirements(ctx context.Context, periodID int64) ([]domain.ProjectRequirement, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+requirementColumns+" FROM project_requirements WHERE planning_period_id = ? ORDER BY project_id",
		periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to query project requirements: %w", err)
	}
	defer rows.Close()

	var reqs []domain.ProjectRequirement
	for rows.Next() {
		req, err := scanRequirement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project requirement: %w", err)
		}
		reqs = append(reqs, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project requirements: %w", err)
	}
	return reqs, nil
}

// GetRequirement returns a project's requirement in a period, wrapping domain.ErrNotFound when unset
func (r *Repository) GetRequirement(ctx context.Context, projectID, periodID int64) (*domain.ProjectRequirement, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+requirementColumns+" FROM project_requirements WHERE project_id = ? AND planning_period_id = ?",
		projectID, periodID)
	req, err := scanRequirement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("requirement of project %d in period %d: %w", projectID, periodID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project requirement: %w", err)
	}
	return req, nil
}

// UpsertRequirement sets the required hours and priority of a project in a period
func (r *Repository) UpsertRequirement(ctx context.Context, req domain.ProjectRequirement) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO project_requirements (project_id, planning_period_id, required_hours, priority)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(project_id, planning_period_id)
		DO UPDATE SET required_hours = excluded.required_hours, priority = excluded.priority`,
		req.ProjectID, req.PlanningPeriodID, req.RequiredHours, int(req.Priority))
	if err != nil {
		return fmt.Errorf("failed to upsert project requirement: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRequirement(s scanner) (*domain.ProjectRequirement, error) {
	var (
		req       domain.ProjectRequirement
		priority  int
		createdAt int64
	)
	if err := s.Scan(&req.ID, &req.ProjectID, &req.PlanningPeriodID, &req.RequiredHours, &priority, &createdAt); err != nil {
		return nil, err
	}
	req.Priority = domain.Priority(priority)
	req.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &req, nil
}
