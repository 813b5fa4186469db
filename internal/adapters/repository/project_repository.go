package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/taskloop/core/internal/domain/entities"
	"github.com/taskloop/core/internal/ports"
)

// ProjectRepositoryImpl implements the ProjectRepository interface
type ProjectRepositoryImpl struct {
	db *sqlx.DB
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *sqlx.DB) ports.ProjectRepository {
	return &ProjectRepositoryImpl{db: db}
}

func (r *ProjectRepositoryImpl) Create(ctx context.Context, project *entities.Project) error {
	query := `
		INSERT INTO projects (id, name, task_list_id, is_recurring, task_count_goal,
			days_of_week, progress, due_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}

	err := r.db.QueryRowContext(ctx, query,
		project.ID, project.Name, project.TaskListID, project.IsRecurring,
		project.TaskCountGoal, project.DaysOfWeek, project.Progress, project.DueAt,
	).Scan(&project.CreatedAt, &project.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}

	return nil
}

func (r *ProjectRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.Project, error) {
	query := `
		SELECT id, name, task_list_id, is_recurring, task_count_goal, days_of_week,
			progress, due_at, created_at, updated_at
		FROM projects
		WHERE id = $1`

	var project entities.Project
	err := r.db.GetContext(ctx, &project, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entities.ErrProjectNotFound
		}
		return nil, fmt.Errorf("get project by id: %w", err)
	}

	return &project, nil
}

func (r *ProjectRepositoryImpl) ListByTaskList(ctx context.Context, taskListID uuid.UUID) ([]*entities.Project, error) {
	query := `
		SELECT id, name, task_list_id, is_recurring, task_count_goal, days_of_week,
			progress, due_at, created_at, updated_at
		FROM projects
		WHERE task_list_id = $1
		ORDER BY created_at ASC`

	var projects []*entities.Project
	if err := r.db.SelectContext(ctx, &projects, query, taskListID); err != nil {
		return nil, fmt.Errorf("list projects by task list: %w", err)
	}

	return projects, nil
}

func (r *ProjectRepositoryImpl) ListRecurring(ctx context.Context) ([]*entities.Project, error) {
	query := `
		SELECT id, name, task_list_id, is_recurring, task_count_goal, days_of_week,
			progress, due_at, created_at, updated_at
		FROM projects
		WHERE is_recurring = TRUE AND progress != 'Completed'
		ORDER BY created_at ASC`

	var projects []*entities.Project
	if err := r.db.SelectContext(ctx, &projects, query); err != nil {
		return nil, fmt.Errorf("list recurring projects: %w", err)
	}

	return projects, nil
}

func (r *ProjectRepositoryImpl) Update(ctx context.Context, project *entities.Project) error {
	query := `
		UPDATE projects
		SET name = $2, is_recurring = $3, task_count_goal = $4, days_of_week = $5,
			progress = $6, due_at = $7, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		project.ID, project.Name, project.IsRecurring, project.TaskCountGoal,
		project.DaysOfWeek, project.Progress, project.DueAt,
	).Scan(&project.UpdatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return entities.ErrProjectNotFound
		}
		return fmt.Errorf("update project: %w", err)
	}

	return nil
}

func (r *ProjectRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return entities.ErrProjectNotFound
	}

	return nil
}
