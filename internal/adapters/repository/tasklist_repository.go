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

// TaskListRepositoryImpl implements the TaskListRepository interface
type TaskListRepositoryImpl struct {
	db *sqlx.DB
}

// NewTaskListRepository creates a new task list repository
func NewTaskListRepository(db *sqlx.DB) ports.TaskListRepository {
	return &TaskListRepositoryImpl{db: db}
}

func (r *TaskListRepositoryImpl) Create(ctx context.Context, list *entities.TaskList) error {
	query := `
		INSERT INTO task_lists (id, name, sort_order)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at`

	if list.ID == uuid.Nil {
		list.ID = uuid.New()
	}

	err := r.db.QueryRowContext(ctx, query, list.ID, list.Name, list.SortOrder).
		Scan(&list.CreatedAt, &list.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create task list: %w", err)
	}

	return nil
}

func (r *TaskListRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.TaskList, error) {
	query := `
		SELECT id, name, sort_order, created_at, updated_at
		FROM task_lists
		WHERE id = $1`

	var list entities.TaskList
	err := r.db.GetContext(ctx, &list, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entities.ErrTaskListNotFound
		}
		return nil, fmt.Errorf("get task list by id: %w", err)
	}

	return &list, nil
}

func (r *TaskListRepositoryImpl) List(ctx context.Context) ([]*entities.TaskList, error) {
	query := `
		SELECT id, name, sort_order, created_at, updated_at
		FROM task_lists
		ORDER BY sort_order ASC, created_at ASC`

	var lists []*entities.TaskList
	if err := r.db.SelectContext(ctx, &lists, query); err != nil {
		return nil, fmt.Errorf("list task lists: %w", err)
	}

	return lists, nil
}

func (r *TaskListRepositoryImpl) Update(ctx context.Context, list *entities.TaskList) error {
	query := `
		UPDATE task_lists
		SET name = $2, sort_order = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query, list.ID, list.Name, list.SortOrder).
		Scan(&list.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return entities.ErrTaskListNotFound
		}
		return fmt.Errorf("update task list: %w", err)
	}

	return nil
}

func (r *TaskListRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM task_lists WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task list: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return entities.ErrTaskListNotFound
	}

	return nil
}
