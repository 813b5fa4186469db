package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/taskloop/core/internal/domain/entities"
	"github.com/taskloop/core/internal/ports"
)

// SubtaskRepositoryImpl implements the SubtaskRepository interface
type SubtaskRepositoryImpl struct {
	db *sqlx.DB
}

// NewSubtaskRepository creates a new subtask repository
func NewSubtaskRepository(db *sqlx.DB) ports.SubtaskRepository {
	return &SubtaskRepositoryImpl{db: db}
}

func (r *SubtaskRepositoryImpl) Create(ctx context.Context, subtask *entities.Subtask) error {
	query := `
		INSERT INTO subtasks (id, task_id, name, progress, sort_order, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	if subtask.ID == uuid.Nil {
		subtask.ID = uuid.New()
	}

	err := r.db.QueryRowContext(ctx, query,
		subtask.ID, subtask.TaskID, subtask.Name, subtask.Progress,
		subtask.SortOrder, subtask.CompletedAt,
	).Scan(&subtask.CreatedAt)

	if err != nil {
		return fmt.Errorf("create subtask: %w", err)
	}

	return nil
}

func (r *SubtaskRepositoryImpl) CreateBatch(ctx context.Context, subtasks []*entities.Subtask) error {
	if len(subtasks) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch insert: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO subtasks (id, task_id, name, progress, sort_order, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	for _, subtask := range subtasks {
		if subtask.ID == uuid.Nil {
			subtask.ID = uuid.New()
		}
		err := tx.QueryRowContext(ctx, query,
			subtask.ID, subtask.TaskID, subtask.Name, subtask.Progress,
			subtask.SortOrder, subtask.CompletedAt,
		).Scan(&subtask.CreatedAt)
		if err != nil {
			return fmt.Errorf("batch insert subtask %s: %w", subtask.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch insert: %w", err)
	}

	return nil
}

func (r *SubtaskRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.Subtask, error) {
	query := `
		SELECT id, task_id, name, progress, sort_order, completed_at, created_at
		FROM subtasks
		WHERE id = $1`

	var subtask entities.Subtask
	err := r.db.GetContext(ctx, &subtask, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entities.ErrSubtaskNotFound
		}
		return nil, fmt.Errorf("get subtask by id: %w", err)
	}

	return &subtask, nil
}

func (r *SubtaskRepositoryImpl) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*entities.Subtask, error) {
	query := `
		SELECT id, task_id, name, progress, sort_order, completed_at, created_at
		FROM subtasks
		WHERE task_id = $1
		ORDER BY sort_order ASC, created_at ASC`

	var subtasks []*entities.Subtask
	if err := r.db.SelectContext(ctx, &subtasks, query, taskID); err != nil {
		return nil, fmt.Errorf("list subtasks by task: %w", err)
	}

	return subtasks, nil
}

func (r *SubtaskRepositoryImpl) ListForActiveTasks(ctx context.Context, taskListID uuid.UUID) ([]*entities.Subtask, error) {
	query := `
		SELECT s.id, s.task_id, s.name, s.progress, s.sort_order, s.completed_at, s.created_at
		FROM subtasks s
		JOIN tasks t ON t.id = s.task_id
		WHERE t.task_list_id = $1
			AND t.archived = FALSE
			AND t.progress IN ('Not started', 'In progress')
		ORDER BY s.sort_order ASC`

	var subtasks []*entities.Subtask
	if err := r.db.SelectContext(ctx, &subtasks, query, taskListID); err != nil {
		return nil, fmt.Errorf("list subtasks for active tasks: %w", err)
	}

	return subtasks, nil
}

func (r *SubtaskRepositoryImpl) UpdateProgress(ctx context.Context, id uuid.UUID, progress entities.Progress, completedAt *time.Time) error {
	query := `
		UPDATE subtasks
		SET progress = $2, completed_at = $3
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, progress, completedAt)
	if err != nil {
		return fmt.Errorf("update subtask progress: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return entities.ErrSubtaskNotFound
	}

	return nil
}

func (r *SubtaskRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM subtasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete subtask: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return entities.ErrSubtaskNotFound
	}

	return nil
}

func (r *SubtaskRepositoryImpl) CompletedNamesSince(ctx context.Context, taskListID uuid.UUID, since time.Time) ([]string, error) {
	query := `
		SELECT DISTINCT s.name
		FROM subtasks s
		JOIN tasks t ON t.id = s.task_id
		WHERE t.task_list_id = $1
			AND s.progress = 'Completed'
			AND s.completed_at >= $2`

	var names []string
	if err := r.db.SelectContext(ctx, &names, query, taskListID, since); err != nil {
		return nil, fmt.Errorf("completed subtask names: %w", err)
	}

	return names, nil
}
