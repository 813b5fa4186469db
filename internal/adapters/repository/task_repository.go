package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/taskloop/core/internal/domain/entities"
	"github.com/taskloop/core/internal/ports"
)

// TaskRepositoryImpl implements the TaskRepository interface
type TaskRepositoryImpl struct {
	db *sqlx.DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *sqlx.DB) ports.TaskRepository {
	return &TaskRepositoryImpl{db: db}
}

func (r *TaskRepositoryImpl) Create(ctx context.Context, task *entities.Task) error {
	query := `
		INSERT INTO tasks (id, name, progress, start_at, due_at, task_list_id, project_id,
			details, completed_at, archived, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`

	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}

	err := r.db.QueryRowContext(ctx, query,
		task.ID, task.Name, task.Progress, task.StartAt, task.DueAt,
		task.TaskListID, task.ProjectID, task.Details, task.CompletedAt,
		task.Archived, task.SortOrder,
	).Scan(&task.CreatedAt, &task.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	return nil
}

func (r *TaskRepositoryImpl) CreateBatch(ctx context.Context, tasks []*entities.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch insert: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO tasks (id, name, progress, start_at, due_at, task_list_id, project_id,
			details, completed_at, archived, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`

	for _, task := range tasks {
		if task.ID == uuid.Nil {
			task.ID = uuid.New()
		}
		err := tx.QueryRowContext(ctx, query,
			task.ID, task.Name, task.Progress, task.StartAt, task.DueAt,
			task.TaskListID, task.ProjectID, task.Details, task.CompletedAt,
			task.Archived, task.SortOrder,
		).Scan(&task.CreatedAt, &task.UpdatedAt)
		if err != nil {
			return fmt.Errorf("batch insert task %s: %w", task.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch insert: %w", err)
	}

	return nil
}

func (r *TaskRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.Task, error) {
	query := `
		SELECT id, name, progress, start_at, due_at, task_list_id, project_id,
			details, completed_at, archived, sort_order, created_at, updated_at
		FROM tasks
		WHERE id = $1`

	var task entities.Task
	err := r.db.GetContext(ctx, &task, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entities.ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task by id: %w", err)
	}

	return &task, nil
}

func (r *TaskRepositoryImpl) Update(ctx context.Context, task *entities.Task) error {
	query := `
		UPDATE tasks
		SET name = $2, progress = $3, start_at = $4, due_at = $5, project_id = $6,
			details = $7, completed_at = $8, archived = $9, sort_order = $10,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		task.ID, task.Name, task.Progress, task.StartAt, task.DueAt,
		task.ProjectID, task.Details, task.CompletedAt, task.Archived, task.SortOrder,
	).Scan(&task.UpdatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return entities.ErrTaskNotFound
		}
		return fmt.Errorf("update task: %w", err)
	}

	return nil
}

func (r *TaskRepositoryImpl) UpdateTimeline(ctx context.Context, id uuid.UUID, start, due time.Time) error {
	query := `
		UPDATE tasks
		SET start_at = $2, due_at = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, start, due)
	if err != nil {
		return fmt.Errorf("update task timeline: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return entities.ErrTaskNotFound
	}

	return nil
}

func (r *TaskRepositoryImpl) UpdateProgress(ctx context.Context, id uuid.UUID, progress entities.Progress, completedAt *time.Time) error {
	query := `
		UPDATE tasks
		SET progress = $2, completed_at = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, progress, completedAt)
	if err != nil {
		return fmt.Errorf("update task progress: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return entities.ErrTaskNotFound
	}

	return nil
}

func (r *TaskRepositoryImpl) Archive(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE tasks
		SET archived = TRUE, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("archive task: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return entities.ErrTaskNotFound
	}

	return nil
}

func (r *TaskRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return entities.ErrTaskNotFound
	}

	return nil
}

func (r *TaskRepositoryImpl) List(ctx context.Context, filter ports.TaskFilter) ([]*entities.Task, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	addArg := func(cond string, v interface{}) {
		conditions = append(conditions, fmt.Sprintf(cond, argPos))
		args = append(args, v)
		argPos++
	}

	if !filter.IncludeArchived {
		conditions = append(conditions, "archived = FALSE")
	}
	if filter.TaskListID != nil {
		addArg("task_list_id = $%d", *filter.TaskListID)
	}
	if filter.ProjectID != nil {
		addArg("project_id = $%d", *filter.ProjectID)
	}
	if filter.StartFrom != nil {
		addArg("start_at >= $%d", *filter.StartFrom)
	}
	if filter.StartBefore != nil {
		addArg("start_at < $%d", *filter.StartBefore)
	}
	if len(filter.Progress) > 0 {
		placeholders := make([]string, len(filter.Progress))
		for i, p := range filter.Progress {
			placeholders[i] = fmt.Sprintf("$%d", argPos)
			args = append(args, p)
			argPos++
		}
		conditions = append(conditions, fmt.Sprintf("progress IN (%s)", strings.Join(placeholders, ", ")))
	}

	query := `
		SELECT id, name, progress, start_at, due_at, task_list_id, project_id,
			details, completed_at, archived, sort_order, created_at, updated_at
		FROM tasks`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY start_at ASC, sort_order ASC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	var tasks []*entities.Task
	if err := r.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	return tasks, nil
}

func (r *TaskRepositoryImpl) CountActiveSince(ctx context.Context, scope ports.TaskScope, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM tasks
		WHERE archived = FALSE
			AND progress IN ('Not started', 'In progress')
			AND start_at >= $1`
	args := []interface{}{since}
	query, args = applyScope(query, args, scope)

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count active tasks: %w", err)
	}

	return count, nil
}

func (r *TaskRepositoryImpl) CountCompletedBetween(ctx context.Context, scope ports.TaskScope, start, end time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM tasks
		WHERE archived = FALSE
			AND progress = 'Completed'
			AND completed_at >= $1 AND completed_at < $2`
	args := []interface{}{start, end}
	query, args = applyScope(query, args, scope)

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count completed tasks: %w", err)
	}

	return count, nil
}

func (r *TaskRepositoryImpl) CountByNamePrefix(ctx context.Context, taskListID uuid.UUID, prefix string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM tasks
		WHERE task_list_id = $1 AND name LIKE $2`

	var count int
	if err := r.db.GetContext(ctx, &count, query, taskListID, likePrefix(prefix)); err != nil {
		return 0, fmt.Errorf("count tasks by name prefix: %w", err)
	}

	return count, nil
}

// applyScope appends the scope predicates, continuing the placeholder
// numbering from the existing args.
func applyScope(query string, args []interface{}, scope ports.TaskScope) (string, []interface{}) {
	if scope.TaskListID != nil {
		args = append(args, *scope.TaskListID)
		query += fmt.Sprintf(" AND task_list_id = $%d", len(args))
	}
	switch {
	case scope.ProjectID != nil:
		args = append(args, *scope.ProjectID)
		query += fmt.Sprintf(" AND project_id = $%d", len(args))
	case scope.LooseOnly:
		query += " AND project_id IS NULL"
	}
	return query, args
}

// likePrefix escapes LIKE metacharacters in a literal prefix.
func likePrefix(prefix string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(prefix) + "%"
}
