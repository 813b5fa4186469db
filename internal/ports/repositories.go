package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/taskloop/core/internal/domain/entities"
)

// TaskScope restricts counting queries to a task list and optionally to a
// single project within it. A nil ProjectID with LooseOnly false counts
// the whole list; LooseOnly counts only tasks not attached to any project.
type TaskScope struct {
	TaskListID *uuid.UUID
	ProjectID  *uuid.UUID
	LooseOnly  bool
}

// TaskFilter narrows task listings.
type TaskFilter struct {
	TaskListID      *uuid.UUID
	ProjectID       *uuid.UUID
	Progress        []entities.Progress
	StartFrom       *time.Time
	StartBefore     *time.Time
	IncludeArchived bool
	Limit           int
	Offset          int
}

// TaskRepository defines task persistence operations.
type TaskRepository interface {
	Create(ctx context.Context, task *entities.Task) error
	CreateBatch(ctx context.Context, tasks []*entities.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Task, error)
	Update(ctx context.Context, task *entities.Task) error
	UpdateTimeline(ctx context.Context, id uuid.UUID, start, due time.Time) error
	UpdateProgress(ctx context.Context, id uuid.UUID, progress entities.Progress, completedAt *time.Time) error
	Archive(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter TaskFilter) ([]*entities.Task, error)
	CountActiveSince(ctx context.Context, scope TaskScope, since time.Time) (int, error)
	CountCompletedBetween(ctx context.Context, scope TaskScope, start, end time.Time) (int, error)
	CountByNamePrefix(ctx context.Context, taskListID uuid.UUID, prefix string) (int, error)
}

// SubtaskRepository defines subtask persistence operations.
type SubtaskRepository interface {
	Create(ctx context.Context, subtask *entities.Subtask) error
	CreateBatch(ctx context.Context, subtasks []*entities.Subtask) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Subtask, error)
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]*entities.Subtask, error)
	ListForActiveTasks(ctx context.Context, taskListID uuid.UUID) ([]*entities.Subtask, error)
	UpdateProgress(ctx context.Context, id uuid.UUID, progress entities.Progress, completedAt *time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	CompletedNamesSince(ctx context.Context, taskListID uuid.UUID, since time.Time) ([]string, error)
}

// TaskListRepository defines task list persistence operations.
type TaskListRepository interface {
	Create(ctx context.Context, list *entities.TaskList) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.TaskList, error)
	List(ctx context.Context) ([]*entities.TaskList, error)
	Update(ctx context.Context, list *entities.TaskList) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ProjectRepository defines project persistence operations.
type ProjectRepository interface {
	Create(ctx context.Context, project *entities.Project) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Project, error)
	ListByTaskList(ctx context.Context, taskListID uuid.UUID) ([]*entities.Project, error)
	ListRecurring(ctx context.Context) ([]*entities.Project, error)
	Update(ctx context.Context, project *entities.Project) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// RecurringSettingRepository defines recurring-setting persistence
// operations.
type RecurringSettingRepository interface {
	Create(ctx context.Context, setting *entities.RecurringSetting) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.RecurringSetting, error)
	ListEnabled(ctx context.Context) ([]*entities.RecurringSetting, error)
	ListByTaskList(ctx context.Context, taskListID uuid.UUID) ([]*entities.RecurringSetting, error)
	Update(ctx context.Context, setting *entities.RecurringSetting) error
	Disable(ctx context.Context, id uuid.UUID) error
	StampRespawn(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// GenerationLogRepository defines the idempotency-record operations. Get
// reports a missing row as (nil, nil) so callers can distinguish absence
// from query failure.
type GenerationLogRepository interface {
	Get(ctx context.Context, entityID uuid.UUID, day string) (*entities.GenerationLog, error)
	Upsert(ctx context.Context, log *entities.GenerationLog) error
	ListForDay(ctx context.Context, day string) ([]*entities.GenerationLog, error)
}

// GoalRepository defines goal persistence plus daily-reset bookkeeping.
type GoalRepository interface {
	Create(ctx context.Context, goal *entities.Goal) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Goal, error)
	ListByScope(ctx context.Context, scope entities.GoalScope, scopeID uuid.UUID) ([]*entities.Goal, error)
	ListEnabledByType(ctx context.Context, goalType entities.GoalType) ([]*entities.Goal, error)
	Update(ctx context.Context, goal *entities.Goal) error
	Delete(ctx context.Context, id uuid.UUID) error
	IncrementCurrent(ctx context.Context, scope entities.GoalScope, scopeID uuid.UUID) (int64, error)
	ResetCurrentCounts(ctx context.Context, goalType entities.GoalType) (int64, error)
	GetLastResetDay(ctx context.Context) (string, error)
	SetLastResetDay(ctx context.Context, day string) error
}
