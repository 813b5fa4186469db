package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/taskloop/core/internal/domain/entities"
)

// CalendarNotifier is the one-way calendar sync collaborator. Pushes are
// fire-and-forget: implementations log failures, callers never propagate
// them.
type CalendarNotifier interface {
	PushActiveTasks(ctx context.Context, tasks []*entities.Task) error
}

// EntityKind names the kind of entity a check result refers to.
type EntityKind string

const (
	EntityTaskList EntityKind = "task_list"
	EntityProject  EntityKind = "project"
)

// CheckStatus is the per-entity outcome of a generation pass.
type CheckStatus string

const (
	StatusCreated CheckStatus = "created"
	StatusSkipped CheckStatus = "skipped"
	StatusError   CheckStatus = "error"
)

// SkipReason codes the logical skip conditions. These are outcomes, not
// errors; they are recorded in results and logged, never thrown.
type SkipReason string

const (
	SkipOutsideWindow       SkipReason = "outside_window"
	SkipCheckInProgress     SkipReason = "check_in_progress"
	SkipEntityBusy          SkipReason = "entity_busy"
	SkipAlreadyGeneratedMem SkipReason = "already_generated_cache"
	SkipAlreadyGeneratedLog SkipReason = "already_generated_log"
	SkipRateLimited         SkipReason = "rate_limited"
	SkipNotScheduledToday   SkipReason = "not_scheduled_today"
	SkipStartDateFuture     SkipReason = "start_date_future"
	SkipDisabled            SkipReason = "disabled"
	SkipOrphanedSetting     SkipReason = "orphaned_setting"
	SkipFulfilledByProjects SkipReason = "fulfilled_by_projects"
	SkipGoalMet             SkipReason = "goal_met"
	SkipSuperseded          SkipReason = "superseded"
)

// CheckOptions parameterizes a task-list generation pass. The count fields
// are caller-supplied hints that override the corresponding derived values
// when set, matching the serverless contract.
type CheckOptions struct {
	ListID                *uuid.UUID
	Force                 bool
	TargetTaskCount       *int
	CurrentTaskCount      *int
	AdditionalTasksNeeded *int
	CurrentDay            string
	SkipUniqueNameCheck   bool
}

// ProjectCheckOptions parameterizes a recurring-project generation pass.
type ProjectCheckOptions struct {
	Force           bool
	ProjectIDs      []uuid.UUID
	DayOfWeek       string
	ResetDailyGoals bool
}

// CheckResult is the per-entity outcome record.
type CheckResult struct {
	EntityID     uuid.UUID   `json:"task_list_id"`
	EntityKind   EntityKind  `json:"entity_kind"`
	Status       CheckStatus `json:"status"`
	TasksCreated int         `json:"tasksCreated,omitempty"`
	Reason       SkipReason  `json:"reason,omitempty"`
	Error        string      `json:"error,omitempty"`
}

// CheckReport aggregates a generation pass.
type CheckReport struct {
	Results    []CheckResult `json:"results"`
	Success    bool          `json:"success"`
	GoalsReset bool          `json:"goalsReset,omitempty"`
}

// Created sums the tasks created across all results.
func (r *CheckReport) Created() int {
	n := 0
	for _, res := range r.Results {
		n += res.TasksCreated
	}
	return n
}

// CreateTaskRequest is the payload for creating a task.
type CreateTaskRequest struct {
	Name       string             `json:"name" validate:"required,max=200"`
	TaskListID uuid.UUID          `json:"task_list_id" validate:"required"`
	ProjectID  *uuid.UUID         `json:"project_id"`
	Progress   *entities.Progress `json:"progress"`
	StartAt    *time.Time         `json:"start_at"`
	DueAt      *time.Time         `json:"due_at"`
	Details    *string            `json:"details"`
	SortOrder  int                `json:"sort_order"`
}

// UpdateTaskRequest is the payload for partially updating a task.
type UpdateTaskRequest struct {
	Name      *string            `json:"name" validate:"omitempty,max=200"`
	Progress  *entities.Progress `json:"progress"`
	StartAt   *time.Time         `json:"start_at"`
	DueAt     *time.Time         `json:"due_at"`
	Details   *string            `json:"details"`
	ProjectID *uuid.UUID         `json:"project_id"`
	SortOrder *int               `json:"sort_order"`
	Archived  *bool              `json:"archived"`
}

// CreateSubtaskRequest is the payload for creating a subtask.
type CreateSubtaskRequest struct {
	TaskID    uuid.UUID `json:"task_id" validate:"required"`
	Name      string    `json:"name" validate:"required,max=200"`
	SortOrder int       `json:"sort_order"`
}

// CreateTaskListRequest is the payload for creating a task list.
type CreateTaskListRequest struct {
	Name      string `json:"name" validate:"required,max=120"`
	SortOrder int    `json:"sort_order"`
}

// CreateProjectRequest is the payload for creating a project.
type CreateProjectRequest struct {
	Name          string             `json:"name" validate:"required,max=200"`
	TaskListID    uuid.UUID          `json:"task_list_id" validate:"required"`
	IsRecurring   bool               `json:"is_recurring"`
	TaskCountGoal int                `json:"task_count_goal" validate:"min=0"`
	DaysOfWeek    entities.StringSet `json:"days_of_week"`
	DueAt         *time.Time         `json:"due_at"`
}

// UpdateProjectRequest is the payload for partially updating a project.
type UpdateProjectRequest struct {
	Name          *string             `json:"name" validate:"omitempty,max=200"`
	IsRecurring   *bool               `json:"is_recurring"`
	TaskCountGoal *int                `json:"task_count_goal" validate:"omitempty,min=0"`
	DaysOfWeek    *entities.StringSet `json:"days_of_week"`
	Progress      *entities.Progress  `json:"progress"`
	DueAt         *time.Time          `json:"due_at"`
}

// SaveSettingRequest is the payload for creating or updating a recurring
// setting.
type SaveSettingRequest struct {
	TaskListID      uuid.UUID             `json:"task_list_id" validate:"required"`
	Enabled         bool                  `json:"enabled"`
	DailyTaskCount  int                   `json:"daily_task_count" validate:"min=0"`
	DaysOfWeek      entities.StringSet    `json:"days_of_week"`
	SubtaskTemplate entities.StringSet    `json:"subtask_template"`
	RespawnMode     *entities.RespawnMode `json:"respawn_mode"`
	RespawnInterval int                   `json:"respawn_interval" validate:"min=0"`
	RespawnDays     entities.StringSet    `json:"respawn_days"`
	StartDate       *time.Time            `json:"start_date"`
}

// SaveGoalRequest is the payload for creating or updating a goal.
type SaveGoalRequest struct {
	Scope       entities.GoalScope `json:"scope" validate:"required,oneof=list project"`
	ScopeID     uuid.UUID          `json:"scope_id" validate:"required"`
	GoalType    entities.GoalType  `json:"goal_type" validate:"required"`
	TargetCount int                `json:"target_count" validate:"min=1"`
	Enabled     bool               `json:"enabled"`
	Reward      *string            `json:"reward"`
	StartDate   *time.Time         `json:"start_date"`
	EndDate     *time.Time         `json:"end_date"`
}

// InsertTimeBlockRequest is the payload for inserting an immovable time
// block into today's timeline.
type InsertTimeBlockRequest struct {
	Name       string    `json:"name" validate:"required,max=200"`
	TaskListID uuid.UUID `json:"task_list_id" validate:"required"`
	StartAt    time.Time `json:"start_at" validate:"required"`
	EndAt      time.Time `json:"end_at" validate:"required"`
}
