package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/taskloop/core/internal/domain/entities"
	"github.com/taskloop/core/internal/infrastructure/logger"
	"github.com/taskloop/core/internal/ports"
)

// TaskService manages task and subtask lifecycle. Progress transitions for
// both go through UpdateProgress so completion stamping and goal counters
// behave identically everywhere.
type TaskService struct {
	tasks    ports.TaskRepository
	subtasks ports.SubtaskRepository
	lists    ports.TaskListRepository
	goals    *GoalService
	logger   *logger.Logger
	now      func() time.Time
}

// NewTaskService creates a new task service.
func NewTaskService(
	tasks ports.TaskRepository,
	subtasks ports.SubtaskRepository,
	lists ports.TaskListRepository,
	goals *GoalService,
	log *logger.Logger,
) *TaskService {
	return &TaskService{
		tasks:    tasks,
		subtasks: subtasks,
		lists:    lists,
		goals:    goals,
		logger:   log.WithComponent("tasks"),
		now:      time.Now,
	}
}

// SetClock overrides the service's time source. Test hook.
func (s *TaskService) SetClock(now func() time.Time) {
	s.now = now
}

// CreateTask validates the owning list and persists a new task.
func (s *TaskService) CreateTask(ctx context.Context, req *ports.CreateTaskRequest) (*entities.Task, error) {
	if _, err := s.lists.GetByID(ctx, req.TaskListID); err != nil {
		return nil, err
	}

	now := s.now()
	task := &entities.Task{
		ID:         uuid.New(),
		Name:       req.Name,
		Progress:   entities.ProgressNotStarted,
		StartAt:    now,
		DueAt:      now.Add(entities.DefaultTaskDuration),
		TaskListID: req.TaskListID,
		ProjectID:  req.ProjectID,
		Details:    req.Details,
		SortOrder:  req.SortOrder,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if req.Progress != nil {
		if !req.Progress.IsValid() {
			return nil, entities.ErrInvalidProgress
		}
		task.Progress = *req.Progress
	}
	if req.StartAt != nil {
		task.StartAt = *req.StartAt
		task.DueAt = req.StartAt.Add(entities.DefaultTaskDuration)
	}
	if req.DueAt != nil {
		task.DueAt = *req.DueAt
	}
	if task.Progress == entities.ProgressCompleted {
		task.Complete(now)
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

// GetTask returns a task by id.
func (s *TaskService) GetTask(ctx context.Context, id uuid.UUID) (*entities.Task, error) {
	return s.tasks.GetByID(ctx, id)
}

// ListTasks returns tasks matching the filter.
func (s *TaskService) ListTasks(ctx context.Context, filter ports.TaskFilter) ([]*entities.Task, error) {
	return s.tasks.List(ctx, filter)
}

// UpdateTask applies the partial update to an existing task. Time blocks
// refuse timestamp changes.
func (s *TaskService) UpdateTask(ctx context.Context, id uuid.UUID, req *ports.UpdateTaskRequest) (*entities.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if (req.StartAt != nil || req.DueAt != nil) && task.IsTimeBlock() {
		return nil, entities.ErrTimeBlockLocked
	}

	if req.Name != nil {
		task.Name = *req.Name
	}
	if req.StartAt != nil {
		task.StartAt = *req.StartAt
	}
	if req.DueAt != nil {
		task.DueAt = *req.DueAt
	}
	if req.Details != nil {
		task.Details = req.Details
	}
	if req.ProjectID != nil {
		task.ProjectID = req.ProjectID
	}
	if req.SortOrder != nil {
		task.SortOrder = *req.SortOrder
	}
	if req.Archived != nil {
		task.Archived = *req.Archived
	}
	task.UpdatedAt = s.now()

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}

	if req.Progress != nil && *req.Progress != task.Progress {
		return s.applyProgress(ctx, task, *req.Progress)
	}
	return task, nil
}

// UpdateProgress is the unified progress transition for tasks and subtasks.
// Completions stamp the completion timestamp; moving a completed item back
// clears it. Task completions additionally bump the attached goals.
func (s *TaskService) UpdateProgress(ctx context.Context, id uuid.UUID, progress entities.Progress, isSubtask bool) error {
	if !progress.IsValid() {
		return entities.ErrInvalidProgress
	}
	if isSubtask {
		return s.updateSubtaskProgress(ctx, id, progress)
	}
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return err
	}
	_, err = s.applyProgress(ctx, task, progress)
	return err
}

func (s *TaskService) applyProgress(ctx context.Context, task *entities.Task, progress entities.Progress) (*entities.Task, error) {
	was := task.Progress
	var completedAt *time.Time
	if progress == entities.ProgressCompleted {
		now := s.now()
		completedAt = &now
	}
	if err := s.tasks.UpdateProgress(ctx, task.ID, progress, completedAt); err != nil {
		return nil, fmt.Errorf("update progress: %w", err)
	}
	task.Progress = progress
	task.CompletedAt = completedAt

	if progress == entities.ProgressCompleted && was != entities.ProgressCompleted && s.goals != nil {
		s.goals.RecordCompletion(ctx, task.TaskListID, task.ProjectID)
	}
	return task, nil
}

func (s *TaskService) updateSubtaskProgress(ctx context.Context, id uuid.UUID, progress entities.Progress) error {
	var completedAt *time.Time
	if progress == entities.ProgressCompleted {
		now := s.now()
		completedAt = &now
	}
	if err := s.subtasks.UpdateProgress(ctx, id, progress, completedAt); err != nil {
		return fmt.Errorf("update subtask progress: %w", err)
	}
	return nil
}

// ArchiveTask soft-deletes a task.
func (s *TaskService) ArchiveTask(ctx context.Context, id uuid.UUID) error {
	return s.tasks.Archive(ctx, id)
}

// DeleteTask removes a task and its subtasks.
func (s *TaskService) DeleteTask(ctx context.Context, id uuid.UUID) error {
	return s.tasks.Delete(ctx, id)
}

// CreateSubtask adds a subtask under an existing task.
func (s *TaskService) CreateSubtask(ctx context.Context, req *ports.CreateSubtaskRequest) (*entities.Subtask, error) {
	if _, err := s.tasks.GetByID(ctx, req.TaskID); err != nil {
		return nil, err
	}
	sub := &entities.Subtask{
		ID:        uuid.New(),
		TaskID:    req.TaskID,
		Name:      req.Name,
		Progress:  entities.ProgressNotStarted,
		SortOrder: req.SortOrder,
		CreatedAt: s.now(),
	}
	if err := s.subtasks.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("create subtask: %w", err)
	}
	return sub, nil
}

// ListSubtasks returns a task's subtasks.
func (s *TaskService) ListSubtasks(ctx context.Context, taskID uuid.UUID) ([]*entities.Subtask, error) {
	return s.subtasks.ListByTask(ctx, taskID)
}

// DeleteSubtask removes a subtask.
func (s *TaskService) DeleteSubtask(ctx context.Context, id uuid.UUID) error {
	return s.subtasks.Delete(ctx, id)
}
