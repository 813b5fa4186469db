package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/taskloop/core/internal/domain/entities"
	"github.com/taskloop/core/internal/infrastructure/logger"
	"github.com/taskloop/core/internal/ports"
)

type taskFixture struct {
	tasks    *fakeTaskRepo
	subtasks *fakeSubtaskRepo
	lists    *fakeTaskListRepo
	goals    *fakeGoalRepo
	svc      *TaskService
	now      time.Time
	listID   uuid.UUID
}

func newTaskFixture(t *testing.T) *taskFixture {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	f := &taskFixture{
		tasks:    &fakeTaskRepo{},
		subtasks: &fakeSubtaskRepo{},
		lists:    newFakeTaskListRepo(),
		goals:    &fakeGoalRepo{},
		now:      time.Date(2025, 6, 11, 10, 0, 0, 0, loc),
	}
	log := logger.NewNop()
	goalSvc := NewGoalService(f.goals, loc, nil, log)
	goalSvc.SetClock(func() time.Time { return f.now })
	f.svc = NewTaskService(f.tasks, f.subtasks, f.lists, goalSvc, log)
	f.svc.SetClock(func() time.Time { return f.now })

	list := &entities.TaskList{ID: uuid.New(), Name: "Inbox"}
	if err := f.lists.Create(context.Background(), list); err != nil {
		t.Fatalf("seed list: %v", err)
	}
	f.listID = list.ID
	return f
}

func TestCreateTaskDefaultsTimeline(t *testing.T) {
	f := newTaskFixture(t)
	task, err := f.svc.CreateTask(context.Background(), &ports.CreateTaskRequest{
		Name:       "Write report",
		TaskListID: f.listID,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !task.StartAt.Equal(f.now) {
		t.Errorf("start = %v, want now", task.StartAt)
	}
	if task.DueAt.Sub(task.StartAt) != entities.DefaultTaskDuration {
		t.Errorf("duration = %v, want default", task.DueAt.Sub(task.StartAt))
	}
	if task.Progress != entities.ProgressNotStarted {
		t.Errorf("progress = %s", task.Progress)
	}
}

func TestCreateTaskUnknownList(t *testing.T) {
	f := newTaskFixture(t)
	_, err := f.svc.CreateTask(context.Background(), &ports.CreateTaskRequest{
		Name:       "Orphan",
		TaskListID: uuid.New(),
	})
	if !errors.Is(err, entities.ErrTaskListNotFound) {
		t.Fatalf("expected ErrTaskListNotFound, got %v", err)
	}
}

func TestUpdateTaskRefusesTimeBlockTimestamps(t *testing.T) {
	f := newTaskFixture(t)
	block := &entities.Task{
		ID: uuid.New(), Name: "Dentist", TaskListID: f.listID,
		Progress: entities.ProgressNotStarted,
		StartAt:  f.now, DueAt: f.now.Add(time.Hour),
	}
	block.SetDetails(entities.TaskDetails{IsTimeBlock: true, TaskDuration: 60})
	f.tasks.Create(context.Background(), block)

	later := f.now.Add(2 * time.Hour)
	_, err := f.svc.UpdateTask(context.Background(), block.ID, &ports.UpdateTaskRequest{StartAt: &later})
	if !errors.Is(err, entities.ErrTimeBlockLocked) {
		t.Fatalf("expected ErrTimeBlockLocked, got %v", err)
	}

	// Renaming a block stays allowed.
	name := "Dentist (moved)"
	if _, err := f.svc.UpdateTask(context.Background(), block.ID, &ports.UpdateTaskRequest{Name: &name}); err != nil {
		t.Fatalf("rename failed: %v", err)
	}
}

func TestCompleteTaskBumpsGoalsOnce(t *testing.T) {
	f := newTaskFixture(t)
	goal := &entities.Goal{
		ID: uuid.New(), Scope: entities.GoalScopeList, ScopeID: f.listID,
		GoalType: entities.GoalDaily, TargetCount: 5, Enabled: true,
	}
	f.goals.Create(context.Background(), goal)
	task := &entities.Task{
		ID: uuid.New(), Name: "Write report", TaskListID: f.listID,
		Progress: entities.ProgressNotStarted,
		StartAt:  f.now, DueAt: f.now.Add(time.Hour),
	}
	f.tasks.Create(context.Background(), task)

	if err := f.svc.UpdateProgress(context.Background(), task.ID, entities.ProgressCompleted, false); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if task.CompletedAt == nil || !task.CompletedAt.Equal(f.now) {
		t.Errorf("completed_at = %v, want now", task.CompletedAt)
	}
	if goal.CurrentCount != 1 {
		t.Fatalf("goal count = %d, want 1", goal.CurrentCount)
	}

	// Completing an already-completed task must not double count.
	if err := f.svc.UpdateProgress(context.Background(), task.ID, entities.ProgressCompleted, false); err != nil {
		t.Fatalf("re-complete failed: %v", err)
	}
	if goal.CurrentCount != 1 {
		t.Errorf("goal count = %d after re-complete, want 1", goal.CurrentCount)
	}
}

func TestReopenTaskClearsCompletedAt(t *testing.T) {
	f := newTaskFixture(t)
	done := f.now.Add(-time.Hour)
	task := &entities.Task{
		ID: uuid.New(), Name: "Write report", TaskListID: f.listID,
		Progress: entities.ProgressCompleted, CompletedAt: &done,
		StartAt: f.now.Add(-2 * time.Hour), DueAt: f.now.Add(-time.Hour),
	}
	f.tasks.Create(context.Background(), task)

	if err := f.svc.UpdateProgress(context.Background(), task.ID, entities.ProgressNotStarted, false); err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if task.Progress != entities.ProgressNotStarted || task.CompletedAt != nil {
		t.Errorf("task not reopened: %s %v", task.Progress, task.CompletedAt)
	}
}

func TestUpdateProgressRejectsUnknownValue(t *testing.T) {
	f := newTaskFixture(t)
	err := f.svc.UpdateProgress(context.Background(), uuid.New(), "Paused", false)
	if !errors.Is(err, entities.ErrInvalidProgress) {
		t.Fatalf("expected ErrInvalidProgress, got %v", err)
	}
}

func TestSubtaskProgressStampsCompletion(t *testing.T) {
	f := newTaskFixture(t)
	task := &entities.Task{
		ID: uuid.New(), Name: "Write report", TaskListID: f.listID,
		Progress: entities.ProgressNotStarted,
		StartAt:  f.now, DueAt: f.now.Add(time.Hour),
	}
	f.tasks.Create(context.Background(), task)
	sub, err := f.svc.CreateSubtask(context.Background(), &ports.CreateSubtaskRequest{
		TaskID: task.ID, Name: "Outline",
	})
	if err != nil {
		t.Fatalf("create subtask failed: %v", err)
	}

	if err := f.svc.UpdateProgress(context.Background(), sub.ID, entities.ProgressCompleted, true); err != nil {
		t.Fatalf("complete subtask failed: %v", err)
	}
	if sub.CompletedAt == nil || sub.Progress != entities.ProgressCompleted {
		t.Errorf("subtask not completed: %s %v", sub.Progress, sub.CompletedAt)
	}
	// Subtask completions never touch goals.
	if f.goals.resetCalls != 0 {
		t.Errorf("unexpected goal repo activity")
	}
}

func TestCreateSubtaskUnknownTask(t *testing.T) {
	f := newTaskFixture(t)
	_, err := f.svc.CreateSubtask(context.Background(), &ports.CreateSubtaskRequest{
		TaskID: uuid.New(), Name: "Orphan",
	})
	if !errors.Is(err, entities.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}
