package entities

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrTaskNotFound     = errors.New("task not found")
	ErrSubtaskNotFound  = errors.New("subtask not found")
	ErrTaskListNotFound = errors.New("task list not found")
	ErrProjectNotFound  = errors.New("project not found")
	ErrSettingNotFound  = errors.New("recurring setting not found")
	ErrGoalNotFound     = errors.New("goal not found")
	ErrInvalidProgress  = errors.New("invalid progress status")
	ErrTimeBlockLocked  = errors.New("time blocks cannot be rescheduled")
)

// Progress is the lifecycle status of a task or subtask.
type Progress string

const (
	ProgressNotStarted Progress = "Not started"
	ProgressInProgress Progress = "In progress"
	ProgressCompleted  Progress = "Completed"
	ProgressBacklog    Progress = "Backlog"
)

// DefaultTaskDuration is applied when a task carries no explicit duration.
const DefaultTaskDuration = 25 * time.Minute

// TaskDetails is the free-form details blob attached to a task. Only the
// fields the scheduler cares about are modeled here.
type TaskDetails struct {
	TaskDuration int    `json:"taskDuration,omitempty"` // minutes
	IsTimeBlock  bool   `json:"isTimeBlock,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// Task represents a single work item in a task list, optionally owned by a
// project. Time blocks are tasks with the isTimeBlock marker in their details
// blob; scheduling algorithms treat their timestamps as immovable.
type Task struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	Progress    Progress   `json:"progress" db:"progress"`
	StartAt     time.Time  `json:"start_at" db:"start_at"`
	DueAt       time.Time  `json:"due_at" db:"due_at"`
	TaskListID  uuid.UUID  `json:"task_list_id" db:"task_list_id"`
	ProjectID   *uuid.UUID `json:"project_id" db:"project_id"`
	Details     *string    `json:"details" db:"details"`
	CompletedAt *time.Time `json:"completed_at" db:"completed_at"`
	Archived    bool       `json:"archived" db:"archived"`
	SortOrder   int        `json:"sort_order" db:"sort_order"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// Subtask is a checklist item under a task. CompletedAt feeds the respawn
// suppression window.
type Subtask struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	TaskID      uuid.UUID  `json:"task_id" db:"task_id"`
	Name        string     `json:"name" db:"name"`
	Progress    Progress   `json:"progress" db:"progress"`
	SortOrder   int        `json:"sort_order" db:"sort_order"`
	CompletedAt *time.Time `json:"completed_at" db:"completed_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// TaskList groups tasks and carries at most one enabled recurring setting.
type TaskList struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	SortOrder int       `json:"sort_order" db:"sort_order"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Project belongs to a task list. Recurring projects contribute their own
// per-occurrence task goal toward the list's daily goal.
type Project struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	Name          string     `json:"name" db:"name"`
	TaskListID    uuid.UUID  `json:"task_list_id" db:"task_list_id"`
	IsRecurring   bool       `json:"is_recurring" db:"is_recurring"`
	TaskCountGoal int        `json:"task_count_goal" db:"task_count_goal"`
	DaysOfWeek    StringSet  `json:"days_of_week" db:"days_of_week"`
	Progress      Progress   `json:"progress" db:"progress"`
	DueAt         *time.Time `json:"due_at" db:"due_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// StringSet is a jsonb-backed list of strings (weekday names, subtask
// template entries).
type StringSet []string

// ParseDetails decodes the task's details blob. A nil or malformed blob
// yields zero details; the scheduler treats both as "no scheduling hints".
func (t *Task) ParseDetails() TaskDetails {
	var d TaskDetails
	if t.Details == nil || *t.Details == "" {
		return d
	}
	if err := json.Unmarshal([]byte(*t.Details), &d); err != nil {
		return TaskDetails{}
	}
	return d
}

// SetDetails encodes and attaches a details blob.
func (t *Task) SetDetails(d TaskDetails) {
	raw, err := json.Marshal(d)
	if err != nil {
		return
	}
	s := string(raw)
	t.Details = &s
}

// IsTimeBlock reports whether the task is a fixed calendar obstacle.
func (t *Task) IsTimeBlock() bool {
	return t.ParseDetails().IsTimeBlock
}

// Duration returns the task's configured duration, falling back to the
// timestamp span and then to the default Pomodoro length.
func (t *Task) Duration() time.Duration {
	if d := t.ParseDetails().TaskDuration; d > 0 {
		return time.Duration(d) * time.Minute
	}
	if t.DueAt.After(t.StartAt) {
		return t.DueAt.Sub(t.StartAt)
	}
	return DefaultTaskDuration
}

// IsPending reports whether the task still counts toward today's goal.
func (t *Task) IsPending() bool {
	return !t.Archived && (t.Progress == ProgressNotStarted || t.Progress == ProgressInProgress)
}

// Overlaps reports whether the task's [start, due) interval intersects
// [start, end).
func (t *Task) Overlaps(start, end time.Time) bool {
	return t.StartAt.Before(end) && t.DueAt.After(start)
}

// Complete marks the task completed and stamps the completion time.
func (t *Task) Complete(now time.Time) {
	t.Progress = ProgressCompleted
	t.CompletedAt = &now
}

// Complete marks the subtask completed and stamps the completion time.
func (s *Subtask) Complete(now time.Time) {
	s.Progress = ProgressCompleted
	s.CompletedAt = &now
}

// Reopen resets a subtask back to not started, clearing the completion
// timestamp. Used by the respawn pass.
func (s *Subtask) Reopen() {
	s.Progress = ProgressNotStarted
	s.CompletedAt = nil
}

// IsOverdue reports whether a project's due date has passed without the
// project being completed.
func (p *Project) IsOverdue(now time.Time) bool {
	if p.DueAt == nil {
		return false
	}
	return now.After(*p.DueAt) && p.Progress != ProgressCompleted
}

// GeneratesToday reports whether the project should contribute occurrences
// on the given normalized weekday. An empty day set means every day.
func (p *Project) GeneratesToday(day string, normalize func(string) string) bool {
	if !p.IsRecurring || p.Progress == ProgressCompleted {
		return false
	}
	if len(p.DaysOfWeek) == 0 {
		return true
	}
	for _, d := range p.DaysOfWeek {
		if normalize(d) == day {
			return true
		}
	}
	return false
}

// IsValid reports whether the progress value is one of the known states.
func (p Progress) IsValid() bool {
	switch p {
	case ProgressNotStarted, ProgressInProgress, ProgressCompleted, ProgressBacklog:
		return true
	default:
		return false
	}
}

// Value implements driver.Valuer for StringSet.
func (s StringSet) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan implements sql.Scanner for StringSet.
func (s *StringSet) Scan(src interface{}) error {
	if src == nil {
		*s = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return errors.New("unsupported type for StringSet")
	}
}
