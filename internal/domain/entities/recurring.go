package entities

import (
	"time"

	"github.com/google/uuid"
)

// RespawnMode controls when template subtasks are reset or recreated.
type RespawnMode string

const (
	RespawnOnTaskCreation RespawnMode = "on_task_creation"
	RespawnProgressive    RespawnMode = "progressive"
	RespawnDaily          RespawnMode = "daily"
	RespawnEveryXDays     RespawnMode = "every_x_days"
	RespawnEveryXWeeks    RespawnMode = "every_x_weeks"
	RespawnDaysOfWeek     RespawnMode = "days_of_week"
)

// GoalType classifies how a goal's target window is interpreted.
type GoalType string

const (
	GoalDaily      GoalType = "daily"
	GoalWeekly     GoalType = "weekly"
	GoalSingleDate GoalType = "single_date"
	GoalDatePeriod GoalType = "date_period"
)

// GoalScope names the entity kind a goal is attached to.
type GoalScope string

const (
	GoalScopeList    GoalScope = "list"
	GoalScopeProject GoalScope = "project"
)

// RecurringSetting is the per-list recurring generation configuration.
// At most one setting per list may be enabled at a time; the generation
// pass detects violations and disables all but the most recently created.
type RecurringSetting struct {
	ID                 uuid.UUID   `json:"id" db:"id"`
	TaskListID         uuid.UUID   `json:"task_list_id" db:"task_list_id"`
	Enabled            bool        `json:"enabled" db:"enabled"`
	DailyTaskCount     int         `json:"daily_task_count" db:"daily_task_count"`
	DaysOfWeek         StringSet   `json:"days_of_week" db:"days_of_week"`
	SubtaskTemplate    StringSet   `json:"subtask_template" db:"subtask_template"`
	RespawnMode        RespawnMode `json:"respawn_mode" db:"respawn_mode"`
	RespawnInterval    int         `json:"respawn_interval" db:"respawn_interval"`
	RespawnDays        StringSet   `json:"respawn_days" db:"respawn_days"`
	LastSubtaskRespawn *time.Time  `json:"last_subtask_respawn" db:"last_subtask_respawn"`
	StartDate          *time.Time  `json:"start_date" db:"start_date"`
	CreatedAt          time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at" db:"updated_at"`
}

// GenerationLog is the idempotency record: one row per (entity, setting, day)
// proving that entity already generated its tasks for that day window.
type GenerationLog struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	EntityID       uuid.UUID  `json:"entity_id" db:"entity_id"`
	SettingID      *uuid.UUID `json:"setting_id" db:"setting_id"`
	Day            string     `json:"day" db:"day"` // YYYY-MM-DD in the reference zone
	TasksGenerated int        `json:"tasks_generated" db:"tasks_generated"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// Goal tracks progress counters against a target for a list or project.
type Goal struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Scope        GoalScope  `json:"scope" db:"scope"`
	ScopeID      uuid.UUID  `json:"scope_id" db:"scope_id"`
	GoalType     GoalType   `json:"goal_type" db:"goal_type"`
	TargetCount  int        `json:"target_count" db:"target_count"`
	CurrentCount int        `json:"current_count" db:"current_count"`
	Enabled      bool       `json:"enabled" db:"enabled"`
	Reward       *string    `json:"reward" db:"reward"`
	StartDate    *time.Time `json:"start_date" db:"start_date"`
	EndDate      *time.Time `json:"end_date" db:"end_date"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// ScheduledOn reports whether the setting generates on the given normalized
// weekday.
func (rs *RecurringSetting) ScheduledOn(day string, normalize func(string) string) bool {
	for _, d := range rs.DaysOfWeek {
		if normalize(d) == day {
			return true
		}
	}
	return false
}

// Generates reports whether the setting is eligible in principle: enabled
// with a positive daily goal.
func (rs *RecurringSetting) Generates() bool {
	return rs.Enabled && rs.DailyTaskCount > 0
}

// Respawns reports whether the mode ever resets subtasks after creation.
// on_task_creation and progressive are terminal states.
func (m RespawnMode) Respawns() bool {
	switch m {
	case RespawnDaily, RespawnEveryXDays, RespawnEveryXWeeks, RespawnDaysOfWeek:
		return true
	default:
		return false
	}
}

// IsValid reports whether the respawn mode is one of the known modes.
func (m RespawnMode) IsValid() bool {
	switch m {
	case RespawnOnTaskCreation, RespawnProgressive, RespawnDaily,
		RespawnEveryXDays, RespawnEveryXWeeks, RespawnDaysOfWeek:
		return true
	default:
		return false
	}
}

// IsValid reports whether the goal type is one of the known types.
func (g GoalType) IsValid() bool {
	switch g {
	case GoalDaily, GoalWeekly, GoalSingleDate, GoalDatePeriod:
		return true
	default:
		return false
	}
}
