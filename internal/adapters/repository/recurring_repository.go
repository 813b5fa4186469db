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

// RecurringSettingRepositoryImpl implements the RecurringSettingRepository
// interface
type RecurringSettingRepositoryImpl struct {
	db *sqlx.DB
}

// NewRecurringSettingRepository creates a new recurring setting repository
func NewRecurringSettingRepository(db *sqlx.DB) ports.RecurringSettingRepository {
	return &RecurringSettingRepositoryImpl{db: db}
}

const settingColumns = `id, task_list_id, enabled, daily_task_count, days_of_week,
	subtask_template, respawn_mode, respawn_interval, respawn_days,
	last_subtask_respawn, start_date, created_at, updated_at`

func (r *RecurringSettingRepositoryImpl) Create(ctx context.Context, setting *entities.RecurringSetting) error {
	query := `
		INSERT INTO recurring_task_settings (id, task_list_id, enabled, daily_task_count,
			days_of_week, subtask_template, respawn_mode, respawn_interval, respawn_days,
			last_subtask_respawn, start_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`

	if setting.ID == uuid.Nil {
		setting.ID = uuid.New()
	}

	err := r.db.QueryRowContext(ctx, query,
		setting.ID, setting.TaskListID, setting.Enabled, setting.DailyTaskCount,
		setting.DaysOfWeek, setting.SubtaskTemplate, setting.RespawnMode,
		setting.RespawnInterval, setting.RespawnDays,
		setting.LastSubtaskRespawn, setting.StartDate,
	).Scan(&setting.CreatedAt, &setting.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create recurring setting: %w", err)
	}

	return nil
}

func (r *RecurringSettingRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.RecurringSetting, error) {
	query := `SELECT ` + settingColumns + ` FROM recurring_task_settings WHERE id = $1`

	var setting entities.RecurringSetting
	err := r.db.GetContext(ctx, &setting, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entities.ErrSettingNotFound
		}
		return nil, fmt.Errorf("get recurring setting by id: %w", err)
	}

	return &setting, nil
}

func (r *RecurringSettingRepositoryImpl) ListEnabled(ctx context.Context) ([]*entities.RecurringSetting, error) {
	query := `SELECT ` + settingColumns + `
		FROM recurring_task_settings
		WHERE enabled = TRUE
		ORDER BY created_at ASC`

	var settings []*entities.RecurringSetting
	if err := r.db.SelectContext(ctx, &settings, query); err != nil {
		return nil, fmt.Errorf("list enabled settings: %w", err)
	}

	return settings, nil
}

func (r *RecurringSettingRepositoryImpl) ListByTaskList(ctx context.Context, taskListID uuid.UUID) ([]*entities.RecurringSetting, error) {
	query := `SELECT ` + settingColumns + `
		FROM recurring_task_settings
		WHERE task_list_id = $1
		ORDER BY created_at ASC`

	var settings []*entities.RecurringSetting
	if err := r.db.SelectContext(ctx, &settings, query, taskListID); err != nil {
		return nil, fmt.Errorf("list settings by task list: %w", err)
	}

	return settings, nil
}

func (r *RecurringSettingRepositoryImpl) Update(ctx context.Context, setting *entities.RecurringSetting) error {
	query := `
		UPDATE recurring_task_settings
		SET enabled = $2, daily_task_count = $3, days_of_week = $4, subtask_template = $5,
			respawn_mode = $6, respawn_interval = $7, respawn_days = $8,
			last_subtask_respawn = $9, start_date = $10, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		setting.ID, setting.Enabled, setting.DailyTaskCount, setting.DaysOfWeek,
		setting.SubtaskTemplate, setting.RespawnMode, setting.RespawnInterval,
		setting.RespawnDays, setting.LastSubtaskRespawn, setting.StartDate,
	).Scan(&setting.UpdatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return entities.ErrSettingNotFound
		}
		return fmt.Errorf("update recurring setting: %w", err)
	}

	return nil
}

func (r *RecurringSettingRepositoryImpl) Disable(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE recurring_task_settings
		SET enabled = FALSE, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("disable recurring setting: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return entities.ErrSettingNotFound
	}

	return nil
}

func (r *RecurringSettingRepositoryImpl) StampRespawn(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE recurring_task_settings
		SET last_subtask_respawn = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("stamp respawn: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return entities.ErrSettingNotFound
	}

	return nil
}

func (r *RecurringSettingRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM recurring_task_settings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete recurring setting: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return entities.ErrSettingNotFound
	}

	return nil
}

// GenerationLogRepositoryImpl implements the GenerationLogRepository
// interface
type GenerationLogRepositoryImpl struct {
	db *sqlx.DB
}

// NewGenerationLogRepository creates a new generation log repository
func NewGenerationLogRepository(db *sqlx.DB) ports.GenerationLogRepository {
	return &GenerationLogRepositoryImpl{db: db}
}

func (r *GenerationLogRepositoryImpl) Get(ctx context.Context, entityID uuid.UUID, day string) (*entities.GenerationLog, error) {
	query := `
		SELECT id, entity_id, setting_id, day, tasks_generated, created_at, updated_at
		FROM recurring_task_generation_logs
		WHERE entity_id = $1 AND day = $2`

	var log entities.GenerationLog
	err := r.db.GetContext(ctx, &log, query, entityID, day)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get generation log: %w", err)
	}

	return &log, nil
}

func (r *GenerationLogRepositoryImpl) Upsert(ctx context.Context, log *entities.GenerationLog) error {
	query := `
		INSERT INTO recurring_task_generation_logs (id, entity_id, setting_id, day, tasks_generated)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (entity_id, day)
		DO UPDATE SET tasks_generated = EXCLUDED.tasks_generated,
			setting_id = EXCLUDED.setting_id,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id, created_at, updated_at`

	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}

	err := r.db.QueryRowContext(ctx, query,
		log.ID, log.EntityID, log.SettingID, log.Day, log.TasksGenerated,
	).Scan(&log.ID, &log.CreatedAt, &log.UpdatedAt)

	if err != nil {
		return fmt.Errorf("upsert generation log: %w", err)
	}

	return nil
}

func (r *GenerationLogRepositoryImpl) ListForDay(ctx context.Context, day string) ([]*entities.GenerationLog, error) {
	query := `
		SELECT id, entity_id, setting_id, day, tasks_generated, created_at, updated_at
		FROM recurring_task_generation_logs
		WHERE day = $1
		ORDER BY created_at ASC`

	var logs []*entities.GenerationLog
	if err := r.db.SelectContext(ctx, &logs, query, day); err != nil {
		return nil, fmt.Errorf("list generation logs for day: %w", err)
	}

	return logs, nil
}
