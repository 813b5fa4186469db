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

// GoalRepositoryImpl implements the GoalRepository interface. The daily
// reset bookkeeping lives in the single-row scheduler_state table.
type GoalRepositoryImpl struct {
	db *sqlx.DB
}

// NewGoalRepository creates a new goal repository
func NewGoalRepository(db *sqlx.DB) ports.GoalRepository {
	return &GoalRepositoryImpl{db: db}
}

const goalColumns = `id, scope, scope_id, goal_type, target_count, current_count,
	enabled, reward, start_date, end_date, created_at, updated_at`

func (r *GoalRepositoryImpl) Create(ctx context.Context, goal *entities.Goal) error {
	query := `
		INSERT INTO goals (id, scope, scope_id, goal_type, target_count, current_count,
			enabled, reward, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`

	if goal.ID == uuid.Nil {
		goal.ID = uuid.New()
	}

	err := r.db.QueryRowContext(ctx, query,
		goal.ID, goal.Scope, goal.ScopeID, goal.GoalType, goal.TargetCount,
		goal.CurrentCount, goal.Enabled, goal.Reward, goal.StartDate, goal.EndDate,
	).Scan(&goal.CreatedAt, &goal.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create goal: %w", err)
	}

	return nil
}

func (r *GoalRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.Goal, error) {
	query := `SELECT ` + goalColumns + ` FROM goals WHERE id = $1`

	var goal entities.Goal
	err := r.db.GetContext(ctx, &goal, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entities.ErrGoalNotFound
		}
		return nil, fmt.Errorf("get goal by id: %w", err)
	}

	return &goal, nil
}

func (r *GoalRepositoryImpl) ListByScope(ctx context.Context, scope entities.GoalScope, scopeID uuid.UUID) ([]*entities.Goal, error) {
	query := `SELECT ` + goalColumns + `
		FROM goals
		WHERE scope = $1 AND scope_id = $2
		ORDER BY created_at ASC`

	var goals []*entities.Goal
	if err := r.db.SelectContext(ctx, &goals, query, scope, scopeID); err != nil {
		return nil, fmt.Errorf("list goals by scope: %w", err)
	}

	return goals, nil
}

func (r *GoalRepositoryImpl) ListEnabledByType(ctx context.Context, goalType entities.GoalType) ([]*entities.Goal, error) {
	query := `SELECT ` + goalColumns + `
		FROM goals
		WHERE enabled = TRUE AND goal_type = $1
		ORDER BY created_at ASC`

	var goals []*entities.Goal
	if err := r.db.SelectContext(ctx, &goals, query, goalType); err != nil {
		return nil, fmt.Errorf("list enabled goals by type: %w", err)
	}

	return goals, nil
}

func (r *GoalRepositoryImpl) Update(ctx context.Context, goal *entities.Goal) error {
	query := `
		UPDATE goals
		SET goal_type = $2, target_count = $3, current_count = $4, enabled = $5,
			reward = $6, start_date = $7, end_date = $8, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		goal.ID, goal.GoalType, goal.TargetCount, goal.CurrentCount,
		goal.Enabled, goal.Reward, goal.StartDate, goal.EndDate,
	).Scan(&goal.UpdatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return entities.ErrGoalNotFound
		}
		return fmt.Errorf("update goal: %w", err)
	}

	return nil
}

func (r *GoalRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM goals WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return entities.ErrGoalNotFound
	}

	return nil
}

func (r *GoalRepositoryImpl) IncrementCurrent(ctx context.Context, scope entities.GoalScope, scopeID uuid.UUID) (int64, error) {
	query := `
		UPDATE goals
		SET current_count = current_count + 1, updated_at = CURRENT_TIMESTAMP
		WHERE scope = $1 AND scope_id = $2 AND enabled = TRUE`

	result, err := r.db.ExecContext(ctx, query, scope, scopeID)
	if err != nil {
		return 0, fmt.Errorf("increment goal counters: %w", err)
	}
	n, _ := result.RowsAffected()

	return n, nil
}

func (r *GoalRepositoryImpl) ResetCurrentCounts(ctx context.Context, goalType entities.GoalType) (int64, error) {
	query := `
		UPDATE goals
		SET current_count = 0, updated_at = CURRENT_TIMESTAMP
		WHERE enabled = TRUE AND goal_type = $1 AND current_count != 0`

	result, err := r.db.ExecContext(ctx, query, goalType)
	if err != nil {
		return 0, fmt.Errorf("reset goal counters: %w", err)
	}
	n, _ := result.RowsAffected()

	return n, nil
}

func (r *GoalRepositoryImpl) GetLastResetDay(ctx context.Context) (string, error) {
	var day string
	err := r.db.GetContext(ctx, &day,
		`SELECT last_goal_reset_day FROM scheduler_state WHERE id = 1`)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("get last reset day: %w", err)
	}

	return day, nil
}

func (r *GoalRepositoryImpl) SetLastResetDay(ctx context.Context, day string) error {
	query := `
		INSERT INTO scheduler_state (id, last_goal_reset_day)
		VALUES (1, $1)
		ON CONFLICT (id)
		DO UPDATE SET last_goal_reset_day = EXCLUDED.last_goal_reset_day,
			updated_at = CURRENT_TIMESTAMP`

	if _, err := r.db.ExecContext(ctx, query, day); err != nil {
		return fmt.Errorf("set last reset day: %w", err)
	}

	return nil
}
