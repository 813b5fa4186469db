package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/taskloop/core/internal/application/schedule"
	"github.com/taskloop/core/internal/domain/entities"
	"github.com/taskloop/core/internal/infrastructure/logger"
	"github.com/taskloop/core/internal/infrastructure/metrics"
	"github.com/taskloop/core/internal/ports"
)

// GoalService manages goal CRUD, completion counters, and the once-per-day
// reset of daily goal counts. The reset is gated on a persisted last-reset
// day so process restarts never double-reset or skip a day.
type GoalService struct {
	goals   ports.GoalRepository
	loc     *time.Location
	metrics *metrics.Metrics
	logger  *logger.Logger
	now     func() time.Time
}

// NewGoalService creates a new goal service.
func NewGoalService(goals ports.GoalRepository, loc *time.Location, m *metrics.Metrics, log *logger.Logger) *GoalService {
	return &GoalService{
		goals:   goals,
		loc:     loc,
		metrics: m,
		logger:  log.WithComponent("goals"),
		now:     time.Now,
	}
}

// SetClock overrides the service's time source. Test hook.
func (s *GoalService) SetClock(now func() time.Time) {
	s.now = now
}

// CreateGoal validates and persists a new goal.
func (s *GoalService) CreateGoal(ctx context.Context, req *ports.SaveGoalRequest) (*entities.Goal, error) {
	if !req.GoalType.IsValid() {
		return nil, fmt.Errorf("unknown goal type %q", req.GoalType)
	}
	now := s.now()
	goal := &entities.Goal{
		ID:          uuid.New(),
		Scope:       req.Scope,
		ScopeID:     req.ScopeID,
		GoalType:    req.GoalType,
		TargetCount: req.TargetCount,
		Enabled:     req.Enabled,
		Reward:      req.Reward,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.goals.Create(ctx, goal); err != nil {
		return nil, fmt.Errorf("create goal: %w", err)
	}
	return goal, nil
}

// GetGoal returns a goal by id.
func (s *GoalService) GetGoal(ctx context.Context, id uuid.UUID) (*entities.Goal, error) {
	return s.goals.GetByID(ctx, id)
}

// ListGoals returns the goals attached to a list or project.
func (s *GoalService) ListGoals(ctx context.Context, scope entities.GoalScope, scopeID uuid.UUID) ([]*entities.Goal, error) {
	return s.goals.ListByScope(ctx, scope, scopeID)
}

// UpdateGoal applies the request to an existing goal.
func (s *GoalService) UpdateGoal(ctx context.Context, id uuid.UUID, req *ports.SaveGoalRequest) (*entities.Goal, error) {
	goal, err := s.goals.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.GoalType != "" {
		if !req.GoalType.IsValid() {
			return nil, fmt.Errorf("unknown goal type %q", req.GoalType)
		}
		goal.GoalType = req.GoalType
	}
	if req.TargetCount > 0 {
		goal.TargetCount = req.TargetCount
	}
	goal.Enabled = req.Enabled
	goal.Reward = req.Reward
	goal.StartDate = req.StartDate
	goal.EndDate = req.EndDate
	goal.UpdatedAt = s.now()
	if err := s.goals.Update(ctx, goal); err != nil {
		return nil, fmt.Errorf("update goal: %w", err)
	}
	return goal, nil
}

// DeleteGoal removes a goal.
func (s *GoalService) DeleteGoal(ctx context.Context, id uuid.UUID) error {
	return s.goals.Delete(ctx, id)
}

// RecordCompletion bumps the current counters for the goals attached to the
// completed task's list and, when present, its project. Counter failures
// are logged, not propagated; completion itself must not fail on goal
// bookkeeping.
func (s *GoalService) RecordCompletion(ctx context.Context, taskListID uuid.UUID, projectID *uuid.UUID) {
	if _, err := s.goals.IncrementCurrent(ctx, entities.GoalScopeList, taskListID); err != nil {
		s.logger.WithError(err).Warnw("Failed to increment list goal", "task_list_id", taskListID)
	}
	if projectID != nil {
		if _, err := s.goals.IncrementCurrent(ctx, entities.GoalScopeProject, *projectID); err != nil {
			s.logger.WithError(err).Warnw("Failed to increment project goal", "project_id", *projectID)
		}
	}
}

// ResetDailyGoals zeroes the current counts of every enabled daily goal,
// at most once per generation day. Returns the rows reset and whether the
// reset actually ran.
func (s *GoalService) ResetDailyGoals(ctx context.Context) (int64, bool, error) {
	win := schedule.Window(s.now(), s.loc)
	last, err := s.goals.GetLastResetDay(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("get last reset day: %w", err)
	}
	if last == win.Key() {
		return 0, false, nil
	}
	n, err := s.goals.ResetCurrentCounts(ctx, entities.GoalDaily)
	if err != nil {
		return 0, false, fmt.Errorf("reset daily goals: %w", err)
	}
	if err := s.goals.SetLastResetDay(ctx, win.Key()); err != nil {
		return n, true, fmt.Errorf("stamp reset day: %w", err)
	}
	s.metrics.RecordGoalReset()
	return n, true, nil
}
