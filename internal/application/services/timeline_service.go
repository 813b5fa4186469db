package services

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/taskloop/core/internal/application/schedule"
	"github.com/taskloop/core/internal/domain/entities"
	"github.com/taskloop/core/internal/infrastructure/logger"
	"github.com/taskloop/core/internal/ports"
)

// TimelineService implements the interactive scheduling operations over
// today's task timeline: starting a task, shuffling the remaining order,
// and inserting immovable time blocks. All rescheduling deflects around
// time blocks and never moves in-progress tasks.
type TimelineService struct {
	tasks  ports.TaskRepository
	loc    *time.Location
	logger *logger.Logger
	now    func() time.Time
	rng    *rand.Rand
}

// NewTimelineService creates a new timeline service.
func NewTimelineService(tasks ports.TaskRepository, loc *time.Location, log *logger.Logger) *TimelineService {
	return &TimelineService{
		tasks:  tasks,
		loc:    loc,
		logger: log.WithComponent("timeline"),
		now:    time.Now,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetClock overrides the service's time source. Test hook.
func (s *TimelineService) SetClock(now func() time.Time) {
	s.now = now
}

// SetRand overrides the shuffle source. Test hook.
func (s *TimelineService) SetRand(rng *rand.Rand) {
	s.rng = rng
}

// TodayTasks returns the pending tasks in the current session window for a
// list, ordered by start time. In the evening hours the window spans the
// most recent 9 PM to the coming 3 AM instead of the calendar day.
func (s *TimelineService) TodayTasks(ctx context.Context, taskListID uuid.UUID) ([]*entities.Task, error) {
	start, end := schedule.TodayTaskWindow(s.now(), s.loc)
	tasks, err := s.tasks.List(ctx, ports.TaskFilter{
		TaskListID:  &taskListID,
		StartFrom:   &start,
		StartBefore: &end,
		Progress: []entities.Progress{
			entities.ProgressNotStarted,
			entities.ProgressInProgress,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("list today tasks: %w", err)
	}
	schedule.SortByStart(tasks)
	return tasks, nil
}

// StartTask marks the task in progress with start=now and a fixed
// 25-minute due, then rechains every other not-started task scheduled
// before tomorrow back-to-back from 30 minutes after now, deflecting
// around time blocks. Leftover tasks from earlier days are pulled into
// the chain too.
func (s *TimelineService) StartTask(ctx context.Context, id uuid.UUID) (*entities.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.IsTimeBlock() {
		return nil, entities.ErrTimeBlockLocked
	}

	now := s.now()
	task.Progress = entities.ProgressInProgress
	task.StartAt = now
	task.DueAt = now.Add(entities.DefaultTaskDuration)
	task.UpdatedAt = now
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("start task: %w", err)
	}

	_, horizon := schedule.TodayTaskWindow(now, s.loc)
	pending, err := s.tasks.List(ctx, ports.TaskFilter{
		TaskListID:  &task.TaskListID,
		StartBefore: &horizon,
		Progress: []entities.Progress{
			entities.ProgressNotStarted,
			entities.ProgressInProgress,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("list pending tasks: %w", err)
	}
	blocks, _, movable := schedule.Partition(pending)
	rest := movable[:0]
	for _, t := range movable {
		if t.ID != task.ID {
			rest = append(rest, t)
		}
	}
	schedule.SortByStart(rest)
	schedule.ChainTasks(rest, now.Add(schedule.StartChainOffset), blocks)
	if err := s.persistTimeline(ctx, rest); err != nil {
		return nil, err
	}
	return task, nil
}

// Shuffle randomizes the order of the list's remaining not-started tasks
// and rechains them from now. Time blocks and in-progress tasks keep their
// timestamps.
func (s *TimelineService) Shuffle(ctx context.Context, taskListID uuid.UUID) ([]*entities.Task, error) {
	today, err := s.TodayTasks(ctx, taskListID)
	if err != nil {
		return nil, err
	}
	blocks, inProgress, movable := schedule.Partition(today)
	if len(movable) == 0 {
		return today, nil
	}

	cursor := s.now()
	for _, t := range inProgress {
		if t.DueAt.After(cursor) {
			cursor = t.DueAt
		}
	}

	schedule.ShuffleTasks(movable, s.rng)
	schedule.ChainTasks(movable, cursor, blocks)
	if err := s.persistTimeline(ctx, movable); err != nil {
		return nil, err
	}

	schedule.SortByStart(today)
	return today, nil
}

// InsertTimeBlock creates an immovable block at the requested interval and
// pushes every conflicting movable task to the next free slot after it.
func (s *TimelineService) InsertTimeBlock(ctx context.Context, req *ports.InsertTimeBlockRequest) (*entities.Task, error) {
	if !req.EndAt.After(req.StartAt) {
		return nil, fmt.Errorf("time block end must be after start")
	}

	now := s.now()
	block := &entities.Task{
		ID:         uuid.New(),
		Name:       req.Name,
		Progress:   entities.ProgressNotStarted,
		StartAt:    req.StartAt,
		DueAt:      req.EndAt,
		TaskListID: req.TaskListID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	block.SetDetails(entities.TaskDetails{
		IsTimeBlock:  true,
		TaskDuration: int(req.EndAt.Sub(req.StartAt) / time.Minute),
	})
	if err := s.tasks.Create(ctx, block); err != nil {
		return nil, fmt.Errorf("create time block: %w", err)
	}

	today, err := s.TodayTasks(ctx, req.TaskListID)
	if err != nil {
		return nil, err
	}
	blocks, _, movable := schedule.Partition(today)

	var displaced []*entities.Task
	for _, t := range movable {
		if t.Overlaps(req.StartAt, req.EndAt) {
			displaced = append(displaced, t)
		}
	}
	if len(displaced) == 0 {
		return block, nil
	}

	schedule.SortByStart(displaced)
	schedule.ChainTasks(displaced, req.EndAt.Add(schedule.BlockClearance), blocks)
	if err := s.persistTimeline(ctx, displaced); err != nil {
		return nil, err
	}
	return block, nil
}

func (s *TimelineService) persistTimeline(ctx context.Context, tasks []*entities.Task) error {
	for _, t := range tasks {
		if err := s.tasks.UpdateTimeline(ctx, t.ID, t.StartAt, t.DueAt); err != nil {
			return fmt.Errorf("persist timeline for %s: %w", t.ID, err)
		}
	}
	return nil
}
