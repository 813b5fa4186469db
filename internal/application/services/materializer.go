package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/taskloop/core/internal/application/schedule"
	"github.com/taskloop/core/internal/domain/entities"
	"github.com/taskloop/core/internal/ports"
)

// materializeBatch accumulates tasks and subtasks created within a single
// generation pass so start times chain across list and project fills and
// the whole set is persisted in two batch inserts.
type materializeBatch struct {
	svc           *GenerationService
	win           schedule.DayWindow
	cursor        time.Time
	created       int
	skipNameCheck bool
	tasks         []*entities.Task
	subtasks      []*entities.Subtask
}

func newBatch(svc *GenerationService, win schedule.DayWindow, skipNameCheck bool) *materializeBatch {
	return &materializeBatch{
		svc:           svc,
		win:           win,
		cursor:        win.AnchorAt(svc.cfg.TaskAnchorHour),
		skipNameCheck: skipNameCheck,
	}
}

// materialize creates count tasks named after the owning list or project,
// numbered past the existing occurrences, spaced along the day from the
// anchor hour, each seeded with the setting's subtask template minus the
// names suppressed by the respawn window. The batch is flushed immediately
// so a partial failure never leaves subtasks without their tasks.
func (b *materializeBatch) materialize(
	ctx context.Context,
	baseName string,
	listID uuid.UUID,
	projectID *uuid.UUID,
	count, existing int,
	setting *entities.RecurringSetting,
) error {
	if count <= 0 {
		return nil
	}
	s := b.svc
	now := s.now()

	suppressed, err := b.suppressedSubtaskNames(ctx, listID, setting)
	if err != nil {
		return err
	}

	dur := s.cfg.TaskDuration
	if dur <= 0 {
		dur = entities.DefaultTaskDuration
	}

	start := len(b.tasks)
	for i := 0; i < count; i++ {
		// Numbering continues past the occurrences already counted toward
		// the goal; name collisions from earlier days get a "(k)" suffix
		// unless the caller asked to skip the existence scan.
		name := fmt.Sprintf("%s - Task %d", baseName, existing+i+1)
		if !b.skipNameCheck {
			n, err := s.tasks.CountByNamePrefix(ctx, listID, name)
			if err != nil {
				return fmt.Errorf("count name prefix: %w", err)
			}
			if n > 0 {
				name = fmt.Sprintf("%s (%d)", name, n+1)
			}
		}
		task := &entities.Task{
			ID:         uuid.New(),
			Name:       name,
			Progress:   entities.ProgressNotStarted,
			StartAt:    b.cursor,
			DueAt:      b.cursor.Add(dur),
			TaskListID: listID,
			ProjectID:  projectID,
			SortOrder:  existing + i,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		task.SetDetails(entities.TaskDetails{TaskDuration: int(dur / time.Minute)})
		b.tasks = append(b.tasks, task)
		b.cursor = b.cursor.Add(s.cfg.TaskSpacing)

		if setting != nil {
			order := 0
			for _, tmpl := range setting.SubtaskTemplate {
				if _, skip := suppressed[tmpl]; skip {
					continue
				}
				b.subtasks = append(b.subtasks, &entities.Subtask{
					ID:        uuid.New(),
					TaskID:    task.ID,
					Name:      tmpl,
					Progress:  entities.ProgressNotStarted,
					SortOrder: order,
					CreatedAt: now,
				})
				order++
			}
		}
	}

	if err := s.tasks.CreateBatch(ctx, b.tasks[start:]); err != nil {
		b.tasks = b.tasks[:start]
		return fmt.Errorf("create tasks: %w", err)
	}
	if len(b.subtasks) > 0 {
		if err := s.subtasks.CreateBatch(ctx, b.subtasks); err != nil {
			return fmt.Errorf("create subtasks: %w", err)
		}
		b.subtasks = b.subtasks[:0]
	}
	b.created += count
	return nil
}

// suppressedSubtaskNames returns the template names completed since the
// last respawn stamp. Suppression only applies to modes that respawn;
// terminal modes always seed the full template on new tasks.
func (b *materializeBatch) suppressedSubtaskNames(ctx context.Context, listID uuid.UUID, setting *entities.RecurringSetting) (map[string]struct{}, error) {
	if setting == nil || !setting.RespawnMode.Respawns() {
		return nil, nil
	}
	since := b.win.Start
	if setting.LastSubtaskRespawn != nil && setting.LastSubtaskRespawn.After(since) {
		since = *setting.LastSubtaskRespawn
	}
	names, err := b.svc.subtasks.CompletedNamesSince(ctx, listID, since)
	if err != nil {
		return nil, fmt.Errorf("completed subtask names: %w", err)
	}
	out := make(map[string]struct{}, len(names))
	for _, n := range names {
		out[n] = struct{}{}
	}
	return out, nil
}

// runRespawnIfDue evaluates the setting's respawn schedule and, when a
// respawn is due, reopens the completed template subtasks on the list's
// active tasks, recreates the template subtasks those tasks lost entirely,
// and stamps last_subtask_respawn. Returns whether it ran.
func (s *GenerationService) runRespawnIfDue(ctx context.Context, setting *entities.RecurringSetting, win schedule.DayWindow) bool {
	if !setting.RespawnMode.Respawns() {
		return false
	}
	if !s.respawnDue(setting, win) {
		return false
	}

	subtasks, err := s.subtasks.ListForActiveTasks(ctx, setting.TaskListID)
	if err != nil {
		s.logger.WithError(err).Errorw("Respawn pass failed listing subtasks", "task_list_id", setting.TaskListID)
		return false
	}

	template := make(map[string]struct{}, len(setting.SubtaskTemplate))
	for _, name := range setting.SubtaskTemplate {
		template[name] = struct{}{}
	}

	reopened := 0
	existing := make(map[uuid.UUID]map[string]struct{})
	for _, sub := range subtasks {
		names, ok := existing[sub.TaskID]
		if !ok {
			names = make(map[string]struct{})
			existing[sub.TaskID] = names
		}
		names[sub.Name] = struct{}{}

		if sub.Progress != entities.ProgressCompleted {
			continue
		}
		if _, ok := template[sub.Name]; !ok {
			continue
		}
		sub.Reopen()
		if err := s.subtasks.UpdateProgress(ctx, sub.ID, entities.ProgressNotStarted, nil); err != nil {
			s.logger.WithError(err).Warnw("Failed to reopen subtask", "subtask_id", sub.ID)
			continue
		}
		reopened++
	}

	// Completing a subtask may have deleted it instead of flipping status;
	// active tasks missing a template name get it back as Not started.
	recreated, err := s.recreateMissingSubtasks(ctx, setting, existing)
	if err != nil {
		s.logger.WithError(err).Errorw("Failed to recreate template subtasks", "task_list_id", setting.TaskListID)
		return false
	}

	at := s.now()
	if err := s.settings.StampRespawn(ctx, setting.ID, at); err != nil {
		s.logger.WithError(err).Errorw("Failed to stamp respawn", "setting_id", setting.ID)
		return false
	}

	s.logger.Infow("Subtask respawn ran",
		"task_list_id", setting.TaskListID,
		"mode", setting.RespawnMode,
		"reopened", reopened,
		"recreated", recreated)
	return true
}

// recreateMissingSubtasks inserts a Not-started subtask for every template
// name absent from each active task in the setting's list. existing maps
// task id to the subtask names it currently carries.
func (s *GenerationService) recreateMissingSubtasks(
	ctx context.Context,
	setting *entities.RecurringSetting,
	existing map[uuid.UUID]map[string]struct{},
) (int, error) {
	if len(setting.SubtaskTemplate) == 0 {
		return 0, nil
	}

	tasks, err := s.tasks.List(ctx, ports.TaskFilter{
		TaskListID: &setting.TaskListID,
		Progress: []entities.Progress{
			entities.ProgressNotStarted,
			entities.ProgressInProgress,
		},
	})
	if err != nil {
		return 0, fmt.Errorf("list active tasks: %w", err)
	}

	now := s.now()
	var missing []*entities.Subtask
	for _, task := range tasks {
		names := existing[task.ID]
		order := len(names)
		for _, tmpl := range setting.SubtaskTemplate {
			if _, ok := names[tmpl]; ok {
				continue
			}
			missing = append(missing, &entities.Subtask{
				ID:        uuid.New(),
				TaskID:    task.ID,
				Name:      tmpl,
				Progress:  entities.ProgressNotStarted,
				SortOrder: order,
				CreatedAt: now,
			})
			order++
		}
	}
	if len(missing) == 0 {
		return 0, nil
	}
	if err := s.subtasks.CreateBatch(ctx, missing); err != nil {
		return 0, fmt.Errorf("create missing subtasks: %w", err)
	}
	return len(missing), nil
}

// respawnDue decides whether the periodic respawn schedule has elapsed.
// A never-stamped setting is immediately due.
func (s *GenerationService) respawnDue(setting *entities.RecurringSetting, win schedule.DayWindow) bool {
	last := setting.LastSubtaskRespawn
	if last == nil {
		return true
	}
	// A stamp inside the current day window means this window already ran.
	if win.Contains(*last) {
		return false
	}

	switch setting.RespawnMode {
	case entities.RespawnDaily:
		return true
	case entities.RespawnEveryXDays:
		interval := setting.RespawnInterval
		if interval < 1 {
			interval = 1
		}
		return !win.Start.Before(last.AddDate(0, 0, interval))
	case entities.RespawnEveryXWeeks:
		interval := setting.RespawnInterval
		if interval < 1 {
			interval = 1
		}
		return !win.Start.Before(last.AddDate(0, 0, interval*7))
	case entities.RespawnDaysOfWeek:
		return schedule.WeekdaySetContains(setting.RespawnDays, win.Day)
	default:
		return false
	}
}
