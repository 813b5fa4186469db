package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/taskloop/core/internal/application/schedule"
	"github.com/taskloop/core/internal/domain/entities"
	"github.com/taskloop/core/internal/infrastructure/config"
	"github.com/taskloop/core/internal/infrastructure/logger"
	"github.com/taskloop/core/internal/infrastructure/metrics"
	"github.com/taskloop/core/internal/ports"
)

// GenerationService runs the recurring-generation pipeline: eligibility
// filter, fulfillment reconciliation, task/subtask materialization, and the
// generation-log upsert. One instance per process shares a schedule.State
// guard; concurrent passes no-op rather than queue.
type GenerationService struct {
	tasks    ports.TaskRepository
	subtasks ports.SubtaskRepository
	lists    ports.TaskListRepository
	projects ports.ProjectRepository
	settings ports.RecurringSettingRepository
	genLogs  ports.GenerationLogRepository
	goals    *GoalService
	calendar ports.CalendarNotifier
	state    *schedule.State
	cfg      config.SchedulerConfig
	loc      *time.Location
	metrics  *metrics.Metrics
	logger   *logger.Logger
	now      func() time.Time
}

// NewGenerationService creates a new generation service.
func NewGenerationService(
	tasks ports.TaskRepository,
	subtasks ports.SubtaskRepository,
	lists ports.TaskListRepository,
	projects ports.ProjectRepository,
	settings ports.RecurringSettingRepository,
	genLogs ports.GenerationLogRepository,
	goals *GoalService,
	calendar ports.CalendarNotifier,
	state *schedule.State,
	cfg config.SchedulerConfig,
	m *metrics.Metrics,
	log *logger.Logger,
) *GenerationService {
	return &GenerationService{
		tasks:    tasks,
		subtasks: subtasks,
		lists:    lists,
		projects: projects,
		settings: settings,
		genLogs:  genLogs,
		goals:    goals,
		calendar: calendar,
		state:    state,
		cfg:      cfg,
		loc:      cfg.Location(),
		metrics:  m,
		logger:   log.WithComponent("generation"),
		now:      time.Now,
	}
}

// SetClock overrides the service's time source. Test hook.
func (s *GenerationService) SetClock(now func() time.Time) {
	s.now = now
}

// CheckTaskLists runs the unified recurring task-list check. It filters the
// enabled settings down to those due today, reconciles each list's goal
// against existing tasks and expected project contributions, materializes
// the residual, and records the generation log. Per-entity failures are
// recorded in the results and never abort the rest of the batch.
func (s *GenerationService) CheckTaskLists(ctx context.Context, opts ports.CheckOptions) (*ports.CheckReport, error) {
	now := s.now()
	win := schedule.Window(now, s.loc)
	report := &ports.CheckReport{Success: true}

	if !opts.Force && !schedule.InGenerationWindow(win.Hour) {
		s.logger.Debugw("Skipping check outside generation window", "hour", win.Hour)
		s.metrics.RecordSkip(string(ports.SkipOutsideWindow))
		report.Results = append(report.Results, ports.CheckResult{
			EntityKind: ports.EntityTaskList,
			Status:     ports.StatusSkipped,
			Reason:     ports.SkipOutsideWindow,
		})
		return report, nil
	}

	if !s.state.BeginCheck() {
		s.logger.Debugw("Skipping check, another pass in progress")
		s.metrics.RecordSkip(string(ports.SkipCheckInProgress))
		report.Results = append(report.Results, ports.CheckResult{
			EntityKind: ports.EntityTaskList,
			Status:     ports.StatusSkipped,
			Reason:     ports.SkipCheckInProgress,
		})
		return report, nil
	}
	defer s.state.EndCheck()

	seq := s.state.NextSeq()

	settings, err := s.loadSettings(ctx, opts.ListID)
	if err != nil {
		return nil, fmt.Errorf("load recurring settings: %w", err)
	}
	settings = s.healEnabledInvariant(ctx, settings)

	if opts.CurrentDay != "" {
		// The caller-supplied day and the server-derived day must agree;
		// the server's day window wins, mismatches are logged.
		if schedule.NormalizeWeekday(opts.CurrentDay) != win.Day {
			s.logger.Warnw("Caller day disagrees with server day window",
				"caller_day", opts.CurrentDay, "server_day", win.Day)
		}
	}

	for _, setting := range settings {
		if s.state.Superseded(seq) {
			report.Results = append(report.Results, ports.CheckResult{
				EntityID:   setting.TaskListID,
				EntityKind: ports.EntityTaskList,
				Status:     ports.StatusSkipped,
				Reason:     ports.SkipSuperseded,
			})
			break
		}
		res := s.checkOneList(ctx, setting, win, now, opts)
		if res.Status == ports.StatusError {
			report.Success = false
		}
		if res.Reason != "" && res.Status == ports.StatusSkipped {
			s.metrics.RecordSkip(string(res.Reason))
		}
		s.metrics.RecordRun(string(ports.EntityTaskList), string(res.Status))
		s.metrics.RecordTasksCreated(res.TasksCreated)
		s.logger.LogGenerationOutcome(string(ports.EntityTaskList), res.EntityID.String(),
			string(res.Status), string(res.Reason), res.TasksCreated)
		report.Results = append(report.Results, res)
	}

	if report.Created() > 0 {
		s.pushCalendar(ctx)
	}
	return report, nil
}

// checkOneList applies the eligibility filter to a single setting and, when
// due, reconciles and materializes. The per-entity guard is held for the
// duration and released on every path.
func (s *GenerationService) checkOneList(
	ctx context.Context,
	setting *entities.RecurringSetting,
	win schedule.DayWindow,
	now time.Time,
	opts ports.CheckOptions,
) (res ports.CheckResult) {
	res = ports.CheckResult{EntityID: setting.TaskListID, EntityKind: ports.EntityTaskList}
	entity := setting.TaskListID

	if !setting.Generates() {
		res.Status, res.Reason = ports.StatusSkipped, ports.SkipDisabled
		return res
	}
	if !opts.Force && !setting.ScheduledOn(win.Day, schedule.NormalizeWeekday) {
		res.Status, res.Reason = ports.StatusSkipped, ports.SkipNotScheduledToday
		return res
	}
	if setting.StartDate != nil {
		sd := setting.StartDate.In(s.loc)
		sdDay := time.Date(sd.Year(), sd.Month(), sd.Day(), 0, 0, 0, 0, s.loc)
		if sdDay.After(win.Start) {
			res.Status, res.Reason = ports.StatusSkipped, ports.SkipStartDateFuture
			return res
		}
	}
	if !opts.Force {
		if last, ok := s.state.LastChecked(entity); ok && now.Sub(last) < s.cfg.ListCheckInterval {
			res.Status, res.Reason = ports.StatusSkipped, ports.SkipRateLimited
			return res
		}
	}
	s.state.TouchChecked(entity, now)

	if !opts.Force && s.state.AlreadyGenerated(entity, win.Key()) {
		res.Status, res.Reason = ports.StatusSkipped, ports.SkipAlreadyGeneratedMem
		return res
	}

	if !s.state.Acquire(entity) {
		res.Status, res.Reason = ports.StatusSkipped, ports.SkipEntityBusy
		return res
	}
	defer s.state.Release(entity)

	if !opts.Force {
		existing, err := s.genLogs.Get(ctx, entity, win.Key())
		if err != nil {
			res.Status, res.Error = ports.StatusError, err.Error()
			return res
		}
		if existing != nil {
			s.state.MarkGenerated(entity, win.Key())
			res.Status, res.Reason = ports.StatusSkipped, ports.SkipAlreadyGeneratedLog
			return res
		}
	}

	created, reason, err := s.reconcileAndMaterialize(ctx, setting, win, opts)
	if err != nil {
		res.Status, res.Error = ports.StatusError, err.Error()
		res.Reason = reason
		return res
	}

	res.TasksCreated = created
	res.Reason = reason
	if created > 0 {
		res.Status = ports.StatusCreated
	} else {
		res.Status = ports.StatusSkipped
	}
	return res
}

// reconcileAndMaterialize implements the fulfillment reconciler for one
// task list. Project shortfalls are filled independently per project; the
// list-level residual is suppressed entirely when scheduled-today projects
// already cover the goal.
func (s *GenerationService) reconcileAndMaterialize(
	ctx context.Context,
	setting *entities.RecurringSetting,
	win schedule.DayWindow,
	opts ports.CheckOptions,
) (int, ports.SkipReason, error) {
	list, err := s.lists.GetByID(ctx, setting.TaskListID)
	if err != nil {
		if err == entities.ErrTaskListNotFound {
			// Orphaned setting: its list is gone. Disable it rather than
			// failing the batch on every pass.
			s.logger.Warnw("Disabling orphaned recurring setting",
				"setting_id", setting.ID, "task_list_id", setting.TaskListID)
			if derr := s.settings.Disable(ctx, setting.ID); derr != nil {
				s.logger.WithError(derr).Errorw("Failed to disable orphaned setting", "setting_id", setting.ID)
			}
			return 0, ports.SkipOrphanedSetting, nil
		}
		return 0, "", fmt.Errorf("get task list: %w", err)
	}

	goal := setting.DailyTaskCount
	if opts.TargetTaskCount != nil && *opts.TargetTaskCount > 0 {
		goal = *opts.TargetTaskCount
	}

	listScope := ports.TaskScope{TaskListID: &list.ID}
	var total int
	if opts.CurrentTaskCount != nil {
		total = *opts.CurrentTaskCount
	} else {
		active, err := s.tasks.CountActiveSince(ctx, listScope, win.Start)
		if err != nil {
			return 0, "", fmt.Errorf("count active tasks: %w", err)
		}
		completed, err := s.tasks.CountCompletedBetween(ctx, listScope, win.Start, win.End)
		if err != nil {
			return 0, "", fmt.Errorf("count completed tasks: %w", err)
		}
		total = active + completed
	}

	projects, err := s.projects.ListByTaskList(ctx, list.ID)
	if err != nil {
		return 0, "", fmt.Errorf("list projects: %w", err)
	}

	expected := 0
	for _, p := range projects {
		if p.GeneratesToday(win.Day, schedule.NormalizeWeekday) {
			expected += p.TaskCountGoal
		}
	}

	if s.runRespawnIfDue(ctx, setting, win) {
		// Refreshed last_subtask_respawn narrows the suppression window for
		// subtasks created below.
		stamped := s.now()
		setting.LastSubtaskRespawn = &stamped
	}

	batch := newBatch(s, win, opts.SkipUniqueNameCheck)

	// Every recurring project fills its own shortfall, scheduled today or
	// not; project-level fulfillment is independent of the list schedule.
	createdForProjects := 0
	for _, p := range projects {
		if !p.IsRecurring || p.Progress == entities.ProgressCompleted {
			continue
		}
		n, err := s.fillProjectShortfall(ctx, p, win, batch, setting)
		if err != nil {
			s.logger.WithError(err).Errorw("Project shortfall fill failed", "project_id", p.ID)
			continue
		}
		createdForProjects += n
	}

	var reason ports.SkipReason
	residual := 0
	if total+expected >= goal && !opts.Force {
		reason = ports.SkipFulfilledByProjects
	} else if opts.AdditionalTasksNeeded != nil {
		residual = *opts.AdditionalTasksNeeded
	} else {
		residual = goal - total - expected - createdForProjects
	}
	if residual < 0 {
		residual = 0
	}

	if residual > 0 {
		if err := batch.materialize(ctx, list.Name, list.ID, nil, residual, total, setting); err != nil {
			return batch.created, reason, fmt.Errorf("materialize list tasks: %w", err)
		}
	}

	if batch.created > 0 || reason == "" {
		if err := s.upsertLog(ctx, setting.TaskListID, &setting.ID, win, batch.created); err != nil {
			return batch.created, reason, fmt.Errorf("upsert generation log: %w", err)
		}
		s.state.MarkGenerated(setting.TaskListID, win.Key())
	}

	return batch.created, reason, nil
}

// fillProjectShortfall counts one project's own active and completed-today
// tasks and materializes the gap to its per-occurrence goal.
func (s *GenerationService) fillProjectShortfall(
	ctx context.Context,
	p *entities.Project,
	win schedule.DayWindow,
	batch *materializeBatch,
	setting *entities.RecurringSetting,
) (int, error) {
	if p.TaskCountGoal <= 0 {
		return 0, nil
	}
	scope := ports.TaskScope{TaskListID: &p.TaskListID, ProjectID: &p.ID}
	active, err := s.tasks.CountActiveSince(ctx, scope, win.Start)
	if err != nil {
		return 0, fmt.Errorf("count project active tasks: %w", err)
	}
	completed, err := s.tasks.CountCompletedBetween(ctx, scope, win.Start, win.End)
	if err != nil {
		return 0, fmt.Errorf("count project completed tasks: %w", err)
	}
	shortfall := p.TaskCountGoal - active - completed
	if shortfall <= 0 {
		return 0, nil
	}
	before := batch.created
	if err := batch.materialize(ctx, p.Name, p.TaskListID, &p.ID, shortfall, active+completed, setting); err != nil {
		return batch.created - before, err
	}
	return batch.created - before, nil
}

// CheckProjects runs the unified recurring-project check against the given
// projects (or every recurring project when none are named). Overdue
// projects get their "(overdue)" name suffix here, and the pass optionally
// triggers the daily goal reset.
func (s *GenerationService) CheckProjects(ctx context.Context, opts ports.ProjectCheckOptions) (*ports.CheckReport, error) {
	now := s.now()
	win := schedule.Window(now, s.loc)
	report := &ports.CheckReport{Success: true}

	if !opts.Force && !schedule.InGenerationWindow(win.Hour) {
		s.metrics.RecordSkip(string(ports.SkipOutsideWindow))
		report.Results = append(report.Results, ports.CheckResult{
			EntityKind: ports.EntityProject,
			Status:     ports.StatusSkipped,
			Reason:     ports.SkipOutsideWindow,
		})
		return report, nil
	}

	if !s.state.BeginCheck() {
		s.metrics.RecordSkip(string(ports.SkipCheckInProgress))
		report.Results = append(report.Results, ports.CheckResult{
			EntityKind: ports.EntityProject,
			Status:     ports.StatusSkipped,
			Reason:     ports.SkipCheckInProgress,
		})
		return report, nil
	}
	defer s.state.EndCheck()

	day := win.Day
	if opts.DayOfWeek != "" {
		if d := schedule.NormalizeWeekday(opts.DayOfWeek); d != day {
			s.logger.Warnw("Caller day disagrees with server day window",
				"caller_day", opts.DayOfWeek, "server_day", day)
		}
	}

	projects, err := s.loadProjects(ctx, opts.ProjectIDs)
	if err != nil {
		return nil, fmt.Errorf("load recurring projects: %w", err)
	}

	for _, p := range projects {
		res := s.checkOneProject(ctx, p, win, now, day, opts)
		if res.Status == ports.StatusError {
			report.Success = false
		}
		if res.Reason != "" && res.Status == ports.StatusSkipped {
			s.metrics.RecordSkip(string(res.Reason))
		}
		s.metrics.RecordRun(string(ports.EntityProject), string(res.Status))
		s.metrics.RecordTasksCreated(res.TasksCreated)
		s.logger.LogGenerationOutcome(string(ports.EntityProject), res.EntityID.String(),
			string(res.Status), string(res.Reason), res.TasksCreated)
		report.Results = append(report.Results, res)
	}

	if opts.ResetDailyGoals && s.goals != nil {
		n, ran, err := s.goals.ResetDailyGoals(ctx)
		if err != nil {
			s.logger.WithError(err).Errorw("Daily goal reset failed")
			report.Success = false
		} else if ran {
			s.logger.Infow("Daily goals reset", "count", n)
			report.GoalsReset = true
		}
	}

	if report.Created() > 0 {
		s.pushCalendar(ctx)
	}
	return report, nil
}

func (s *GenerationService) checkOneProject(
	ctx context.Context,
	p *entities.Project,
	win schedule.DayWindow,
	now time.Time,
	day string,
	opts ports.ProjectCheckOptions,
) (res ports.CheckResult) {
	res = ports.CheckResult{EntityID: p.ID, EntityKind: ports.EntityProject}

	if p.Progress == entities.ProgressCompleted {
		res.Status, res.Reason = ports.StatusSkipped, ports.SkipDisabled
		return res
	}

	s.suffixOverdue(ctx, p, now)

	if !opts.Force && !p.GeneratesToday(day, schedule.NormalizeWeekday) {
		res.Status, res.Reason = ports.StatusSkipped, ports.SkipNotScheduledToday
		return res
	}
	if !opts.Force {
		if last, ok := s.state.LastChecked(p.ID); ok && now.Sub(last) < s.cfg.ProjectCheckInterval {
			res.Status, res.Reason = ports.StatusSkipped, ports.SkipRateLimited
			return res
		}
	}
	s.state.TouchChecked(p.ID, now)

	if !opts.Force && s.state.AlreadyGenerated(p.ID, win.Key()) {
		res.Status, res.Reason = ports.StatusSkipped, ports.SkipAlreadyGeneratedMem
		return res
	}

	if !s.state.Acquire(p.ID) {
		res.Status, res.Reason = ports.StatusSkipped, ports.SkipEntityBusy
		return res
	}
	defer s.state.Release(p.ID)

	if !opts.Force {
		existing, err := s.genLogs.Get(ctx, p.ID, win.Key())
		if err != nil {
			res.Status, res.Error = ports.StatusError, err.Error()
			return res
		}
		if existing != nil {
			s.state.MarkGenerated(p.ID, win.Key())
			res.Status, res.Reason = ports.StatusSkipped, ports.SkipAlreadyGeneratedLog
			return res
		}
	}

	batch := newBatch(s, win, false)
	created, err := s.fillProjectShortfall(ctx, p, win, batch, nil)
	if err != nil {
		res.Status, res.Error = ports.StatusError, err.Error()
		return res
	}

	if created > 0 {
		if err := s.upsertLog(ctx, p.ID, nil, win, created); err != nil {
			res.Status, res.Error = ports.StatusError, err.Error()
			return res
		}
		s.state.MarkGenerated(p.ID, win.Key())
		res.Status, res.TasksCreated = ports.StatusCreated, created
		return res
	}

	res.Status, res.Reason = ports.StatusSkipped, ports.SkipGoalMet
	return res
}

// suffixOverdue appends the "(overdue)" marker to a recurring project whose
// due date has passed, once.
func (s *GenerationService) suffixOverdue(ctx context.Context, p *entities.Project, now time.Time) {
	const marker = " (overdue)"
	if !p.IsOverdue(now) || len(p.Name) >= len(marker) && p.Name[len(p.Name)-len(marker):] == marker {
		return
	}
	p.Name += marker
	if err := s.projects.Update(ctx, p); err != nil {
		s.logger.WithError(err).Warnw("Failed to mark project overdue", "project_id", p.ID)
	}
}

func (s *GenerationService) loadSettings(ctx context.Context, listID *uuid.UUID) ([]*entities.RecurringSetting, error) {
	if listID != nil {
		return s.settings.ListByTaskList(ctx, *listID)
	}
	return s.settings.ListEnabled(ctx)
}

func (s *GenerationService) loadProjects(ctx context.Context, ids []uuid.UUID) ([]*entities.Project, error) {
	if len(ids) == 0 {
		return s.projects.ListRecurring(ctx)
	}
	out := make([]*entities.Project, 0, len(ids))
	for _, id := range ids {
		p, err := s.projects.GetByID(ctx, id)
		if err != nil {
			s.logger.WithError(err).Warnw("Skipping unknown project in check", "project_id", id)
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// healEnabledInvariant enforces "at most one enabled setting per list" by
// disabling all but the most recently created, returning the survivors.
func (s *GenerationService) healEnabledInvariant(ctx context.Context, settings []*entities.RecurringSetting) []*entities.RecurringSetting {
	byList := make(map[uuid.UUID]*entities.RecurringSetting)
	out := settings[:0]
	for _, st := range settings {
		if !st.Enabled {
			out = append(out, st)
			continue
		}
		cur, ok := byList[st.TaskListID]
		if !ok {
			byList[st.TaskListID] = st
			out = append(out, st)
			continue
		}
		loser := st
		if st.CreatedAt.After(cur.CreatedAt) {
			loser = cur
			byList[st.TaskListID] = st
			for i, kept := range out {
				if kept == cur {
					out[i] = st
					break
				}
			}
		}
		s.logger.Warnw("Multiple enabled settings for list, disabling older",
			"task_list_id", st.TaskListID, "setting_id", loser.ID)
		loser.Enabled = false
		if err := s.settings.Disable(ctx, loser.ID); err != nil {
			s.logger.WithError(err).Errorw("Failed to disable duplicate setting", "setting_id", loser.ID)
		}
	}
	return out
}

func (s *GenerationService) upsertLog(ctx context.Context, entityID uuid.UUID, settingID *uuid.UUID, win schedule.DayWindow, created int) error {
	existing, err := s.genLogs.Get(ctx, entityID, win.Key())
	if err != nil {
		return err
	}
	log := &entities.GenerationLog{
		EntityID:       entityID,
		SettingID:      settingID,
		Day:            win.Key(),
		TasksGenerated: created,
	}
	if existing != nil {
		log.ID = existing.ID
		log.TasksGenerated = existing.TasksGenerated + created
	}
	return s.genLogs.Upsert(ctx, log)
}

func (s *GenerationService) pushCalendar(ctx context.Context) {
	if s.calendar == nil {
		return
	}
	active, err := s.tasks.List(ctx, ports.TaskFilter{
		Progress: []entities.Progress{entities.ProgressNotStarted, entities.ProgressInProgress},
	})
	if err != nil {
		s.logger.WithError(err).Warnw("Calendar push skipped, task listing failed")
		return
	}
	if err := s.calendar.PushActiveTasks(ctx, active); err != nil {
		s.logger.WithError(err).Warnw("Calendar push failed")
	}
}
