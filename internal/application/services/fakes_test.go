package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskloop/core/internal/domain/entities"
	"github.com/taskloop/core/internal/ports"
)

// In-memory repository fakes. They implement just enough of the port
// semantics for the service tests: scope filtering, completion windows,
// and the generation-log upsert contract.

type fakeTaskRepo struct {
	mu    sync.Mutex
	tasks []*entities.Task
}

func (r *fakeTaskRepo) Create(_ context.Context, task *entities.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	r.tasks = append(r.tasks, task)
	return nil
}

func (r *fakeTaskRepo) CreateBatch(ctx context.Context, tasks []*entities.Task) error {
	for _, t := range tasks {
		if err := r.Create(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeTaskRepo) GetByID(_ context.Context, id uuid.UUID) (*entities.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, entities.ErrTaskNotFound
}

func (r *fakeTaskRepo) Update(_ context.Context, task *entities.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, t := range r.tasks {
		if t.ID == task.ID {
			r.tasks[i] = task
			return nil
		}
	}
	return entities.ErrTaskNotFound
}

func (r *fakeTaskRepo) UpdateTimeline(_ context.Context, id uuid.UUID, start, due time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tasks {
		if t.ID == id {
			t.StartAt, t.DueAt = start, due
			return nil
		}
	}
	return entities.ErrTaskNotFound
}

func (r *fakeTaskRepo) UpdateProgress(_ context.Context, id uuid.UUID, progress entities.Progress, completedAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tasks {
		if t.ID == id {
			t.Progress, t.CompletedAt = progress, completedAt
			return nil
		}
	}
	return entities.ErrTaskNotFound
}

func (r *fakeTaskRepo) Archive(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tasks {
		if t.ID == id {
			t.Archived = true
			return nil
		}
	}
	return entities.ErrTaskNotFound
}

func (r *fakeTaskRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, t := range r.tasks {
		if t.ID == id {
			r.tasks = append(r.tasks[:i], r.tasks[i+1:]...)
			return nil
		}
	}
	return entities.ErrTaskNotFound
}

func (r *fakeTaskRepo) List(_ context.Context, filter ports.TaskFilter) ([]*entities.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.Task
	for _, t := range r.tasks {
		if !filter.IncludeArchived && t.Archived {
			continue
		}
		if filter.TaskListID != nil && t.TaskListID != *filter.TaskListID {
			continue
		}
		if filter.ProjectID != nil && (t.ProjectID == nil || *t.ProjectID != *filter.ProjectID) {
			continue
		}
		if filter.StartFrom != nil && t.StartAt.Before(*filter.StartFrom) {
			continue
		}
		if filter.StartBefore != nil && !t.StartAt.Before(*filter.StartBefore) {
			continue
		}
		if len(filter.Progress) > 0 {
			found := false
			for _, p := range filter.Progress {
				if t.Progress == p {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *fakeTaskRepo) matchesScope(t *entities.Task, scope ports.TaskScope) bool {
	if scope.TaskListID != nil && t.TaskListID != *scope.TaskListID {
		return false
	}
	if scope.ProjectID != nil {
		return t.ProjectID != nil && *t.ProjectID == *scope.ProjectID
	}
	if scope.LooseOnly {
		return t.ProjectID == nil
	}
	return true
}

func (r *fakeTaskRepo) CountActiveSince(_ context.Context, scope ports.TaskScope, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.tasks {
		if t.IsPending() && r.matchesScope(t, scope) && !t.StartAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *fakeTaskRepo) CountCompletedBetween(_ context.Context, scope ports.TaskScope, start, end time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.tasks {
		if t.Archived || t.Progress != entities.ProgressCompleted || t.CompletedAt == nil {
			continue
		}
		if r.matchesScope(t, scope) && !t.CompletedAt.Before(start) && t.CompletedAt.Before(end) {
			n++
		}
	}
	return n, nil
}

func (r *fakeTaskRepo) CountByNamePrefix(_ context.Context, taskListID uuid.UUID, prefix string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.tasks {
		if t.TaskListID == taskListID && strings.HasPrefix(t.Name, prefix) {
			n++
		}
	}
	return n, nil
}

type fakeSubtaskRepo struct {
	mu             sync.Mutex
	subtasks       []*entities.Subtask
	completedNames []string
}

func (r *fakeSubtaskRepo) Create(_ context.Context, s *entities.Subtask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.subtasks = append(r.subtasks, s)
	return nil
}

func (r *fakeSubtaskRepo) CreateBatch(ctx context.Context, subtasks []*entities.Subtask) error {
	for _, s := range subtasks {
		if err := r.Create(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeSubtaskRepo) GetByID(_ context.Context, id uuid.UUID) (*entities.Subtask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.subtasks {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, entities.ErrSubtaskNotFound
}

func (r *fakeSubtaskRepo) ListByTask(_ context.Context, taskID uuid.UUID) ([]*entities.Subtask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.Subtask
	for _, s := range r.subtasks {
		if s.TaskID == taskID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeSubtaskRepo) ListForActiveTasks(_ context.Context, _ uuid.UUID) ([]*entities.Subtask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*entities.Subtask{}, r.subtasks...), nil
}

func (r *fakeSubtaskRepo) UpdateProgress(_ context.Context, id uuid.UUID, progress entities.Progress, completedAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.subtasks {
		if s.ID == id {
			s.Progress, s.CompletedAt = progress, completedAt
			return nil
		}
	}
	return entities.ErrSubtaskNotFound
}

func (r *fakeSubtaskRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, s := range r.subtasks {
		if s.ID == id {
			r.subtasks = append(r.subtasks[:i], r.subtasks[i+1:]...)
			return nil
		}
	}
	return entities.ErrSubtaskNotFound
}

func (r *fakeSubtaskRepo) CompletedNamesSince(_ context.Context, _ uuid.UUID, _ time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.completedNames...), nil
}

type fakeTaskListRepo struct {
	mu    sync.Mutex
	lists map[uuid.UUID]*entities.TaskList
}

func newFakeTaskListRepo() *fakeTaskListRepo {
	return &fakeTaskListRepo{lists: make(map[uuid.UUID]*entities.TaskList)}
}

func (r *fakeTaskListRepo) Create(_ context.Context, l *entities.TaskList) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	r.lists[l.ID] = l
	return nil
}

func (r *fakeTaskListRepo) GetByID(_ context.Context, id uuid.UUID) (*entities.TaskList, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.lists[id]; ok {
		return l, nil
	}
	return nil, entities.ErrTaskListNotFound
}

func (r *fakeTaskListRepo) List(_ context.Context) ([]*entities.TaskList, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.TaskList
	for _, l := range r.lists {
		out = append(out, l)
	}
	return out, nil
}

func (r *fakeTaskListRepo) Update(_ context.Context, l *entities.TaskList) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.lists[l.ID]; !ok {
		return entities.ErrTaskListNotFound
	}
	r.lists[l.ID] = l
	return nil
}

func (r *fakeTaskListRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.lists[id]; !ok {
		return entities.ErrTaskListNotFound
	}
	delete(r.lists, id)
	return nil
}

type fakeProjectRepo struct {
	mu       sync.Mutex
	projects []*entities.Project
}

func (r *fakeProjectRepo) Create(_ context.Context, p *entities.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.projects = append(r.projects, p)
	return nil
}

func (r *fakeProjectRepo) GetByID(_ context.Context, id uuid.UUID) (*entities.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.projects {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, entities.ErrProjectNotFound
}

func (r *fakeProjectRepo) ListByTaskList(_ context.Context, taskListID uuid.UUID) ([]*entities.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.Project
	for _, p := range r.projects {
		if p.TaskListID == taskListID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeProjectRepo) ListRecurring(_ context.Context) ([]*entities.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.Project
	for _, p := range r.projects {
		if p.IsRecurring && p.Progress != entities.ProgressCompleted {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeProjectRepo) Update(_ context.Context, p *entities.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.projects {
		if existing.ID == p.ID {
			r.projects[i] = p
			return nil
		}
	}
	return entities.ErrProjectNotFound
}

func (r *fakeProjectRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.projects {
		if p.ID == id {
			r.projects = append(r.projects[:i], r.projects[i+1:]...)
			return nil
		}
	}
	return entities.ErrProjectNotFound
}

type fakeSettingRepo struct {
	mu       sync.Mutex
	settings []*entities.RecurringSetting
}

func (r *fakeSettingRepo) Create(_ context.Context, s *entities.RecurringSetting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.settings = append(r.settings, s)
	return nil
}

func (r *fakeSettingRepo) GetByID(_ context.Context, id uuid.UUID) (*entities.RecurringSetting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.settings {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, entities.ErrSettingNotFound
}

func (r *fakeSettingRepo) ListEnabled(_ context.Context) ([]*entities.RecurringSetting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.RecurringSetting
	for _, s := range r.settings {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeSettingRepo) ListByTaskList(_ context.Context, taskListID uuid.UUID) ([]*entities.RecurringSetting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.RecurringSetting
	for _, s := range r.settings {
		if s.TaskListID == taskListID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeSettingRepo) Update(_ context.Context, s *entities.RecurringSetting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.settings {
		if existing.ID == s.ID {
			r.settings[i] = s
			return nil
		}
	}
	return entities.ErrSettingNotFound
}

func (r *fakeSettingRepo) Disable(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.settings {
		if s.ID == id {
			s.Enabled = false
			return nil
		}
	}
	return entities.ErrSettingNotFound
}

func (r *fakeSettingRepo) StampRespawn(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.settings {
		if s.ID == id {
			stamp := at
			s.LastSubtaskRespawn = &stamp
			return nil
		}
	}
	return entities.ErrSettingNotFound
}

func (r *fakeSettingRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, s := range r.settings {
		if s.ID == id {
			r.settings = append(r.settings[:i], r.settings[i+1:]...)
			return nil
		}
	}
	return entities.ErrSettingNotFound
}

type fakeGenLogRepo struct {
	mu   sync.Mutex
	logs map[string]*entities.GenerationLog
}

func newFakeGenLogRepo() *fakeGenLogRepo {
	return &fakeGenLogRepo{logs: make(map[string]*entities.GenerationLog)}
}

func genLogKey(entityID uuid.UUID, day string) string {
	return entityID.String() + "|" + day
}

func (r *fakeGenLogRepo) Get(_ context.Context, entityID uuid.UUID, day string) (*entities.GenerationLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if log, ok := r.logs[genLogKey(entityID, day)]; ok {
		return log, nil
	}
	return nil, nil
}

func (r *fakeGenLogRepo) Upsert(_ context.Context, log *entities.GenerationLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	r.logs[genLogKey(log.EntityID, log.Day)] = log
	return nil
}

func (r *fakeGenLogRepo) ListForDay(_ context.Context, day string) ([]*entities.GenerationLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.GenerationLog
	for _, log := range r.logs {
		if log.Day == day {
			out = append(out, log)
		}
	}
	return out, nil
}

type fakeGoalRepo struct {
	mu           sync.Mutex
	goals        []*entities.Goal
	lastResetDay string
	resetCalls   int
}

func (r *fakeGoalRepo) Create(_ context.Context, g *entities.Goal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	r.goals = append(r.goals, g)
	return nil
}

func (r *fakeGoalRepo) GetByID(_ context.Context, id uuid.UUID) (*entities.Goal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.goals {
		if g.ID == id {
			return g, nil
		}
	}
	return nil, entities.ErrGoalNotFound
}

func (r *fakeGoalRepo) ListByScope(_ context.Context, scope entities.GoalScope, scopeID uuid.UUID) ([]*entities.Goal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.Goal
	for _, g := range r.goals {
		if g.Scope == scope && g.ScopeID == scopeID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *fakeGoalRepo) ListEnabledByType(_ context.Context, goalType entities.GoalType) ([]*entities.Goal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.Goal
	for _, g := range r.goals {
		if g.Enabled && g.GoalType == goalType {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *fakeGoalRepo) Update(_ context.Context, g *entities.Goal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.goals {
		if existing.ID == g.ID {
			r.goals[i] = g
			return nil
		}
	}
	return entities.ErrGoalNotFound
}

func (r *fakeGoalRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, g := range r.goals {
		if g.ID == id {
			r.goals = append(r.goals[:i], r.goals[i+1:]...)
			return nil
		}
	}
	return entities.ErrGoalNotFound
}

func (r *fakeGoalRepo) IncrementCurrent(_ context.Context, scope entities.GoalScope, scopeID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, g := range r.goals {
		if g.Enabled && g.Scope == scope && g.ScopeID == scopeID {
			g.CurrentCount++
			n++
		}
	}
	return n, nil
}

func (r *fakeGoalRepo) ResetCurrentCounts(_ context.Context, goalType entities.GoalType) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetCalls++
	var n int64
	for _, g := range r.goals {
		if g.Enabled && g.GoalType == goalType && g.CurrentCount != 0 {
			g.CurrentCount = 0
			n++
		}
	}
	return n, nil
}

func (r *fakeGoalRepo) GetLastResetDay(_ context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastResetDay, nil
}

func (r *fakeGoalRepo) SetLastResetDay(_ context.Context, day string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastResetDay = day
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	pushes int
}

func (n *fakeNotifier) PushActiveTasks(_ context.Context, _ []*entities.Task) error {
	n.mu.Lock()
	n.pushes++
	n.mu.Unlock()
	return nil
}
