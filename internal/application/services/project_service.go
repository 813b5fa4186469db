package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/taskloop/core/internal/domain/entities"
	"github.com/taskloop/core/internal/infrastructure/logger"
	"github.com/taskloop/core/internal/ports"
)

// ProjectService manages task lists, projects, and recurring settings.
// Saving an enabled setting disables any other enabled setting on the same
// list, keeping the one-enabled-per-list invariant at the write path.
type ProjectService struct {
	lists    ports.TaskListRepository
	projects ports.ProjectRepository
	settings ports.RecurringSettingRepository
	logger   *logger.Logger
	now      func() time.Time
}

// NewProjectService creates a new project service.
func NewProjectService(
	lists ports.TaskListRepository,
	projects ports.ProjectRepository,
	settings ports.RecurringSettingRepository,
	log *logger.Logger,
) *ProjectService {
	return &ProjectService{
		lists:    lists,
		projects: projects,
		settings: settings,
		logger:   log.WithComponent("projects"),
		now:      time.Now,
	}
}

// SetClock overrides the service's time source. Test hook.
func (s *ProjectService) SetClock(now func() time.Time) {
	s.now = now
}

// CreateTaskList persists a new task list.
func (s *ProjectService) CreateTaskList(ctx context.Context, req *ports.CreateTaskListRequest) (*entities.TaskList, error) {
	now := s.now()
	list := &entities.TaskList{
		ID:        uuid.New(),
		Name:      req.Name,
		SortOrder: req.SortOrder,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.lists.Create(ctx, list); err != nil {
		return nil, fmt.Errorf("create task list: %w", err)
	}
	return list, nil
}

// GetTaskList returns a task list by id.
func (s *ProjectService) GetTaskList(ctx context.Context, id uuid.UUID) (*entities.TaskList, error) {
	return s.lists.GetByID(ctx, id)
}

// ListTaskLists returns every task list.
func (s *ProjectService) ListTaskLists(ctx context.Context) ([]*entities.TaskList, error) {
	return s.lists.List(ctx)
}

// UpdateTaskList renames or reorders a task list.
func (s *ProjectService) UpdateTaskList(ctx context.Context, list *entities.TaskList) error {
	list.UpdatedAt = s.now()
	return s.lists.Update(ctx, list)
}

// DeleteTaskList removes a task list and everything under it.
func (s *ProjectService) DeleteTaskList(ctx context.Context, id uuid.UUID) error {
	return s.lists.Delete(ctx, id)
}

// CreateProject validates the owning list and persists a new project.
func (s *ProjectService) CreateProject(ctx context.Context, req *ports.CreateProjectRequest) (*entities.Project, error) {
	if _, err := s.lists.GetByID(ctx, req.TaskListID); err != nil {
		return nil, err
	}
	now := s.now()
	project := &entities.Project{
		ID:            uuid.New(),
		Name:          req.Name,
		TaskListID:    req.TaskListID,
		IsRecurring:   req.IsRecurring,
		TaskCountGoal: req.TaskCountGoal,
		DaysOfWeek:    req.DaysOfWeek,
		Progress:      entities.ProgressNotStarted,
		DueAt:         req.DueAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.projects.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return project, nil
}

// GetProject returns a project by id.
func (s *ProjectService) GetProject(ctx context.Context, id uuid.UUID) (*entities.Project, error) {
	return s.projects.GetByID(ctx, id)
}

// ListProjects returns a list's projects.
func (s *ProjectService) ListProjects(ctx context.Context, taskListID uuid.UUID) ([]*entities.Project, error) {
	return s.projects.ListByTaskList(ctx, taskListID)
}

// UpdateProject applies the partial update to an existing project.
func (s *ProjectService) UpdateProject(ctx context.Context, id uuid.UUID, req *ports.UpdateProjectRequest) (*entities.Project, error) {
	project, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		project.Name = *req.Name
	}
	if req.IsRecurring != nil {
		project.IsRecurring = *req.IsRecurring
	}
	if req.TaskCountGoal != nil {
		project.TaskCountGoal = *req.TaskCountGoal
	}
	if req.DaysOfWeek != nil {
		project.DaysOfWeek = *req.DaysOfWeek
	}
	if req.Progress != nil {
		if !req.Progress.IsValid() {
			return nil, entities.ErrInvalidProgress
		}
		project.Progress = *req.Progress
	}
	project.DueAt = req.DueAt
	project.UpdatedAt = s.now()
	if err := s.projects.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	return project, nil
}

// DeleteProject removes a project. Its tasks survive, detached.
func (s *ProjectService) DeleteProject(ctx context.Context, id uuid.UUID) error {
	return s.projects.Delete(ctx, id)
}

// SaveSetting creates or replaces a list's recurring setting. When the
// saved setting is enabled, every other enabled setting on the list is
// disabled first.
func (s *ProjectService) SaveSetting(ctx context.Context, req *ports.SaveSettingRequest) (*entities.RecurringSetting, error) {
	if _, err := s.lists.GetByID(ctx, req.TaskListID); err != nil {
		return nil, err
	}

	mode := entities.RespawnOnTaskCreation
	if req.RespawnMode != nil {
		if !req.RespawnMode.IsValid() {
			return nil, fmt.Errorf("unknown respawn mode %q", *req.RespawnMode)
		}
		mode = *req.RespawnMode
	}

	if req.Enabled {
		existing, err := s.settings.ListByTaskList(ctx, req.TaskListID)
		if err != nil {
			return nil, fmt.Errorf("list settings: %w", err)
		}
		for _, st := range existing {
			if st.Enabled {
				if err := s.settings.Disable(ctx, st.ID); err != nil {
					return nil, fmt.Errorf("disable previous setting: %w", err)
				}
			}
		}
	}

	now := s.now()
	setting := &entities.RecurringSetting{
		ID:              uuid.New(),
		TaskListID:      req.TaskListID,
		Enabled:         req.Enabled,
		DailyTaskCount:  req.DailyTaskCount,
		DaysOfWeek:      req.DaysOfWeek,
		SubtaskTemplate: req.SubtaskTemplate,
		RespawnMode:     mode,
		RespawnInterval: req.RespawnInterval,
		RespawnDays:     req.RespawnDays,
		StartDate:       req.StartDate,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.settings.Create(ctx, setting); err != nil {
		return nil, fmt.Errorf("create setting: %w", err)
	}
	return setting, nil
}

// ListSettings returns a list's recurring settings, enabled or not.
func (s *ProjectService) ListSettings(ctx context.Context, taskListID uuid.UUID) ([]*entities.RecurringSetting, error) {
	return s.settings.ListByTaskList(ctx, taskListID)
}

// DeleteSetting removes a recurring setting.
func (s *ProjectService) DeleteSetting(ctx context.Context, id uuid.UUID) error {
	return s.settings.Delete(ctx, id)
}
