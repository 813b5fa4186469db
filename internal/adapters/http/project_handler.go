package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/taskloop/core/internal/application/services"
	"github.com/taskloop/core/internal/domain/entities"
	"github.com/taskloop/core/internal/infrastructure/logger"
	"github.com/taskloop/core/internal/ports"
)

// ProjectHandler handles task list, project, and recurring setting requests
type ProjectHandler struct {
	projectService *services.ProjectService
	logger         *logger.Logger
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(projectService *services.ProjectService, logger *logger.Logger) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
		logger:         logger,
	}
}

// CreateTaskList handles task list creation
func (h *ProjectHandler) CreateTaskList(c echo.Context) error {
	var req ports.CreateTaskListRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	list, err := h.projectService.CreateTaskList(c.Request().Context(), &req)
	if err != nil {
		h.logger.Error("Create task list failed", "error", err)
		return toHTTPError(err)
	}

	return c.JSON(http.StatusCreated, list)
}

// ListTaskLists handles listing all task lists
func (h *ProjectHandler) ListTaskLists(c echo.Context) error {
	lists, err := h.projectService.ListTaskLists(c.Request().Context())
	if err != nil {
		h.logger.Error("List task lists failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list task lists")
	}

	return c.JSON(http.StatusOK, lists)
}

// GetTaskList handles getting a task list by ID
func (h *ProjectHandler) GetTaskList(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid task list ID")
	}

	list, err := h.projectService.GetTaskList(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, list)
}

// UpdateTaskList handles renaming or reordering a task list
func (h *ProjectHandler) UpdateTaskList(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid task list ID")
	}

	var req ports.CreateTaskListRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	list, err := h.projectService.GetTaskList(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	list.Name = req.Name
	list.SortOrder = req.SortOrder
	if err := h.projectService.UpdateTaskList(c.Request().Context(), list); err != nil {
		h.logger.Error("Update task list failed", "error", err, "task_list_id", id)
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, list)
}

// DeleteTaskList handles deleting a task list
func (h *ProjectHandler) DeleteTaskList(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid task list ID")
	}

	if err := h.projectService.DeleteTaskList(c.Request().Context(), id); err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Task list deleted"})
}

// CreateProject handles project creation
func (h *ProjectHandler) CreateProject(c echo.Context) error {
	var req ports.CreateProjectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	project, err := h.projectService.CreateProject(c.Request().Context(), &req)
	if err != nil {
		h.logger.Error("Create project failed", "error", err)
		return toHTTPError(err)
	}

	return c.JSON(http.StatusCreated, project)
}

// GetProject handles getting a project by ID
func (h *ProjectHandler) GetProject(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid project ID")
	}

	project, err := h.projectService.GetProject(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, project)
}

// ListProjects handles listing projects for a task list
func (h *ProjectHandler) ListProjects(c echo.Context) error {
	listID, err := uuid.Parse(c.Param("listId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid task list ID")
	}

	projects, err := h.projectService.ListProjects(c.Request().Context(), listID)
	if err != nil {
		h.logger.Error("List projects failed", "error", err, "task_list_id", listID)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list projects")
	}

	return c.JSON(http.StatusOK, projects)
}

// UpdateProject handles partial project updates
func (h *ProjectHandler) UpdateProject(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid project ID")
	}

	var req ports.UpdateProjectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	project, err := h.projectService.UpdateProject(c.Request().Context(), id, &req)
	if err != nil {
		h.logger.Error("Update project failed", "error", err, "project_id", id)
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, project)
}

// DeleteProject handles deleting a project
func (h *ProjectHandler) DeleteProject(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid project ID")
	}

	if err := h.projectService.DeleteProject(c.Request().Context(), id); err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Project deleted"})
}

// SaveSetting handles creating or replacing a list's recurring setting
func (h *ProjectHandler) SaveSetting(c echo.Context) error {
	var req ports.SaveSettingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	setting, err := h.projectService.SaveSetting(c.Request().Context(), &req)
	if err != nil {
		h.logger.Error("Save setting failed", "error", err)
		return toHTTPError(err)
	}

	return c.JSON(http.StatusCreated, setting)
}

// ListSettings handles listing a list's recurring settings
func (h *ProjectHandler) ListSettings(c echo.Context) error {
	listID, err := uuid.Parse(c.Param("listId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid task list ID")
	}

	settings, err := h.projectService.ListSettings(c.Request().Context(), listID)
	if err != nil {
		h.logger.Error("List settings failed", "error", err, "task_list_id", listID)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list settings")
	}

	return c.JSON(http.StatusOK, settings)
}

// DeleteSetting handles deleting a recurring setting
func (h *ProjectHandler) DeleteSetting(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid setting ID")
	}

	if err := h.projectService.DeleteSetting(c.Request().Context(), id); err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Setting deleted"})
}

// GoalHandler handles goal requests
type GoalHandler struct {
	goalService *services.GoalService
	logger      *logger.Logger
}

// NewGoalHandler creates a new goal handler
func NewGoalHandler(goalService *services.GoalService, logger *logger.Logger) *GoalHandler {
	return &GoalHandler{
		goalService: goalService,
		logger:      logger,
	}
}

// CreateGoal handles goal creation
func (h *GoalHandler) CreateGoal(c echo.Context) error {
	var req ports.SaveGoalRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	goal, err := h.goalService.CreateGoal(c.Request().Context(), &req)
	if err != nil {
		h.logger.Error("Create goal failed", "error", err)
		return toHTTPError(err)
	}

	return c.JSON(http.StatusCreated, goal)
}

// ListGoals handles listing goals for a list or project
func (h *GoalHandler) ListGoals(c echo.Context) error {
	scope := entities.GoalScope(c.QueryParam("scope"))
	if scope != entities.GoalScopeList && scope != entities.GoalScopeProject {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid goal scope")
	}
	scopeID, err := uuid.Parse(c.QueryParam("scope_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid scope ID")
	}

	goals, err := h.goalService.ListGoals(c.Request().Context(), scope, scopeID)
	if err != nil {
		h.logger.Error("List goals failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list goals")
	}

	return c.JSON(http.StatusOK, goals)
}

// UpdateGoal handles goal updates
func (h *GoalHandler) UpdateGoal(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid goal ID")
	}

	var req ports.SaveGoalRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	goal, err := h.goalService.UpdateGoal(c.Request().Context(), id, &req)
	if err != nil {
		h.logger.Error("Update goal failed", "error", err, "goal_id", id)
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, goal)
}

// DeleteGoal handles deleting a goal
func (h *GoalHandler) DeleteGoal(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid goal ID")
	}

	if err := h.goalService.DeleteGoal(c.Request().Context(), id); err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Goal deleted"})
}
