package http

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/taskloop/core/internal/application/services"
	"github.com/taskloop/core/internal/domain/entities"
	"github.com/taskloop/core/internal/infrastructure/logger"
	"github.com/taskloop/core/internal/ports"
)

// MessageResponse is a simple message payload
type MessageResponse struct {
	Message string `json:"message"`
}

// TaskHandler handles task and subtask requests
type TaskHandler struct {
	taskService     *services.TaskService
	timelineService *services.TimelineService
	logger          *logger.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskService *services.TaskService, timelineService *services.TimelineService, logger *logger.Logger) *TaskHandler {
	return &TaskHandler{
		taskService:     taskService,
		timelineService: timelineService,
		logger:          logger,
	}
}

// CreateTask handles task creation
func (h *TaskHandler) CreateTask(c echo.Context) error {
	var req ports.CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	task, err := h.taskService.CreateTask(c.Request().Context(), &req)
	if err != nil {
		h.logger.Error("Create task failed", "error", err)
		return toHTTPError(err)
	}

	return c.JSON(http.StatusCreated, task)
}

// GetTask handles getting a task by ID
func (h *TaskHandler) GetTask(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid task ID")
	}

	task, err := h.taskService.GetTask(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, task)
}

// ListTasks handles listing tasks with optional filters
func (h *TaskHandler) ListTasks(c echo.Context) error {
	var filter ports.TaskFilter

	if v := c.QueryParam("task_list_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid task list ID")
		}
		filter.TaskListID = &id
	}
	if v := c.QueryParam("project_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid project ID")
		}
		filter.ProjectID = &id
	}
	if c.QueryParam("include_archived") == "true" {
		filter.IncludeArchived = true
	}

	tasks, err := h.taskService.ListTasks(c.Request().Context(), filter)
	if err != nil {
		h.logger.Error("List tasks failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list tasks")
	}

	return c.JSON(http.StatusOK, tasks)
}

// TodayTasks handles listing today's pending tasks for a list
func (h *TaskHandler) TodayTasks(c echo.Context) error {
	listID, err := uuid.Parse(c.Param("listId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid task list ID")
	}

	tasks, err := h.timelineService.TodayTasks(c.Request().Context(), listID)
	if err != nil {
		h.logger.Error("Today tasks failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list today's tasks")
	}

	return c.JSON(http.StatusOK, tasks)
}

// UpdateTask handles partial task updates
func (h *TaskHandler) UpdateTask(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid task ID")
	}

	var req ports.UpdateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	task, err := h.taskService.UpdateTask(c.Request().Context(), id, &req)
	if err != nil {
		h.logger.Error("Update task failed", "error", err, "task_id", id)
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, task)
}

// UpdateProgressRequest is the unified progress transition payload
type UpdateProgressRequest struct {
	Progress  entities.Progress `json:"progress" validate:"required"`
	IsSubtask bool              `json:"is_subtask"`
}

// UpdateProgress handles the unified task/subtask progress transition
func (h *TaskHandler) UpdateProgress(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid ID")
	}

	var req UpdateProgressRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.taskService.UpdateProgress(c.Request().Context(), id, req.Progress, req.IsSubtask); err != nil {
		h.logger.Error("Update progress failed", "error", err, "id", id)
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Progress updated"})
}

// StartTask handles starting a task now and rechaining the rest of today
func (h *TaskHandler) StartTask(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid task ID")
	}

	task, err := h.timelineService.StartTask(c.Request().Context(), id)
	if err != nil {
		h.logger.Error("Start task failed", "error", err, "task_id", id)
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, task)
}

// ShuffleTasks handles shuffling today's remaining tasks for a list
func (h *TaskHandler) ShuffleTasks(c echo.Context) error {
	listID, err := uuid.Parse(c.Param("listId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid task list ID")
	}

	tasks, err := h.timelineService.Shuffle(c.Request().Context(), listID)
	if err != nil {
		h.logger.Error("Shuffle failed", "error", err, "task_list_id", listID)
		return echo.NewHTTPError(http.StatusInternalServerError, "Shuffle failed")
	}

	return c.JSON(http.StatusOK, tasks)
}

// InsertTimeBlock handles inserting an immovable time block
func (h *TaskHandler) InsertTimeBlock(c echo.Context) error {
	var req ports.InsertTimeBlockRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	block, err := h.timelineService.InsertTimeBlock(c.Request().Context(), &req)
	if err != nil {
		h.logger.Error("Insert time block failed", "error", err)
		return toHTTPError(err)
	}

	return c.JSON(http.StatusCreated, block)
}

// ArchiveTask handles archiving a task
func (h *TaskHandler) ArchiveTask(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid task ID")
	}

	if err := h.taskService.ArchiveTask(c.Request().Context(), id); err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Task archived"})
}

// DeleteTask handles deleting a task
func (h *TaskHandler) DeleteTask(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid task ID")
	}

	if err := h.taskService.DeleteTask(c.Request().Context(), id); err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Task deleted"})
}

// CreateSubtask handles subtask creation
func (h *TaskHandler) CreateSubtask(c echo.Context) error {
	var req ports.CreateSubtaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	subtask, err := h.taskService.CreateSubtask(c.Request().Context(), &req)
	if err != nil {
		h.logger.Error("Create subtask failed", "error", err)
		return toHTTPError(err)
	}

	return c.JSON(http.StatusCreated, subtask)
}

// ListSubtasks handles listing a task's subtasks
func (h *TaskHandler) ListSubtasks(c echo.Context) error {
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid task ID")
	}

	subtasks, err := h.taskService.ListSubtasks(c.Request().Context(), taskID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, subtasks)
}

// DeleteSubtask handles deleting a subtask
func (h *TaskHandler) DeleteSubtask(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid subtask ID")
	}

	if err := h.taskService.DeleteSubtask(c.Request().Context(), id); err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Subtask deleted"})
}

// toHTTPError maps domain errors onto HTTP status codes.
func toHTTPError(err error) error {
	switch {
	case errors.Is(err, entities.ErrTaskNotFound),
		errors.Is(err, entities.ErrSubtaskNotFound),
		errors.Is(err, entities.ErrTaskListNotFound),
		errors.Is(err, entities.ErrProjectNotFound),
		errors.Is(err, entities.ErrSettingNotFound),
		errors.Is(err, entities.ErrGoalNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, entities.ErrInvalidProgress),
		errors.Is(err, entities.ErrTimeBlockLocked):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
