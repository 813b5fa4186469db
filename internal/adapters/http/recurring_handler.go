package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/taskloop/core/internal/application/services"
	"github.com/taskloop/core/internal/infrastructure/logger"
	"github.com/taskloop/core/internal/ports"
)

// RecurringHandler exposes the generation check endpoints. Both endpoints
// are safe to call repeatedly; the service's guard and generation log make
// repeated calls idempotent within a day.
type RecurringHandler struct {
	generation *services.GenerationService
	logger     *logger.Logger
}

// NewRecurringHandler creates a new recurring handler
func NewRecurringHandler(generation *services.GenerationService, logger *logger.Logger) *RecurringHandler {
	return &RecurringHandler{
		generation: generation,
		logger:     logger,
	}
}

// CheckTasksRequest is the check-tasks payload. All fields are optional;
// an empty body checks every enabled list.
type CheckTasksRequest struct {
	TaskListID            *uuid.UUID `json:"specificListId"`
	Force                 bool       `json:"forceCheck"`
	TargetTaskCount       *int       `json:"targetTaskCount"`
	CurrentTaskCount      *int       `json:"currentTaskCount"`
	AdditionalTasksNeeded *int       `json:"additionalTasksNeeded"`
	CurrentDay            string     `json:"currentDay"`
	SkipUniqueNameCheck   bool       `json:"skipUniqueNameCheck"`
}

// CheckProjectsRequest is the check-projects payload.
type CheckProjectsRequest struct {
	Force           bool        `json:"forceCheck"`
	ProjectIDs      []uuid.UUID `json:"projects"`
	DayOfWeek       string      `json:"dayOfWeek"`
	ResetDailyGoals bool        `json:"resetDailyGoals"`
}

// CheckTasks handles the unified recurring task-list check
func (h *RecurringHandler) CheckTasks(c echo.Context) error {
	var req CheckTasksRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	report, err := h.generation.CheckTaskLists(c.Request().Context(), ports.CheckOptions{
		ListID:                req.TaskListID,
		Force:                 req.Force,
		TargetTaskCount:       req.TargetTaskCount,
		CurrentTaskCount:      req.CurrentTaskCount,
		AdditionalTasksNeeded: req.AdditionalTasksNeeded,
		CurrentDay:            req.CurrentDay,
		SkipUniqueNameCheck:   req.SkipUniqueNameCheck,
	})
	if err != nil {
		h.logger.Error("Check tasks failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Generation check failed")
	}

	return c.JSON(http.StatusOK, report)
}

// CheckProjects handles the unified recurring-project check
func (h *RecurringHandler) CheckProjects(c echo.Context) error {
	var req CheckProjectsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	report, err := h.generation.CheckProjects(c.Request().Context(), ports.ProjectCheckOptions{
		Force:           req.Force,
		ProjectIDs:      req.ProjectIDs,
		DayOfWeek:       req.DayOfWeek,
		ResetDailyGoals: req.ResetDailyGoals,
	})
	if err != nil {
		h.logger.Error("Check projects failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Generation check failed")
	}

	return c.JSON(http.StatusOK, report)
}
