package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/taskloop/core/internal/adapters/calendar"
	httpHandlers "github.com/taskloop/core/internal/adapters/http"
	"github.com/taskloop/core/internal/adapters/repository"
	"github.com/taskloop/core/internal/application/schedule"
	"github.com/taskloop/core/internal/application/services"
	"github.com/taskloop/core/internal/infrastructure/config"
	"github.com/taskloop/core/internal/infrastructure/database"
	"github.com/taskloop/core/internal/infrastructure/logger"
	"github.com/taskloop/core/internal/infrastructure/metrics"
)

// Server represents the HTTP server
type Server struct {
	echo       *echo.Echo
	config     *config.Config
	logger     *logger.Logger
	db         *database.DB
	metrics    *metrics.Metrics
	generation *services.GenerationService
	goals      *services.GoalService
}

// CustomValidator wraps the validator
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates structs
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// New creates a new server instance
func New(cfg *config.Config, db *database.DB, appLogger *logger.Logger) (*Server, error) {
	e := echo.New()

	// Set custom validator
	e.Validator = &CustomValidator{validator: validator.New()}

	// Configure Echo
	e.HideBanner = true
	e.HidePort = true

	// Custom error handler
	e.HTTPErrorHandler = customErrorHandler(appLogger)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	// Initialize repositories
	taskRepo := repository.NewTaskRepository(db.DB)
	subtaskRepo := repository.NewSubtaskRepository(db.DB)
	taskListRepo := repository.NewTaskListRepository(db.DB)
	projectRepo := repository.NewProjectRepository(db.DB)
	settingRepo := repository.NewRecurringSettingRepository(db.DB)
	genLogRepo := repository.NewGenerationLogRepository(db.DB)
	goalRepo := repository.NewGoalRepository(db.DB)

	// Initialize services
	loc := cfg.Scheduler.Location()
	state := schedule.NewState()
	notifier := calendar.NewLogNotifier(appLogger)
	goalService := services.NewGoalService(goalRepo, loc, m, appLogger)
	generationService := services.NewGenerationService(
		taskRepo, subtaskRepo, taskListRepo, projectRepo, settingRepo, genLogRepo,
		goalService, notifier, state, cfg.Scheduler, m, appLogger,
	)
	taskService := services.NewTaskService(taskRepo, subtaskRepo, taskListRepo, goalService, appLogger)
	timelineService := services.NewTimelineService(taskRepo, loc, appLogger)
	projectService := services.NewProjectService(taskListRepo, projectRepo, settingRepo, appLogger)

	// Initialize handlers
	taskHandler := httpHandlers.NewTaskHandler(taskService, timelineService, appLogger)
	projectHandler := httpHandlers.NewProjectHandler(projectService, appLogger)
	goalHandler := httpHandlers.NewGoalHandler(goalService, appLogger)
	recurringHandler := httpHandlers.NewRecurringHandler(generationService, appLogger)

	server := &Server{
		echo:       e,
		config:     cfg,
		logger:     appLogger,
		db:         db,
		metrics:    m,
		generation: generationService,
		goals:      goalService,
	}

	// Setup middleware
	server.setupMiddleware()

	// Setup routes
	server.setupRoutes(taskHandler, projectHandler, goalHandler, recurringHandler)

	// Setup metrics
	if cfg.Metrics.Enabled {
		server.setupMetrics()
	}

	return server, nil
}

// GenerationService exposes the generation service for the cron scheduler.
func (s *Server) GenerationService() *services.GenerationService {
	return s.generation
}

// GoalService exposes the goal service for the cron scheduler.
func (s *Server) GoalService() *services.GoalService {
	return s.goals
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.echo.Use(middleware.Recover())

	// Logger middleware
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogError:     true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			fields := []interface{}{
				"method", values.Method,
				"uri", values.URI,
				"status", values.Status,
				"latency_ms", float64(values.Latency.Nanoseconds()) / 1000000,
				"remote_ip", values.RemoteIP,
				"user_agent", values.UserAgent,
			}

			if values.Error != nil {
				fields = append(fields, "error", values.Error.Error())
				s.logger.Errorw("HTTP request failed", fields...)
			} else {
				s.logger.Infow("HTTP request", fields...)
			}

			return nil
		},
	}))

	// CORS middleware
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: strings.Split(s.config.Security.CORSAllowedOrigins, ","),
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		AllowMethods: []string{echo.GET, echo.HEAD, echo.PUT, echo.PATCH, echo.POST, echo.DELETE},
	}))

	// Rate limiting middleware
	s.echo.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{Rate: rate.Limit(s.config.Security.RateLimitRequests), Burst: s.config.Security.RateLimitRequests, ExpiresIn: s.config.Security.RateLimitWindow},
		),
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			id := ctx.RealIP()
			return id, nil
		},
		ErrorHandler: func(context echo.Context, err error) error {
			return context.JSON(http.StatusForbidden, map[string]string{"message": "rate limit exceeded"})
		},
		DenyHandler: func(context echo.Context, identifier string, err error) error {
			return context.JSON(http.StatusTooManyRequests, map[string]string{"message": "rate limit exceeded"})
		},
	}))

	// Security headers
	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
	}))

	// Request ID middleware
	s.echo.Use(middleware.RequestID())

	// Timeout middleware
	s.echo.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: 30 * time.Second,
	}))
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(taskHandler *httpHandlers.TaskHandler, projectHandler *httpHandlers.ProjectHandler, goalHandler *httpHandlers.GoalHandler, recurringHandler *httpHandlers.RecurringHandler) {
	// Health check routes
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/health/detailed", s.detailedHealthCheck)
	s.echo.GET("/ready", s.readinessCheck)

	// API v1 routes
	v1 := s.echo.Group("/api/v1")

	// Recurring generation routes
	recurringGroup := v1.Group("/recurring")
	recurringGroup.POST("/check-tasks", recurringHandler.CheckTasks)
	recurringGroup.POST("/check-projects", recurringHandler.CheckProjects)

	// Task list routes
	listGroup := v1.Group("/task-lists")
	listGroup.GET("", projectHandler.ListTaskLists)
	listGroup.POST("", projectHandler.CreateTaskList)
	listGroup.GET("/:id", projectHandler.GetTaskList)
	listGroup.PUT("/:id", projectHandler.UpdateTaskList)
	listGroup.DELETE("/:id", projectHandler.DeleteTaskList)
	listGroup.GET("/:listId/projects", projectHandler.ListProjects)
	listGroup.GET("/:listId/settings", projectHandler.ListSettings)
	listGroup.GET("/:listId/today", taskHandler.TodayTasks)
	listGroup.POST("/:listId/shuffle", taskHandler.ShuffleTasks)

	// Project routes
	projectGroup := v1.Group("/projects")
	projectGroup.POST("", projectHandler.CreateProject)
	projectGroup.GET("/:id", projectHandler.GetProject)
	projectGroup.PUT("/:id", projectHandler.UpdateProject)
	projectGroup.DELETE("/:id", projectHandler.DeleteProject)

	// Recurring setting routes
	settingGroup := v1.Group("/settings")
	settingGroup.POST("", projectHandler.SaveSetting)
	settingGroup.DELETE("/:id", projectHandler.DeleteSetting)

	// Task routes
	taskGroup := v1.Group("/tasks")
	taskGroup.GET("", taskHandler.ListTasks)
	taskGroup.POST("", taskHandler.CreateTask)
	taskGroup.POST("/time-blocks", taskHandler.InsertTimeBlock)
	taskGroup.GET("/:id", taskHandler.GetTask)
	taskGroup.PUT("/:id", taskHandler.UpdateTask)
	taskGroup.PUT("/:id/progress", taskHandler.UpdateProgress)
	taskGroup.POST("/:id/start", taskHandler.StartTask)
	taskGroup.POST("/:id/archive", taskHandler.ArchiveTask)
	taskGroup.DELETE("/:id", taskHandler.DeleteTask)
	taskGroup.GET("/:id/subtasks", taskHandler.ListSubtasks)

	// Subtask routes
	subtaskGroup := v1.Group("/subtasks")
	subtaskGroup.POST("", taskHandler.CreateSubtask)
	subtaskGroup.DELETE("/:id", taskHandler.DeleteSubtask)

	// Goal routes
	goalGroup := v1.Group("/goals")
	goalGroup.GET("", goalHandler.ListGoals)
	goalGroup.POST("", goalHandler.CreateGoal)
	goalGroup.PUT("/:id", goalHandler.UpdateGoal)
	goalGroup.DELETE("/:id", goalHandler.DeleteGoal)
}

// setupMetrics wires the HTTP metrics middleware and the /metrics endpoint
func (s *Server) setupMetrics() {
	s.echo.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			duration := time.Since(start)
			status := c.Response().Status

			s.metrics.HTTPRequestsTotal.WithLabelValues(
				c.Request().Method,
				c.Path(),
				fmt.Sprintf("%d", status),
			).Inc()

			s.metrics.HTTPRequestDuration.WithLabelValues(
				c.Request().Method,
				c.Path(),
			).Observe(duration.Seconds())

			return err
		}
	})

	metricsHandler := promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})
	s.echo.GET("/metrics", echo.WrapHandler(metricsHandler))
}

// Health check handlers
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) detailedHealthCheck(c echo.Context) error {
	status := "ok"
	checks := make(map[string]interface{})

	// Database health check
	if err := s.db.HealthCheck(); err != nil {
		status = "error"
		checks["database"] = map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		}
	} else {
		checks["database"] = map[string]interface{}{
			"status": "ok",
			"stats":  s.db.GetConnectionInfo(),
		}
	}

	response := map[string]interface{}{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
		"checks": checks,
		"version": map[string]string{
			"app": s.config.App.Version,
		},
	}

	if status == "ok" {
		return c.JSON(http.StatusOK, response)
	}
	return c.JSON(http.StatusServiceUnavailable, response)
}

func (s *Server) readinessCheck(c echo.Context) error {
	if err := s.db.Ping(); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": "database_not_ready",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Start starts the HTTP server
func (s *Server) Start(address string) error {
	s.logger.Info("Starting server", "address", address)
	return s.echo.Start(address)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server")
	return s.echo.Shutdown(ctx)
}

// customErrorHandler handles HTTP errors
func customErrorHandler(logger *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		var (
			code = http.StatusInternalServerError
			msg  interface{}
		)

		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			msg = he.Message
			if he.Internal != nil {
				err = fmt.Errorf("%v, %v", err, he.Internal)
			}
		} else if e, ok := err.(validator.ValidationErrors); ok {
			code = http.StatusBadRequest
			msg = map[string]string{"message": "validation failed", "details": e.Error()}
		} else {
			msg = map[string]string{"message": http.StatusText(code)}
		}

		if code == http.StatusInternalServerError {
			logger.Error("Internal server error", "error", err, "uri", c.Request().RequestURI)
		}

		if !c.Response().Committed {
			if c.Request().Method == http.MethodHead {
				err = c.NoContent(code)
			} else {
				err = c.JSON(code, map[string]interface{}{"error": msg})
			}
			if err != nil {
				logger.Error("Failed to send error response", "error", err)
			}
		}
	}
}
