package routes

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"autoapply/internal/aggregator"
	"autoapply/internal/api/handlers"
	"autoapply/internal/api/middleware"
	"autoapply/internal/background"
	"autoapply/internal/config"
	"autoapply/internal/email"
	"autoapply/internal/matcher"
	"autoapply/internal/orchestrator"
	"autoapply/internal/parser"
	"autoapply/internal/storage"
)

// Dependencies carries everything the HTTP layer needs wired in
type Dependencies struct {
	Config       *config.Config
	Repo         storage.Repository
	Aggregator   *aggregator.Aggregator
	Matcher      *matcher.Matcher
	Orchestrator *orchestrator.Orchestrator
	Parser       *parser.Parser
	Emails       *email.Generator
	TaskManager  background.TaskManager
}

// SetupRoutes configures all API routes
func SetupRoutes(e *echo.Echo, deps Dependencies) {
	// Global middleware
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(middleware.CORSConfig())
	e.Use(middleware.RequestValidation())
	// Selective timeout: search and apply endpoints fan out to job boards
	// and need headroom beyond the standard request budget
	e.Use(middleware.SelectiveTimeoutConfig(deps.Config.Server.ReadTimeout, 2*time.Minute))

	// Health check routes
	health := e.Group("/health")
	{
		health.GET("", handlers.HealthHandler)
		health.GET("/ready", handlers.ReadinessHandler(deps.Repo))
		health.GET("/live", handlers.LivenessHandler)
	}

	// API v1 routes
	v1 := e.Group("/api/v1")
	{
		jobs := v1.Group("/jobs")
		{
			jobs.POST("/search", handlers.SearchHandler(deps.Aggregator, deps.Matcher, deps.Repo))
		}

		resume := v1.Group("/resume")
		{
			resume.POST("/upload", handlers.UploadResumeHandler(deps.Parser, deps.Repo))
		}

		profiles := v1.Group("/profiles")
		{
			profiles.GET("/:userId", handlers.GetProfileHandler(deps.Repo))
		}

		applications := v1.Group("/applications")
		{
			applications.POST("/bulk-apply", handlers.BulkApplyHandler(deps.Orchestrator, deps.TaskManager))
			applications.GET("/tasks/:processId", handlers.TaskStatusHandler(deps.TaskManager))
			applications.GET("/user/:userId", handlers.ListApplicationsHandler(deps.Repo))
			applications.GET("/export-csv/:userId", handlers.ExportHandler(deps.Repo, deps.Emails))
			applications.POST("/:id/mark-emailed", handlers.MarkEmailedHandler(deps.Orchestrator))
		}
	}

	// Root route
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"service": "AutoApply Job Pipeline",
			"version": "1.0.0",
			"status":  "running",
		})
	})
}
