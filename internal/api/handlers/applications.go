package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"autoapply/internal/background"
	"autoapply/internal/logging"
	"autoapply/internal/orchestrator"
	"autoapply/internal/storage"
	"autoapply/pkg/models"
	"autoapply/pkg/utils"
)

// BulkApplyHandler handles bulk-apply requests. The synchronous form blocks
// until every job in the batch has settled; with ?async=true the batch is
// handed to the background task manager and a process id is returned.
func BulkApplyHandler(orch *orchestrator.Orchestrator, taskManager background.TaskManager) echo.HandlerFunc {
	async := asyncBulkApplyHandler(orch, taskManager)
	return func(c echo.Context) error {
		if strings.EqualFold(c.QueryParam("async"), "true") {
			return async(c)
		}

		startTime := time.Now()
		requestID := utils.GenerateRequestID()
		logger := logging.GetGlobalLogger()

		c.Set("request_id", requestID)

		var req models.BulkApplyRequest
		if err := c.Bind(&req); err != nil {
			return respondError(c, requestID, "invalid_request", utils.NewBadRequestError("Invalid request format"))
		}
		if err := validate.Struct(&req); err != nil {
			return respondError(c, requestID, "validation_failed", utils.NewValidationError(err.Error()))
		}

		logger.Info("Processing bulk apply request", map[string]interface{}{
			"request_id": requestID,
			"user_id":    req.UserID,
			"job_count":  len(req.JobIDs),
		})

		applications, err := orch.BulkApply(c.Request().Context(), req.UserID, req.JobIDs)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return respondError(c, requestID, "not_found", utils.NewNotFoundError(err.Error()))
			}
			logger.Error("Bulk apply failed", map[string]interface{}{
				"request_id": requestID,
				"error":      err.Error(),
			})
			return respondError(c, requestID, "bulk_apply_failed", utils.NewInternalServerError(err.Error()))
		}

		logger.Info("Bulk apply completed", map[string]interface{}{
			"request_id":      requestID,
			"user_id":         req.UserID,
			"total":           len(applications),
			"processing_time": time.Since(startTime),
		})

		return c.JSON(http.StatusOK, models.BulkApplyResponse{
			Success:        true,
			Total:          len(applications),
			Applications:   applications,
			ProcessingTime: time.Since(startTime),
			RequestID:      requestID,
		})
	}
}

// asyncBulkApplyHandler accepts a bulk-apply batch for background processing
// and returns a process id immediately.
func asyncBulkApplyHandler(orch *orchestrator.Orchestrator, taskManager background.TaskManager) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := utils.GenerateRequestID()
		logger := logging.GetGlobalLogger()

		c.Set("request_id", requestID)

		var req models.BulkApplyRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.CreateAsyncErrorResponse(
				"invalid_request",
				"Invalid request body: "+err.Error(),
			))
		}
		if err := validate.Struct(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.CreateAsyncErrorResponse(
				"validation_failed",
				"Request validation failed: "+err.Error(),
			))
		}

		processID := utils.GenerateApplyProcessID()

		logger.Info("Submitting bulk apply task for background processing", map[string]interface{}{
			"request_id": requestID,
			"process_id": processID,
			"user_id":    req.UserID,
			"job_count":  len(req.JobIDs),
		})

		if err := taskManager.SubmitBulkApplyTask(c.Request().Context(), processID, req.UserID, req.JobIDs, orch); err != nil {
			logger.Error("Failed to submit background bulk apply task", map[string]interface{}{
				"request_id": requestID,
				"process_id": processID,
				"error":      err.Error(),
			})
			return c.JSON(http.StatusInternalServerError, models.CreateAsyncErrorResponse(
				"task_submission_failed",
				fmt.Sprintf("Failed to submit bulk apply task: %v", err),
				processID,
			))
		}

		return c.JSON(http.StatusAccepted, models.CreateAsyncBulkApplyResponse(processID))
	}
}

// TaskStatusHandler reports the state of a background task by process id
func TaskStatusHandler(taskManager background.TaskManager) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := utils.GenerateRequestID()
		processID := c.Param("processId")

		c.Set("request_id", requestID)

		if processID == "" {
			return c.JSON(http.StatusBadRequest, models.CreateAsyncErrorResponse(
				"invalid_request",
				"Process ID is required",
			))
		}

		result, err := taskManager.GetTaskResult(c.Request().Context(), processID)
		if err != nil {
			return c.JSON(http.StatusNotFound, models.CreateAsyncErrorResponse(
				"task_not_found",
				fmt.Sprintf("No task found for process ID %s", processID),
				processID,
			))
		}

		return c.JSON(http.StatusOK, models.AsyncTaskStatusResponse{
			ProcessID:      result.ProcessID,
			Status:         models.AsyncStatus(result.Status),
			Data:           result.Data,
			Error:          result.Error,
			CreatedAt:      result.CreatedAt,
			CompletedAt:    result.CompletedAt,
			ProcessingTime: result.ProcessingTime,
		})
	}
}

// ListApplicationsHandler lists a user's applications, optionally filtered by
// status via the ?status= query parameter.
func ListApplicationsHandler(repo storage.Repository) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := utils.GenerateRequestID()
		logger := logging.GetGlobalLogger()

		c.Set("request_id", requestID)

		userID := c.Param("userId")
		if userID == "" {
			return respondError(c, requestID, "invalid_request", utils.NewBadRequestError("User ID is required"))
		}

		var statuses []models.ApplicationStatus
		if raw := c.QueryParam("status"); raw != "" {
			status, err := orchestrator.ParseStatus(raw)
			if err != nil {
				return respondError(c, requestID, "invalid_status", utils.NewValidationError(err.Error()))
			}
			statuses = append(statuses, status)
		}

		applications, err := repo.ListApplications(c.Request().Context(), userID, statuses)
		if err != nil {
			logger.Error("Failed to list applications", map[string]interface{}{
				"request_id": requestID,
				"user_id":    userID,
				"error":      err.Error(),
			})
			return respondError(c, requestID, "storage_error", utils.NewInternalServerError("Failed to list applications"))
		}

		return c.JSON(http.StatusOK, models.ApplicationListResponse{
			Success:      true,
			Total:        len(applications),
			Applications: applications,
			RequestID:    requestID,
		})
	}
}

// MarkEmailedHandler records that the prepared email for an application was
// sent, settling it as applied.
func MarkEmailedHandler(orch *orchestrator.Orchestrator) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := utils.GenerateRequestID()
		logger := logging.GetGlobalLogger()

		c.Set("request_id", requestID)

		applicationID := c.Param("id")
		if applicationID == "" {
			return respondError(c, requestID, "invalid_request", utils.NewBadRequestError("Application ID is required"))
		}

		app, err := orch.MarkEmailed(c.Request().Context(), applicationID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return respondError(c, requestID, "not_found",
					utils.NewNotFoundError(fmt.Sprintf("No application with id %s", applicationID)))
			}
			logger.Warn("Mark-emailed rejected", map[string]interface{}{
				"request_id":     requestID,
				"application_id": applicationID,
				"error":          err.Error(),
			})
			return respondError(c, requestID, "invalid_transition", utils.NewConflictError(err.Error()))
		}

		return c.JSON(http.StatusOK, map[string]interface{}{
			"success":     true,
			"application": app,
			"request_id":  requestID,
		})
	}
}
