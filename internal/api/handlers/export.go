package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"autoapply/internal/email"
	"autoapply/internal/exporter"
	"autoapply/internal/logging"
	"autoapply/internal/storage"
	"autoapply/pkg/utils"
)

// ExportHandler streams the user's outstanding applications as a CSV
// mail-merge sheet.
func ExportHandler(repo storage.Repository, emails *email.Generator) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := utils.GenerateRequestID()
		logger := logging.GetGlobalLogger()

		c.Set("request_id", requestID)

		userID := c.Param("userId")
		if userID == "" {
			return respondError(c, requestID, "invalid_request", utils.NewBadRequestError("User ID is required"))
		}

		data, err := exporter.BuildCSV(c.Request().Context(), repo, emails, userID)
		if err != nil {
			if errors.Is(err, exporter.ErrNothingToExport) {
				return respondError(c, requestID, "nothing_to_export",
					utils.NewNotFoundError("No pending or email_ready applications to export"))
			}
			logger.Error("Failed to build export", map[string]interface{}{
				"request_id": requestID,
				"user_id":    userID,
				"error":      err.Error(),
			})
			return respondError(c, requestID, "export_failed", utils.NewInternalServerError("Failed to build application export"))
		}

		filename := fmt.Sprintf("applications-%s-%s.csv", userID, time.Now().Format("2006-01-02"))
		c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
		return c.Blob(http.StatusOK, "text/csv", data)
	}
}
