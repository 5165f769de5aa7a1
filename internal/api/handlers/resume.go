package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"autoapply/internal/logging"
	"autoapply/internal/parser"
	"autoapply/internal/storage"
	"autoapply/pkg/models"
	"autoapply/pkg/utils"
)

// UploadResumeHandler handles resume uploads. The resume arrives as a
// multipart file under "resume" together with a "user_id" form field; the
// extracted profile is persisted and returned.
func UploadResumeHandler(p *parser.Parser, repo storage.Repository) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := utils.GenerateRequestID()
		logger := logging.GetGlobalLogger()

		c.Set("request_id", requestID)

		userID := c.FormValue("user_id")
		if userID == "" {
			return respondError(c, requestID, "invalid_request", utils.NewBadRequestError("user_id form field is required"))
		}

		fileHeader, err := c.FormFile("resume")
		if err != nil {
			return respondError(c, requestID, "invalid_request", utils.NewBadRequestError("resume file is required"))
		}

		file, err := fileHeader.Open()
		if err != nil {
			return respondError(c, requestID, "invalid_request", utils.NewBadRequestError("could not open uploaded file"))
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return respondError(c, requestID, "invalid_request", utils.NewBadRequestError("could not read uploaded file"))
		}

		logger.Info("Processing resume upload", map[string]interface{}{
			"request_id": requestID,
			"user_id":    userID,
			"filename":   fileHeader.Filename,
			"size":       len(data),
		})

		profile, err := p.ParseResume(c.Request().Context(), data, fileHeader.Header.Get("Content-Type"))
		if err != nil {
			var unsupported *parser.UnsupportedFormatError
			if errors.As(err, &unsupported) {
				return respondError(c, requestID, "unsupported_format", &utils.CustomError{
					Code:    http.StatusUnsupportedMediaType,
					Message: err.Error(),
				})
			}
			return respondError(c, requestID, "parse_failed", utils.NewParseError(err.Error()))
		}

		profile.UserID = userID
		if err := repo.SaveProfile(c.Request().Context(), profile); err != nil {
			logger.Error("Failed to persist profile", map[string]interface{}{
				"request_id": requestID,
				"user_id":    userID,
				"error":      err.Error(),
			})
			return respondError(c, requestID, "storage_error", utils.NewInternalServerError("Failed to save profile"))
		}

		logger.Info("Resume parsed and profile saved", map[string]interface{}{
			"request_id": requestID,
			"user_id":    userID,
			"skills":     len(profile.Skills),
		})

		return c.JSON(http.StatusOK, models.ProfileResponse{
			Success:   true,
			Profile:   profile,
			RequestID: requestID,
		})
	}
}

// GetProfileHandler returns the stored profile for a user
func GetProfileHandler(repo storage.Repository) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := utils.GenerateRequestID()

		c.Set("request_id", requestID)

		userID := c.Param("userId")
		profile, err := repo.GetProfile(c.Request().Context(), userID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return respondError(c, requestID, "profile_not_found", utils.NewNotFoundError("No profile found for this user"))
			}
			return respondError(c, requestID, "storage_error", utils.NewInternalServerError("Failed to load profile"))
		}

		return c.JSON(http.StatusOK, models.ProfileResponse{
			Success:   true,
			Profile:   profile,
			RequestID: requestID,
		})
	}
}
