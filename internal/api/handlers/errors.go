package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"autoapply/pkg/models"
	"autoapply/pkg/utils"
)

// respondError writes the standard error envelope. Handlers classify failures
// with the utils error constructors, which carry the HTTP status; anything
// else maps to a 500.
func respondError(c echo.Context, requestID, code string, err error) error {
	status := http.StatusInternalServerError
	message := err.Error()

	var custom *utils.CustomError
	if errors.As(err, &custom) {
		status = custom.Code
		message = custom.Error()
	}

	return c.JSON(status, models.ErrorResponse{
		Error:     code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now(),
	})
}
