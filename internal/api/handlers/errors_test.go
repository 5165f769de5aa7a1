package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"autoapply/pkg/models"
	"autoapply/pkg/utils"
)

func TestRespondErrorStatusMapping(t *testing.T) {
	e := echo.New()

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"bad request", utils.NewBadRequestError("missing field"), http.StatusBadRequest},
		{"validation", utils.NewValidationError("user_id is required"), http.StatusBadRequest},
		{"not found", utils.NewNotFoundError("no such profile"), http.StatusNotFound},
		{"timeout", utils.NewTimeoutError("job boards too slow"), http.StatusRequestTimeout},
		{"source", utils.NewSourceError("remoteok unreachable"), http.StatusBadGateway},
		{"parse", utils.NewParseError("unreadable resume"), http.StatusUnprocessableEntity},
		{"conflict", utils.NewConflictError("application already settled"), http.StatusConflict},
		{"internal", utils.NewInternalServerError("storage down"), http.StatusInternalServerError},
		{"plain error defaults to 500", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			if err := respondError(c, "req-1", "some_code", tc.err); err != nil {
				t.Fatalf("respondError: %v", err)
			}
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}

			var body models.ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decoding body: %v", err)
			}
			if body.Error != "some_code" {
				t.Errorf("error code = %q", body.Error)
			}
			if body.RequestID != "req-1" {
				t.Errorf("request id = %q", body.RequestID)
			}
			if body.Message == "" {
				t.Error("message should carry the error text")
			}
		})
	}
}

func TestCustomErrorDetailFormatting(t *testing.T) {
	err := utils.NewValidationError("keywords are required")
	if got := err.Error(); got != "Validation failed: keywords are required" {
		t.Errorf("Error() = %q", got)
	}

	plain := utils.NewNotFoundError("no such application")
	if got := plain.Error(); got != "no such application" {
		t.Errorf("Error() without detail = %q", got)
	}
}
