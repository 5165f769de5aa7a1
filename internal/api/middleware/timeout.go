package middleware

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// SelectiveTimeoutConfig applies the default timeout to most endpoints and an
// extended one to endpoints that fan out to job boards or drive a browser.
func SelectiveTimeoutConfig(defaultTimeout, extendedTimeout time.Duration) echo.MiddlewareFunc {
	extendedPrefixes := []string{
		"/api/v1/jobs/search",
		"/api/v1/applications/bulk-apply",
		"/api/v1/resume",
	}

	defaultMW := middleware.TimeoutWithConfig(middleware.TimeoutConfig{Timeout: defaultTimeout})
	extendedMW := middleware.TimeoutWithConfig(middleware.TimeoutConfig{Timeout: extendedTimeout})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		withDefault := defaultMW(next)
		withExtended := extendedMW(next)
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			for _, prefix := range extendedPrefixes {
				if strings.HasPrefix(path, prefix) {
					return withExtended(c)
				}
			}
			return withDefault(c)
		}
	}
}
