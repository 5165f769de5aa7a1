package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"autoapply/internal/aggregator"
	"autoapply/internal/logging"
	"autoapply/internal/matcher"
	"autoapply/internal/storage"
	"autoapply/pkg/models"
	"autoapply/pkg/utils"
)

var validate = validator.New()

// SearchHandler handles job search requests: fan out to the job boards,
// rank the merged postings against the user's profile, and persist them so
// a later bulk-apply can reference them by id.
func SearchHandler(agg *aggregator.Aggregator, m *matcher.Matcher, repo storage.Repository) echo.HandlerFunc {
	return func(c echo.Context) error {
		startTime := time.Now()
		requestID := utils.GenerateRequestID()
		logger := logging.GetGlobalLogger()

		c.Set("request_id", requestID)

		var req models.SearchRequest
		if err := c.Bind(&req); err != nil {
			logger.Error("Failed to parse search request", map[string]interface{}{
				"request_id": requestID,
				"error":      err.Error(),
			})
			return respondError(c, requestID, "invalid_request", utils.NewBadRequestError("Invalid request format"))
		}

		if err := validate.Struct(&req); err != nil {
			logger.Error("Search request validation failed", map[string]interface{}{
				"request_id": requestID,
				"error":      err.Error(),
			})
			return respondError(c, requestID, "validation_failed", utils.NewValidationError(err.Error()))
		}

		ctx := c.Request().Context()

		profile, err := repo.GetProfile(ctx, req.UserID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return respondError(c, requestID, "profile_not_found",
					utils.NewNotFoundError("No profile found for this user; upload a resume first"))
			}
			logger.Error("Failed to load profile", map[string]interface{}{
				"request_id": requestID,
				"user_id":    req.UserID,
				"error":      err.Error(),
			})
			return respondError(c, requestID, "storage_error", utils.NewInternalServerError("Failed to load profile"))
		}

		criteria := req.Criteria()
		logger.Info("Processing search request", map[string]interface{}{
			"request_id": requestID,
			"user_id":    req.UserID,
			"keywords":   criteria.Keywords,
			"sources":    criteria.Sources,
			"limit":      criteria.Limit,
		})

		result, err := agg.Aggregate(ctx, criteria)
		if err != nil {
			logger.Error("Job aggregation failed", map[string]interface{}{
				"request_id": requestID,
				"error":      err.Error(),
			})
			if errors.Is(err, context.DeadlineExceeded) {
				return respondError(c, requestID, "aggregation_timeout", utils.NewTimeoutError(err.Error()))
			}
			return respondError(c, requestID, "aggregation_failed", utils.NewSourceError(err.Error()))
		}

		ranked, err := m.Rank(ctx, profile, criteria.Keywords, result.Postings)
		if err != nil {
			logger.Error("Ranking failed", map[string]interface{}{
				"request_id": requestID,
				"error":      err.Error(),
			})
			return respondError(c, requestID, "ranking_failed", utils.NewInternalServerError(err.Error()))
		}

		if req.MinScore > 0 {
			filtered := ranked[:0]
			for _, rp := range ranked {
				if rp.MatchScore >= req.MinScore {
					filtered = append(filtered, rp)
				}
			}
			ranked = filtered
		}

		// Persist the ranked postings so bulk-apply can address them by id
		postings := make([]models.Posting, len(ranked))
		for i, rp := range ranked {
			p := rp.Posting
			p.MatchScore = rp.MatchScore
			postings[i] = p
		}
		if err := repo.SavePostings(ctx, req.UserID, postings); err != nil {
			logger.Error("Failed to persist postings", map[string]interface{}{
				"request_id": requestID,
				"error":      err.Error(),
			})
			return respondError(c, requestID, "storage_error", utils.NewInternalServerError("Failed to persist search results"))
		}

		failures := make([]models.SourceFailureInfo, 0, len(result.Failures))
		for _, f := range result.Failures {
			failures = append(failures, models.SourceFailureInfo{
				Source: f.Source,
				Error:  f.Err.Error(),
			})
		}

		logger.Info("Search request completed", map[string]interface{}{
			"request_id":      requestID,
			"total_found":     len(ranked),
			"source_failures": len(failures),
			"processing_time": time.Since(startTime),
		})

		return c.JSON(http.StatusOK, models.SearchResponse{
			Success:         true,
			TotalFound:      len(ranked),
			Postings:        ranked,
			PartialFailures: failures,
			ProcessingTime:  time.Since(startTime),
			RequestID:       requestID,
		})
	}
}
