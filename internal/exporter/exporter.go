package exporter

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"

	"autoapply/internal/email"
	"autoapply/internal/logging"
	"autoapply/internal/storage"
	"autoapply/pkg/models"
	"autoapply/pkg/utils"
)

// Sentinel errors to allow precise mapping in handlers
var (
	ErrNothingToExport = errors.New("nothing_to_export")
)

// csvHeader is the fixed column layout of the export. Tools that consume the
// file key on these names, so the order is part of the contract.
var csvHeader = []string{
	"To Email", "Subject", "Message Body", "Company", "Job Title", "Match Score", "Status",
}

// exportableStatuses are the applications still worth mailing: freshly
// created and those whose email is prepared but unsent.
var exportableStatuses = []models.ApplicationStatus{
	models.StatusPending,
	models.StatusEmailReady,
}

// BuildCSV renders the user's outstanding applications as a CSV mail-merge
// sheet, one row per application. Applications without stored email fields
// get a message generated on the fly from the posting and profile.
func BuildCSV(ctx context.Context, repo storage.Repository, emails *email.Generator, userID string) ([]byte, error) {
	logger := logging.GetGlobalLogger()

	apps, err := repo.ListApplications(ctx, userID, exportableStatuses)
	if err != nil {
		return nil, err
	}
	if len(apps) == 0 {
		return nil, fmt.Errorf("%w: no pending or email_ready applications for user %s", ErrNothingToExport, userID)
	}

	profile, err := repo.GetProfile(ctx, userID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}

	rows := 0
	for _, app := range apps {
		to, subject, body := app.EmailTo, app.EmailSubject, app.EmailBody
		// Strip stray text around a stored address; an empty or unusable
		// stored value falls back to a freshly generated message
		if clean := utils.ExtractEmail(to); clean != "" {
			to = clean
		} else {
			if profile == nil {
				logger.Warn("Skipping export row without profile", map[string]interface{}{
					"user_id": userID,
					"job_id":  app.JobID,
				})
				continue
			}
			posting, perr := repo.GetPosting(ctx, userID, app.JobID)
			if perr != nil {
				logger.Warn("Skipping export row without posting", map[string]interface{}{
					"user_id": userID,
					"job_id":  app.JobID,
					"error":   perr.Error(),
				})
				continue
			}
			msg := emails.Generate(posting, profile)
			to = msg.To
			if subject == "" {
				subject = msg.Subject
			}
			if body == "" {
				body = msg.Body
			}
		}

		row := []string{
			to,
			subject,
			body,
			app.Company,
			app.JobTitle,
			strconv.FormatFloat(app.MatchScore, 'f', 2, 64),
			string(app.Status),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
		rows++
	}
	if rows == 0 {
		return nil, fmt.Errorf("%w: no exportable applications for user %s", ErrNothingToExport, userID)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	logger.Info("Built application export", map[string]interface{}{
		"user_id": userID,
		"rows":    rows,
	})
	return buf.Bytes(), nil
}
