package exporter

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"

	"autoapply/internal/email"
	"autoapply/internal/storage"
	"autoapply/pkg/models"
)

func seedRepo(t *testing.T) storage.Repository {
	t.Helper()
	repo := storage.NewMemoryRepository()
	ctx := context.Background()

	if err := repo.SaveProfile(ctx, &models.Profile{
		UserID:  "u1",
		Contact: models.Contact{Name: "Dana Smith", Email: "dana@example.com"},
		Skills:  []string{"Go", "Postgres"},
	}); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}
	if err := repo.SavePostings(ctx, "u1", []models.Posting{
		{ExternalID: "1", Source: models.SourceRemotive, Title: "Go Dev", Company: "Acme", ContactEmail: "jobs@acme.com"},
	}); err != nil {
		t.Fatalf("SavePostings: %v", err)
	}
	return repo
}

func parseCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("parsing export: %v", err)
	}
	return records
}

func TestBuildCSVHeaderAndStoredEmail(t *testing.T) {
	repo := seedRepo(t)
	ctx := context.Background()

	if err := repo.SaveApplication(ctx, &models.Application{
		ID: "a1", UserID: "u1", JobID: "remotive:1",
		JobTitle: "Go Dev", Company: "Acme",
		Status:     models.StatusEmailReady,
		MatchScore: 91.25,
		EmailTo:    "Contact: jobs@acme.com", // stored with stray text
		EmailSubject: "Application for Go Dev at Acme",
		EmailBody:    "Dear Acme Hiring Team,\n\nplease find attached...",
	}); err != nil {
		t.Fatalf("SaveApplication: %v", err)
	}

	data, err := BuildCSV(ctx, repo, email.NewGenerator(), "u1")
	if err != nil {
		t.Fatalf("BuildCSV: %v", err)
	}
	records := parseCSV(t, data)

	wantHeader := []string{"To Email", "Subject", "Message Body", "Company", "Job Title", "Match Score", "Status"}
	for i, col := range wantHeader {
		if records[0][i] != col {
			t.Errorf("header[%d] = %q, want %q", i, records[0][i], col)
		}
	}
	if len(records) != 2 {
		t.Fatalf("expected header + 1 row, got %d records", len(records))
	}

	row := records[1]
	if row[0] != "jobs@acme.com" {
		t.Errorf("To Email = %q, want clean address", row[0])
	}
	if row[3] != "Acme" || row[4] != "Go Dev" {
		t.Errorf("company/title = %q/%q", row[3], row[4])
	}
	if row[5] != "91.25" {
		t.Errorf("Match Score = %q", row[5])
	}
	if row[6] != "email_ready" {
		t.Errorf("Status = %q", row[6])
	}
}

func TestBuildCSVGeneratesMissingEmail(t *testing.T) {
	repo := seedRepo(t)
	ctx := context.Background()

	// Pending application with no stored email fields
	if err := repo.SaveApplication(ctx, &models.Application{
		ID: "a1", UserID: "u1", JobID: "remotive:1",
		JobTitle: "Go Dev", Company: "Acme",
		Status: models.StatusPending,
	}); err != nil {
		t.Fatalf("SaveApplication: %v", err)
	}

	data, err := BuildCSV(ctx, repo, email.NewGenerator(), "u1")
	if err != nil {
		t.Fatalf("BuildCSV: %v", err)
	}
	records := parseCSV(t, data)
	if len(records) != 2 {
		t.Fatalf("expected 1 data row, got %d", len(records)-1)
	}

	row := records[1]
	if row[0] != "jobs@acme.com" {
		t.Errorf("generated To Email = %q", row[0])
	}
	if !strings.Contains(row[1], "Go Dev") {
		t.Errorf("generated subject %q should name the role", row[1])
	}
	if !strings.Contains(row[2], "Dana Smith") {
		t.Errorf("generated body should carry the applicant signature")
	}
}

func TestBuildCSVRegeneratesUnusableStoredAddress(t *testing.T) {
	repo := seedRepo(t)
	ctx := context.Background()

	// Stored address carries no extractable email; the row should fall back
	// to a generated address while keeping the stored subject and body.
	if err := repo.SaveApplication(ctx, &models.Application{
		ID: "a1", UserID: "u1", JobID: "remotive:1",
		JobTitle: "Go Dev", Company: "Acme",
		Status:       models.StatusEmailReady,
		EmailTo:      "see company website",
		EmailSubject: "Application for Go Dev at Acme",
		EmailBody:    "stored body",
	}); err != nil {
		t.Fatalf("SaveApplication: %v", err)
	}

	data, err := BuildCSV(ctx, repo, email.NewGenerator(), "u1")
	if err != nil {
		t.Fatalf("BuildCSV: %v", err)
	}
	records := parseCSV(t, data)
	if len(records) != 2 {
		t.Fatalf("expected 1 data row, got %d", len(records)-1)
	}

	row := records[1]
	if row[0] != "jobs@acme.com" {
		t.Errorf("To Email = %q, want the regenerated address", row[0])
	}
	if row[1] != "Application for Go Dev at Acme" {
		t.Errorf("stored subject should be preserved, got %q", row[1])
	}
	if row[2] != "stored body" {
		t.Errorf("stored body should be preserved, got %q", row[2])
	}
}

func TestBuildCSVSkipsSettledApplications(t *testing.T) {
	repo := seedRepo(t)
	ctx := context.Background()

	for _, app := range []*models.Application{
		{ID: "a1", UserID: "u1", JobID: "remotive:1", Company: "Acme", JobTitle: "Go Dev",
			Status: models.StatusEmailReady, EmailTo: "jobs@acme.com", EmailSubject: "s", EmailBody: "b"},
		{ID: "a2", UserID: "u1", JobID: "remotive:1", Company: "Acme", JobTitle: "Go Dev",
			Status: models.StatusApplied, EmailTo: "jobs@acme.com", EmailSubject: "s", EmailBody: "b"},
		{ID: "a3", UserID: "u1", JobID: "remotive:1", Company: "Acme", JobTitle: "Go Dev",
			Status: models.StatusFailed, EmailTo: "jobs@acme.com", EmailSubject: "s", EmailBody: "b"},
	} {
		if err := repo.SaveApplication(ctx, app); err != nil {
			t.Fatalf("SaveApplication: %v", err)
		}
	}

	data, err := BuildCSV(ctx, repo, email.NewGenerator(), "u1")
	if err != nil {
		t.Fatalf("BuildCSV: %v", err)
	}
	records := parseCSV(t, data)
	if len(records) != 2 {
		t.Errorf("expected only the email_ready row, got %d data rows", len(records)-1)
	}
}

func TestBuildCSVEmptyExport(t *testing.T) {
	repo := seedRepo(t)

	_, err := BuildCSV(context.Background(), repo, email.NewGenerator(), "u1")
	if !errors.Is(err, ErrNothingToExport) {
		t.Errorf("expected ErrNothingToExport, got %v", err)
	}
}

func TestBuildCSVMultilineBodySurvivesRoundTrip(t *testing.T) {
	repo := seedRepo(t)
	ctx := context.Background()

	body := "Dear Team,\n\nline two, with a comma\n\"quoted\"\n"
	if err := repo.SaveApplication(ctx, &models.Application{
		ID: "a1", UserID: "u1", JobID: "remotive:1", Company: "Acme", JobTitle: "Go Dev",
		Status: models.StatusEmailReady,
		EmailTo: "jobs@acme.com", EmailSubject: "s", EmailBody: body,
	}); err != nil {
		t.Fatalf("SaveApplication: %v", err)
	}

	data, err := BuildCSV(ctx, repo, email.NewGenerator(), "u1")
	if err != nil {
		t.Fatalf("BuildCSV: %v", err)
	}
	records := parseCSV(t, data)
	if records[1][2] != body {
		t.Errorf("body mangled by CSV round trip:\n%q", records[1][2])
	}
}
