package storage

import (
	"context"
	"errors"
	"testing"

	"autoapply/pkg/models"
)

func TestMemoryRepositoryProfiles(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	if _, err := repo.GetProfile(ctx, "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetProfile on empty repo = %v, want ErrNotFound", err)
	}

	profile := &models.Profile{
		UserID:  "u1",
		Contact: models.Contact{Name: "Jordan", Email: "jordan@example.com"},
		Skills:  []string{"go"},
	}
	if err := repo.SaveProfile(ctx, profile); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}

	got, err := repo.GetProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if got.Contact.Email != "jordan@example.com" {
		t.Errorf("email = %q", got.Contact.Email)
	}

	// Returned copy must not alias the stored record
	got.Contact.Email = "tampered@example.com"
	again, _ := repo.GetProfile(ctx, "u1")
	if again.Contact.Email != "jordan@example.com" {
		t.Error("stored profile mutated through returned copy")
	}
}

func TestMemoryRepositoryPostings(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	postings := []models.Posting{
		{ExternalID: "1", Source: models.SourceRemoteOK, Title: "Go Engineer"},
		{ExternalID: "2", Source: models.SourceRemotive, Title: "Backend Engineer"},
	}
	if err := repo.SavePostings(ctx, "u1", postings); err != nil {
		t.Fatalf("SavePostings: %v", err)
	}

	got, err := repo.GetPosting(ctx, "u1", "remoteok:1")
	if err != nil {
		t.Fatalf("GetPosting: %v", err)
	}
	if got.Title != "Go Engineer" {
		t.Errorf("title = %q", got.Title)
	}

	// Postings are per-user
	if _, err := repo.GetPosting(ctx, "u2", "remoteok:1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-user GetPosting = %v, want ErrNotFound", err)
	}
}

func TestMemoryRepositoryApplications(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	apps := []models.Application{
		{ID: "a1", UserID: "u1", JobID: "remoteok:1", Status: models.StatusPending},
		{ID: "a2", UserID: "u1", JobID: "remoteok:2", Status: models.StatusApplied},
		{ID: "a3", UserID: "u2", JobID: "remoteok:1", Status: models.StatusPending},
	}
	for i := range apps {
		if err := repo.SaveApplication(ctx, &apps[i]); err != nil {
			t.Fatalf("SaveApplication: %v", err)
		}
	}

	found, err := repo.FindApplicationByUserAndJob(ctx, "u1", "remoteok:2")
	if err != nil {
		t.Fatalf("FindApplicationByUserAndJob: %v", err)
	}
	if found.ID != "a2" {
		t.Errorf("found id = %q, want a2", found.ID)
	}

	pending, err := repo.ListApplications(ctx, "u1", []models.ApplicationStatus{models.StatusPending})
	if err != nil {
		t.Fatalf("ListApplications: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "a1" {
		t.Errorf("pending = %v", pending)
	}

	all, err := repo.ListApplications(ctx, "u1", nil)
	if err != nil {
		t.Fatalf("ListApplications(nil): %v", err)
	}
	if len(all) != 2 {
		t.Errorf("got %d applications for u1, want 2", len(all))
	}
}
