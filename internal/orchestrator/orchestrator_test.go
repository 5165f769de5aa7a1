package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"autoapply/internal/applicator"
	"autoapply/internal/email"
	"autoapply/internal/locks"
	"autoapply/internal/storage"
	"autoapply/pkg/models"
)

type fakeApplicator struct {
	outcome applicator.Outcome
	errs    []error // consumed one per attempt, nil entry means success
	calls   int
}

func (f *fakeApplicator) Apply(ctx context.Context, posting *models.Posting, profile *models.Profile) (applicator.Outcome, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return "", err
		}
	}
	return f.outcome, nil
}

func testHarness(t *testing.T, applicators *applicator.Registry) (*Orchestrator, storage.Repository) {
	t.Helper()
	repo := storage.NewMemoryRepository()
	if applicators == nil {
		applicators = applicator.NewRegistry()
	}
	o := New(repo, locks.NewMemoryManager(), applicators, email.NewGenerator(), Config{
		PoolSize:       3,
		AttemptTimeout: time.Second,
		MaxRetries:     1,
	})
	return o, repo
}

func seedProfile(t *testing.T, repo storage.Repository, userID string) {
	t.Helper()
	err := repo.SaveProfile(context.Background(), &models.Profile{
		UserID:  userID,
		Contact: models.Contact{Name: "Dana Smith", Email: "dana@example.com"},
		Skills:  []string{"Go", "Kubernetes"},
	})
	if err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}
}

func seedPostings(t *testing.T, repo storage.Repository, userID string, postings ...models.Posting) {
	t.Helper()
	if err := repo.SavePostings(context.Background(), userID, postings); err != nil {
		t.Fatalf("SavePostings: %v", err)
	}
}

func TestBulkApplyEmailFallback(t *testing.T) {
	// No applicator registered for the source, so the run should settle in
	// email_ready with a generated message.
	o, repo := testHarness(t, nil)
	seedProfile(t, repo, "u1")
	seedPostings(t, repo, "u1", models.Posting{
		ExternalID:   "101",
		Source:       models.SourceRemotive,
		Title:        "Backend Engineer",
		Company:      "Acme",
		ContactEmail: "jobs@acme.com",
		MatchScore:   87.5,
	})

	apps, err := o.BulkApply(context.Background(), "u1", []string{"remotive:101"})
	if err != nil {
		t.Fatalf("BulkApply: %v", err)
	}
	if len(apps) != 1 {
		t.Fatalf("expected 1 application, got %d", len(apps))
	}

	app := apps[0]
	if app.Status != models.StatusEmailReady {
		t.Errorf("status = %s, want email_ready", app.Status)
	}
	if app.EmailTo != "jobs@acme.com" {
		t.Errorf("EmailTo = %q", app.EmailTo)
	}
	if !strings.Contains(app.EmailSubject, "Backend Engineer") {
		t.Errorf("subject %q should name the role", app.EmailSubject)
	}
	if app.MatchScore != 87.5 {
		t.Errorf("MatchScore = %v", app.MatchScore)
	}

	stored, err := repo.GetApplication(context.Background(), app.ID)
	if err != nil {
		t.Fatalf("GetApplication: %v", err)
	}
	if stored.Status != models.StatusEmailReady {
		t.Errorf("stored status = %s", stored.Status)
	}
}

func TestBulkApplyDirectSubmit(t *testing.T) {
	fake := &fakeApplicator{outcome: applicator.OutcomeApplied}
	reg := applicator.NewRegistry()
	reg.Register("remoteok", fake)

	o, repo := testHarness(t, reg)
	seedProfile(t, repo, "u1")
	seedPostings(t, repo, "u1", models.Posting{
		ExternalID: "1", Source: models.SourceRemoteOK, Title: "Go Dev", Company: "Acme",
	})

	apps, err := o.BulkApply(context.Background(), "u1", []string{"remoteok:1"})
	if err != nil {
		t.Fatalf("BulkApply: %v", err)
	}
	if apps[0].Status != models.StatusApplied {
		t.Errorf("status = %s, want applied", apps[0].Status)
	}
	if apps[0].AppliedAt == nil {
		t.Error("AppliedAt should be set")
	}
	if fake.calls != 1 {
		t.Errorf("applicator called %d times", fake.calls)
	}
}

func TestBulkApplyTransientRetry(t *testing.T) {
	// One transient failure, then success: MaxRetries=1 covers it.
	fake := &fakeApplicator{
		outcome: applicator.OutcomeApplied,
		errs:    []error{&applicator.TransientError{Err: errors.New("navigation timed out")}, nil},
	}
	reg := applicator.NewRegistry()
	reg.Register("remoteok", fake)

	o, repo := testHarness(t, reg)
	seedProfile(t, repo, "u1")
	seedPostings(t, repo, "u1", models.Posting{
		ExternalID: "1", Source: models.SourceRemoteOK, Title: "Go Dev", Company: "Acme",
	})

	apps, err := o.BulkApply(context.Background(), "u1", []string{"remoteok:1"})
	if err != nil {
		t.Fatalf("BulkApply: %v", err)
	}
	if apps[0].Status != models.StatusApplied {
		t.Errorf("status = %s, want applied after retry", apps[0].Status)
	}
	if fake.calls != 2 {
		t.Errorf("applicator called %d times, want 2", fake.calls)
	}
}

func TestBulkApplyTransientExhausted(t *testing.T) {
	fake := &fakeApplicator{
		errs: []error{
			&applicator.TransientError{Err: errors.New("timeout")},
			&applicator.TransientError{Err: errors.New("timeout")},
			&applicator.TransientError{Err: errors.New("timeout")},
		},
	}
	reg := applicator.NewRegistry()
	reg.Register("remoteok", fake)

	o, repo := testHarness(t, reg)
	seedProfile(t, repo, "u1")
	seedPostings(t, repo, "u1", models.Posting{
		ExternalID: "1", Source: models.SourceRemoteOK, Title: "Go Dev", Company: "Acme",
	})

	apps, err := o.BulkApply(context.Background(), "u1", []string{"remoteok:1"})
	if err != nil {
		t.Fatalf("BulkApply: %v", err)
	}
	if apps[0].Status != models.StatusFailed {
		t.Errorf("status = %s, want failed", apps[0].Status)
	}
	if apps[0].Error == "" {
		t.Error("Error should record the cause")
	}
	// 1 attempt + 1 retry
	if fake.calls != 2 {
		t.Errorf("applicator called %d times, want 2", fake.calls)
	}
}

func TestBulkApplyPermanentNoRetry(t *testing.T) {
	fake := &fakeApplicator{
		errs: []error{&applicator.PermanentError{Err: errors.New("no application form")}},
	}
	reg := applicator.NewRegistry()
	reg.Register("remoteok", fake)

	o, repo := testHarness(t, reg)
	seedProfile(t, repo, "u1")
	seedPostings(t, repo, "u1", models.Posting{
		ExternalID: "1", Source: models.SourceRemoteOK, Title: "Go Dev", Company: "Acme",
	})

	apps, err := o.BulkApply(context.Background(), "u1", []string{"remoteok:1"})
	if err != nil {
		t.Fatalf("BulkApply: %v", err)
	}
	if apps[0].Status != models.StatusFailed {
		t.Errorf("status = %s, want failed", apps[0].Status)
	}
	if fake.calls != 1 {
		t.Errorf("permanent error retried: %d calls", fake.calls)
	}
}

func TestBulkApplyIdempotentOnSettled(t *testing.T) {
	fake := &fakeApplicator{outcome: applicator.OutcomeApplied}
	reg := applicator.NewRegistry()
	reg.Register("remoteok", fake)

	o, repo := testHarness(t, reg)
	seedProfile(t, repo, "u1")
	seedPostings(t, repo, "u1", models.Posting{
		ExternalID: "1", Source: models.SourceRemoteOK, Title: "Go Dev", Company: "Acme",
	})

	if _, err := o.BulkApply(context.Background(), "u1", []string{"remoteok:1"}); err != nil {
		t.Fatalf("first BulkApply: %v", err)
	}
	apps, err := o.BulkApply(context.Background(), "u1", []string{"remoteok:1"})
	if err != nil {
		t.Fatalf("second BulkApply: %v", err)
	}
	if apps[0].Status != models.StatusApplied {
		t.Errorf("status = %s", apps[0].Status)
	}
	if fake.calls != 1 {
		t.Errorf("settled application re-attempted: %d calls", fake.calls)
	}
}

func TestBulkApplyRetriesFailed(t *testing.T) {
	// First run fails permanently; a second run with a working applicator
	// picks the failed record back up.
	fake := &fakeApplicator{
		outcome: applicator.OutcomeApplied,
		errs:    []error{&applicator.PermanentError{Err: errors.New("form missing")}, nil},
	}
	reg := applicator.NewRegistry()
	reg.Register("remoteok", fake)

	o, repo := testHarness(t, reg)
	seedProfile(t, repo, "u1")
	seedPostings(t, repo, "u1", models.Posting{
		ExternalID: "1", Source: models.SourceRemoteOK, Title: "Go Dev", Company: "Acme",
	})

	apps, _ := o.BulkApply(context.Background(), "u1", []string{"remoteok:1"})
	if apps[0].Status != models.StatusFailed {
		t.Fatalf("first run status = %s", apps[0].Status)
	}
	firstID := apps[0].ID

	apps, err := o.BulkApply(context.Background(), "u1", []string{"remoteok:1"})
	if err != nil {
		t.Fatalf("second BulkApply: %v", err)
	}
	if apps[0].Status != models.StatusApplied {
		t.Errorf("retry status = %s, want applied", apps[0].Status)
	}
	if apps[0].ID != firstID {
		t.Errorf("retry created a new record: %s vs %s", apps[0].ID, firstID)
	}
	if apps[0].Error != "" {
		t.Errorf("Error should be cleared after success, got %q", apps[0].Error)
	}
}

func TestBulkApplyOrderAndDedupe(t *testing.T) {
	o, repo := testHarness(t, nil)
	seedProfile(t, repo, "u1")
	seedPostings(t, repo, "u1",
		models.Posting{ExternalID: "1", Source: models.SourceRemotive, Title: "A", Company: "CoA", ContactEmail: "a@coa.com"},
		models.Posting{ExternalID: "2", Source: models.SourceRemotive, Title: "B", Company: "CoB", ContactEmail: "b@cob.com"},
		models.Posting{ExternalID: "3", Source: models.SourceRemotive, Title: "C", Company: "CoC", ContactEmail: "c@coc.com"},
	)

	apps, err := o.BulkApply(context.Background(), "u1", []string{
		"remotive:2", "remotive:1", "remotive:2", "remotive:3", "remotive:1",
	})
	if err != nil {
		t.Fatalf("BulkApply: %v", err)
	}
	if len(apps) != 3 {
		t.Fatalf("expected 3 applications, got %d", len(apps))
	}
	wantOrder := []string{"remotive:2", "remotive:1", "remotive:3"}
	for i, want := range wantOrder {
		if apps[i].JobID != want {
			t.Errorf("apps[%d].JobID = %s, want %s", i, apps[i].JobID, want)
		}
	}
}

func TestBulkApplyUnknownJob(t *testing.T) {
	o, repo := testHarness(t, nil)
	seedProfile(t, repo, "u1")

	_, err := o.BulkApply(context.Background(), "u1", []string{"remotive:999"})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestBulkApplyMissingProfile(t *testing.T) {
	o, _ := testHarness(t, nil)

	_, err := o.BulkApply(context.Background(), "ghost", []string{"remotive:1"})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMarkEmailed(t *testing.T) {
	o, repo := testHarness(t, nil)
	seedProfile(t, repo, "u1")
	seedPostings(t, repo, "u1", models.Posting{
		ExternalID: "1", Source: models.SourceRemotive, Title: "A", Company: "CoA", ContactEmail: "a@coa.com",
	})

	apps, err := o.BulkApply(context.Background(), "u1", []string{"remotive:1"})
	if err != nil {
		t.Fatalf("BulkApply: %v", err)
	}
	if apps[0].Status != models.StatusEmailReady {
		t.Fatalf("status = %s", apps[0].Status)
	}

	app, err := o.MarkEmailed(context.Background(), apps[0].ID)
	if err != nil {
		t.Fatalf("MarkEmailed: %v", err)
	}
	if app.Status != models.StatusApplied {
		t.Errorf("status = %s, want applied", app.Status)
	}
	if app.AppliedAt == nil {
		t.Error("AppliedAt should be set")
	}

	// Second call is a no-op
	again, err := o.MarkEmailed(context.Background(), apps[0].ID)
	if err != nil {
		t.Fatalf("second MarkEmailed: %v", err)
	}
	if again.Status != models.StatusApplied {
		t.Errorf("status = %s", again.Status)
	}
}

func TestMarkEmailedUnknownApplication(t *testing.T) {
	o, _ := testHarness(t, nil)
	if _, err := o.MarkEmailed(context.Background(), "nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestBulkApplyConcurrentSameJobSingleRow(t *testing.T) {
	// Racing callers on the same (user, job) must settle on one persisted
	// application, with every caller handed the same record.
	o, repo := testHarness(t, nil)
	seedProfile(t, repo, "u1")
	seedPostings(t, repo, "u1", models.Posting{
		ExternalID:   "1",
		Source:       models.SourceRemotive,
		Title:        "Go Dev",
		Company:      "Acme",
		ContactEmail: "jobs@acme.com",
	})

	const callers = 8
	ids := make([]string, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			apps, err := o.BulkApply(context.Background(), "u1", []string{"remotive:1"})
			if err != nil {
				errs[i] = err
				return
			}
			if len(apps) == 1 {
				ids[i] = apps[0].ID
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if ids[i] == "" || ids[i] != ids[0] {
			t.Errorf("caller %d got application %q, want %q", i, ids[i], ids[0])
		}
	}

	stored, err := repo.ListApplications(context.Background(), "u1", nil)
	if err != nil {
		t.Fatalf("ListApplications: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("expected a single persisted application, got %d", len(stored))
	}
	if stored[0].Status != models.StatusEmailReady {
		t.Errorf("status = %s, want email_ready", stored[0].Status)
	}
}
