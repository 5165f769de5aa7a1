package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"autoapply/internal/applicator"
	"autoapply/internal/email"
	"autoapply/internal/locks"
	"autoapply/internal/logging"
	"autoapply/internal/storage"
	"autoapply/pkg/models"
)

// Config tunes the orchestrator worker pool and retry behavior.
type Config struct {
	PoolSize       int           // concurrent application attempts
	AttemptTimeout time.Duration // per-attempt deadline
	MaxRetries     int           // extra attempts after a transient failure
}

// Orchestrator drives bulk application runs: a bounded worker pool walks the
// requested jobs, each job's attempt serialized by a per-(user,job) advisory
// lock and recorded through the application state machine. Re-running a
// batch is safe: settled applications are returned as-is, failed ones are
// retried.
type Orchestrator struct {
	repo        storage.Repository
	locks       locks.Manager
	applicators *applicator.Registry
	emails      *email.Generator
	cfg         Config
	logger      logging.Logger
}

// New creates an orchestrator
func New(repo storage.Repository, lockMgr locks.Manager, applicators *applicator.Registry, emails *email.Generator, cfg Config) *Orchestrator {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 5
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Orchestrator{
		repo:        repo,
		locks:       lockMgr,
		applicators: applicators,
		emails:      emails,
		cfg:         cfg,
		logger:      logging.GetGlobalLogger(),
	}
}

// BulkApply applies to every job in jobIDs on behalf of the user. The result
// has exactly one entry per distinct input id, in input order. Unknown job
// ids fail the whole batch before any application work starts; per-job
// failures are folded into that job's application record instead.
func (o *Orchestrator) BulkApply(ctx context.Context, userID string, jobIDs []string) ([]models.Application, error) {
	profile, err := o.repo.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("no profile for user %s: %w", userID, err)
		}
		return nil, err
	}

	// Dedupe input ids, first occurrence wins
	seen := make(map[string]bool, len(jobIDs))
	ids := make([]string, 0, len(jobIDs))
	for _, id := range jobIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}

	// Resolve every posting before spending any attempts
	postings := make([]*models.Posting, len(ids))
	for i, id := range ids {
		posting, err := o.repo.GetPosting(ctx, userID, id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, fmt.Errorf("job %s: %w", id, err)
			}
			return nil, err
		}
		postings[i] = posting
	}

	results := make([]models.Application, len(ids))
	jobs := make(chan int)
	var wg sync.WaitGroup

	workers := o.cfg.PoolSize
	if workers > len(ids) {
		workers = len(ids)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = o.applyOne(ctx, userID, profile, postings[i])
			}
		}()
	}

	for i := range ids {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results, nil
}

// applyOne runs one application attempt end to end under the job's advisory
// lock. It never returns an error: infrastructure failures leave the stored
// record untouched and surface through the Error field of the returned copy.
func (o *Orchestrator) applyOne(ctx context.Context, userID string, profile *models.Profile, posting *models.Posting) models.Application {
	jobID := posting.ID()
	log := o.logger.WithFields(map[string]interface{}{
		"user_id": userID,
		"job_id":  jobID,
	})

	release, err := o.locks.Acquire(ctx, userID+":"+jobID)
	if err != nil {
		log.Warn("Could not acquire application lock", map[string]interface{}{"error": err.Error()})
		return o.currentOrPlaceholder(ctx, userID, posting, err)
	}
	defer release()

	app, err := o.repo.FindApplicationByUserAndJob(ctx, userID, jobID)
	if errors.Is(err, storage.ErrNotFound) {
		app = &models.Application{
			ID:         uuid.New().String(),
			UserID:     userID,
			JobID:      jobID,
			JobTitle:   posting.Title,
			Company:    posting.Company,
			Status:     models.StatusPending,
			MatchScore: posting.MatchScore,
		}
		if err := o.repo.SaveApplication(ctx, app); err != nil {
			log.Error("Failed to create application record", map[string]interface{}{"error": err.Error()})
			return o.currentOrPlaceholder(ctx, userID, posting, err)
		}
	} else if err != nil {
		log.Error("Failed to load application record", map[string]interface{}{"error": err.Error()})
		return o.currentOrPlaceholder(ctx, userID, posting, err)
	}

	// Settled applications are a no-op; the stored record is the answer
	if app.Status == models.StatusApplied || app.Status == models.StatusEmailReady {
		return *app
	}

	// Cancellation before the attempt starts leaves the record as it was
	if ctx.Err() != nil {
		return *app
	}

	if err := transition(app, models.StatusApplying); err != nil {
		log.Error("Refusing application attempt", map[string]interface{}{"error": err.Error()})
		app.Error = err.Error()
		return *app
	}
	app.Error = ""
	if err := o.repo.SaveApplication(ctx, app); err != nil {
		log.Error("Failed to persist applying status", map[string]interface{}{"error": err.Error()})
		return *app
	}

	ap := o.applicators.Get(posting.Source)
	if ap == nil {
		// No direct-submit support for this board: prepare the email instead
		o.settleEmailReady(ctx, app, posting, profile, log)
		return *app
	}

	outcome, err := o.attemptWithRetry(ctx, ap, posting, profile)
	switch {
	case err == nil && outcome == applicator.OutcomeApplied:
		o.settleApplied(ctx, app, log)
	case err == nil && outcome == applicator.OutcomeEmailReady:
		o.settleEmailReady(ctx, app, posting, profile, log)
	default:
		if err == nil {
			err = fmt.Errorf("applicator returned unknown outcome %q", outcome)
		}
		if terr := transition(app, models.StatusFailed); terr != nil {
			log.Error("Failed status transition after attempt", map[string]interface{}{"error": terr.Error()})
		}
		app.Error = err.Error()
		if serr := o.repo.SaveApplication(ctx, app); serr != nil {
			log.Error("Failed to persist failed status", map[string]interface{}{"error": serr.Error()})
		}
		log.Warn("Application attempt failed", map[string]interface{}{"error": err.Error()})
	}

	return *app
}

// attemptWithRetry drives the applicator with a per-attempt deadline.
// Transient failures are retried up to MaxRetries extra times; permanent
// failures and unclassified errors stop immediately.
func (o *Orchestrator) attemptWithRetry(ctx context.Context, ap applicator.Applicator, posting *models.Posting, profile *models.Profile) (applicator.Outcome, error) {
	var lastErr error

	for attempt := 0; attempt <= o.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return "", lastErr
			}
			return "", err
		}

		attemptCtx, cancel := context.WithTimeout(ctx, o.cfg.AttemptTimeout)
		outcome, err := ap.Apply(attemptCtx, posting, profile)
		cancel()

		if err == nil {
			return outcome, nil
		}
		if !isTransient(err) {
			return "", err
		}
		lastErr = err
	}

	return "", fmt.Errorf("retries exhausted: %w", lastErr)
}

func (o *Orchestrator) settleApplied(ctx context.Context, app *models.Application, log logging.Logger) {
	if err := transition(app, models.StatusApplied); err != nil {
		log.Error("Applied transition rejected", map[string]interface{}{"error": err.Error()})
		return
	}
	now := time.Now()
	app.AppliedAt = &now
	app.Error = ""
	if err := o.repo.SaveApplication(ctx, app); err != nil {
		log.Error("Failed to persist applied status", map[string]interface{}{"error": err.Error()})
	}
}

func (o *Orchestrator) settleEmailReady(ctx context.Context, app *models.Application, posting *models.Posting, profile *models.Profile, log logging.Logger) {
	msg := o.emails.Generate(posting, profile)
	app.EmailTo = msg.To
	app.EmailSubject = msg.Subject
	app.EmailBody = msg.Body

	if err := transition(app, models.StatusEmailReady); err != nil {
		log.Error("Email-ready transition rejected", map[string]interface{}{"error": err.Error()})
		return
	}
	app.Error = ""
	if err := o.repo.SaveApplication(ctx, app); err != nil {
		log.Error("Failed to persist email_ready status", map[string]interface{}{"error": err.Error()})
	}
}

// MarkEmailed records that the prepared email for an application was sent,
// moving it to applied.
func (o *Orchestrator) MarkEmailed(ctx context.Context, applicationID string) (*models.Application, error) {
	app, err := o.repo.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	release, err := o.locks.Acquire(ctx, app.UserID+":"+app.JobID)
	if err != nil {
		return nil, err
	}
	defer release()

	// Re-read under the lock
	app, err = o.repo.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.Status == models.StatusApplied {
		return app, nil
	}

	if err := transition(app, models.StatusApplied); err != nil {
		return nil, err
	}
	now := time.Now()
	app.AppliedAt = &now
	if err := o.repo.SaveApplication(ctx, app); err != nil {
		return nil, err
	}
	return app, nil
}

// currentOrPlaceholder returns the stored application if one exists, or a
// pending placeholder so the batch result still carries one entry for the
// job.
func (o *Orchestrator) currentOrPlaceholder(ctx context.Context, userID string, posting *models.Posting, cause error) models.Application {
	if app, err := o.repo.FindApplicationByUserAndJob(ctx, userID, posting.ID()); err == nil {
		return *app
	}
	return models.Application{
		UserID:     userID,
		JobID:      posting.ID(),
		JobTitle:   posting.Title,
		Company:    posting.Company,
		Status:     models.StatusPending,
		MatchScore: posting.MatchScore,
		Error:      cause.Error(),
	}
}

// isTransient mirrors the applicator error taxonomy: explicit transient
// errors, deadline expiry, and network timeouts are retryable.
func isTransient(err error) bool {
	var transient *applicator.TransientError
	if errors.As(err, &transient) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
