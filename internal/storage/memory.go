package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"autoapply/pkg/models"
)

// MemoryRepository is the mutex-guarded in-memory Repository. It backs tests
// and single-instance deployments without a DATABASE_URL.
type MemoryRepository struct {
	mu           sync.RWMutex
	profiles     map[string]models.Profile          // userID -> profile
	postings     map[string]map[string]models.Posting // userID -> jobID -> posting
	applications map[string]models.Application      // application id -> application
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		profiles:     make(map[string]models.Profile),
		postings:     make(map[string]map[string]models.Posting),
		applications: make(map[string]models.Application),
	}
}

func (r *MemoryRepository) SaveProfile(ctx context.Context, profile *models.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[profile.UserID] = *profile
	return nil
}

func (r *MemoryRepository) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	profile, ok := r.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	out := profile
	return &out, nil
}

func (r *MemoryRepository) SavePostings(ctx context.Context, userID string, postings []models.Posting) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	byJob, ok := r.postings[userID]
	if !ok {
		byJob = make(map[string]models.Posting)
		r.postings[userID] = byJob
	}
	for _, p := range postings {
		byJob[p.ID()] = p
	}
	return nil
}

func (r *MemoryRepository) GetPosting(ctx context.Context, userID, jobID string) (*models.Posting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	posting, ok := r.postings[userID][jobID]
	if !ok {
		return nil, ErrNotFound
	}
	out := posting
	return &out, nil
}

func (r *MemoryRepository) SaveApplication(ctx context.Context, app *models.Application) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	app.UpdatedAt = time.Now()
	if app.CreatedAt.IsZero() {
		app.CreatedAt = app.UpdatedAt
	}
	r.applications[app.ID] = *app
	return nil
}

func (r *MemoryRepository) GetApplication(ctx context.Context, id string) (*models.Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	app, ok := r.applications[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := app
	return &out, nil
}

func (r *MemoryRepository) FindApplicationByUserAndJob(ctx context.Context, userID, jobID string) (*models.Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, app := range r.applications {
		if app.UserID == userID && app.JobID == jobID {
			out := app
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) ListApplications(ctx context.Context, userID string, statuses []models.ApplicationStatus) ([]models.Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[models.ApplicationStatus]bool, len(statuses))
	for _, s := range statuses {
		wanted[s] = true
	}

	var out []models.Application
	for _, app := range r.applications {
		if app.UserID != userID {
			continue
		}
		if len(wanted) > 0 && !wanted[app.Status] {
			continue
		}
		out = append(out, app)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	return out, nil
}

func (r *MemoryRepository) Ping(ctx context.Context) error {
	return nil
}

func (r *MemoryRepository) Close() {}

var _ Repository = (*MemoryRepository)(nil)
