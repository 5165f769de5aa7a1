package storage

import (
	"context"
	"errors"

	"autoapply/pkg/models"
)

// ErrNotFound is returned when a requested record does not exist. Callers
// check it with errors.Is.
var ErrNotFound = errors.New("record not found")

// Repository persists profiles, the postings a user's searches surfaced, and
// applications. Implementations must keep at most one application per
// (user, job) pair.
type Repository interface {
	// Profiles
	SaveProfile(ctx context.Context, profile *models.Profile) error
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)

	// Postings, scoped per user so two users searching the same board do
	// not share mutable state
	SavePostings(ctx context.Context, userID string, postings []models.Posting) error
	GetPosting(ctx context.Context, userID, jobID string) (*models.Posting, error)

	// Applications
	SaveApplication(ctx context.Context, app *models.Application) error
	GetApplication(ctx context.Context, id string) (*models.Application, error)
	FindApplicationByUserAndJob(ctx context.Context, userID, jobID string) (*models.Application, error)
	ListApplications(ctx context.Context, userID string, statuses []models.ApplicationStatus) ([]models.Application, error)

	// Healthcheck
	Ping(ctx context.Context) error
	Close()
}
