package applicator

import (
	"context"
	"fmt"

	"autoapply/pkg/models"
)

// Outcome is the terminal result of a successful application attempt.
type Outcome string

const (
	// OutcomeApplied means the form was submitted on the board directly
	OutcomeApplied Outcome = "applied"
	// OutcomeEmailReady means the board takes applications by email; the
	// orchestrator prepares the message instead
	OutcomeEmailReady Outcome = "email_ready"
)

// Applicator submits one application for one posting. Implementations wrap
// failures in TransientError or PermanentError so the orchestrator knows
// whether a retry can help.
type Applicator interface {
	Apply(ctx context.Context, posting *models.Posting, profile *models.Profile) (Outcome, error)
}

// TransientError marks a failure worth retrying: timeouts, flaky upstreams,
// rate limits.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// PermanentError marks a failure no retry will fix: closed posting,
// unsupported form, rejected submission.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent: %v", e.Err)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Registry maps source names to their applicator. Sources without one fall
// through to the email path in the orchestrator.
type Registry struct {
	applicators map[string]Applicator
}

// NewRegistry creates an empty applicator registry
func NewRegistry() *Registry {
	return &Registry{
		applicators: make(map[string]Applicator),
	}
}

// Register installs the applicator for a source, replacing any previous one
func (r *Registry) Register(source string, a Applicator) {
	r.applicators[source] = a
}

// Get returns the applicator for a source, or nil when the source has none
func (r *Registry) Get(source models.JobSource) Applicator {
	return r.applicators[string(source)]
}
