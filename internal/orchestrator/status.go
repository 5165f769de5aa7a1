package orchestrator

import (
	"fmt"

	"autoapply/pkg/models"
)

// validTransitions encodes the application lifecycle:
//
//	pending ──> applying ──> applied
//	   │            │──────> email_ready ──> applied
//	   │            └──────> failed ──> applying (retry)
//	   └──> applied (mark-emailed on a pending record)
//
// applied is terminal. Everything else is rejected.
var validTransitions = map[models.ApplicationStatus][]models.ApplicationStatus{
	models.StatusPending:    {models.StatusApplying, models.StatusApplied},
	models.StatusApplying:   {models.StatusApplied, models.StatusEmailReady, models.StatusFailed},
	models.StatusEmailReady: {models.StatusApplied},
	models.StatusFailed:     {models.StatusApplying},
	models.StatusApplied:    {},
}

// ParseStatus validates a raw status string
func ParseStatus(raw string) (models.ApplicationStatus, error) {
	status := models.ApplicationStatus(raw)
	if _, ok := validTransitions[status]; !ok {
		return "", fmt.Errorf("unknown application status: %q", raw)
	}
	return status, nil
}

// IsTransitionAllowed reports whether from -> to is a legal lifecycle step
func IsTransitionAllowed(from, to models.ApplicationStatus) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a status has no outgoing transitions
func IsTerminal(status models.ApplicationStatus) bool {
	return len(validTransitions[status]) == 0
}

// transition moves an application to the next status, enforcing the state
// machine. The applying status is re-enterable in place so an attempt
// interrupted mid-flight can resume.
func transition(app *models.Application, to models.ApplicationStatus) error {
	if app.Status == to && to == models.StatusApplying {
		return nil
	}
	if !IsTransitionAllowed(app.Status, to) {
		return fmt.Errorf("illegal status transition %s -> %s for application %s", app.Status, to, app.ID)
	}
	app.Status = to
	return nil
}
