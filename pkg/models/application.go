package models

import "time"

// ApplicationStatus is the lifecycle state of a job application. Transitions
// between statuses are enforced by the orchestrator package.
type ApplicationStatus string

const (
	StatusPending    ApplicationStatus = "pending"
	StatusApplying   ApplicationStatus = "applying"
	StatusApplied    ApplicationStatus = "applied"
	StatusEmailReady ApplicationStatus = "email_ready"
	StatusFailed     ApplicationStatus = "failed"
)

// Application is one user's application to one posting. There is at most one
// Application per (UserID, JobID) pair.
type Application struct {
	ID           string            `json:"id"`
	UserID       string            `json:"user_id"`
	JobID        string            `json:"job_id"`
	JobTitle     string            `json:"job_title"`
	Company      string            `json:"company"`
	Status       ApplicationStatus `json:"status"`
	MatchScore   float64           `json:"match_score,omitempty"`
	Error        string            `json:"error,omitempty"`
	EmailTo      string            `json:"email_to,omitempty"`
	EmailSubject string            `json:"email_subject,omitempty"`
	EmailBody    string            `json:"email_body,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	AppliedAt    *time.Time        `json:"applied_at,omitempty"`
}
