package models

import "time"

// SourceFailureInfo reports a source adapter that failed during a search.
type SourceFailureInfo struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

// SearchResponse represents the response from a job search request
type SearchResponse struct {
	Success         bool                `json:"success"`
	TotalFound      int                 `json:"total_found"`
	Postings        []RankedPosting     `json:"postings"`
	PartialFailures []SourceFailureInfo `json:"partial_failures,omitempty"`
	ProcessingTime  time.Duration       `json:"processing_time"`
	RequestID       string              `json:"request_id"`
}

// BulkApplyResponse represents the response from a bulk apply request
type BulkApplyResponse struct {
	Success        bool          `json:"success"`
	Total          int           `json:"total"`
	Applications   []Application `json:"applications"`
	ProcessingTime time.Duration `json:"processing_time"`
	RequestID      string        `json:"request_id"`
}

// ApplicationListResponse represents the response listing a user's applications
type ApplicationListResponse struct {
	Success      bool          `json:"success"`
	Total        int           `json:"total"`
	Applications []Application `json:"applications"`
	RequestID    string        `json:"request_id"`
}

// ProfileResponse represents the response from a resume upload
type ProfileResponse struct {
	Success   bool     `json:"success"`
	Profile   *Profile `json:"profile,omitempty"`
	RequestID string   `json:"request_id"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Uptime    time.Duration     `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}
