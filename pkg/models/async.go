package models

import (
	"time"
)

// AsyncStatus represents the status of an async operation
type AsyncStatus string

const (
	AsyncStatusAccepted   AsyncStatus = "ACCEPTED"
	AsyncStatusProcessing AsyncStatus = "PROCESSING"
	AsyncStatusSuccess    AsyncStatus = "SUCCESS"
	AsyncStatusFailure    AsyncStatus = "FAILURE"
)

// AsyncBulkApplyResponse represents the immediate response from the async
// bulk-apply endpoint
type AsyncBulkApplyResponse struct {
	ProcessID string      `json:"processId"`
	Status    AsyncStatus `json:"status"`
	Message   string      `json:"message"`
	Timestamp time.Time   `json:"timestamp"`
}

// AsyncTaskStatusResponse represents the response for task status queries
type AsyncTaskStatusResponse struct {
	ProcessID      string         `json:"processId"`
	Status         AsyncStatus    `json:"status"`
	Data           interface{}    `json:"data,omitempty"`
	Error          string         `json:"error,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	CompletedAt    *time.Time     `json:"completedAt,omitempty"`
	ProcessingTime *time.Duration `json:"processingTime,omitempty"`
}

// AsyncBulkApplyCompletionData is the completion payload for bulk-apply tasks
type AsyncBulkApplyCompletionData struct {
	Applications []Application `json:"applications"`
	Total        int           `json:"total"`
}

// AsyncErrorResponse represents an error response for async operations
type AsyncErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	ProcessID string    `json:"processId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// CreateAsyncErrorResponse creates an async error response. The optional
// trailing argument carries the process id when one was already assigned.
func CreateAsyncErrorResponse(errorCode, message string, processID ...string) *AsyncErrorResponse {
	resp := &AsyncErrorResponse{
		Error:     errorCode,
		Message:   message,
		Timestamp: time.Now(),
	}
	if len(processID) > 0 {
		resp.ProcessID = processID[0]
	}
	return resp
}

// CreateAsyncBulkApplyResponse creates a successful async bulk-apply response
func CreateAsyncBulkApplyResponse(processID string) *AsyncBulkApplyResponse {
	return &AsyncBulkApplyResponse{
		ProcessID: processID,
		Status:    AsyncStatusAccepted,
		Message:   "Bulk apply request accepted for background processing",
		Timestamp: time.Now(),
	}
}

// IsCompleted checks if the async task has completed (success or failure)
func (r *AsyncTaskStatusResponse) IsCompleted() bool {
	return r.Status == AsyncStatusSuccess || r.Status == AsyncStatusFailure
}
