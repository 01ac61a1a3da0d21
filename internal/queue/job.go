// Package queue implements the in-memory priority job queue that drives the
// discovery, evaluation, aggregation and sync stages.
//
// Jobs are owned exclusively by the queue; only the processing loop mutates
// them. Dispatch is by job type through a registered Handler (a dispatch
// table, not an event emitter), so an unknown job type is a hard failure
// rather than a silently dropped event.
package queue

import (
	"context"
	"time"
)

// Priority controls dequeue order. Lower value is served first.
type Priority int

const (
	PriorityHigh   Priority = 1
	PriorityNormal Priority = 2
	PriorityLow    Priority = 3
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusRetrying   Status = "RETRYING"
)

// Job is a unit of queued work with retry state.
type Job struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Priority     Priority       `json:"priority"`
	Status       Status         `json:"status"`
	Payload      map[string]any `json:"payload"`
	Attempts     int            `json:"attempts"`
	MaxAttempts  int            `json:"maxAttempts"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	ScheduledFor *time.Time     `json:"scheduledFor,omitempty"`
	Result       any            `json:"result,omitempty"`
	Error        string         `json:"error,omitempty"`
}

// Handler executes one job type. Returning a wrapped errs.TransientError
// triggers the backoff policy; a ValidationError fails the job immediately.
type Handler interface {
	Handle(ctx context.Context, job *Job) (any, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, job *Job) (any, error)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, job *Job) (any, error) {
	return f(ctx, job)
}

// Stats is a read-only snapshot of queue health for the reporting surface.
type Stats struct {
	Pending         int     `json:"pending"`
	Processing      int     `json:"processing"`
	Retrying        int     `json:"retrying"`
	Completed       int     `json:"completed"`
	Failed          int     `json:"failed"`
	SuccessRate     float64 `json:"successRate"`     // completed / (completed+failed)
	AvgProcessingMs float64 `json:"avgProcessingMs"` // over completed jobs
}
