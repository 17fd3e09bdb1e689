package entity

import "time"

// Build job statuses
const (
	BuildJobQueued    = "QUEUED"
	BuildJobRunning   = "RUNNING"
	BuildJobSucceeded = "SUCCEEDED"
	BuildJobFailed    = "FAILED"
)

// BuildJob records one dispatched Phase 2 build
type BuildJob struct {
	ID        uint      `json:"id"`
	TaskID    string    `json:"task_id"`
	Type      string    `json:"type"`
	QueueName string    `json:"queue_name"`
	Payload   string    `json:"-"`
	TripID    string    `json:"trip_id"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
