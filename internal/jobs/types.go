// Package jobs runs the bridge's background work: deploy jobs and the
// module cleanup that reconciliation schedules. Jobs are fire-and-forget;
// callers observe completion through state queries.
package jobs

import (
	"context"
	"time"
)

// JobID uniquely identifies a job.
type JobID string

// JobStatus represents the current state of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

const (
	// DeployJobType deploys added units in the background.
	DeployJobType = "deploy-modules"

	// CleanupJobType removes modules whose remote application disappeared.
	CleanupJobType = "module-cleanup"
)

// Job represents one background operation.
type Job struct {
	ID        JobID     `json:"id"`
	Type      string    `json:"type"`
	Status    JobStatus `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	cancel context.CancelFunc
}

// IsTerminal returns true if the job is in a terminal state.
func (j *Job) IsTerminal() bool {
	switch j.Status {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}
