package sync

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrJobNotFound       = errors.New("sync: job not found")
	ErrJobNotCancellable = errors.New("sync: only a queued job can be cancelled")
	ErrJobInvalidState   = errors.New("sync: invalid job state transition")
)

// JobStatus represents the lifecycle state of a background sync run
type JobStatus string

const (
	// JobStatusQueued indicates the run has been accepted but not started
	JobStatusQueued JobStatus = "QUEUED"
	// JobStatusRunning indicates the run is in flight
	JobStatusRunning JobStatus = "RUNNING"
	// JobStatusCompleted indicates the run finished (possibly with per-item errors)
	JobStatusCompleted JobStatus = "COMPLETED"
	// JobStatusFailed indicates the run aborted on an unexpected error
	JobStatusFailed JobStatus = "FAILED"
	// JobStatusCancelled indicates a queued run was cancelled before starting.
	// An in-flight run cannot be interrupted.
	JobStatusCancelled JobStatus = "CANCELLED"
)

// IsValid returns true if the status is valid
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusQueued, JobStatusRunning, JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if the status is a final state
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// SyncJob wraps one synchronization run with background job tracking
type SyncJob struct {
	// ID is the job identifier returned to the caller on submission
	ID uuid.UUID
	// Request is the submitted sync request
	Request SyncRequest
	// Status is the current lifecycle state
	Status JobStatus
	// Result holds the structured outcome once the run completed
	Result *SyncResult
	// ErrorMessage holds the abort reason when Status is FAILED
	ErrorMessage string
	// CreatedAt is when the job was submitted
	CreatedAt time.Time
	// StartedAt is when the run left the queue
	StartedAt *time.Time
	// FinishedAt is when the run reached a terminal state
	FinishedAt *time.Time
}

// NewSyncJob creates a queued job for the given request
func NewSyncJob(req SyncRequest) *SyncJob {
	return &SyncJob{
		ID:        uuid.New(),
		Request:   req,
		Status:    JobStatusQueued,
		CreatedAt: time.Now(),
	}
}

// Start transitions the job from queued to running
func (j *SyncJob) Start() error {
	if j.Status != JobStatusQueued {
		return ErrJobInvalidState
	}
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
	return nil
}

// Complete records the run result. The job completes even when the result
// carries per-item errors; FAILED is reserved for unexpected aborts.
func (j *SyncJob) Complete(result *SyncResult) error {
	if j.Status != JobStatusRunning {
		return ErrJobInvalidState
	}
	now := time.Now()
	j.Status = JobStatusCompleted
	j.Result = result
	j.FinishedAt = &now
	return nil
}

// Fail records an unexpected abort
func (j *SyncJob) Fail(reason string) error {
	if j.Status != JobStatusRunning && j.Status != JobStatusQueued {
		return ErrJobInvalidState
	}
	now := time.Now()
	j.Status = JobStatusFailed
	j.ErrorMessage = reason
	j.FinishedAt = &now
	return nil
}

// Cancel prevents a still-queued run from starting
func (j *SyncJob) Cancel() error {
	if j.Status != JobStatusQueued {
		return ErrJobNotCancellable
	}
	now := time.Now()
	j.Status = JobStatusCancelled
	j.FinishedAt = &now
	return nil
}

// SyncJobRepository persists job records for the status surface
type SyncJobRepository interface {
	// Save creates or updates a job record
	Save(ctx context.Context, job *SyncJob) error

	// FindByID retrieves a job by its identifier
	FindByID(ctx context.Context, id uuid.UUID) (*SyncJob, error)

	// FindRecent lists the most recently submitted jobs
	FindRecent(ctx context.Context, limit int) ([]SyncJob, error)
}
