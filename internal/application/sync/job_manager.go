package sync

import (
	"context"
	stdsync "sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domain "github.com/engagesync/backend/internal/domain/sync"
)

// DefaultJobTimeout bounds one background sync run
const DefaultJobTimeout = 30 * time.Minute

// maxRetainedJobs caps the in-memory job map. Terminal jobs beyond the cap
// are evicted oldest-first; Get falls back to the repository for them.
const maxRetainedJobs = 128

// JobManager is the background job wrapper around the orchestrator. Submit
// returns a job ID immediately and the run executes on its own goroutine.
// Cancellation only prevents a still-queued run from starting; an in-flight
// run always completes (possibly with per-item errors).
type JobManager struct {
	orchestrator *Orchestrator
	repo         domain.SyncJobRepository
	timeout      time.Duration
	logger       *zap.Logger

	mu       stdsync.Mutex
	jobs     map[uuid.UUID]*domain.SyncJob
	terminal []uuid.UUID
	wg       stdsync.WaitGroup
}

// NewJobManager creates a job manager. repo may be nil for in-memory-only
// job tracking.
func NewJobManager(orchestrator *Orchestrator, repo domain.SyncJobRepository, timeout time.Duration, logger *zap.Logger) *JobManager {
	if timeout <= 0 {
		timeout = DefaultJobTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobManager{
		orchestrator: orchestrator,
		repo:         repo,
		timeout:      timeout,
		logger:       logger,
		jobs:         make(map[uuid.UUID]*domain.SyncJob),
	}
}

// Submit validates the request, queues a job and starts it in the background.
// Validation failures are returned synchronously; nothing is queued.
func (m *JobManager) Submit(ctx context.Context, req domain.SyncRequest) (uuid.UUID, error) {
	if err := req.Validate(); err != nil {
		return uuid.Nil, err
	}

	job := domain.NewSyncJob(req)

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()
	m.persist(ctx, job)

	m.wg.Add(1)
	go m.run(job)

	return job.ID, nil
}

// Get returns a snapshot of a job's current status and result
func (m *JobManager) Get(ctx context.Context, id uuid.UUID) (*domain.SyncJob, error) {
	m.mu.Lock()
	job, ok := m.jobs[id]
	if ok {
		snapshot := *job
		m.mu.Unlock()
		return &snapshot, nil
	}
	m.mu.Unlock()
	if m.repo != nil {
		return m.repo.FindByID(ctx, id)
	}
	return nil, domain.ErrJobNotFound
}

// Cancel prevents a queued job from starting. Running jobs cannot be
// interrupted and return ErrJobNotCancellable.
func (m *JobManager) Cancel(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	job, ok := m.jobs[id]
	if !ok {
		m.mu.Unlock()
		return domain.ErrJobNotFound
	}
	err := job.Cancel()
	if err == nil {
		m.retireLocked(job.ID)
	}
	m.mu.Unlock()
	if err != nil {
		return err
	}
	m.persist(ctx, job)
	return nil
}

// Recent lists the most recently submitted jobs from the repository
func (m *JobManager) Recent(ctx context.Context, limit int) ([]domain.SyncJob, error) {
	if m.repo == nil {
		return nil, nil
	}
	return m.repo.FindRecent(ctx, limit)
}

// Wait blocks until all in-flight runs finished; used for graceful shutdown
func (m *JobManager) Wait() {
	m.wg.Wait()
}

// run executes one queued job to completion
func (m *JobManager) run(job *domain.SyncJob) {
	defer m.wg.Done()

	m.mu.Lock()
	// A cancel may have raced the goroutine start
	if job.Status != domain.JobStatusQueued {
		m.mu.Unlock()
		return
	}
	_ = job.Start()
	m.mu.Unlock()

	// The run is detached from the submitter's request context: there is no
	// mid-flight cancellation, only a bounding timeout.
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	m.persist(ctx, job)

	result, err := m.orchestrator.ExecuteFullSync(ctx, job.Request)

	m.mu.Lock()
	if err != nil {
		_ = job.Fail(err.Error())
		m.logger.Error("sync job aborted",
			zap.String("job_id", job.ID.String()),
			zap.Error(err),
		)
	} else {
		_ = job.Complete(result)
		m.logger.Info("sync job completed",
			zap.String("job_id", job.ID.String()),
			zap.Bool("success", result.Success),
			zap.Int("processed", result.TotalProcessed()),
			zap.Int("errors", result.TotalErrors()),
		)
	}
	m.retireLocked(job.ID)
	m.mu.Unlock()

	m.persist(ctx, job)
}

// retireLocked records a job's terminal transition and evicts the oldest
// terminal jobs past the retention cap. Caller holds m.mu.
func (m *JobManager) retireLocked(id uuid.UUID) {
	m.terminal = append(m.terminal, id)
	for len(m.terminal) > maxRetainedJobs {
		evicted := m.terminal[0]
		m.terminal = m.terminal[1:]
		delete(m.jobs, evicted)
	}
}

// persist saves the job record, logging persistence failures only
func (m *JobManager) persist(ctx context.Context, job *domain.SyncJob) {
	if m.repo == nil {
		return
	}
	if err := m.repo.Save(ctx, job); err != nil {
		m.logger.Warn("failed to persist sync job record",
			zap.String("job_id", job.ID.String()),
			zap.Error(err),
		)
	}
}
