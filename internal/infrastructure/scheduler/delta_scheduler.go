package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domain "github.com/engagesync/backend/internal/domain/sync"
)

// JobSubmitter submits background sync runs and reports their status
type JobSubmitter interface {
	Submit(ctx context.Context, req domain.SyncRequest) (uuid.UUID, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.SyncJob, error)
}

// ---------------------------------------------------------------------------
// DeltaSchedulerConfig
// ---------------------------------------------------------------------------

// DeltaSchedulerConfig holds configuration for the periodic delta sync trigger
type DeltaSchedulerConfig struct {
	// Enabled indicates if the scheduler is enabled
	Enabled bool
	// Interval is how often a delta sync is submitted
	Interval time.Duration
	// Platforms is the set of platforms each run covers
	Platforms []domain.PlatformCode
}

// DefaultDeltaSchedulerConfig returns default configuration
func DefaultDeltaSchedulerConfig() DeltaSchedulerConfig {
	return DeltaSchedulerConfig{
		Enabled:   true,
		Interval:  time.Hour,
		Platforms: domain.AllPlatformCodes(),
	}
}

// Validate validates the configuration
func (c *DeltaSchedulerConfig) Validate() error {
	if c.Interval <= 0 {
		return ErrInvalidConfig
	}
	if len(c.Platforms) == 0 {
		return ErrNoEnabledPlatforms
	}
	for _, p := range c.Platforms {
		if !p.IsValid() {
			return ErrInvalidConfig
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// DeltaScheduler
// ---------------------------------------------------------------------------

// DeltaScheduler periodically submits DELTA_SINCE_LAST sync runs. A tick is
// skipped while the previously submitted run has not reached a terminal
// state, so slow upstreams never stack concurrent runs.
type DeltaScheduler struct {
	config    DeltaSchedulerConfig
	submitter JobSubmitter
	logger    *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	lastJobID uuid.UUID
}

// NewDeltaScheduler creates a new delta sync scheduler
func NewDeltaScheduler(config DeltaSchedulerConfig, submitter JobSubmitter, logger *zap.Logger) (*DeltaScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeltaScheduler{
		config:    config,
		submitter: submitter,
		logger:    logger,
	}, nil
}

// Start starts the scheduler
func (s *DeltaScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("delta sync scheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Int("platforms", len(s.config.Platforms)),
	)
	return nil
}

// Stop gracefully stops the scheduler
func (s *DeltaScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("delta sync scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("delta sync scheduler stop timed out")
		return ctx.Err()
	}
}

// runLoop submits a delta run every interval
func (s *DeltaScheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.trigger(ctx)
		}
	}
}

// trigger submits one delta run unless the previous run is still active
func (s *DeltaScheduler) trigger(ctx context.Context) {
	s.mu.Lock()
	lastID := s.lastJobID
	s.mu.Unlock()

	if lastID != uuid.Nil {
		job, err := s.submitter.Get(ctx, lastID)
		if err == nil && !job.Status.IsTerminal() {
			s.logger.Info("skipping delta sync, previous run still active",
				zap.String("job_id", lastID.String()),
				zap.String("status", string(job.Status)),
			)
			return
		}
	}

	req := domain.SyncRequest{
		Platforms:  s.config.Platforms,
		Namespaces: []string{domain.NamespaceAll},
		Mode:       domain.SyncModeDeltaSinceLast,
	}

	id, err := s.submitter.Submit(ctx, req)
	if err != nil {
		s.logger.Error("failed to submit scheduled delta sync", zap.Error(err))
		return
	}

	s.mu.Lock()
	s.lastJobID = id
	s.mu.Unlock()

	s.logger.Info("scheduled delta sync submitted",
		zap.String("job_id", id.String()),
	)
}

// TriggerNow submits a delta run immediately, outside the ticker cadence
func (s *DeltaScheduler) TriggerNow(ctx context.Context) {
	s.trigger(ctx)
}

// LastJobID returns the most recently submitted run's identifier
func (s *DeltaScheduler) LastJobID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastJobID
}
