package scheduler

import (
	"context"
	"errors"
	stdsync "sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domain "github.com/engagesync/backend/internal/domain/sync"
)

type fakeSubmitter struct {
	mu        stdsync.Mutex
	requests  []domain.SyncRequest
	jobs      map[uuid.UUID]*domain.SyncJob
	submitErr error
	// status assigned to every submitted job
	status domain.JobStatus
}

func newFakeSubmitter() *fakeSubmitter {
	return &fakeSubmitter{
		jobs:   make(map[uuid.UUID]*domain.SyncJob),
		status: domain.JobStatusCompleted,
	}
}

func (f *fakeSubmitter) Submit(_ context.Context, req domain.SyncRequest) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return uuid.Nil, f.submitErr
	}
	job := domain.NewSyncJob(req)
	job.Status = f.status
	f.jobs[job.ID] = job
	f.requests = append(f.requests, req)
	return job.ID, nil
}

func (f *fakeSubmitter) Get(_ context.Context, id uuid.UUID) (*domain.SyncJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	snapshot := *job
	return &snapshot, nil
}

func (f *fakeSubmitter) submitted() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func TestDeltaSchedulerConfig_Validate(t *testing.T) {
	t.Run("default config is valid", func(t *testing.T) {
		cfg := DefaultDeltaSchedulerConfig()
		assert.NoError(t, cfg.Validate())
	})

	t.Run("rejects non-positive interval", func(t *testing.T) {
		cfg := DefaultDeltaSchedulerConfig()
		cfg.Interval = 0
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
	})

	t.Run("rejects empty platform set", func(t *testing.T) {
		cfg := DefaultDeltaSchedulerConfig()
		cfg.Platforms = nil
		assert.ErrorIs(t, cfg.Validate(), ErrNoEnabledPlatforms)
	})

	t.Run("rejects unknown platform code", func(t *testing.T) {
		cfg := DefaultDeltaSchedulerConfig()
		cfg.Platforms = []domain.PlatformCode{"mailchimp"}
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
	})
}

func TestDeltaScheduler_TriggerNow(t *testing.T) {
	submitter := newFakeSubmitter()
	cfg := DefaultDeltaSchedulerConfig()
	cfg.Platforms = []domain.PlatformCode{domain.PlatformCodeLemlist}

	s, err := NewDeltaScheduler(cfg, submitter, zap.NewNop())
	require.NoError(t, err)

	s.TriggerNow(context.Background())

	require.Equal(t, 1, submitter.submitted())
	req := submitter.requests[0]
	assert.Equal(t, domain.SyncModeDeltaSinceLast, req.Mode)
	assert.Equal(t, []domain.PlatformCode{domain.PlatformCodeLemlist}, req.Platforms)
	assert.Equal(t, []string{domain.NamespaceAll}, req.Namespaces)
	assert.NotEqual(t, uuid.Nil, s.LastJobID())
}

func TestDeltaScheduler_SkipsWhilepreviousRunActive(t *testing.T) {
	submitter := newFakeSubmitter()
	submitter.status = domain.JobStatusRunning

	s, err := NewDeltaScheduler(DefaultDeltaSchedulerConfig(), submitter, zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	s.TriggerNow(ctx)
	first := s.LastJobID()

	// Second trigger sees the first run still active and backs off
	s.TriggerNow(ctx)
	assert.Equal(t, 1, submitter.submitted())
	assert.Equal(t, first, s.LastJobID())

	// Once the run finished the next trigger submits again
	submitter.mu.Lock()
	submitter.jobs[first].Status = domain.JobStatusCompleted
	submitter.mu.Unlock()

	s.TriggerNow(ctx)
	assert.Equal(t, 2, submitter.submitted())
	assert.NotEqual(t, first, s.LastJobID())
}

func TestDeltaScheduler_SubmitFailureKeepsLastJob(t *testing.T) {
	submitter := newFakeSubmitter()
	s, err := NewDeltaScheduler(DefaultDeltaSchedulerConfig(), submitter, zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	s.TriggerNow(ctx)
	first := s.LastJobID()

	submitter.mu.Lock()
	submitter.submitErr = errors.New("queue unavailable")
	submitter.mu.Unlock()

	s.TriggerNow(ctx)
	assert.Equal(t, first, s.LastJobID())
}

func TestDeltaScheduler_StartStop(t *testing.T) {
	submitter := newFakeSubmitter()
	cfg := DefaultDeltaSchedulerConfig()
	cfg.Interval = 5 * time.Millisecond

	s, err := NewDeltaScheduler(cfg, submitter, zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Start(ctx))
	// Idempotent start
	require.NoError(t, s.Start(ctx))

	deadline := time.Now().Add(2 * time.Second)
	for submitter.submitted() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	assert.Greater(t, submitter.submitted(), 0)

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, s.Stop(stopCtx))
	// Idempotent stop
	require.NoError(t, s.Stop(stopCtx))
}

func TestNewDeltaScheduler_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultDeltaSchedulerConfig()
	cfg.Interval = -time.Second

	_, err := NewDeltaScheduler(cfg, newFakeSubmitter(), zap.NewNop())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
