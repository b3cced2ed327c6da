package sync

import (
	"context"
	"errors"
	"fmt"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/engagesync/backend/internal/domain/sync"
	"github.com/engagesync/backend/internal/domain/tenant"
	"github.com/engagesync/backend/internal/infrastructure/idempotency"
)

// fakeSink records analytics publishes and can fail on demand
type fakeSink struct {
	mu        stdsync.Mutex
	published []string
	err       error
}

func (s *fakeSink) Publish(ctx context.Context, record *domain.EngagementRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.published = append(s.published, record.IdempotencyKey)
	return nil
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.published)
}

func testNamespace(t *testing.T) *tenant.Namespace {
	t.Helper()
	ns, err := tenant.NewNamespace("acme", []string{"acme"}, "", false)
	require.NoError(t, err)
	return ns
}

func makeEvents(campaignID string, n int) []domain.RawEvent {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	events := make([]domain.RawEvent, 0, n)
	for i := 0; i < n; i++ {
		events = append(events, domain.RawEvent{
			Platform:     domain.PlatformCodeSmartlead,
			ExternalID:   fmt.Sprintf("evt_%d", i),
			EventType:    "email_reply",
			SubjectEmail: fmt.Sprintf("lead%d@example.com", i),
			CampaignID:   campaignID,
			OccurredAt:   base.Add(time.Duration(i) * time.Minute),
		})
	}
	return events
}

func batchFixture(store *fakeStore, sink domain.AnalyticsSink) (*BatchProcessor, *fakePlatform) {
	keygen := idempotency.NewKeyGenerator(1000, nil)
	adapter := &fakePlatform{code: domain.PlatformCodeSmartlead}
	return NewBatchProcessor(store, keygen, sink, 0, nil), adapter
}

func TestBatchProcessor_ProcessEvents(t *testing.T) {
	t.Run("persists all items across batches", func(t *testing.T) {
		store := newFakeStore()
		bp, adapter := batchFixture(store, nil)

		outcome := bp.ProcessEvents(context.Background(), adapter, testNamespace(t), makeEvents("cam_9", 23), 5)

		assert.Equal(t, 23, outcome.Processed)
		assert.Empty(t, outcome.Errors)
		assert.Nil(t, outcome.OldestFailure)
		assert.Equal(t, 23, store.storedEvents())
	})

	t.Run("duplicate keys are no-ops that still count as processed", func(t *testing.T) {
		store := newFakeStore()
		bp, adapter := batchFixture(store, nil)
		ns := testNamespace(t)
		events := makeEvents("cam_9", 8)

		first := bp.ProcessEvents(context.Background(), adapter, ns, events, 5)
		second := bp.ProcessEvents(context.Background(), adapter, ns, events, 5)

		assert.Equal(t, first.Processed, second.Processed)
		assert.Equal(t, 8, store.storedEvents())
	})

	t.Run("item failures are captured without aborting siblings", func(t *testing.T) {
		store := newFakeStore()
		store.failSubject["lead2@example.com"] = errors.New("connection reset")
		bp, adapter := batchFixture(store, nil)

		outcome := bp.ProcessEvents(context.Background(), adapter, testNamespace(t), makeEvents("cam_9", 6), 3)

		assert.Equal(t, 5, outcome.Processed)
		require.Len(t, outcome.Errors, 1)
		assert.Equal(t, domain.ErrorScopeItem, outcome.Errors[0].Scope)
		assert.Equal(t, "evt_2", outcome.Errors[0].ItemID)
		assert.Equal(t, "acme", outcome.Errors[0].Namespace)
	})

	t.Run("oldest failure tracks the earliest failed event time", func(t *testing.T) {
		store := newFakeStore()
		store.failSubject["lead1@example.com"] = errors.New("boom")
		store.failSubject["lead4@example.com"] = errors.New("boom")
		bp, adapter := batchFixture(store, nil)
		events := makeEvents("cam_9", 6)

		outcome := bp.ProcessEvents(context.Background(), adapter, testNamespace(t), events, 10)

		require.NotNil(t, outcome.OldestFailure)
		assert.True(t, outcome.OldestFailure.Equal(events[1].OccurredAt))
	})

	t.Run("empty input", func(t *testing.T) {
		store := newFakeStore()
		bp, adapter := batchFixture(store, nil)

		outcome := bp.ProcessEvents(context.Background(), adapter, testNamespace(t), nil, 5)

		assert.Equal(t, 0, outcome.Processed)
		assert.Empty(t, outcome.Errors)
	})
}

func TestBatchProcessor_AnalyticsMirror(t *testing.T) {
	t.Run("mirrors only newly inserted events", func(t *testing.T) {
		store := newFakeStore()
		sink := &fakeSink{}
		bp, adapter := batchFixture(store, sink)
		ns := testNamespace(t)
		events := makeEvents("cam_9", 4)

		bp.ProcessEvents(context.Background(), adapter, ns, events, 10)
		bp.ProcessEvents(context.Background(), adapter, ns, events, 10)

		assert.Equal(t, 4, sink.count(), "duplicate no-ops must not re-publish")
	})

	t.Run("sink failure never fails the batch", func(t *testing.T) {
		store := newFakeStore()
		sink := &fakeSink{err: errors.New("stream unavailable")}
		bp, adapter := batchFixture(store, sink)

		outcome := bp.ProcessEvents(context.Background(), adapter, testNamespace(t), makeEvents("cam_9", 4), 10)

		assert.Equal(t, 4, outcome.Processed)
		assert.Empty(t, outcome.Errors)
	})
}

func TestBatchProcessor_ProcessLeads(t *testing.T) {
	store := newFakeStore()
	bp, _ := batchFixture(store, nil)
	ns := testNamespace(t)

	leads := make([]domain.Lead, 0, 7)
	for i := 0; i < 7; i++ {
		leads = append(leads, domain.Lead{
			ExternalID: fmt.Sprintf("lead_%d", i),
			Email:      fmt.Sprintf("lead%d@example.com", i),
			CampaignID: "cam_9",
			Platform:   domain.PlatformCodeSmartlead,
		})
	}

	processed, errs := bp.ProcessLeads(context.Background(), ns, leads, 3)
	assert.Equal(t, 7, processed)
	assert.Empty(t, errs)

	// Re-upserting the same leads is a no-op on storage
	processed, errs = bp.ProcessLeads(context.Background(), ns, leads, 3)
	assert.Equal(t, 7, processed)
	assert.Empty(t, errs)
}
