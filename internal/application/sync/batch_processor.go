package sync

import (
	"context"
	stdsync "sync"
	"time"

	"go.uber.org/zap"

	domain "github.com/engagesync/backend/internal/domain/sync"
	"github.com/engagesync/backend/internal/domain/tenant"
	"github.com/engagesync/backend/internal/infrastructure/idempotency"
)

// DefaultBatchSize bounds concurrent persistence per batch when the request
// does not specify one
const DefaultBatchSize = 25

// BatchProcessor splits large item lists into bounded, sequentially-paced
// batches of concurrently-executed persistence operations. Within a batch,
// per-item operations run concurrently and are awaited as a group with
// per-item failure capture; batches execute sequentially to bound load.
type BatchProcessor struct {
	store     domain.EngagementEventStore
	keygen    *idempotency.KeyGenerator
	analytics domain.AnalyticsSink
	pause     time.Duration
	logger    *zap.Logger
}

// NewBatchProcessor creates a batch processor. analytics may be nil, in which
// case mirroring is skipped.
func NewBatchProcessor(
	store domain.EngagementEventStore,
	keygen *idempotency.KeyGenerator,
	analytics domain.AnalyticsSink,
	pause time.Duration,
	logger *zap.Logger,
) *BatchProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchProcessor{
		store:     store,
		keygen:    keygen,
		analytics: analytics,
		pause:     pause,
		logger:    logger,
	}
}

// EventOutcome aggregates the result of persisting one campaign's events
type EventOutcome struct {
	// Processed counts attempted-and-accepted events, including duplicate no-ops
	Processed int
	// Errors holds the per-item failures, captured without aborting siblings
	Errors []domain.SyncError
	// OldestFailure is the earliest OccurredAt among failed events; the
	// orchestrator advances the platform checkpoint no further than this so a
	// later delta run naturally retries unresolved items
	OldestFailure *time.Time
}

// ProcessEvents keys and persists fetched events in bounded batches.
// Duplicate idempotency keys are upsert-ignored by the store and still count
// as processed. Analytics mirroring failures are logged only.
func (p *BatchProcessor) ProcessEvents(
	ctx context.Context,
	adapter domain.SequencingPlatform,
	ns *tenant.Namespace,
	events []domain.RawEvent,
	batchSize int,
) EventOutcome {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	outcome := EventOutcome{}
	itemErrs := make([]error, len(events))

	for start := 0; start < len(events); start += batchSize {
		end := start + batchSize
		if end > len(events) {
			end = len(events)
		}

		var wg stdsync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				itemErrs[i] = p.persistEvent(ctx, adapter, ns, &events[i])
			}(i)
		}
		wg.Wait()

		if end < len(events) && p.pause > 0 {
			select {
			case <-time.After(p.pause):
			case <-ctx.Done():
				// Remaining items are recorded as failures so a delta
				// re-run picks them up
				for i := end; i < len(events); i++ {
					itemErrs[i] = ctx.Err()
				}
				start = len(events)
			}
		}
	}

	for i, err := range itemErrs {
		if err == nil {
			outcome.Processed++
			continue
		}
		ev := &events[i]
		outcome.Errors = append(outcome.Errors, domain.SyncError{
			Scope:      domain.ErrorScopeItem,
			Kind:       domain.ErrorKindStorage,
			Platform:   ev.Platform,
			Namespace:  ns.Name,
			CampaignID: ev.CampaignID,
			ItemID:     ev.ExternalID,
			Message:    err.Error(),
			OccurredAt: time.Now(),
		})
		if outcome.OldestFailure == nil || ev.OccurredAt.Before(*outcome.OldestFailure) {
			occurred := ev.OccurredAt
			outcome.OldestFailure = &occurred
		}
	}
	return outcome
}

// persistEvent keys one event, upserts it and mirrors it best-effort
func (p *BatchProcessor) persistEvent(
	ctx context.Context,
	adapter domain.SequencingPlatform,
	ns *tenant.Namespace,
	ev *domain.RawEvent,
) error {
	fields := adapter.BuildIdempotencyFields(ev)
	key := p.keygen.GenerateKey(fields)

	record := &domain.EngagementRecord{
		IdempotencyKey: key,
		Namespace:      ns.Name,
		Platform:       ev.Platform,
		CampaignID:     ev.CampaignID,
		CampaignName:   ev.CampaignName,
		EventType:      ev.EventType,
		SubjectEmail:   ev.SubjectEmail,
		ExternalID:     ev.ExternalID,
		OccurredAt:     ev.OccurredAt,
		Payload:        ev.Payload,
	}

	inserted, err := p.store.UpsertEvent(ctx, record)
	if err != nil {
		return err
	}

	if inserted && p.analytics != nil {
		// At-least-once, best-effort: mirror failures never fail the batch
		if err := p.analytics.Publish(ctx, record); err != nil {
			p.logger.Warn("analytics mirror failed",
				zap.String("idempotency_key", record.IdempotencyKey),
				zap.String("platform", record.Platform.String()),
				zap.Error(err),
			)
		}
	}
	return nil
}

// ProcessLeads persists fetched leads in bounded batches with per-item
// failure capture. Duplicates are upsert-ignored and count as processed.
func (p *BatchProcessor) ProcessLeads(
	ctx context.Context,
	ns *tenant.Namespace,
	leads []domain.Lead,
	batchSize int,
) (int, []domain.SyncError) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	itemErrs := make([]error, len(leads))
	for start := 0; start < len(leads); start += batchSize {
		end := start + batchSize
		if end > len(leads) {
			end = len(leads)
		}

		var wg stdsync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				lead := &leads[i]
				_, itemErrs[i] = p.store.UpsertLead(ctx, &domain.LeadRecord{
					Namespace:  ns.Name,
					Platform:   lead.Platform,
					CampaignID: lead.CampaignID,
					Email:      lead.Email,
					FirstName:  lead.FirstName,
					LastName:   lead.LastName,
					ExternalID: lead.ExternalID,
				})
			}(i)
		}
		wg.Wait()
	}

	processed := 0
	var errs []domain.SyncError
	for i, err := range itemErrs {
		if err == nil {
			processed++
			continue
		}
		lead := &leads[i]
		errs = append(errs, domain.SyncError{
			Scope:      domain.ErrorScopeItem,
			Kind:       domain.ErrorKindStorage,
			Platform:   lead.Platform,
			Namespace:  ns.Name,
			CampaignID: lead.CampaignID,
			ItemID:     lead.Email,
			Message:    err.Error(),
			OccurredAt: time.Now(),
		})
	}
	return processed, errs
}
