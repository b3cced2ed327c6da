package sync

import (
	"context"
	"time"
)

// ---------------------------------------------------------------------------
// Storage collaborator ports
// ---------------------------------------------------------------------------

// EngagementRecord is the persisted form of a RawEvent, keyed on its
// idempotency key. Storage enforces uniqueness on the key with
// insert-on-conflict-ignore semantics, so re-ingestion is a no-op.
type EngagementRecord struct {
	// IdempotencyKey is the deterministic storage key
	IdempotencyKey string
	// Namespace is the resolved tenant namespace name
	Namespace string
	// Platform is the source platform code
	Platform PlatformCode
	// CampaignID is the external campaign ID
	CampaignID string
	// CampaignName is the campaign name at sync time
	CampaignName string
	// EventType is the engagement type
	EventType string
	// SubjectEmail is the lead email the event concerns
	SubjectEmail string
	// ExternalID is the platform event ID (may be empty)
	ExternalID string
	// OccurredAt is when the event happened on the platform
	OccurredAt time.Time
	// Payload is the platform-specific event body, serialized to JSON
	Payload map[string]any
}

// LeadRecord is the persisted form of an upstream Lead, deduplicated on
// (namespace, platform, campaign, email).
type LeadRecord struct {
	Namespace  string
	Platform   PlatformCode
	CampaignID string
	Email      string
	FirstName  string
	LastName   string
	ExternalID string
}

// EngagementEventStore is the storage collaborator for the sync engine.
// Implementations must treat a duplicate idempotency key as a no-op, not an
// error, and report whether the row was actually inserted.
type EngagementEventStore interface {
	// UpsertEvent inserts an event record, ignoring duplicate idempotency keys.
	// Returns true when a new row was inserted, false on a duplicate no-op.
	UpsertEvent(ctx context.Context, record *EngagementRecord) (bool, error)

	// UpsertLead inserts a lead record, ignoring duplicates
	UpsertLead(ctx context.Context, record *LeadRecord) (bool, error)

	// CountEvents returns the number of stored events for a platform
	CountEvents(ctx context.Context, platform PlatformCode) (int64, error)
}

// CheckpointStore persists the per-platform "last synced" watermark that
// bounds delta fetches. Only the orchestrator mutates checkpoints.
type CheckpointStore interface {
	// GetCheckpoint returns the last synced time for a platform.
	// Returns ErrCheckpointNotFound when the platform has never completed a sync.
	GetCheckpoint(ctx context.Context, platform PlatformCode) (time.Time, error)

	// SetCheckpoint advances (or rewinds) the platform's watermark
	SetCheckpoint(ctx context.Context, platform PlatformCode, ts time.Time) error
}

// AnalyticsSink mirrors persisted events to an analytics destination.
// Delivery is at-least-once and best-effort: publish failures are logged by
// the caller and never fail the batch.
type AnalyticsSink interface {
	Publish(ctx context.Context, record *EngagementRecord) error
}
