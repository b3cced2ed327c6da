package sync

import (
	"context"
	"errors"
	"time"
)

// ---------------------------------------------------------------------------
// Platform Errors
// ---------------------------------------------------------------------------

var (
	// Platform errors
	ErrPlatformNotConfigured   = errors.New("sync: platform not configured")
	ErrPlatformUnknown         = errors.New("sync: unknown platform")
	ErrPlatformUnavailable     = errors.New("sync: platform temporarily unavailable")
	ErrPlatformRequestFailed   = errors.New("sync: platform request failed")
	ErrPlatformInvalidResponse = errors.New("sync: invalid platform response")
	ErrPlatformAuthFailed      = errors.New("sync: platform authentication failed")
	ErrPlatformRateLimited     = errors.New("sync: platform rate limited")

	// Storage errors
	ErrStorageUpsertFailed = errors.New("sync: event upsert failed")
	ErrCheckpointNotFound  = errors.New("sync: checkpoint not found")
)

// ---------------------------------------------------------------------------
// PlatformCode represents an external sequencing platform
// ---------------------------------------------------------------------------

// PlatformCode represents the type of sequencing platform
type PlatformCode string

const (
	// PlatformCodeLemlist represents the lemlist outreach platform
	PlatformCodeLemlist PlatformCode = "lemlist"
	// PlatformCodeSmartlead represents the Smartlead outreach platform
	PlatformCodeSmartlead PlatformCode = "smartlead"
	// PlatformCodeWoodpecker represents the Woodpecker outreach platform
	PlatformCodeWoodpecker PlatformCode = "woodpecker"
)

// IsValid returns true if the platform code is valid
func (c PlatformCode) IsValid() bool {
	switch c {
	case PlatformCodeLemlist, PlatformCodeSmartlead, PlatformCodeWoodpecker:
		return true
	default:
		return false
	}
}

// String returns the string representation of PlatformCode
func (c PlatformCode) String() string {
	return string(c)
}

// AllPlatformCodes returns every known platform code
func AllPlatformCodes() []PlatformCode {
	return []PlatformCode{PlatformCodeLemlist, PlatformCodeSmartlead, PlatformCodeWoodpecker}
}

// ---------------------------------------------------------------------------
// Upstream value objects
// ---------------------------------------------------------------------------

// Campaign represents a campaign as reported by an upstream platform.
// Campaigns are read-only to the sync engine.
type Campaign struct {
	// ExternalID is the campaign ID on the platform
	ExternalID string
	// Platform identifies which platform this campaign is from
	Platform PlatformCode
	// Name is the campaign name, used for namespace routing
	Name string
	// Status is the campaign status on the platform (running, paused, ...)
	Status string
}

// Lead represents a contact enrolled in an upstream campaign
type Lead struct {
	// ExternalID is the lead ID on the platform (may be empty)
	ExternalID string
	// Email is the lead's email address
	Email string
	// FirstName is the lead's first name
	FirstName string
	// LastName is the lead's last name
	LastName string
	// CampaignID is the external ID of the campaign this lead belongs to
	CampaignID string
	// Platform identifies the source platform
	Platform PlatformCode
}

// RawEvent represents an engagement event fetched from an upstream platform.
// RawEvents are ephemeral: they are fetched, keyed and persisted, never stored as-is.
type RawEvent struct {
	// Platform identifies the source platform
	Platform PlatformCode
	// ExternalID is the event ID on the platform (may be empty)
	ExternalID string
	// EventType is the engagement type (emailsSent, emailsOpened, replied, ...)
	EventType string
	// SubjectEmail is the email address of the lead the event concerns
	SubjectEmail string
	// CampaignID is the external ID of the campaign this event belongs to
	CampaignID string
	// CampaignName is the campaign name at fetch time
	CampaignName string
	// OccurredAt is when the event happened on the platform
	OccurredAt time.Time
	// Payload carries the platform-specific event body
	Payload map[string]any
}

// IdempotencyFields is the generic input to idempotency key generation.
// Each platform adapter maps its native event shape into this struct.
type IdempotencyFields struct {
	// Platform is the source platform code (required)
	Platform string
	// CampaignID is the external campaign ID (required)
	CampaignID string
	// EventType is the engagement type (required)
	EventType string
	// SubjectEmail is the lead email the event concerns (required)
	SubjectEmail string
	// ExternalID is the platform event ID (optional, fallback used when empty)
	ExternalID string
	// Timestamp is when the event occurred (used by the fallback component)
	Timestamp time.Time
}

// ---------------------------------------------------------------------------
// SequencingPlatform Port Interface
// ---------------------------------------------------------------------------

// SequencingPlatform defines the port interface for external sequencing platforms.
// Concrete implementations (lemlist, Smartlead, Woodpecker) live in the
// infrastructure layer. The sync engine only reaches an implementation through a
// rate-limited gateway and stays agnostic to wire formats.
type SequencingPlatform interface {
	// PlatformCode returns the platform code this adapter handles
	PlatformCode() PlatformCode

	// GetCampaigns returns all campaigns visible to the configured account
	GetCampaigns(ctx context.Context) ([]Campaign, error)

	// GetLeads returns the leads enrolled in a campaign
	GetLeads(ctx context.Context, campaignID string) ([]Lead, error)

	// GetCampaignActivities returns the engagement events recorded for a campaign
	GetCampaignActivities(ctx context.Context, campaignID string) ([]RawEvent, error)

	// BuildIdempotencyFields maps a platform event into the generic key fields,
	// isolating schema quirks from the key generation algorithm
	BuildIdempotencyFields(event *RawEvent) IdempotencyFields
}

// PlatformRegistry provides access to configured platform adapters
type PlatformRegistry interface {
	// GetPlatform returns the adapter for the specified code
	GetPlatform(code PlatformCode) (SequencingPlatform, error)

	// ListPlatforms returns all registered platform adapters
	ListPlatforms() []SequencingPlatform
}
