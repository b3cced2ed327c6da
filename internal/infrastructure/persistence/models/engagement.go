package models

import (
	"encoding/json"
	"time"

	"github.com/engagesync/backend/internal/domain/sync"
)

// EngagementEventModel is the persistence model for ingested engagement events.
// The unique index on the idempotency key is what makes re-ingestion a no-op.
type EngagementEventModel struct {
	ID             uint64            `gorm:"primaryKey;autoIncrement"`
	IdempotencyKey string            `gorm:"type:varchar(255);not null;uniqueIndex:idx_engagement_events_idem_key"`
	Namespace      string            `gorm:"type:varchar(100);not null;index:idx_engagement_events_namespace,priority:1"`
	PlatformCode   sync.PlatformCode `gorm:"type:varchar(20);not null;index:idx_engagement_events_platform,priority:1"`
	CampaignID     string            `gorm:"type:varchar(100);not null;index:idx_engagement_events_campaign,priority:1"`
	CampaignName   string            `gorm:"type:varchar(255)"`
	EventType      string            `gorm:"type:varchar(50);not null"`
	SubjectEmail   string            `gorm:"type:varchar(255);not null;index:idx_engagement_events_subject,priority:1"`
	ExternalID     string            `gorm:"type:varchar(100)"`
	OccurredAt     time.Time         `gorm:"not null;index:idx_engagement_events_occurred,priority:1"`
	PayloadJSON    string            `gorm:"type:jsonb;column:payload"`
	CreatedAt      time.Time         `gorm:"not null"`
}

// TableName returns the table name for GORM
func (EngagementEventModel) TableName() string {
	return "engagement_events"
}

// ToDomain converts the persistence model to a domain EngagementRecord
func (m *EngagementEventModel) ToDomain() *sync.EngagementRecord {
	record := &sync.EngagementRecord{
		IdempotencyKey: m.IdempotencyKey,
		Namespace:      m.Namespace,
		Platform:       m.PlatformCode,
		CampaignID:     m.CampaignID,
		CampaignName:   m.CampaignName,
		EventType:      m.EventType,
		SubjectEmail:   m.SubjectEmail,
		ExternalID:     m.ExternalID,
		OccurredAt:     m.OccurredAt,
	}
	if m.PayloadJSON != "" {
		var payload map[string]any
		if err := json.Unmarshal([]byte(m.PayloadJSON), &payload); err == nil {
			record.Payload = payload
		}
	}
	return record
}

// FromDomain populates the persistence model from a domain EngagementRecord
func (m *EngagementEventModel) FromDomain(r *sync.EngagementRecord) {
	m.IdempotencyKey = r.IdempotencyKey
	m.Namespace = r.Namespace
	m.PlatformCode = r.Platform
	m.CampaignID = r.CampaignID
	m.CampaignName = r.CampaignName
	m.EventType = r.EventType
	m.SubjectEmail = r.SubjectEmail
	m.ExternalID = r.ExternalID
	m.OccurredAt = r.OccurredAt

	if len(r.Payload) > 0 {
		if jsonBytes, err := json.Marshal(r.Payload); err == nil {
			m.PayloadJSON = string(jsonBytes)
		}
	} else {
		m.PayloadJSON = "{}"
	}
}

// LeadModel is the persistence model for synced leads, deduplicated on
// (namespace, platform, campaign, email).
type LeadModel struct {
	ID           uint64            `gorm:"primaryKey;autoIncrement"`
	Namespace    string            `gorm:"type:varchar(100);not null;uniqueIndex:idx_leads_identity,priority:1"`
	PlatformCode sync.PlatformCode `gorm:"type:varchar(20);not null;uniqueIndex:idx_leads_identity,priority:2"`
	CampaignID   string            `gorm:"type:varchar(100);not null;uniqueIndex:idx_leads_identity,priority:3"`
	Email        string            `gorm:"type:varchar(255);not null;uniqueIndex:idx_leads_identity,priority:4"`
	FirstName    string            `gorm:"type:varchar(100)"`
	LastName     string            `gorm:"type:varchar(100)"`
	ExternalID   string            `gorm:"type:varchar(100)"`
	CreatedAt    time.Time         `gorm:"not null"`
	UpdatedAt    time.Time         `gorm:"not null"`
}

// TableName returns the table name for GORM
func (LeadModel) TableName() string {
	return "leads"
}

// ToDomain converts the persistence model to a domain LeadRecord
func (m *LeadModel) ToDomain() *sync.LeadRecord {
	return &sync.LeadRecord{
		Namespace:  m.Namespace,
		Platform:   m.PlatformCode,
		CampaignID: m.CampaignID,
		Email:      m.Email,
		FirstName:  m.FirstName,
		LastName:   m.LastName,
		ExternalID: m.ExternalID,
	}
}

// FromDomain populates the persistence model from a domain LeadRecord
func (m *LeadModel) FromDomain(r *sync.LeadRecord) {
	m.Namespace = r.Namespace
	m.PlatformCode = r.Platform
	m.CampaignID = r.CampaignID
	m.Email = r.Email
	m.FirstName = r.FirstName
	m.LastName = r.LastName
	m.ExternalID = r.ExternalID
}

// CheckpointModel is the persistence model for per-platform sync watermarks
type CheckpointModel struct {
	PlatformCode sync.PlatformCode `gorm:"type:varchar(20);primaryKey"`
	LastSyncedAt time.Time         `gorm:"not null"`
	UpdatedAt    time.Time         `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CheckpointModel) TableName() string {
	return "sync_checkpoints"
}
