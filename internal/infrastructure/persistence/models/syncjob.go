package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/engagesync/backend/internal/domain/sync"
)

// SyncJobModel is the persistence model for background sync job records.
// Request and result are stored as JSON documents for the status surface.
type SyncJobModel struct {
	ID           uuid.UUID      `gorm:"type:uuid;primary_key"`
	Status       sync.JobStatus `gorm:"type:varchar(20);not null;index"`
	RequestJSON  string         `gorm:"type:jsonb;column:request"`
	ResultJSON   string         `gorm:"type:jsonb;column:result"`
	ErrorMessage string         `gorm:"type:text"`
	CreatedAt    time.Time      `gorm:"not null;index"`
	StartedAt    *time.Time
	FinishedAt   *time.Time
}

// TableName returns the table name for GORM
func (SyncJobModel) TableName() string {
	return "sync_jobs"
}

// ToDomain converts the persistence model to a domain SyncJob
func (m *SyncJobModel) ToDomain() *sync.SyncJob {
	job := &sync.SyncJob{
		ID:           m.ID,
		Status:       m.Status,
		ErrorMessage: m.ErrorMessage,
		CreatedAt:    m.CreatedAt,
		StartedAt:    m.StartedAt,
		FinishedAt:   m.FinishedAt,
	}
	if m.RequestJSON != "" {
		var req sync.SyncRequest
		if err := json.Unmarshal([]byte(m.RequestJSON), &req); err == nil {
			job.Request = req
		}
	}
	if m.ResultJSON != "" {
		var result sync.SyncResult
		if err := json.Unmarshal([]byte(m.ResultJSON), &result); err == nil {
			job.Result = &result
		}
	}
	return job
}

// FromDomain populates the persistence model from a domain SyncJob
func (m *SyncJobModel) FromDomain(job *sync.SyncJob) {
	m.ID = job.ID
	m.Status = job.Status
	m.ErrorMessage = job.ErrorMessage
	m.CreatedAt = job.CreatedAt
	m.StartedAt = job.StartedAt
	m.FinishedAt = job.FinishedAt

	if jsonBytes, err := json.Marshal(job.Request); err == nil {
		m.RequestJSON = string(jsonBytes)
	}
	if job.Result != nil {
		if jsonBytes, err := json.Marshal(job.Result); err == nil {
			m.ResultJSON = string(jsonBytes)
		}
	} else {
		m.ResultJSON = ""
	}
}
