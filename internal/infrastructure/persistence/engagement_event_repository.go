package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/engagesync/backend/internal/domain/sync"
	"github.com/engagesync/backend/internal/infrastructure/persistence/models"
)

// GormEngagementEventStore implements the EngagementEventStore port using GORM.
// Deduplication rides on the unique index over the idempotency key with
// insert-on-conflict-ignore semantics.
type GormEngagementEventStore struct {
	db *gorm.DB
}

// NewGormEngagementEventStore creates a new GormEngagementEventStore
func NewGormEngagementEventStore(db *gorm.DB) *GormEngagementEventStore {
	return &GormEngagementEventStore{db: db}
}

// UpsertEvent inserts an event record, ignoring duplicate idempotency keys.
// Returns true when a new row was inserted, false on a duplicate no-op.
func (s *GormEngagementEventStore) UpsertEvent(ctx context.Context, record *sync.EngagementRecord) (bool, error) {
	var model models.EngagementEventModel
	model.FromDomain(record)

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "idempotency_key"}},
			DoNothing: true,
		}).
		Create(&model)
	if result.Error != nil {
		return false, fmt.Errorf("%w: %v", sync.ErrStorageUpsertFailed, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// UpsertLead inserts a lead record, ignoring duplicates on the lead identity
func (s *GormEngagementEventStore) UpsertLead(ctx context.Context, record *sync.LeadRecord) (bool, error) {
	var model models.LeadModel
	model.FromDomain(record)

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "namespace"},
				{Name: "platform_code"},
				{Name: "campaign_id"},
				{Name: "email"},
			},
			DoNothing: true,
		}).
		Create(&model)
	if result.Error != nil {
		return false, fmt.Errorf("%w: %v", sync.ErrStorageUpsertFailed, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// CountEvents returns the number of stored events for a platform
func (s *GormEngagementEventStore) CountEvents(ctx context.Context, platform sync.PlatformCode) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.EngagementEventModel{}).
		Where("platform_code = ?", platform).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
