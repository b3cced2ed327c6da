package persistence

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/engagesync/backend/internal/domain/sync"
	"github.com/engagesync/backend/internal/infrastructure/persistence/models"
)

// GormCheckpointStore implements the CheckpointStore port using GORM
type GormCheckpointStore struct {
	db *gorm.DB
}

// NewGormCheckpointStore creates a new GormCheckpointStore
func NewGormCheckpointStore(db *gorm.DB) *GormCheckpointStore {
	return &GormCheckpointStore{db: db}
}

// GetCheckpoint returns the last synced time for a platform
func (s *GormCheckpointStore) GetCheckpoint(ctx context.Context, platform sync.PlatformCode) (time.Time, error) {
	var model models.CheckpointModel
	err := s.db.WithContext(ctx).First(&model, "platform_code = ?", platform).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return time.Time{}, sync.ErrCheckpointNotFound
		}
		return time.Time{}, err
	}
	return model.LastSyncedAt, nil
}

// SetCheckpoint advances (or rewinds) the platform's watermark
func (s *GormCheckpointStore) SetCheckpoint(ctx context.Context, platform sync.PlatformCode, ts time.Time) error {
	model := models.CheckpointModel{
		PlatformCode: platform,
		LastSyncedAt: ts,
		UpdatedAt:    time.Now(),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "platform_code"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_synced_at", "updated_at"}),
		}).
		Create(&model).Error
}
