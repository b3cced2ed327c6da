package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/engagesync/backend/internal/domain/sync"
	"github.com/engagesync/backend/internal/infrastructure/persistence/models"
)

// GormSyncJobRepository implements the SyncJobRepository port using GORM
type GormSyncJobRepository struct {
	db *gorm.DB
}

// NewGormSyncJobRepository creates a new GormSyncJobRepository
func NewGormSyncJobRepository(db *gorm.DB) *GormSyncJobRepository {
	return &GormSyncJobRepository{db: db}
}

// Save creates or updates a job record
func (r *GormSyncJobRepository) Save(ctx context.Context, job *sync.SyncJob) error {
	var model models.SyncJobModel
	model.FromDomain(job)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&model).Error
}

// FindByID retrieves a job by its identifier
func (r *GormSyncJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*sync.SyncJob, error) {
	var model models.SyncJobModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrJobNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindRecent lists the most recently submitted jobs
func (r *GormSyncJobRepository) FindRecent(ctx context.Context, limit int) ([]sync.SyncJob, error) {
	if limit <= 0 {
		limit = 20
	}
	var jobModels []models.SyncJobModel
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&jobModels).Error; err != nil {
		return nil, err
	}

	jobs := make([]sync.SyncJob, len(jobModels))
	for i := range jobModels {
		jobs[i] = *jobModels[i].ToDomain()
	}
	return jobs, nil
}
