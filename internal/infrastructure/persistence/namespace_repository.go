package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/engagesync/backend/internal/domain/tenant"
	"github.com/engagesync/backend/internal/infrastructure/persistence/models"
)

// GormNamespaceRepository implements the NamespaceRepository port using GORM
type GormNamespaceRepository struct {
	db *gorm.DB
}

// NewGormNamespaceRepository creates a new GormNamespaceRepository
func NewGormNamespaceRepository(db *gorm.DB) *GormNamespaceRepository {
	return &GormNamespaceRepository{db: db}
}

// ListActive returns all active namespaces ordered by creation time, so
// keyword routing walks namespaces in a stable creation order
func (r *GormNamespaceRepository) ListActive(ctx context.Context) ([]tenant.Namespace, error) {
	var namespaceModels []models.NamespaceModel
	if err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("created_at ASC").
		Find(&namespaceModels).Error; err != nil {
		return nil, err
	}

	namespaces := make([]tenant.Namespace, len(namespaceModels))
	for i := range namespaceModels {
		namespaces[i] = *namespaceModels[i].ToDomain()
	}
	return namespaces, nil
}

// FindByName retrieves a namespace by its unique name
func (r *GormNamespaceRepository) FindByName(ctx context.Context, name string) (*tenant.Namespace, error) {
	var model models.NamespaceModel
	if err := r.db.WithContext(ctx).First(&model, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, tenant.ErrNamespaceNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Create persists a new namespace. A violation of the single-default index
// maps to ErrDefaultConflict and a unique-name violation maps to
// ErrNamespaceAlreadyExists, so racing creators fail cleanly.
func (r *GormNamespaceRepository) Create(ctx context.Context, ns *tenant.Namespace) error {
	model := models.NamespaceModelFromDomain(ns)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			if strings.Contains(strings.ToLower(err.Error()), "idx_namespaces_single_default") {
				return tenant.ErrDefaultConflict
			}
			return tenant.ErrNamespaceAlreadyExists
		}
		return err
	}
	return nil
}

// Update persists changes to an existing namespace
func (r *GormNamespaceRepository) Update(ctx context.Context, ns *tenant.Namespace) error {
	ns.UpdatedAt = time.Now()
	model := models.NamespaceModelFromDomain(ns)
	result := r.db.WithContext(ctx).
		Model(&models.NamespaceModel{}).
		Where("id = ?", ns.ID).
		Updates(map[string]any{
			"keywords":   model.KeywordsJSON,
			"table_ref":  model.TableRef,
			"active":     model.Active,
			"updated_at": model.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return tenant.ErrNamespaceNotFound
	}
	return nil
}

// isUniqueViolation detects a unique constraint error across the postgres
// and sqlite drivers without importing driver-specific error types
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
