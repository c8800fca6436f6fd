package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/channelsync/backend/internal/domain/sync"
	"github.com/channelsync/backend/internal/infrastructure/persistence/models"
)

// GormMappingRepository implements sync.MappingRepository using GORM
type GormMappingRepository struct {
	db *gorm.DB
}

var _ sync.MappingRepository = (*GormMappingRepository)(nil)

// NewGormMappingRepository creates a new GormMappingRepository
func NewGormMappingRepository(db *gorm.DB) *GormMappingRepository {
	return &GormMappingRepository{db: db}
}

// FindBySKU finds a mapping by its SKU
func (r *GormMappingRepository) FindBySKU(ctx context.Context, sku string) (*sync.ProductMapping, error) {
	var model models.ProductMappingModel
	if err := r.db.WithContext(ctx).First(&model, "sku = ?", sku).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrMappingNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListActive returns up to limit active mappings with SKU greater than
// afterSKU, ordered by SKU
func (r *GormMappingRepository) ListActive(ctx context.Context, afterSKU string, limit int) ([]sync.ProductMapping, error) {
	var mappingModels []models.ProductMappingModel
	if err := r.db.WithContext(ctx).
		Where("is_active = ? AND sku > ?", true, afterSKU).
		Order("sku ASC").
		Limit(limit).
		Find(&mappingModels).Error; err != nil {
		return nil, err
	}

	mappings := make([]sync.ProductMapping, len(mappingModels))
	for i, model := range mappingModels {
		mappings[i] = *model.ToDomain()
	}
	return mappings, nil
}

// List returns mappings with offset pagination for the dashboard
func (r *GormMappingRepository) List(ctx context.Context, page, pageSize int) ([]sync.ProductMapping, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.ProductMappingModel{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var mappingModels []models.ProductMappingModel
	if err := r.db.WithContext(ctx).
		Order("sku ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&mappingModels).Error; err != nil {
		return nil, 0, err
	}

	mappings := make([]sync.ProductMapping, len(mappingModels))
	for i, model := range mappingModels {
		mappings[i] = *model.ToDomain()
	}
	return mappings, total, nil
}

// Save creates or updates a mapping, keyed by its primary key
func (r *GormMappingRepository) Save(ctx context.Context, mapping *sync.ProductMapping) error {
	model := models.ProductMappingModelFromDomain(mapping)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(model).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return sync.ErrMappingAlreadyExists
	}
	return err
}

// Deactivate soft-deactivates a mapping by SKU
func (r *GormMappingRepository) Deactivate(ctx context.Context, sku string) error {
	result := r.db.WithContext(ctx).
		Model(&models.ProductMappingModel{}).
		Where("sku = ?", sku).
		Updates(map[string]any{"is_active": false, "updated_at": gorm.Expr("NOW()")})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return sync.ErrMappingNotFound
	}
	return nil
}
