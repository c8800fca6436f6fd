package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/channelsync/backend/internal/domain/pricing"
	"github.com/channelsync/backend/internal/domain/sync"
	"github.com/channelsync/backend/internal/infrastructure/persistence/models"
)

// GormPriceHistoryRepository implements pricing.PriceHistoryRepository using
// GORM. The partial unique index on (sku) WHERE sync_status = 'pending' makes
// RecordPending atomic, mirroring the inventory ledger's event key.
type GormPriceHistoryRepository struct {
	db *gorm.DB
}

var _ pricing.PriceHistoryRepository = (*GormPriceHistoryRepository)(nil)

// NewGormPriceHistoryRepository creates a new GormPriceHistoryRepository
func NewGormPriceHistoryRepository(db *gorm.DB) *GormPriceHistoryRepository {
	return &GormPriceHistoryRepository{db: db}
}

// RecordPending inserts a pending row unless one already exists for the SKU
func (r *GormPriceHistoryRepository) RecordPending(ctx context.Context, h *pricing.PriceHistory) (bool, error) {
	model := models.PriceHistoryModelFromDomain(h)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// MarkOutcome flips the sync outcome of a pending row
func (r *GormPriceHistoryRepository) MarkOutcome(ctx context.Context, id uuid.UUID, status sync.TransactionStatus, errMsg string) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.PriceHistoryModel{}).
		Where("id = ? AND sync_status = ?", id, sync.TransactionPending).
		Updates(map[string]any{
			"sync_status":   status,
			"error_message": errMsg,
			"synced_at":     &now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return sync.ErrTransactionNotPending
	}
	return nil
}

// ListBySKU returns price history for a SKU, newest first
func (r *GormPriceHistoryRepository) ListBySKU(ctx context.Context, sku string, limit int) ([]pricing.PriceHistory, error) {
	if limit < 1 || limit > 500 {
		limit = 50
	}

	var historyModels []models.PriceHistoryModel
	if err := r.db.WithContext(ctx).
		Where("sku = ?", sku).
		Order("created_at DESC").
		Limit(limit).
		Find(&historyModels).Error; err != nil {
		return nil, err
	}

	history := make([]pricing.PriceHistory, len(historyModels))
	for i, model := range historyModels {
		history[i] = *model.ToDomain()
	}
	return history, nil
}
