package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/channelsync/backend/internal/domain/sync"
	"github.com/channelsync/backend/internal/infrastructure/persistence/models"
)

// GormTransactionLedger implements sync.TransactionLedger using GORM. The
// partial unique index on the event key makes RecordIfNew atomic: the insert
// and the uniqueness check are a single statement, so two concurrent
// deliveries of the same webhook cannot both create a row.
type GormTransactionLedger struct {
	db *gorm.DB
}

var _ sync.TransactionLedger = (*GormTransactionLedger)(nil)

// NewGormTransactionLedger creates a new GormTransactionLedger
func NewGormTransactionLedger(db *gorm.DB) *GormTransactionLedger {
	return &GormTransactionLedger{db: db}
}

// RecordIfNew inserts the transaction unless its event key already exists.
// Requires a gorm connection opened with TranslateError so the driver's
// unique violation surfaces as gorm.ErrDuplicatedKey.
func (r *GormTransactionLedger) RecordIfNew(ctx context.Context, tx *sync.InventoryTransaction) (bool, error) {
	model := models.InventoryTransactionModelFromDomain(tx)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// MarkSynced flips the sync outcome of a pending row
func (r *GormTransactionLedger) MarkSynced(ctx context.Context, id uuid.UUID, outcome sync.SyncOutcome) error {
	now := time.Now()
	updates := map[string]any{
		"sync_status":       outcome.Status,
		"previous_quantity": outcome.PreviousQuantity,
		"new_quantity":      outcome.NewQuantity,
		"error_message":     outcome.ErrorMessage,
		"synced_at":         &now,
	}

	result := r.db.WithContext(ctx).
		Model(&models.InventoryTransactionModel{}).
		Where("id = ? AND sync_status = ?", id, sync.TransactionPending).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return sync.ErrTransactionNotPending
	}
	return nil
}

// FindByID returns a transaction by ID
func (r *GormTransactionLedger) FindByID(ctx context.Context, id uuid.UUID) (*sync.InventoryTransaction, error) {
	var model models.InventoryTransactionModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrTransactionNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// List returns ledger rows for the dashboard audit trail, newest first
func (r *GormTransactionLedger) List(ctx context.Context, filter sync.TransactionFilter) ([]sync.InventoryTransaction, int64, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	query := r.db.WithContext(ctx).Model(&models.InventoryTransactionModel{})
	if filter.SKU != "" {
		query = query.Where("sku = ?", filter.SKU)
	}
	if filter.Platform != nil {
		query = query.Where("platform = ?", *filter.Platform)
	}
	if filter.Type != nil {
		query = query.Where("transaction_type = ?", *filter.Type)
	}
	if filter.Status != nil {
		query = query.Where("sync_status = ?", *filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var txModels []models.InventoryTransactionModel
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&txModels).Error; err != nil {
		return nil, 0, err
	}

	transactions := make([]sync.InventoryTransaction, len(txModels))
	for i, model := range txModels {
		transactions[i] = *model.ToDomain()
	}
	return transactions, total, nil
}
