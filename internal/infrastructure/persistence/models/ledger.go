package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/channelsync/backend/internal/domain/sync"
)

// InventoryTransactionModel is the persistence model for the inventory ledger.
// The partial unique index on (order_id, order_line_item_id, transaction_type)
// is the idempotency guarantee: duplicate webhook deliveries fail the insert
// at the storage layer. Manual adjustments carry an empty order_id and are
// excluded from the constraint by the WHERE clause.
type InventoryTransactionModel struct {
	ID               uuid.UUID              `gorm:"type:uuid;primary_key"`
	SKU              string                 `gorm:"type:varchar(100);not null;index:idx_ledger_sku"`
	Platform         sync.Platform          `gorm:"type:varchar(20);not null"`
	TransactionType  sync.TransactionType   `gorm:"type:varchar(20);not null;uniqueIndex:idx_ledger_event_key,where:order_id <> ''"`
	QuantityDelta    int64                  `gorm:"not null"`
	PreviousQuantity int64                  `gorm:"not null;default:0"`
	NewQuantity      int64                  `gorm:"not null;default:0"`
	OrderID          string                 `gorm:"type:varchar(100);not null;default:'';uniqueIndex:idx_ledger_event_key,priority:1,where:order_id <> ''"`
	OrderLineItemID  string                 `gorm:"type:varchar(100);not null;default:'';uniqueIndex:idx_ledger_event_key,priority:2,where:order_id <> ''"`
	SyncStatus       sync.TransactionStatus `gorm:"type:varchar(10);not null;default:'pending';index:idx_ledger_status"`
	SyncedAt         *time.Time
	ErrorMessage     string    `gorm:"type:text"`
	CreatedAt        time.Time `gorm:"not null;index:idx_ledger_created"`
}

// TableName returns the table name for GORM
func (InventoryTransactionModel) TableName() string {
	return "inventory_transactions"
}

// ToDomain converts the persistence model to a domain InventoryTransaction
func (m *InventoryTransactionModel) ToDomain() *sync.InventoryTransaction {
	return &sync.InventoryTransaction{
		ID:               m.ID,
		SKU:              m.SKU,
		Platform:         m.Platform,
		Type:             m.TransactionType,
		QuantityDelta:    m.QuantityDelta,
		PreviousQuantity: m.PreviousQuantity,
		NewQuantity:      m.NewQuantity,
		OrderID:          m.OrderID,
		OrderLineItemID:  m.OrderLineItemID,
		SyncStatus:       m.SyncStatus,
		SyncedAt:         m.SyncedAt,
		ErrorMessage:     m.ErrorMessage,
		CreatedAt:        m.CreatedAt,
	}
}

// FromDomain populates the persistence model from a domain
// InventoryTransaction
func (m *InventoryTransactionModel) FromDomain(tx *sync.InventoryTransaction) {
	m.ID = tx.ID
	m.SKU = tx.SKU
	m.Platform = tx.Platform
	m.TransactionType = tx.Type
	m.QuantityDelta = tx.QuantityDelta
	m.PreviousQuantity = tx.PreviousQuantity
	m.NewQuantity = tx.NewQuantity
	m.OrderID = tx.OrderID
	m.OrderLineItemID = tx.OrderLineItemID
	m.SyncStatus = tx.SyncStatus
	m.SyncedAt = tx.SyncedAt
	m.ErrorMessage = tx.ErrorMessage
	m.CreatedAt = tx.CreatedAt
}

// InventoryTransactionModelFromDomain creates a new persistence model from a
// domain InventoryTransaction
func InventoryTransactionModelFromDomain(tx *sync.InventoryTransaction) *InventoryTransactionModel {
	m := &InventoryTransactionModel{}
	m.FromDomain(tx)
	return m
}
