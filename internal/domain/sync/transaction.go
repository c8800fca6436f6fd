package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Inventory Transaction Entity
// ---------------------------------------------------------------------------

// TransactionType classifies what caused an inventory change
type TransactionType string

const (
	// TransactionSale is stock sold on one platform
	TransactionSale TransactionType = "sale"
	// TransactionRestock is stock returned by a cancellation or refund
	TransactionRestock TransactionType = "restock"
	// TransactionAdjustment is an operator-initiated correction
	TransactionAdjustment TransactionType = "adjustment"
	// TransactionSync is a corrective push from a scheduled sync or drift check
	TransactionSync TransactionType = "sync"
)

// IsValid returns true if the transaction type is valid
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionSale, TransactionRestock, TransactionAdjustment, TransactionSync:
		return true
	default:
		return false
	}
}

// TransactionStatus is the sync outcome of a ledger row
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
)

// InventoryTransaction is one append-only ledger row per inventory-affecting
// occurrence. Rows are created exactly once per accepted event; afterwards
// only the sync outcome fields change.
type InventoryTransaction struct {
	// ID is the unique identifier of this transaction
	ID uuid.UUID
	// SKU identifies the mapping this transaction belongs to
	SKU string
	// Platform is where the change originated
	Platform Platform
	// Type classifies the change
	Type TransactionType
	// QuantityDelta is the signed stock change pushed to the counterpart
	QuantityDelta int64
	// PreviousQuantity is the counterpart quantity before the push
	PreviousQuantity int64
	// NewQuantity is the counterpart quantity after the push
	NewQuantity int64
	// OrderID is the originating platform order; empty for manual/scheduled rows
	OrderID string
	// OrderLineItemID is the originating order line; empty when OrderID is empty
	OrderLineItemID string
	// SyncStatus is pending until the counterpart push resolves
	SyncStatus TransactionStatus
	// SyncedAt is when the push resolved
	SyncedAt *time.Time
	// ErrorMessage holds the failure detail after retry exhaustion
	ErrorMessage string
	// CreatedAt is when the row was recorded
	CreatedAt time.Time
}

// NewOrderTransaction builds a ledger row for an order-derived event. The
// triple (OrderID, OrderLineItemID, Type) is the idempotency key enforced by
// the storage layer.
func NewOrderTransaction(sku string, platform Platform, txType TransactionType, quantityDelta int64, orderID, lineItemID string) *InventoryTransaction {
	return &InventoryTransaction{
		ID:              uuid.New(),
		SKU:             sku,
		Platform:        platform,
		Type:            txType,
		QuantityDelta:   quantityDelta,
		OrderID:         orderID,
		OrderLineItemID: lineItemID,
		SyncStatus:      TransactionPending,
		CreatedAt:       time.Now(),
	}
}

// NewAdjustmentTransaction builds a ledger row with no originating order.
// Such rows are exempt from the idempotency constraint.
func NewAdjustmentTransaction(sku string, platform Platform, txType TransactionType, quantityDelta int64) *InventoryTransaction {
	return &InventoryTransaction{
		ID:            uuid.New(),
		SKU:           sku,
		Platform:      platform,
		Type:          txType,
		QuantityDelta: quantityDelta,
		SyncStatus:    TransactionPending,
		CreatedAt:     time.Now(),
	}
}

// HasEventKey returns true when the row carries an order-derived idempotency key
func (t *InventoryTransaction) HasEventKey() bool {
	return t.OrderID != ""
}

// ---------------------------------------------------------------------------
// Sync Outcome
// ---------------------------------------------------------------------------

// SyncOutcome is the terminal result of applying a transaction to the
// counterpart platform. Quantities are learned during the apply step and
// written back together with the status flip.
type SyncOutcome struct {
	Status           TransactionStatus
	PreviousQuantity int64
	NewQuantity      int64
	ErrorMessage     string
}

// CompletedOutcome returns a successful outcome
func CompletedOutcome(previous, next int64) SyncOutcome {
	return SyncOutcome{Status: TransactionCompleted, PreviousQuantity: previous, NewQuantity: next}
}

// FailedOutcome returns a failed outcome with error detail
func FailedOutcome(errMsg string) SyncOutcome {
	return SyncOutcome{Status: TransactionFailed, ErrorMessage: errMsg}
}

// ---------------------------------------------------------------------------
// TransactionLedger Interface
// ---------------------------------------------------------------------------

// TransactionFilter filters ledger queries for the audit trail
type TransactionFilter struct {
	SKU      string
	Platform *Platform
	Type     *TransactionType
	Status   *TransactionStatus
	Page     int
	PageSize int
}

// TransactionLedger is the persistence port for the idempotent inventory
// ledger. RecordIfNew must be atomic with the uniqueness check: duplicates
// fail at the storage layer, never via read-then-write.
type TransactionLedger interface {
	// RecordIfNew inserts the transaction unless its event key already exists.
	// Returns created=false (and no error) when the key was already recorded.
	RecordIfNew(ctx context.Context, tx *InventoryTransaction) (created bool, err error)

	// MarkSynced flips the sync outcome of a pending row. Never deletes.
	MarkSynced(ctx context.Context, id uuid.UUID, outcome SyncOutcome) error

	// FindByID returns a transaction by ID
	FindByID(ctx context.Context, id uuid.UUID) (*InventoryTransaction, error)

	// List returns ledger rows for the dashboard audit trail, newest first
	List(ctx context.Context, filter TransactionFilter) ([]InventoryTransaction, int64, error)
}
