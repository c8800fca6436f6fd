package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/channelsync/backend/internal/domain/sync"
)

// Price engine errors
var (
	ErrInvalidSourcePrice    = errors.New("pricing: source price must be positive")
	ErrInvalidTargetPlatform = errors.New("pricing: target platform must be a channel")
)

// PriceHistory is one row per accepted price change: the source price, the
// rate used, the computed target price and the resulting sync outcome. Price
// changes are rate-bound rather than event-bound, so deduplication is "one
// pending row per SKU" instead of an event key.
type PriceHistory struct {
	ID             uuid.UUID
	SKU            string
	SourcePlatform sync.Platform
	SourcePrice    decimal.Decimal
	Rate           decimal.Decimal
	ComputedPrice  decimal.Decimal
	SyncStatus     sync.TransactionStatus
	ErrorMessage   string
	CreatedAt      time.Time
	SyncedAt       *time.Time
}

// NewPriceHistory records a pending price computation
func NewPriceHistory(sku string, source sync.Platform, sourcePrice, rate, computed decimal.Decimal) *PriceHistory {
	return &PriceHistory{
		ID:             uuid.New(),
		SKU:            sku,
		SourcePlatform: source,
		SourcePrice:    sourcePrice,
		Rate:           rate,
		ComputedPrice:  computed,
		SyncStatus:     sync.TransactionPending,
		CreatedAt:      time.Now(),
	}
}

// PriceHistoryRepository is the persistence port for the price audit trail
type PriceHistoryRepository interface {
	// RecordPending inserts a pending row unless one already exists for the
	// SKU. Returns created=false when a pending row is already in flight; the
	// constraint lives at the storage layer, mirroring the inventory ledger.
	RecordPending(ctx context.Context, h *PriceHistory) (created bool, err error)

	// MarkOutcome flips the sync outcome of a pending row
	MarkOutcome(ctx context.Context, id uuid.UUID, status sync.TransactionStatus, errMsg string) error

	// ListBySKU returns price history for a SKU, newest first
	ListBySKU(ctx context.Context, sku string, limit int) ([]PriceHistory, error)
}
