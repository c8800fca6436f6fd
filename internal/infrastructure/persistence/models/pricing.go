package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/channelsync/backend/internal/domain/pricing"
	"github.com/channelsync/backend/internal/domain/sync"
)

// PriceHistoryModel is the persistence model for the price audit trail.
// The partial unique index allows at most one pending row per SKU, which is
// the dedup rule for price pushes.
type PriceHistoryModel struct {
	ID             uuid.UUID              `gorm:"type:uuid;primary_key"`
	SKU            string                 `gorm:"type:varchar(100);not null;index:idx_price_history_sku;uniqueIndex:idx_price_history_pending,where:sync_status = 'pending'"`
	SourcePlatform sync.Platform          `gorm:"type:varchar(20);not null"`
	SourcePrice    decimal.Decimal        `gorm:"type:numeric(14,4);not null"`
	Rate           decimal.Decimal        `gorm:"type:numeric(14,4);not null"`
	ComputedPrice  decimal.Decimal        `gorm:"type:numeric(14,4);not null"`
	SyncStatus     sync.TransactionStatus `gorm:"type:varchar(10);not null;default:'pending'"`
	ErrorMessage   string                 `gorm:"type:text"`
	CreatedAt      time.Time              `gorm:"not null;index:idx_price_history_created"`
	SyncedAt       *time.Time
}

// TableName returns the table name for GORM
func (PriceHistoryModel) TableName() string {
	return "price_history"
}

// ToDomain converts the persistence model to a domain PriceHistory
func (m *PriceHistoryModel) ToDomain() *pricing.PriceHistory {
	return &pricing.PriceHistory{
		ID:             m.ID,
		SKU:            m.SKU,
		SourcePlatform: m.SourcePlatform,
		SourcePrice:    m.SourcePrice,
		Rate:           m.Rate,
		ComputedPrice:  m.ComputedPrice,
		SyncStatus:     m.SyncStatus,
		ErrorMessage:   m.ErrorMessage,
		CreatedAt:      m.CreatedAt,
		SyncedAt:       m.SyncedAt,
	}
}

// PriceHistoryModelFromDomain creates a new persistence model from a domain
// PriceHistory
func PriceHistoryModelFromDomain(h *pricing.PriceHistory) *PriceHistoryModel {
	return &PriceHistoryModel{
		ID:             h.ID,
		SKU:            h.SKU,
		SourcePlatform: h.SourcePlatform,
		SourcePrice:    h.SourcePrice,
		Rate:           h.Rate,
		ComputedPrice:  h.ComputedPrice,
		SyncStatus:     h.SyncStatus,
		ErrorMessage:   h.ErrorMessage,
		CreatedAt:      h.CreatedAt,
		SyncedAt:       h.SyncedAt,
	}
}

// ExchangeRateModel is the persistence model for the KRW-per-USD rate series
type ExchangeRateModel struct {
	ID         uuid.UUID          `gorm:"type:uuid;primary_key"`
	Rate       decimal.Decimal    `gorm:"type:numeric(14,4);not null"`
	Source     pricing.RateSource `gorm:"type:varchar(10);not null"`
	ValidFrom  time.Time          `gorm:"not null;index:idx_exchange_rates_valid_from"`
	ValidUntil *time.Time
	CreatedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ExchangeRateModel) TableName() string {
	return "exchange_rates"
}

// ToDomain converts the persistence model to a domain ExchangeRate
func (m *ExchangeRateModel) ToDomain() *pricing.ExchangeRate {
	return &pricing.ExchangeRate{
		ID:         m.ID,
		Rate:       m.Rate,
		Source:     m.Source,
		ValidFrom:  m.ValidFrom,
		ValidUntil: m.ValidUntil,
		CreatedAt:  m.CreatedAt,
	}
}

// ExchangeRateModelFromDomain creates a new persistence model from a domain
// ExchangeRate
func ExchangeRateModelFromDomain(r *pricing.ExchangeRate) *ExchangeRateModel {
	return &ExchangeRateModel{
		ID:         r.ID,
		Rate:       r.Rate,
		Source:     r.Source,
		ValidFrom:  r.ValidFrom,
		ValidUntil: r.ValidUntil,
		CreatedAt:  r.CreatedAt,
	}
}
