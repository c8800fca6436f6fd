package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/channelsync/backend/internal/domain/sync"
)

// ProductMappingModel is the persistence model for the ProductMapping domain
// entity.
type ProductMappingModel struct {
	ID               uuid.UUID              `gorm:"type:uuid;primary_key"`
	SKU              string                 `gorm:"type:varchar(100);not null;uniqueIndex:idx_mappings_sku"`
	Cafe24ProductNo  string                 `gorm:"type:varchar(100);index:idx_mappings_cafe24"`
	ShopifyVariantID string                 `gorm:"type:varchar(100);index:idx_mappings_shopify"`
	MarginMultiplier decimal.Decimal        `gorm:"type:numeric(6,4);not null"`
	ExchangeRateMode sync.RateMode          `gorm:"type:varchar(10);not null;default:'auto'"`
	ManualRate       *decimal.Decimal       `gorm:"type:numeric(14,4)"`
	ConflictPolicy   sync.ConflictPolicy    `gorm:"type:varchar(20);not null;default:'manual'"`
	IsActive         bool                   `gorm:"not null;default:false;index:idx_mappings_active"`
	SyncStatus       sync.MappingSyncStatus `gorm:"type:varchar(10);not null;default:'pending'"`
	LastSyncedAt     *time.Time             `gorm:"index"`
	LastSyncError    string                 `gorm:"type:text"`
	CreatedAt        time.Time              `gorm:"not null"`
	UpdatedAt        time.Time              `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProductMappingModel) TableName() string {
	return "product_mappings"
}

// ToDomain converts the persistence model to a domain ProductMapping entity.
func (m *ProductMappingModel) ToDomain() *sync.ProductMapping {
	return &sync.ProductMapping{
		ID:               m.ID,
		SKU:              m.SKU,
		Cafe24ProductNo:  m.Cafe24ProductNo,
		ShopifyVariantID: m.ShopifyVariantID,
		Policy: sync.PricingPolicy{
			MarginMultiplier: m.MarginMultiplier,
			ExchangeRateMode: m.ExchangeRateMode,
			ManualRate:       m.ManualRate,
		},
		ConflictPolicy: m.ConflictPolicy,
		IsActive:       m.IsActive,
		SyncStatus:     m.SyncStatus,
		LastSyncedAt:   m.LastSyncedAt,
		LastSyncError:  m.LastSyncError,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain ProductMapping
// entity.
func (m *ProductMappingModel) FromDomain(pm *sync.ProductMapping) {
	m.ID = pm.ID
	m.SKU = pm.SKU
	m.Cafe24ProductNo = pm.Cafe24ProductNo
	m.ShopifyVariantID = pm.ShopifyVariantID
	m.MarginMultiplier = pm.Policy.MarginMultiplier
	m.ExchangeRateMode = pm.Policy.ExchangeRateMode
	m.ManualRate = pm.Policy.ManualRate
	m.ConflictPolicy = pm.ConflictPolicy
	m.IsActive = pm.IsActive
	m.SyncStatus = pm.SyncStatus
	m.LastSyncedAt = pm.LastSyncedAt
	m.LastSyncError = pm.LastSyncError
	m.CreatedAt = pm.CreatedAt
	m.UpdatedAt = pm.UpdatedAt
}

// ProductMappingModelFromDomain creates a new persistence model from a domain
// ProductMapping entity.
func ProductMappingModelFromDomain(pm *sync.ProductMapping) *ProductMappingModel {
	m := &ProductMappingModel{}
	m.FromDomain(pm)
	return m
}
