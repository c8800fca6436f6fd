package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Pricing Policy
// ---------------------------------------------------------------------------

// RateMode selects where the exchange rate for a mapping comes from
type RateMode string

const (
	// RateModeAuto reads the current row of the exchange rate table
	RateModeAuto RateMode = "auto"
	// RateModeManual uses the rate fixed on the mapping's policy
	RateModeManual RateMode = "manual"
)

// IsValid returns true if the rate mode is valid
func (m RateMode) IsValid() bool {
	return m == RateModeAuto || m == RateModeManual
}

// Margin multiplier bounds: 1.0 means no markup, 2.0 means 100% markup.
var (
	MinMarginMultiplier = decimal.NewFromInt(1)
	MaxMarginMultiplier = decimal.NewFromInt(2)
)

// PricingPolicy controls how the target platform price is derived from the
// source platform price.
type PricingPolicy struct {
	// MarginMultiplier is applied after currency conversion; must be in [1.0, 2.0]
	MarginMultiplier decimal.Decimal
	// ExchangeRateMode selects auto (rate table) or manual (fixed) conversion
	ExchangeRateMode RateMode
	// ManualRate is the fixed KRW-per-USD rate; required when mode is manual
	ManualRate *decimal.Decimal
}

// DefaultPricingPolicy returns a pass-through policy using the rate table
func DefaultPricingPolicy() PricingPolicy {
	return PricingPolicy{
		MarginMultiplier: decimal.NewFromInt(1),
		ExchangeRateMode: RateModeAuto,
	}
}

// Validate validates the pricing policy. Out-of-range margins are rejected,
// never silently clamped.
func (p PricingPolicy) Validate() error {
	if p.MarginMultiplier.LessThan(MinMarginMultiplier) || p.MarginMultiplier.GreaterThan(MaxMarginMultiplier) {
		return ErrPolicyMarginOutOfRange
	}
	if !p.ExchangeRateMode.IsValid() {
		return ErrPolicyInvalidRateMode
	}
	if p.ExchangeRateMode == RateModeManual {
		if p.ManualRate == nil || !p.ManualRate.IsPositive() {
			return ErrPolicyMissingManualRate
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Conflict Resolution Policy
// ---------------------------------------------------------------------------

// ConflictPolicy determines which platform's value wins when a scheduled sync
// or a drift correction finds the two channels disagreeing.
type ConflictPolicy string

const (
	// ConflictCafe24Priority pushes Cafe24's value to Shopify
	ConflictCafe24Priority ConflictPolicy = "cafe24-priority"
	// ConflictShopifyPriority pushes Shopify's value to Cafe24
	ConflictShopifyPriority ConflictPolicy = "shopify-priority"
	// ConflictManual reports the mismatch but never auto-corrects
	ConflictManual ConflictPolicy = "manual"
)

// IsValid returns true if the conflict policy is valid
func (c ConflictPolicy) IsValid() bool {
	switch c {
	case ConflictCafe24Priority, ConflictShopifyPriority, ConflictManual:
		return true
	default:
		return false
	}
}

// SourceOfTruth returns the winning platform, or false under manual policy.
func (c ConflictPolicy) SourceOfTruth() (Platform, bool) {
	switch c {
	case ConflictCafe24Priority:
		return PlatformCafe24, true
	case ConflictShopifyPriority:
		return PlatformShopify, true
	default:
		return "", false
	}
}

// ---------------------------------------------------------------------------
// Mapping Sync Status
// ---------------------------------------------------------------------------

// MappingSyncStatus is the last known sync outcome of a mapping
type MappingSyncStatus string

const (
	MappingSyncPending MappingSyncStatus = "pending"
	MappingSyncSynced  MappingSyncStatus = "synced"
	MappingSyncError   MappingSyncStatus = "error"
)

// ---------------------------------------------------------------------------
// ProductMapping Entity
// ---------------------------------------------------------------------------

// Policy errors
var (
	ErrPolicyMarginOutOfRange  = &policyError{"margin multiplier must be between 1.0 and 2.0"}
	ErrPolicyInvalidRateMode   = &policyError{"exchange rate mode must be auto or manual"}
	ErrPolicyMissingManualRate = &policyError{"manual rate mode requires a positive manual rate"}
	ErrPolicyInvalidConflict   = &policyError{"invalid conflict resolution policy"}
)

type policyError struct{ msg string }

func (e *policyError) Error() string { return "sync: " + e.msg }

// ProductMapping binds one merchant SKU to its identifiers on both platforms
// plus the pricing and conflict policies used when syncing it.
type ProductMapping struct {
	// ID is the unique identifier of this mapping
	ID uuid.UUID
	// SKU is the merchant-chosen stock keeping unit; unique and immutable
	SKU string
	// Cafe24ProductNo is the opaque product number on Cafe24
	Cafe24ProductNo string
	// ShopifyVariantID is the opaque variant ID on Shopify
	ShopifyVariantID string
	// Policy controls target price derivation
	Policy PricingPolicy
	// ConflictPolicy controls which side wins on drift correction
	ConflictPolicy ConflictPolicy
	// IsActive indicates whether sync paths consider this mapping
	IsActive bool
	// SyncStatus is mutated only by the sync orchestrator
	SyncStatus MappingSyncStatus
	// LastSyncedAt is when this mapping was last pushed successfully
	LastSyncedAt *time.Time
	// LastSyncError holds the most recent sync failure detail
	LastSyncError string
	// CreatedAt is when this mapping was created
	CreatedAt time.Time
	// UpdatedAt is when this mapping was last updated
	UpdatedAt time.Time
}

// NewProductMapping creates a new, inactive product mapping. At least one
// platform identifier is required; both are required before activation.
func NewProductMapping(sku, cafe24ProductNo, shopifyVariantID string) (*ProductMapping, error) {
	if sku == "" {
		return nil, ErrMappingInvalidSKU
	}
	if cafe24ProductNo == "" && shopifyVariantID == "" {
		return nil, ErrMappingMissingIdentity
	}

	now := time.Now()
	return &ProductMapping{
		ID:               uuid.New(),
		SKU:              sku,
		Cafe24ProductNo:  cafe24ProductNo,
		ShopifyVariantID: shopifyVariantID,
		Policy:           DefaultPricingPolicy(),
		ConflictPolicy:   ConflictManual,
		IsActive:         false,
		SyncStatus:       MappingSyncPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// Validate validates the mapping
func (m *ProductMapping) Validate() error {
	if m.SKU == "" {
		return ErrMappingInvalidSKU
	}
	if err := m.Policy.Validate(); err != nil {
		return err
	}
	if !m.ConflictPolicy.IsValid() {
		return ErrPolicyInvalidConflict
	}
	if m.IsActive && (m.Cafe24ProductNo == "" || m.ShopifyVariantID == "") {
		return ErrMappingMissingIdentity
	}
	return nil
}

// Activate activates the mapping. Both platform identifiers must be resolved.
func (m *ProductMapping) Activate() error {
	if m.Cafe24ProductNo == "" || m.ShopifyVariantID == "" {
		return ErrMappingMissingIdentity
	}
	m.IsActive = true
	m.UpdatedAt = time.Now()
	return nil
}

// Deactivate soft-deactivates the mapping. Mappings are never hard-deleted
// while ledger rows reference them.
func (m *ProductMapping) Deactivate() {
	m.IsActive = false
	m.UpdatedAt = time.Now()
}

// ExternalID returns the platform identifier for the given channel
func (m *ProductMapping) ExternalID(platform Platform) (string, bool) {
	switch platform {
	case PlatformCafe24:
		return m.Cafe24ProductNo, m.Cafe24ProductNo != ""
	case PlatformShopify:
		return m.ShopifyVariantID, m.ShopifyVariantID != ""
	default:
		return "", false
	}
}

// RecordSyncSuccess records a successful sync
func (m *ProductMapping) RecordSyncSuccess() {
	now := time.Now()
	m.SyncStatus = MappingSyncSynced
	m.LastSyncedAt = &now
	m.LastSyncError = ""
	m.UpdatedAt = now
}

// RecordSyncFailure records a failed sync
func (m *ProductMapping) RecordSyncFailure(errMsg string) {
	now := time.Now()
	m.SyncStatus = MappingSyncError
	m.LastSyncError = errMsg
	m.UpdatedAt = now
}

// ---------------------------------------------------------------------------
// MappingRepository Interface
// ---------------------------------------------------------------------------

// MappingRepository is the persistence port for product mappings. Reads are
// consistent with the latest committed write: no cache layer sits inside the
// core, so concurrent administrative edits are never served stale.
type MappingRepository interface {
	// FindBySKU finds a mapping by its SKU
	FindBySKU(ctx context.Context, sku string) (*ProductMapping, error)

	// ListActive returns up to limit active mappings with SKU greater than
	// afterSKU, ordered by SKU. Keyset pagination keeps long walks restartable.
	ListActive(ctx context.Context, afterSKU string, limit int) ([]ProductMapping, error)

	// List returns mappings with offset pagination for the dashboard
	List(ctx context.Context, page, pageSize int) ([]ProductMapping, int64, error)

	// Save creates or updates a mapping
	Save(ctx context.Context, mapping *ProductMapping) error

	// Deactivate soft-deactivates a mapping by SKU
	Deactivate(ctx context.Context, sku string) error
}
