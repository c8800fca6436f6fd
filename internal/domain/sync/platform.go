package sync

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Platform Errors
// ---------------------------------------------------------------------------

var (
	// Platform errors
	ErrPlatformNotConfigured   = errors.New("sync: platform not configured")
	ErrPlatformUnavailable     = errors.New("sync: platform temporarily unavailable")
	ErrPlatformRequestFailed   = errors.New("sync: platform request failed")
	ErrPlatformInvalidResponse = errors.New("sync: invalid platform response")
	ErrPlatformRateLimited     = errors.New("sync: platform rate limited")

	// Mapping errors
	ErrMappingNotFound        = errors.New("sync: product mapping not found")
	ErrMappingInactive        = errors.New("sync: product mapping is inactive")
	ErrMappingInvalidSKU      = errors.New("sync: invalid SKU")
	ErrMappingMissingIdentity = errors.New("sync: mapping requires both platform identifiers before activation")
	ErrMappingAlreadyExists   = errors.New("sync: product mapping already exists")

	// Ledger errors
	ErrTransactionNotFound   = errors.New("sync: inventory transaction not found")
	ErrTransactionNotPending = errors.New("sync: inventory transaction is not pending")

	// Event errors
	ErrEventInvalidKind    = errors.New("sync: unknown webhook event kind")
	ErrEventInvalidPayload = errors.New("sync: invalid webhook event payload")
)

// ---------------------------------------------------------------------------
// Platform represents one of the connected commerce channels
// ---------------------------------------------------------------------------

// Platform represents one of the connected commerce channels
type Platform string

const (
	// PlatformCafe24 is the Korean storefront (local currency, KRW)
	PlatformCafe24 Platform = "cafe24"
	// PlatformShopify is the international storefront (foreign currency, USD)
	PlatformShopify Platform = "shopify"
	// PlatformManual marks operator-initiated adjustments
	PlatformManual Platform = "manual"
)

// IsValid returns true if the platform is valid
func (p Platform) IsValid() bool {
	switch p {
	case PlatformCafe24, PlatformShopify, PlatformManual:
		return true
	default:
		return false
	}
}

// IsChannel returns true for platforms that have a live API counterpart
func (p Platform) IsChannel() bool {
	return p == PlatformCafe24 || p == PlatformShopify
}

// Counterpart returns the opposite channel. Manual has no counterpart.
func (p Platform) Counterpart() (Platform, bool) {
	switch p {
	case PlatformCafe24:
		return PlatformShopify, true
	case PlatformShopify:
		return PlatformCafe24, true
	default:
		return "", false
	}
}

// String returns the string representation of Platform
func (p Platform) String() string {
	return string(p)
}

// ---------------------------------------------------------------------------
// PlatformClient Port Interface
// ---------------------------------------------------------------------------

// PlatformClient is the port interface for a commerce platform's stock and
// price APIs. Concrete adapters (Cafe24, Shopify) live in the infrastructure
// layer; authentication and rate limiting are handled inside the adapter.
type PlatformClient interface {
	// Platform returns the platform this client talks to
	Platform() Platform

	// GetInventory returns the live available quantity for an external ID
	GetInventory(ctx context.Context, externalID string) (int64, error)

	// SetInventory sets the available quantity for an external ID
	SetInventory(ctx context.Context, externalID string, quantity int64) error

	// GetPrice returns the live selling price for an external ID
	GetPrice(ctx context.Context, externalID string) (decimal.Decimal, error)

	// SetPrice sets the selling price for an external ID
	SetPrice(ctx context.Context, externalID string, price decimal.Decimal) error
}

// PlatformRegistry provides access to the configured platform clients
type PlatformRegistry interface {
	// Client returns the client for the given platform
	Client(platform Platform) (PlatformClient, error)
}
