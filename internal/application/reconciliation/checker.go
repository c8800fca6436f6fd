package reconciliation

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/channelsync/backend/internal/application/orchestration"
	"github.com/channelsync/backend/internal/domain/pricing"
	"github.com/channelsync/backend/internal/domain/reconcile"
	"github.com/channelsync/backend/internal/domain/shared"
	"github.com/channelsync/backend/internal/domain/sync"
)

// lockName serializes drift checks across all instances
const lockName = "drift-check"

// Locker is the single-flight gate. Satisfied by the Redis SETNX locker.
type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (bool, func(), error)
}

// Config holds drift check settings
type Config struct {
	// PriceThresholdPercent marks a price pair as drifted when the relative
	// difference exceeds this value. A pair sitting exactly on the threshold
	// is still aligned.
	PriceThresholdPercent decimal.Decimal
	// InterCallDelay spaces platform reads to stay under rate limits
	InterCallDelay time.Duration
	// LockTTL bounds how long a crashed run can hold the single-flight lock
	LockTTL time.Duration
	// AutoCorrect pushes the source of truth's values when drift is found;
	// manual-policy mappings are only ever reported
	AutoCorrect bool
	// ListBatchSize is how many mappings one keyset page holds
	ListBatchSize int
}

// DefaultConfig returns the drift check settings used when none are configured
func DefaultConfig() Config {
	return Config{
		PriceThresholdPercent: decimal.NewFromInt(10),
		InterCallDelay:        200 * time.Millisecond,
		LockTTL:               30 * time.Minute,
		AutoCorrect:           false,
		ListBatchSize:         100,
	}
}

// Checker walks all active mappings, compares live state on both platforms
// and records a drift report. At most one check runs at a time across all
// instances; an overlapping trigger returns ErrCheckInProgress.
type Checker struct {
	mappings     sync.MappingRepository
	platforms    sync.PlatformRegistry
	orchestrator *orchestration.Orchestrator
	reports      reconcile.DriftReportRepository
	locker       Locker
	retry        shared.RetryPolicy
	cfg          Config
	logger       *zap.Logger
}

// NewChecker creates a Checker
func NewChecker(
	mappings sync.MappingRepository,
	platforms sync.PlatformRegistry,
	orchestrator *orchestration.Orchestrator,
	reports reconcile.DriftReportRepository,
	locker Locker,
	retry shared.RetryPolicy,
	cfg Config,
	logger *zap.Logger,
) *Checker {
	if cfg.ListBatchSize < 1 {
		cfg.ListBatchSize = DefaultConfig().ListBatchSize
	}
	return &Checker{
		mappings:     mappings,
		platforms:    platforms,
		orchestrator: orchestrator,
		reports:      reports,
		locker:       locker,
		retry:        retry,
		cfg:          cfg,
		logger:       logger.Named("drift"),
	}
}

// Run executes one full drift check and persists the report
func (c *Checker) Run(ctx context.Context) (*reconcile.DriftReport, error) {
	acquired, release, err := c.locker.Acquire(ctx, lockName, c.cfg.LockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, reconcile.ErrCheckInProgress
	}
	defer release()

	report := reconcile.NewDriftReport()
	afterSKU := ""

	for {
		batch, err := c.mappings.ListActive(ctx, afterSKU, c.cfg.ListBatchSize)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}

		for i := range batch {
			mapping := &batch[i]
			afterSKU = mapping.SKU

			if err := ctx.Err(); err != nil {
				return nil, err
			}

			report.Add(c.checkMapping(ctx, mapping))
			c.pause(ctx)
		}
	}

	report.Finish()
	if err := c.reports.Save(ctx, report); err != nil {
		return nil, err
	}

	c.logger.Info("Drift check finished",
		zap.Int("checked", report.CheckedCount),
		zap.Int("mismatches", report.MismatchCount),
		zap.Int("errors", report.ErrorCount))
	return report, nil
}

// checkMapping compares one SKU's live state on both platforms. Prices are
// compared in the target currency: the source price is converted through the
// mapping's policy and the relative difference against the live target price
// decides drift.
func (c *Checker) checkMapping(ctx context.Context, mapping *sync.ProductMapping) reconcile.DriftEntry {
	entry := reconcile.DriftEntry{SKU: mapping.SKU, Status: reconcile.DriftOK}

	cafe24Qty, cafe24Price, err := c.readPlatform(ctx, mapping, sync.PlatformCafe24)
	if err != nil {
		entry.Status = reconcile.DriftError
		entry.Detail = "cafe24: " + err.Error()
		return entry
	}
	shopifyQty, shopifyPrice, err := c.readPlatform(ctx, mapping, sync.PlatformShopify)
	if err != nil {
		entry.Status = reconcile.DriftError
		entry.Detail = "shopify: " + err.Error()
		return entry
	}

	entry.Cafe24Quantity = cafe24Qty
	entry.ShopifyQuantity = shopifyQty
	entry.QuantityDiff = cafe24Qty - shopifyQty
	entry.Cafe24Price = cafe24Price
	entry.ShopifyPrice = shopifyPrice

	source := sync.PlatformCafe24
	if s, ok := mapping.ConflictPolicy.SourceOfTruth(); ok {
		source = s
	}
	target, _ := source.Counterpart()

	sourcePrice, targetPrice := cafe24Price, shopifyPrice
	if source == sync.PlatformShopify {
		sourcePrice, targetPrice = shopifyPrice, cafe24Price
	}

	rate, err := c.orchestrator.ResolveRate(ctx, mapping.Policy)
	if err != nil {
		entry.Status = reconcile.DriftError
		entry.Detail = "rate: " + err.Error()
		return entry
	}
	expected, err := pricing.TargetPrice(sourcePrice, mapping.Policy, rate, target)
	if err != nil {
		entry.Status = reconcile.DriftError
		entry.Detail = "price: " + err.Error()
		return entry
	}
	entry.ExpectedPrice = expected
	entry.PriceDiffPercent = reconcile.PriceDiffPercent(targetPrice, expected)

	quantityDrift := entry.QuantityDiff != 0
	priceDrift := entry.PriceDiffPercent.GreaterThan(c.cfg.PriceThresholdPercent)
	if !quantityDrift && !priceDrift {
		return entry
	}

	entry.Status = reconcile.DriftMismatch
	if _, hasSource := mapping.ConflictPolicy.SourceOfTruth(); c.cfg.AutoCorrect && hasSource {
		entry.Corrected = c.correct(ctx, mapping, entry, source, target, sourcePrice, rate, expected, quantityDrift, priceDrift)
	}
	return entry
}

// correct pushes the source of truth's values to the target platform
func (c *Checker) correct(
	ctx context.Context,
	mapping *sync.ProductMapping,
	entry reconcile.DriftEntry,
	source, target sync.Platform,
	sourcePrice, rate, expected decimal.Decimal,
	quantityDrift, priceDrift bool,
) bool {
	corrected := true

	if quantityDrift {
		sourceQty, targetQty := entry.Cafe24Quantity, entry.ShopifyQuantity
		if source == sync.PlatformShopify {
			sourceQty, targetQty = entry.ShopifyQuantity, entry.Cafe24Quantity
		}
		if err := c.orchestrator.CorrectInventory(ctx, mapping, target, targetQty, sourceQty); err != nil {
			c.logger.Error("Drift inventory correction failed",
				zap.String("sku", mapping.SKU), zap.Error(err))
			corrected = false
		}
	}

	if priceDrift {
		if err := c.orchestrator.CorrectPrice(ctx, mapping, target, sourcePrice, rate, expected); err != nil {
			c.logger.Error("Drift price correction failed",
				zap.String("sku", mapping.SKU), zap.Error(err))
			corrected = false
		}
	}

	return corrected
}

// readPlatform reads live quantity and price for one side
func (c *Checker) readPlatform(ctx context.Context, mapping *sync.ProductMapping, platform sync.Platform) (int64, decimal.Decimal, error) {
	client, err := c.platforms.Client(platform)
	if err != nil {
		return 0, decimal.Zero, err
	}
	externalID, ok := mapping.ExternalID(platform)
	if !ok {
		return 0, decimal.Zero, sync.ErrMappingMissingIdentity
	}

	var quantity int64
	var price decimal.Decimal
	err = c.retry.Do(ctx, func(ctx context.Context) error {
		var getErr error
		quantity, getErr = client.GetInventory(ctx, externalID)
		if getErr != nil {
			return getErr
		}
		price, getErr = client.GetPrice(ctx, externalID)
		return getErr
	})
	return quantity, price, err
}

func (c *Checker) pause(ctx context.Context) {
	if c.cfg.InterCallDelay <= 0 {
		return
	}
	timer := time.NewTimer(c.cfg.InterCallDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
