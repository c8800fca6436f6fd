package orchestration

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/channelsync/backend/internal/domain/pricing"
	"github.com/channelsync/backend/internal/domain/sync"
)

// BatchConfig holds the scheduled walk settings
type BatchConfig struct {
	// ListBatchSize is how many mappings one keyset page holds
	ListBatchSize int
	// LowStockThreshold flags mappings at or under this quantity
	LowStockThreshold int64
	// InterCallDelay spaces platform calls to stay under rate limits
	InterCallDelay time.Duration
}

// DefaultBatchConfig returns the walk settings used when none are configured
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		ListBatchSize:     100,
		LowStockThreshold: 5,
		InterCallDelay:    100 * time.Millisecond,
	}
}

// BatchResult summarizes one scheduled walk
type BatchResult struct {
	Checked int `json:"checked"`
	Pushed  int `json:"pushed"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// LowStockItem is one mapping flagged by the low stock scan
type LowStockItem struct {
	SKU      string `json:"sku"`
	Quantity int64  `json:"quantity"`
}

// BatchSyncer runs the scheduled full walks over all active mappings. Each
// walk pages with keyset pagination so an interrupted run can restart without
// re-reading earlier pages.
type BatchSyncer struct {
	orchestrator *Orchestrator
	mappings     sync.MappingRepository
	platforms    sync.PlatformRegistry
	cfg          BatchConfig
	logger       *zap.Logger
}

// NewBatchSyncer creates a BatchSyncer
func NewBatchSyncer(orchestrator *Orchestrator, mappings sync.MappingRepository, platforms sync.PlatformRegistry, cfg BatchConfig, logger *zap.Logger) *BatchSyncer {
	if cfg.ListBatchSize < 1 {
		cfg.ListBatchSize = DefaultBatchConfig().ListBatchSize
	}
	return &BatchSyncer{
		orchestrator: orchestrator,
		mappings:     mappings,
		platforms:    platforms,
		cfg:          cfg,
		logger:       logger.Named("batch"),
	}
}

// RunFullSync pushes inventory and price for every active mapping
func (b *BatchSyncer) RunFullSync(ctx context.Context) (*BatchResult, error) {
	return b.walk(ctx, true, true)
}

// RunInventorySync pushes inventory only
func (b *BatchSyncer) RunInventorySync(ctx context.Context) (*BatchResult, error) {
	return b.walk(ctx, true, false)
}

// RunPriceSync pushes derived prices only
func (b *BatchSyncer) RunPriceSync(ctx context.Context) (*BatchResult, error) {
	return b.walk(ctx, false, true)
}

// walk pages through active mappings and re-aligns the counterpart from the
// conflict policy's source of truth. Manual-policy mappings are skipped: they
// are reported by the drift check, never auto-corrected.
func (b *BatchSyncer) walk(ctx context.Context, doInventory, doPrice bool) (*BatchResult, error) {
	result := &BatchResult{}
	afterSKU := ""

	for {
		batch, err := b.mappings.ListActive(ctx, afterSKU, b.cfg.ListBatchSize)
		if err != nil {
			return result, err
		}
		if len(batch) == 0 {
			return result, nil
		}

		for i := range batch {
			mapping := &batch[i]
			afterSKU = mapping.SKU
			result.Checked++

			if err := ctx.Err(); err != nil {
				return result, err
			}

			source, ok := mapping.ConflictPolicy.SourceOfTruth()
			if !ok {
				result.Skipped++
				continue
			}
			target, _ := source.Counterpart()

			if doInventory {
				b.syncInventory(ctx, mapping, source, target, result)
			}
			if doPrice {
				b.syncPrice(ctx, mapping, source, target, result)
			}

			b.pause(ctx)
		}
	}
}

// syncInventory pushes the source quantity to the target when they differ
func (b *BatchSyncer) syncInventory(ctx context.Context, mapping *sync.ProductMapping, source, target sync.Platform, result *BatchResult) {
	sourceQty, err := b.readInventory(ctx, mapping, source)
	if err != nil {
		result.Failed++
		b.logger.Warn("Cannot read source inventory",
			zap.String("sku", mapping.SKU), zap.Error(err))
		return
	}
	targetQty, err := b.readInventory(ctx, mapping, target)
	if err != nil {
		result.Failed++
		b.logger.Warn("Cannot read target inventory",
			zap.String("sku", mapping.SKU), zap.Error(err))
		return
	}
	if sourceQty == targetQty {
		return
	}

	if err := b.orchestrator.CorrectInventory(ctx, mapping, target, targetQty, sourceQty); err != nil {
		result.Failed++
		return
	}
	result.Pushed++
}

// syncPrice recomputes the target price from the source price and pushes it
// when the live target price differs
func (b *BatchSyncer) syncPrice(ctx context.Context, mapping *sync.ProductMapping, source, target sync.Platform, result *BatchResult) {
	sourcePrice, err := b.readPrice(ctx, mapping, source)
	if err != nil {
		result.Failed++
		b.logger.Warn("Cannot read source price",
			zap.String("sku", mapping.SKU), zap.Error(err))
		return
	}

	rate, err := b.orchestrator.ResolveRate(ctx, mapping.Policy)
	if err != nil {
		result.Failed++
		b.logger.Warn("Cannot resolve rate", zap.String("sku", mapping.SKU), zap.Error(err))
		return
	}

	expected, err := pricing.TargetPrice(sourcePrice, mapping.Policy, rate, target)
	if err != nil {
		result.Failed++
		b.logger.Warn("Price computation rejected",
			zap.String("sku", mapping.SKU), zap.Error(err))
		return
	}

	actual, err := b.readPrice(ctx, mapping, target)
	if err != nil {
		result.Failed++
		return
	}
	if actual.Equal(expected) {
		return
	}

	if err := b.orchestrator.CorrectPrice(ctx, mapping, target, sourcePrice, rate, expected); err != nil {
		result.Failed++
		return
	}
	result.Pushed++
}

// RunLowStockScan flags active mappings whose source-of-truth stock is at or
// under the threshold
func (b *BatchSyncer) RunLowStockScan(ctx context.Context) ([]LowStockItem, error) {
	var flagged []LowStockItem
	afterSKU := ""

	for {
		batch, err := b.mappings.ListActive(ctx, afterSKU, b.cfg.ListBatchSize)
		if err != nil {
			return flagged, err
		}
		if len(batch) == 0 {
			return flagged, nil
		}

		for i := range batch {
			mapping := &batch[i]
			afterSKU = mapping.SKU

			if err := ctx.Err(); err != nil {
				return flagged, err
			}

			source := sync.PlatformCafe24
			if s, ok := mapping.ConflictPolicy.SourceOfTruth(); ok {
				source = s
			}
			quantity, err := b.readInventory(ctx, mapping, source)
			if err != nil {
				b.logger.Warn("Cannot read inventory for low stock scan",
					zap.String("sku", mapping.SKU), zap.Error(err))
				continue
			}
			if quantity <= b.cfg.LowStockThreshold {
				flagged = append(flagged, LowStockItem{SKU: mapping.SKU, Quantity: quantity})
				b.logger.Warn("Low stock",
					zap.String("sku", mapping.SKU),
					zap.Int64("quantity", quantity),
					zap.Int64("threshold", b.cfg.LowStockThreshold))
			}

			b.pause(ctx)
		}
	}
}

func (b *BatchSyncer) readInventory(ctx context.Context, mapping *sync.ProductMapping, platform sync.Platform) (int64, error) {
	client, externalID, err := b.orchestrator.resolveTarget(mapping, platform)
	if err != nil {
		return 0, err
	}
	var quantity int64
	err = b.orchestrator.retry.Do(ctx, func(ctx context.Context) error {
		var getErr error
		quantity, getErr = client.GetInventory(ctx, externalID)
		return getErr
	})
	return quantity, err
}

func (b *BatchSyncer) readPrice(ctx context.Context, mapping *sync.ProductMapping, platform sync.Platform) (price decimal.Decimal, err error) {
	client, externalID, err := b.orchestrator.resolveTarget(mapping, platform)
	if err != nil {
		return decimal.Zero, err
	}
	err = b.orchestrator.retry.Do(ctx, func(ctx context.Context) error {
		var getErr error
		price, getErr = client.GetPrice(ctx, externalID)
		return getErr
	})
	return price, err
}

func (b *BatchSyncer) pause(ctx context.Context) {
	if b.cfg.InterCallDelay <= 0 {
		return
	}
	timer := time.NewTimer(b.cfg.InterCallDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
