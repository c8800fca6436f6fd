package orchestration

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/channelsync/backend/internal/domain/pricing"
	"github.com/channelsync/backend/internal/domain/shared"
	"github.com/channelsync/backend/internal/domain/sync"
)

// Orchestrator drives all inventory and price pushes between the two
// platforms. Every push goes through the ledger first: the row is created
// before the counterpart API is called, so a duplicate delivery is rejected
// by the storage layer before it can cause a second API call.
type Orchestrator struct {
	mappings  sync.MappingRepository
	ledger    sync.TransactionLedger
	prices    pricing.PriceHistoryRepository
	rates     pricing.ExchangeRateRepository
	platforms sync.PlatformRegistry
	retry     shared.RetryPolicy
	logger    *zap.Logger
}

// NewOrchestrator creates an Orchestrator
func NewOrchestrator(
	mappings sync.MappingRepository,
	ledger sync.TransactionLedger,
	prices pricing.PriceHistoryRepository,
	rates pricing.ExchangeRateRepository,
	platforms sync.PlatformRegistry,
	retry shared.RetryPolicy,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		mappings:  mappings,
		ledger:    ledger,
		prices:    prices,
		rates:     rates,
		platforms: platforms,
		retry:     retry,
		logger:    logger.Named("orchestrator"),
	}
}

// HandleEvent processes one validated webhook event from the queue. A nil
// return consumes the event; an error leaves it pending for redelivery.
// Events for unknown or inactive SKUs are consumed with a log line, not
// retried: redelivery cannot make an unmapped product appear.
func (o *Orchestrator) HandleEvent(ctx context.Context, event sync.Event) error {
	if err := event.Validate(); err != nil {
		o.logger.Warn("Dropping invalid event", zap.String("sku", event.SKU), zap.Error(err))
		return nil
	}

	mapping, err := o.mappings.FindBySKU(ctx, event.SKU)
	if err != nil {
		if errors.Is(err, sync.ErrMappingNotFound) {
			o.logger.Info("Dropping event for unmapped SKU",
				zap.String("sku", event.SKU),
				zap.String("kind", string(event.Kind)))
			return nil
		}
		return err
	}
	if !mapping.IsActive {
		o.logger.Info("Dropping event for inactive mapping",
			zap.String("sku", event.SKU),
			zap.String("kind", string(event.Kind)))
		return nil
	}

	switch event.Kind {
	case sync.EventOrderCreate, sync.EventOrderCancel:
		return o.handleOrderEvent(ctx, mapping, event)
	case sync.EventInventoryUpdate:
		return o.handleInventoryEvent(ctx, mapping, event)
	case sync.EventPriceUpdate:
		return o.handlePriceEvent(ctx, mapping, event)
	default:
		return nil
	}
}

// handleOrderEvent records the ledger row and applies the delta to the
// counterpart platform. RecordIfNew is the idempotency gate: when the row
// already exists the event is consumed without a single API call.
func (o *Orchestrator) handleOrderEvent(ctx context.Context, mapping *sync.ProductMapping, event sync.Event) error {
	tx := sync.NewOrderTransaction(
		event.SKU, event.Source, event.TransactionType(), event.QuantityDelta(),
		event.OrderID, event.OrderLineItemID,
	)

	created, err := o.ledger.RecordIfNew(ctx, tx)
	if err != nil {
		return err
	}
	if !created {
		o.logger.Debug("Duplicate order event ignored",
			zap.String("sku", event.SKU),
			zap.String("order_id", event.OrderID),
			zap.String("line_item_id", event.OrderLineItemID))
		return nil
	}

	target, _ := event.Source.Counterpart()
	o.applyDelta(ctx, mapping, tx, target)
	return nil
}

// handleInventoryEvent pushes an absolute quantity to the counterpart
func (o *Orchestrator) handleInventoryEvent(ctx context.Context, mapping *sync.ProductMapping, event sync.Event) error {
	target, _ := event.Source.Counterpart()
	client, externalID, err := o.resolveTarget(mapping, target)
	if err != nil {
		o.logger.Warn("Cannot push inventory", zap.String("sku", event.SKU), zap.Error(err))
		return nil
	}

	var prev int64
	err = o.retry.Do(ctx, func(ctx context.Context) error {
		var getErr error
		prev, getErr = client.GetInventory(ctx, externalID)
		return getErr
	})
	if err != nil {
		o.recordMappingFailure(ctx, mapping, err)
		return nil
	}
	if prev == event.Quantity {
		return nil
	}

	tx := sync.NewAdjustmentTransaction(event.SKU, event.Source, sync.TransactionSync, event.Quantity-prev)
	if _, err := o.ledger.RecordIfNew(ctx, tx); err != nil {
		return err
	}

	pushErr := o.retry.Do(ctx, func(ctx context.Context) error {
		return client.SetInventory(ctx, externalID, event.Quantity)
	})
	o.settle(ctx, mapping, tx, prev, event.Quantity, pushErr)
	return nil
}

// handlePriceEvent derives the counterpart price and pushes it. The pending
// price history row is the dedup gate: while one push is in flight, further
// price events for the SKU are consumed without effect.
func (o *Orchestrator) handlePriceEvent(ctx context.Context, mapping *sync.ProductMapping, event sync.Event) error {
	target, _ := event.Source.Counterpart()

	rate, err := o.resolveRate(ctx, mapping.Policy)
	if err != nil {
		o.logger.Error("Cannot resolve exchange rate",
			zap.String("sku", event.SKU), zap.Error(err))
		o.recordMappingFailure(ctx, mapping, err)
		return nil
	}

	computed, err := pricing.TargetPrice(event.Price, mapping.Policy, rate, target)
	if err != nil {
		o.logger.Error("Price computation rejected",
			zap.String("sku", event.SKU), zap.Error(err))
		return nil
	}

	history := pricing.NewPriceHistory(event.SKU, event.Source, event.Price, rate, computed)
	created, err := o.prices.RecordPending(ctx, history)
	if err != nil {
		return err
	}
	if !created {
		o.logger.Debug("Price push already pending", zap.String("sku", event.SKU))
		return nil
	}

	client, externalID, err := o.resolveTarget(mapping, target)
	if err != nil {
		o.prices.MarkOutcome(ctx, history.ID, sync.TransactionFailed, err.Error())
		return nil
	}

	pushErr := o.retry.Do(ctx, func(ctx context.Context) error {
		return client.SetPrice(ctx, externalID, computed)
	})
	if pushErr != nil {
		o.prices.MarkOutcome(ctx, history.ID, sync.TransactionFailed, pushErr.Error())
		o.recordMappingFailure(ctx, mapping, pushErr)
		return nil
	}

	o.prices.MarkOutcome(ctx, history.ID, sync.TransactionCompleted, "")
	o.recordMappingSuccess(ctx, mapping)
	o.logger.Info("Price pushed",
		zap.String("sku", event.SKU),
		zap.String("target", target.String()),
		zap.String("price", computed.String()))
	return nil
}

// ApplyAdjustment records an operator stock correction and aligns both
// platforms to the corrected quantity. The baseline is read from the conflict
// policy's source of truth, falling back to Cafe24 under manual policy.
func (o *Orchestrator) ApplyAdjustment(ctx context.Context, sku string, delta int64) (*sync.InventoryTransaction, error) {
	mapping, err := o.mappings.FindBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}
	if !mapping.IsActive {
		return nil, sync.ErrMappingInactive
	}

	baseline := sync.PlatformCafe24
	if source, ok := mapping.ConflictPolicy.SourceOfTruth(); ok {
		baseline = source
	}
	client, externalID, err := o.resolveTarget(mapping, baseline)
	if err != nil {
		return nil, err
	}

	var prev int64
	err = o.retry.Do(ctx, func(ctx context.Context) error {
		var getErr error
		prev, getErr = client.GetInventory(ctx, externalID)
		return getErr
	})
	if err != nil {
		return nil, err
	}

	next := prev + delta
	if next < 0 {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "adjustment would make stock negative")
	}

	tx := sync.NewAdjustmentTransaction(sku, sync.PlatformManual, sync.TransactionAdjustment, delta)
	if _, err := o.ledger.RecordIfNew(ctx, tx); err != nil {
		return nil, err
	}

	pushErr := o.pushInventoryBoth(ctx, mapping, next)
	o.settle(ctx, mapping, tx, prev, next, pushErr)
	if pushErr != nil {
		return nil, pushErr
	}

	tx.PreviousQuantity = prev
	tx.NewQuantity = next
	tx.SyncStatus = sync.TransactionCompleted
	return tx, nil
}

// CorrectInventory pushes an absolute quantity to one platform as part of a
// drift correction, recording a sync-type ledger row
func (o *Orchestrator) CorrectInventory(ctx context.Context, mapping *sync.ProductMapping, target sync.Platform, prev, next int64) error {
	client, externalID, err := o.resolveTarget(mapping, target)
	if err != nil {
		return err
	}

	tx := sync.NewAdjustmentTransaction(mapping.SKU, target, sync.TransactionSync, next-prev)
	if _, err := o.ledger.RecordIfNew(ctx, tx); err != nil {
		return err
	}

	pushErr := o.retry.Do(ctx, func(ctx context.Context) error {
		return client.SetInventory(ctx, externalID, next)
	})
	o.settle(ctx, mapping, tx, prev, next, pushErr)
	return pushErr
}

// CorrectPrice pushes a derived price to one platform as part of a drift
// correction, recording it in the price history
func (o *Orchestrator) CorrectPrice(ctx context.Context, mapping *sync.ProductMapping, target sync.Platform, sourcePrice, rate, computed decimal.Decimal) error {
	source, _ := target.Counterpart()
	history := pricing.NewPriceHistory(mapping.SKU, source, sourcePrice, rate, computed)
	created, err := o.prices.RecordPending(ctx, history)
	if err != nil {
		return err
	}
	if !created {
		return nil
	}

	client, externalID, err := o.resolveTarget(mapping, target)
	if err != nil {
		o.prices.MarkOutcome(ctx, history.ID, sync.TransactionFailed, err.Error())
		return err
	}

	pushErr := o.retry.Do(ctx, func(ctx context.Context) error {
		return client.SetPrice(ctx, externalID, computed)
	})
	if pushErr != nil {
		o.prices.MarkOutcome(ctx, history.ID, sync.TransactionFailed, pushErr.Error())
		return pushErr
	}
	return o.prices.MarkOutcome(ctx, history.ID, sync.TransactionCompleted, "")
}

// ResolveRate resolves the conversion rate a mapping's policy prescribes now
func (o *Orchestrator) ResolveRate(ctx context.Context, policy sync.PricingPolicy) (decimal.Decimal, error) {
	return o.resolveRate(ctx, policy)
}

func (o *Orchestrator) resolveRate(ctx context.Context, policy sync.PricingPolicy) (decimal.Decimal, error) {
	if policy.ExchangeRateMode == sync.RateModeManual {
		return pricing.ResolveRate(policy, nil)
	}
	current, err := o.rates.CurrentAt(ctx, time.Now())
	if err != nil {
		return decimal.Zero, err
	}
	return pricing.ResolveRate(policy, current)
}

// applyDelta reads the counterpart quantity, applies the ledger row's delta
// and writes it back, then settles the row. Stock never goes below zero: an
// oversold delta clamps and the clamp is logged.
func (o *Orchestrator) applyDelta(ctx context.Context, mapping *sync.ProductMapping, tx *sync.InventoryTransaction, target sync.Platform) {
	client, externalID, err := o.resolveTarget(mapping, target)
	if err != nil {
		o.settle(ctx, mapping, tx, 0, 0, err)
		return
	}

	var prev, next int64
	pushErr := o.retry.Do(ctx, func(ctx context.Context) error {
		var getErr error
		prev, getErr = client.GetInventory(ctx, externalID)
		if getErr != nil {
			return getErr
		}
		next = prev + tx.QuantityDelta
		if next < 0 {
			o.logger.Warn("Clamping negative stock to zero",
				zap.String("sku", tx.SKU),
				zap.Int64("previous", prev),
				zap.Int64("delta", tx.QuantityDelta))
			next = 0
		}
		return client.SetInventory(ctx, externalID, next)
	})

	o.settle(ctx, mapping, tx, prev, next, pushErr)
}

// settle writes the ledger outcome and the mapping's sync status after a push
// attempt. Push failures are terminal for the row; the scheduled sync or a
// manual trigger re-aligns the platforms later.
func (o *Orchestrator) settle(ctx context.Context, mapping *sync.ProductMapping, tx *sync.InventoryTransaction, prev, next int64, pushErr error) {
	if pushErr != nil {
		if err := o.ledger.MarkSynced(ctx, tx.ID, sync.FailedOutcome(pushErr.Error())); err != nil {
			o.logger.Error("Failed to record ledger outcome",
				zap.String("transaction_id", tx.ID.String()), zap.Error(err))
		}
		o.recordMappingFailure(ctx, mapping, pushErr)
		o.logger.Error("Inventory push failed",
			zap.String("sku", tx.SKU),
			zap.String("type", string(tx.Type)),
			zap.Error(pushErr))
		return
	}

	if err := o.ledger.MarkSynced(ctx, tx.ID, sync.CompletedOutcome(prev, next)); err != nil {
		o.logger.Error("Failed to record ledger outcome",
			zap.String("transaction_id", tx.ID.String()), zap.Error(err))
	}
	o.recordMappingSuccess(ctx, mapping)
	o.logger.Info("Inventory pushed",
		zap.String("sku", tx.SKU),
		zap.String("type", string(tx.Type)),
		zap.Int64("previous", prev),
		zap.Int64("new", next))
}

// pushInventoryBoth aligns both channels to an absolute quantity
func (o *Orchestrator) pushInventoryBoth(ctx context.Context, mapping *sync.ProductMapping, quantity int64) error {
	for _, platform := range []sync.Platform{sync.PlatformCafe24, sync.PlatformShopify} {
		client, externalID, err := o.resolveTarget(mapping, platform)
		if err != nil {
			return err
		}
		err = o.retry.Do(ctx, func(ctx context.Context) error {
			return client.SetInventory(ctx, externalID, quantity)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// resolveTarget returns the client and external ID for a platform
func (o *Orchestrator) resolveTarget(mapping *sync.ProductMapping, target sync.Platform) (sync.PlatformClient, string, error) {
	client, err := o.platforms.Client(target)
	if err != nil {
		return nil, "", err
	}
	externalID, ok := mapping.ExternalID(target)
	if !ok {
		return nil, "", sync.ErrMappingMissingIdentity
	}
	return client, externalID, nil
}

func (o *Orchestrator) recordMappingSuccess(ctx context.Context, mapping *sync.ProductMapping) {
	mapping.RecordSyncSuccess()
	if err := o.mappings.Save(ctx, mapping); err != nil {
		o.logger.Error("Failed to update mapping sync status",
			zap.String("sku", mapping.SKU), zap.Error(err))
	}
}

func (o *Orchestrator) recordMappingFailure(ctx context.Context, mapping *sync.ProductMapping, cause error) {
	mapping.RecordSyncFailure(cause.Error())
	if err := o.mappings.Save(ctx, mapping); err != nil {
		o.logger.Error("Failed to update mapping sync status",
			zap.String("sku", mapping.SKU), zap.Error(err))
	}
}
