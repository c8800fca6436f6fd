package reconciliation

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/channelsync/backend/internal/application/orchestration"
	"github.com/channelsync/backend/internal/domain/pricing"
	"github.com/channelsync/backend/internal/domain/reconcile"
	"github.com/channelsync/backend/internal/domain/shared"
	"github.com/channelsync/backend/internal/domain/sync"
)

type checkerFixture struct {
	mappings *MockMappingRepository
	ledger   *MockTransactionLedger
	prices   *MockPriceHistoryRepository
	rates    *MockExchangeRateRepository
	reports  *MockDriftReportRepository
	cafe24   *MockPlatformClient
	shopify  *MockPlatformClient
	locker   *stubLocker
	subject  *Checker
}

func newCheckerFixture(autoCorrect bool) *checkerFixture {
	f := &checkerFixture{
		mappings: new(MockMappingRepository),
		ledger:   new(MockTransactionLedger),
		prices:   new(MockPriceHistoryRepository),
		rates:    new(MockExchangeRateRepository),
		reports:  new(MockDriftReportRepository),
		cafe24:   NewMockPlatformClient(sync.PlatformCafe24),
		shopify:  NewMockPlatformClient(sync.PlatformShopify),
		locker:   &stubLocker{},
	}

	registry := newStubRegistry(f.cafe24, f.shopify)
	retry := shared.RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
	orchestrator := orchestration.NewOrchestrator(
		f.mappings, f.ledger, f.prices, f.rates, registry, retry, zap.NewNop())

	cfg := DefaultConfig()
	cfg.InterCallDelay = 0
	cfg.AutoCorrect = autoCorrect

	f.subject = NewChecker(
		f.mappings, registry, orchestrator, f.reports,
		f.locker, retry, cfg, zap.NewNop())
	return f
}

func checkedMapping(sku string) *sync.ProductMapping {
	mapping, _ := sync.NewProductMapping(sku, "P0001", "39072856")
	mapping.Activate()
	mapping.Policy.MarginMultiplier = decimal.RequireFromString("1.15")
	mapping.ConflictPolicy = sync.ConflictCafe24Priority
	return mapping
}

func (f *checkerFixture) expectSinglePage(mapping *sync.ProductMapping) {
	f.mappings.On("ListActive", mock.Anything, "", mock.Anything).
		Return([]sync.ProductMapping{*mapping}, nil).Once()
	f.mappings.On("ListActive", mock.Anything, mapping.SKU, mock.Anything).
		Return([]sync.ProductMapping{}, nil).Once()
}

func (f *checkerFixture) expectAutoRate() {
	rate, _ := pricing.NewExchangeRate(decimal.NewFromInt(1250), pricing.RateSourceAuto, time.Now().Add(-time.Hour))
	f.rates.On("CurrentAt", mock.Anything, mock.Anything).Return(rate, nil)
}

func TestChecker_AlignedMappingReportsOK(t *testing.T) {
	f := newCheckerFixture(false)
	f.expectSinglePage(checkedMapping("TSHIRT-RED-M"))
	f.expectAutoRate()

	// 10000 KRW / 1250 * 1.15 = 9.20 USD, matching the live Shopify price
	f.cafe24.On("GetInventory", mock.Anything, "P0001").Return(int64(10), nil)
	f.cafe24.On("GetPrice", mock.Anything, "P0001").Return(decimal.NewFromInt(10000), nil)
	f.shopify.On("GetInventory", mock.Anything, "39072856").Return(int64(10), nil)
	f.shopify.On("GetPrice", mock.Anything, "39072856").Return(decimal.RequireFromString("9.20"), nil)
	f.reports.On("Save", mock.Anything, mock.Anything).Return(nil)

	report, err := f.subject.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.CheckedCount)
	assert.Equal(t, 0, report.MismatchCount)
	assert.Equal(t, 0, report.ErrorCount)
	require.Len(t, report.Entries, 1)
	assert.Equal(t, reconcile.DriftOK, report.Entries[0].Status)
	f.reports.AssertExpectations(t)
}

func TestChecker_OverlappingRunIsRejected(t *testing.T) {
	f := newCheckerFixture(false)
	f.locker.held = true

	_, err := f.subject.Run(context.Background())

	assert.ErrorIs(t, err, reconcile.ErrCheckInProgress)
	f.mappings.AssertNotCalled(t, "ListActive", mock.Anything, mock.Anything, mock.Anything)
}

func TestChecker_LockIsReleasedAfterRun(t *testing.T) {
	f := newCheckerFixture(false)
	f.mappings.On("ListActive", mock.Anything, "", mock.Anything).
		Return([]sync.ProductMapping{}, nil)
	f.reports.On("Save", mock.Anything, mock.Anything).Return(nil)

	_, err := f.subject.Run(context.Background())

	require.NoError(t, err)
	assert.False(t, f.locker.held)
}

func TestChecker_QuantityDriftIsFlagged(t *testing.T) {
	f := newCheckerFixture(false)
	f.expectSinglePage(checkedMapping("TSHIRT-RED-M"))
	f.expectAutoRate()

	f.cafe24.On("GetInventory", mock.Anything, "P0001").Return(int64(12), nil)
	f.cafe24.On("GetPrice", mock.Anything, "P0001").Return(decimal.NewFromInt(10000), nil)
	f.shopify.On("GetInventory", mock.Anything, "39072856").Return(int64(9), nil)
	f.shopify.On("GetPrice", mock.Anything, "39072856").Return(decimal.RequireFromString("9.20"), nil)
	f.reports.On("Save", mock.Anything, mock.Anything).Return(nil)

	report, err := f.subject.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.MismatchCount)
	require.Len(t, report.Entries, 1)
	entry := report.Entries[0]
	assert.Equal(t, reconcile.DriftMismatch, entry.Status)
	assert.Equal(t, int64(3), entry.QuantityDiff)
	// AutoCorrect off, nothing is pushed
	assert.False(t, entry.Corrected)
	f.shopify.AssertNotCalled(t, "SetInventory", mock.Anything, mock.Anything, mock.Anything)
}

func TestChecker_PriceThresholdBoundary(t *testing.T) {
	// Expected Shopify price is 9.20; the threshold is 10 percent. A diff
	// sitting exactly on the threshold is still aligned, only above it drifts.
	cases := []struct {
		name      string
		livePrice string
		want      reconcile.DriftStatus
	}{
		{"just over threshold", "10.13", reconcile.DriftMismatch},
		{"exactly at threshold", "10.12", reconcile.DriftOK},
		{"just under threshold", "10.11", reconcile.DriftOK},
		{"aligned", "9.20", reconcile.DriftOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newCheckerFixture(false)
			f.expectSinglePage(checkedMapping("TSHIRT-RED-M"))
			f.expectAutoRate()

			f.cafe24.On("GetInventory", mock.Anything, "P0001").Return(int64(10), nil)
			f.cafe24.On("GetPrice", mock.Anything, "P0001").Return(decimal.NewFromInt(10000), nil)
			f.shopify.On("GetInventory", mock.Anything, "39072856").Return(int64(10), nil)
			f.shopify.On("GetPrice", mock.Anything, "39072856").
				Return(decimal.RequireFromString(tc.livePrice), nil)
			f.reports.On("Save", mock.Anything, mock.Anything).Return(nil)

			report, err := f.subject.Run(context.Background())

			require.NoError(t, err)
			require.Len(t, report.Entries, 1)
			assert.Equal(t, tc.want, report.Entries[0].Status)
		})
	}
}

func TestChecker_UnreachablePlatformRecordsErrorEntry(t *testing.T) {
	f := newCheckerFixture(false)
	f.expectSinglePage(checkedMapping("TSHIRT-RED-M"))

	f.cafe24.On("GetInventory", mock.Anything, "P0001").
		Return(int64(0), shared.NewTransientError(sync.ErrPlatformUnavailable))
	f.reports.On("Save", mock.Anything, mock.Anything).Return(nil)

	report, err := f.subject.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.ErrorCount)
	require.Len(t, report.Entries, 1)
	entry := report.Entries[0]
	assert.Equal(t, reconcile.DriftError, entry.Status)
	assert.Contains(t, entry.Detail, "cafe24:")
	// The check never reached the other side
	f.shopify.AssertNotCalled(t, "GetInventory", mock.Anything, mock.Anything)
}

func TestChecker_AutoCorrectPushesSourceOfTruth(t *testing.T) {
	f := newCheckerFixture(true)
	f.expectSinglePage(checkedMapping("TSHIRT-RED-M"))
	f.expectAutoRate()

	f.cafe24.On("GetInventory", mock.Anything, "P0001").Return(int64(12), nil)
	f.cafe24.On("GetPrice", mock.Anything, "P0001").Return(decimal.NewFromInt(10000), nil)
	f.shopify.On("GetInventory", mock.Anything, "39072856").Return(int64(9), nil)
	f.shopify.On("GetPrice", mock.Anything, "39072856").Return(decimal.RequireFromString("9.20"), nil)

	f.ledger.On("RecordIfNew", mock.Anything, mock.MatchedBy(func(tx *sync.InventoryTransaction) bool {
		return tx.Type == sync.TransactionSync && tx.QuantityDelta == 3
	})).Return(true, nil)
	f.shopify.On("SetInventory", mock.Anything, "39072856", int64(12)).Return(nil)
	f.ledger.On("MarkSynced", mock.Anything, mock.Anything, sync.CompletedOutcome(9, 12)).Return(nil)
	f.mappings.On("Save", mock.Anything, mock.Anything).Return(nil)
	f.reports.On("Save", mock.Anything, mock.Anything).Return(nil)

	report, err := f.subject.Run(context.Background())

	require.NoError(t, err)
	require.Len(t, report.Entries, 1)
	entry := report.Entries[0]
	assert.Equal(t, reconcile.DriftMismatch, entry.Status)
	assert.True(t, entry.Corrected)
	f.shopify.AssertExpectations(t)
	f.ledger.AssertExpectations(t)
}

func TestChecker_ManualPolicyIsNeverAutoCorrected(t *testing.T) {
	f := newCheckerFixture(true)
	mapping := checkedMapping("TSHIRT-RED-M")
	mapping.ConflictPolicy = sync.ConflictManual
	f.expectSinglePage(mapping)
	f.expectAutoRate()

	f.cafe24.On("GetInventory", mock.Anything, "P0001").Return(int64(12), nil)
	f.cafe24.On("GetPrice", mock.Anything, "P0001").Return(decimal.NewFromInt(10000), nil)
	f.shopify.On("GetInventory", mock.Anything, "39072856").Return(int64(9), nil)
	f.shopify.On("GetPrice", mock.Anything, "39072856").Return(decimal.RequireFromString("9.20"), nil)
	f.reports.On("Save", mock.Anything, mock.Anything).Return(nil)

	report, err := f.subject.Run(context.Background())

	require.NoError(t, err)
	require.Len(t, report.Entries, 1)
	entry := report.Entries[0]
	assert.Equal(t, reconcile.DriftMismatch, entry.Status)
	assert.False(t, entry.Corrected)
	f.shopify.AssertNotCalled(t, "SetInventory", mock.Anything, mock.Anything, mock.Anything)
}
