package orchestration

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/channelsync/backend/internal/domain/pricing"
	"github.com/channelsync/backend/internal/domain/sync"
)

// MockMappingRepository is a mock implementation of sync.MappingRepository
type MockMappingRepository struct {
	mock.Mock
}

func (m *MockMappingRepository) FindBySKU(ctx context.Context, sku string) (*sync.ProductMapping, error) {
	args := m.Called(ctx, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sync.ProductMapping), args.Error(1)
}

func (m *MockMappingRepository) ListActive(ctx context.Context, afterSKU string, limit int) ([]sync.ProductMapping, error) {
	args := m.Called(ctx, afterSKU, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]sync.ProductMapping), args.Error(1)
}

func (m *MockMappingRepository) List(ctx context.Context, page, pageSize int) ([]sync.ProductMapping, int64, error) {
	args := m.Called(ctx, page, pageSize)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]sync.ProductMapping), args.Get(1).(int64), args.Error(2)
}

func (m *MockMappingRepository) Save(ctx context.Context, mapping *sync.ProductMapping) error {
	args := m.Called(ctx, mapping)
	return args.Error(0)
}

func (m *MockMappingRepository) Deactivate(ctx context.Context, sku string) error {
	args := m.Called(ctx, sku)
	return args.Error(0)
}

// MockTransactionLedger is a mock implementation of sync.TransactionLedger
type MockTransactionLedger struct {
	mock.Mock
}

func (m *MockTransactionLedger) RecordIfNew(ctx context.Context, tx *sync.InventoryTransaction) (bool, error) {
	args := m.Called(ctx, tx)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransactionLedger) MarkSynced(ctx context.Context, id uuid.UUID, outcome sync.SyncOutcome) error {
	args := m.Called(ctx, id, outcome)
	return args.Error(0)
}

func (m *MockTransactionLedger) FindByID(ctx context.Context, id uuid.UUID) (*sync.InventoryTransaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sync.InventoryTransaction), args.Error(1)
}

func (m *MockTransactionLedger) List(ctx context.Context, filter sync.TransactionFilter) ([]sync.InventoryTransaction, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]sync.InventoryTransaction), args.Get(1).(int64), args.Error(2)
}

// MockPriceHistoryRepository is a mock implementation of
// pricing.PriceHistoryRepository
type MockPriceHistoryRepository struct {
	mock.Mock
}

func (m *MockPriceHistoryRepository) RecordPending(ctx context.Context, h *pricing.PriceHistory) (bool, error) {
	args := m.Called(ctx, h)
	return args.Bool(0), args.Error(1)
}

func (m *MockPriceHistoryRepository) MarkOutcome(ctx context.Context, id uuid.UUID, status sync.TransactionStatus, errMsg string) error {
	args := m.Called(ctx, id, status, errMsg)
	return args.Error(0)
}

func (m *MockPriceHistoryRepository) ListBySKU(ctx context.Context, sku string, limit int) ([]pricing.PriceHistory, error) {
	args := m.Called(ctx, sku, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]pricing.PriceHistory), args.Error(1)
}

// MockExchangeRateRepository is a mock implementation of
// pricing.ExchangeRateRepository
type MockExchangeRateRepository struct {
	mock.Mock
}

func (m *MockExchangeRateRepository) CurrentAt(ctx context.Context, t time.Time) (*pricing.ExchangeRate, error) {
	args := m.Called(ctx, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pricing.ExchangeRate), args.Error(1)
}

func (m *MockExchangeRateRepository) Insert(ctx context.Context, rate *pricing.ExchangeRate) error {
	args := m.Called(ctx, rate)
	return args.Error(0)
}

func (m *MockExchangeRateRepository) History(ctx context.Context, limit int) ([]pricing.ExchangeRate, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]pricing.ExchangeRate), args.Error(1)
}

// MockPlatformClient is a mock implementation of sync.PlatformClient
type MockPlatformClient struct {
	mock.Mock
	platform sync.Platform
}

func NewMockPlatformClient(platform sync.Platform) *MockPlatformClient {
	return &MockPlatformClient{platform: platform}
}

func (m *MockPlatformClient) Platform() sync.Platform {
	return m.platform
}

func (m *MockPlatformClient) GetInventory(ctx context.Context, externalID string) (int64, error) {
	args := m.Called(ctx, externalID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPlatformClient) SetInventory(ctx context.Context, externalID string, quantity int64) error {
	args := m.Called(ctx, externalID, quantity)
	return args.Error(0)
}

func (m *MockPlatformClient) GetPrice(ctx context.Context, externalID string) (decimal.Decimal, error) {
	args := m.Called(ctx, externalID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockPlatformClient) SetPrice(ctx context.Context, externalID string, price decimal.Decimal) error {
	args := m.Called(ctx, externalID, price)
	return args.Error(0)
}

// stubRegistry wires mock clients into a sync.PlatformRegistry
type stubRegistry struct {
	clients map[sync.Platform]sync.PlatformClient
}

func newStubRegistry(clients ...sync.PlatformClient) *stubRegistry {
	r := &stubRegistry{clients: make(map[sync.Platform]sync.PlatformClient)}
	for _, c := range clients {
		r.clients[c.Platform()] = c
	}
	return r
}

func (r *stubRegistry) Client(platform sync.Platform) (sync.PlatformClient, error) {
	client, ok := r.clients[platform]
	if !ok {
		return nil, sync.ErrPlatformNotConfigured
	}
	return client, nil
}
