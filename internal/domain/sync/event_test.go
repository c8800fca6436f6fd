package sync

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEvents_ShopifyOrderFansOutPerLineItem(t *testing.T) {
	body := []byte(`{
		"id": 820982911946154508,
		"created_at": "2026-08-15T10:30:00Z",
		"line_items": [
			{"id": 466157049, "sku": "TSHIRT-RED-M", "quantity": 2},
			{"id": 466157050, "sku": "TSHIRT-RED-S", "quantity": 1}
		]
	}`)

	events, err := ParseEvents(PlatformShopify, "orders/create", body)

	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, EventOrderCreate, events[0].Kind)
	assert.Equal(t, "TSHIRT-RED-M", events[0].SKU)
	assert.Equal(t, "820982911946154508", events[0].OrderID)
	assert.Equal(t, "466157049", events[0].OrderLineItemID)
	assert.Equal(t, int64(2), events[0].Quantity)
	// Each line item carries its own idempotency key under the same order
	assert.Equal(t, events[0].OrderID, events[1].OrderID)
	assert.NotEqual(t, events[0].OrderLineItemID, events[1].OrderLineItemID)
}

func TestParseEvents_LineItemsWithoutSKUAreSkipped(t *testing.T) {
	body := []byte(`{
		"id": 1001,
		"created_at": "2026-08-15T10:30:00Z",
		"line_items": [
			{"id": 1, "sku": "", "quantity": 1},
			{"id": 2, "sku": "TSHIRT-RED-M", "quantity": 3}
		]
	}`)

	events, err := ParseEvents(PlatformShopify, "orders/create", body)

	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "TSHIRT-RED-M", events[0].SKU)
}

func TestParseEvents_Cafe24Order(t *testing.T) {
	body := []byte(`{
		"order_id": "20260815-0000123",
		"order_date": "2026-08-15 19:30:00",
		"items": [
			{"order_item_code": "20260815-0000123-01", "product_code": "TSHIRT-RED-M", "quantity": 1}
		]
	}`)

	events, err := ParseEvents(PlatformCafe24, "order.cancelled", body)

	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventOrderCancel, events[0].Kind)
	assert.Equal(t, PlatformCafe24, events[0].Source)
	assert.Equal(t, "20260815-0000123", events[0].OrderID)
	assert.Equal(t, "20260815-0000123-01", events[0].OrderLineItemID)
}

func TestParseEvents_InventoryAndPrice(t *testing.T) {
	t.Run("shopify inventory", func(t *testing.T) {
		body := []byte(`{"sku": "TSHIRT-RED-M", "available": 42, "updated_at": "2026-08-15T10:30:00Z"}`)

		events, err := ParseEvents(PlatformShopify, "inventory_levels/update", body)

		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, EventInventoryUpdate, events[0].Kind)
		assert.Equal(t, int64(42), events[0].Quantity)
	})

	t.Run("cafe24 price", func(t *testing.T) {
		body := []byte(`{"product_code": "TSHIRT-RED-M", "price": "12500", "updated_date": "2026-08-15 19:30:00"}`)

		events, err := ParseEvents(PlatformCafe24, "price.updated", body)

		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, EventPriceUpdate, events[0].Kind)
		assert.True(t, events[0].Price.Equal(decimal.NewFromInt(12500)))
	})
}

func TestParseEvents_RejectsUnknownTopic(t *testing.T) {
	_, err := ParseEvents(PlatformShopify, "customers/create", []byte(`{}`))
	assert.ErrorIs(t, err, ErrEventInvalidKind)

	_, err = ParseEvents(PlatformCafe24, "member.joined", []byte(`{}`))
	assert.ErrorIs(t, err, ErrEventInvalidKind)
}

func TestParseEvents_RejectsMalformedBody(t *testing.T) {
	_, err := ParseEvents(PlatformShopify, "orders/create", []byte(`{not json`))
	assert.ErrorIs(t, err, ErrEventInvalidPayload)
}

func TestParseEvents_RejectsUnknownSource(t *testing.T) {
	_, err := ParseEvents(PlatformManual, "orders/create", []byte(`{}`))
	assert.ErrorIs(t, err, ErrEventInvalidPayload)
}

func TestEvent_Validate(t *testing.T) {
	valid := Event{
		Kind:            EventOrderCreate,
		Source:          PlatformShopify,
		SKU:             "TSHIRT-RED-M",
		OrderID:         "1001",
		OrderLineItemID: "1",
		Quantity:        2,
		OccurredAt:      time.Now(),
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Event)
	}{
		{"unknown kind", func(e *Event) { e.Kind = "order.refund" }},
		{"manual source", func(e *Event) { e.Source = PlatformManual }},
		{"missing sku", func(e *Event) { e.SKU = "" }},
		{"order without order id", func(e *Event) { e.OrderID = "" }},
		{"order without line item id", func(e *Event) { e.OrderLineItemID = "" }},
		{"zero order quantity", func(e *Event) { e.Quantity = 0 }},
		{"negative inventory level", func(e *Event) {
			e.Kind = EventInventoryUpdate
			e.Quantity = -1
		}},
		{"non-positive price", func(e *Event) {
			e.Kind = EventPriceUpdate
			e.Price = decimal.Zero
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := valid
			tt.mutate(&event)
			assert.Error(t, event.Validate())
		})
	}
}

func TestEvent_QuantityDelta(t *testing.T) {
	sale := Event{Kind: EventOrderCreate, Quantity: 3}
	assert.Equal(t, int64(-3), sale.QuantityDelta())
	assert.Equal(t, TransactionSale, sale.TransactionType())

	cancel := Event{Kind: EventOrderCancel, Quantity: 3}
	assert.Equal(t, int64(3), cancel.QuantityDelta())
	assert.Equal(t, TransactionRestock, cancel.TransactionType())
}

func TestParseEventTime_FallsBackToNow(t *testing.T) {
	before := time.Now()
	got := parseEventTime("not a timestamp")
	assert.False(t, got.Before(before))

	got = parseEventTime("")
	assert.False(t, got.Before(before))

	exact := parseEventTime("2026-08-15T10:30:00Z")
	assert.Equal(t, time.Date(2026, 8, 15, 10, 30, 0, 0, time.UTC), exact)
}
