package sync

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Webhook Event Variants
// ---------------------------------------------------------------------------

// EventKind is the closed set of webhook event variants. Raw payloads are
// validated into one of these at the ingestion boundary; untyped maps never
// reach business logic.
type EventKind string

const (
	// EventOrderCreate is a sale: stock is subtracted on the counterpart
	EventOrderCreate EventKind = "order.create"
	// EventOrderCancel is a cancellation/return: stock is added back
	EventOrderCancel EventKind = "order.cancel"
	// EventInventoryUpdate pushes an absolute quantity to the counterpart
	EventInventoryUpdate EventKind = "inventory.update"
	// EventPriceUpdate recomputes and pushes the derived counterpart price
	EventPriceUpdate EventKind = "price.update"
)

// IsValid returns true if the event kind is valid
func (k EventKind) IsValid() bool {
	switch k {
	case EventOrderCreate, EventOrderCancel, EventInventoryUpdate, EventPriceUpdate:
		return true
	default:
		return false
	}
}

// Event is a validated, normalized webhook occurrence. Order events produce
// one Event per line item so each line carries its own idempotency key.
type Event struct {
	// Kind is the event variant
	Kind EventKind `json:"kind"`
	// Source is the platform that delivered the webhook
	Source Platform `json:"source"`
	// SKU is the merchant SKU resolved from the payload
	SKU string `json:"sku"`
	// OrderID and OrderLineItemID form the idempotency key for order events
	OrderID         string `json:"order_id,omitempty"`
	OrderLineItemID string `json:"order_line_item_id,omitempty"`
	// Quantity is the line quantity (order events) or absolute stock level
	// (inventory events)
	Quantity int64 `json:"quantity"`
	// Price is the new source-platform price for price events
	Price decimal.Decimal `json:"price"`
	// OccurredAt is the platform-reported event time
	OccurredAt time.Time `json:"occurred_at"`
}

// Validate validates the normalized event
func (e *Event) Validate() error {
	if !e.Kind.IsValid() {
		return ErrEventInvalidKind
	}
	if !e.Source.IsChannel() {
		return fmt.Errorf("%w: source %q", ErrEventInvalidPayload, e.Source)
	}
	if e.SKU == "" {
		return fmt.Errorf("%w: missing sku", ErrEventInvalidPayload)
	}
	switch e.Kind {
	case EventOrderCreate, EventOrderCancel:
		if e.OrderID == "" || e.OrderLineItemID == "" {
			return fmt.Errorf("%w: order event requires order and line item IDs", ErrEventInvalidPayload)
		}
		if e.Quantity <= 0 {
			return fmt.Errorf("%w: order quantity must be positive", ErrEventInvalidPayload)
		}
	case EventInventoryUpdate:
		if e.Quantity < 0 {
			return fmt.Errorf("%w: inventory quantity cannot be negative", ErrEventInvalidPayload)
		}
	case EventPriceUpdate:
		if !e.Price.IsPositive() {
			return fmt.Errorf("%w: price must be positive", ErrEventInvalidPayload)
		}
	}
	return nil
}

// TransactionType maps an order event kind to its ledger classification
func (e *Event) TransactionType() TransactionType {
	if e.Kind == EventOrderCancel {
		return TransactionRestock
	}
	return TransactionSale
}

// QuantityDelta returns the signed stock change for order events:
// sales subtract, cancellations add back.
func (e *Event) QuantityDelta() int64 {
	if e.Kind == EventOrderCancel {
		return e.Quantity
	}
	return -e.Quantity
}

// ---------------------------------------------------------------------------
// Payload Parsing
// ---------------------------------------------------------------------------

// Topic-to-kind tables per source. Unknown topics are rejected at the boundary.
var shopifyTopics = map[string]EventKind{
	"orders/create":           EventOrderCreate,
	"orders/cancelled":        EventOrderCancel,
	"inventory_levels/update": EventInventoryUpdate,
	"variants/update":         EventPriceUpdate,
}

var cafe24Topics = map[string]EventKind{
	"order.created":     EventOrderCreate,
	"order.cancelled":   EventOrderCancel,
	"inventory.updated": EventInventoryUpdate,
	"price.updated":     EventPriceUpdate,
}

type shopifyOrderPayload struct {
	ID        int64  `json:"id"`
	CreatedAt string `json:"created_at"`
	LineItems []struct {
		ID       int64  `json:"id"`
		SKU      string `json:"sku"`
		Quantity int64  `json:"quantity"`
	} `json:"line_items"`
}

type shopifyInventoryPayload struct {
	SKU       string `json:"sku"`
	Available int64  `json:"available"`
	UpdatedAt string `json:"updated_at"`
}

type shopifyVariantPayload struct {
	SKU       string          `json:"sku"`
	Price     decimal.Decimal `json:"price"`
	UpdatedAt string          `json:"updated_at"`
}

type cafe24OrderPayload struct {
	OrderID   string `json:"order_id"`
	OrderDate string `json:"order_date"`
	Items     []struct {
		OrderItemCode string `json:"order_item_code"`
		ProductCode   string `json:"product_code"`
		Quantity      int64  `json:"quantity"`
	} `json:"items"`
}

type cafe24InventoryPayload struct {
	ProductCode string `json:"product_code"`
	Quantity    int64  `json:"quantity"`
	UpdatedDate string `json:"updated_date"`
}

type cafe24PricePayload struct {
	ProductCode string          `json:"product_code"`
	Price       decimal.Decimal `json:"price"`
	UpdatedDate string          `json:"updated_date"`
}

// ParseEvents validates and normalizes a raw webhook body into typed events.
// Order payloads fan out into one event per line item. Line items without a
// SKU are skipped: unmapped platform-only products are not an error.
func ParseEvents(source Platform, topic string, rawBody []byte) ([]Event, error) {
	switch source {
	case PlatformShopify:
		kind, ok := shopifyTopics[topic]
		if !ok {
			return nil, fmt.Errorf("%w: shopify topic %q", ErrEventInvalidKind, topic)
		}
		return parseShopifyPayload(kind, rawBody)
	case PlatformCafe24:
		kind, ok := cafe24Topics[topic]
		if !ok {
			return nil, fmt.Errorf("%w: cafe24 topic %q", ErrEventInvalidKind, topic)
		}
		return parseCafe24Payload(kind, rawBody)
	default:
		return nil, fmt.Errorf("%w: source %q", ErrEventInvalidPayload, source)
	}
}

func parseShopifyPayload(kind EventKind, rawBody []byte) ([]Event, error) {
	switch kind {
	case EventOrderCreate, EventOrderCancel:
		var payload shopifyOrderPayload
		if err := json.Unmarshal(rawBody, &payload); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEventInvalidPayload, err)
		}
		if payload.ID == 0 {
			return nil, fmt.Errorf("%w: missing order id", ErrEventInvalidPayload)
		}
		occurredAt := parseEventTime(payload.CreatedAt)
		events := make([]Event, 0, len(payload.LineItems))
		for _, item := range payload.LineItems {
			if item.SKU == "" {
				continue
			}
			ev := Event{
				Kind:            kind,
				Source:          PlatformShopify,
				SKU:             item.SKU,
				OrderID:         fmt.Sprintf("%d", payload.ID),
				OrderLineItemID: fmt.Sprintf("%d", item.ID),
				Quantity:        item.Quantity,
				OccurredAt:      occurredAt,
			}
			if err := ev.Validate(); err != nil {
				return nil, err
			}
			events = append(events, ev)
		}
		return events, nil

	case EventInventoryUpdate:
		var payload shopifyInventoryPayload
		if err := json.Unmarshal(rawBody, &payload); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEventInvalidPayload, err)
		}
		ev := Event{
			Kind:       kind,
			Source:     PlatformShopify,
			SKU:        payload.SKU,
			Quantity:   payload.Available,
			OccurredAt: parseEventTime(payload.UpdatedAt),
		}
		if err := ev.Validate(); err != nil {
			return nil, err
		}
		return []Event{ev}, nil

	default: // EventPriceUpdate
		var payload shopifyVariantPayload
		if err := json.Unmarshal(rawBody, &payload); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEventInvalidPayload, err)
		}
		ev := Event{
			Kind:       kind,
			Source:     PlatformShopify,
			SKU:        payload.SKU,
			Price:      payload.Price,
			OccurredAt: parseEventTime(payload.UpdatedAt),
		}
		if err := ev.Validate(); err != nil {
			return nil, err
		}
		return []Event{ev}, nil
	}
}

func parseCafe24Payload(kind EventKind, rawBody []byte) ([]Event, error) {
	switch kind {
	case EventOrderCreate, EventOrderCancel:
		var payload cafe24OrderPayload
		if err := json.Unmarshal(rawBody, &payload); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEventInvalidPayload, err)
		}
		if payload.OrderID == "" {
			return nil, fmt.Errorf("%w: missing order id", ErrEventInvalidPayload)
		}
		occurredAt := parseEventTime(payload.OrderDate)
		events := make([]Event, 0, len(payload.Items))
		for _, item := range payload.Items {
			if item.ProductCode == "" {
				continue
			}
			ev := Event{
				Kind:            kind,
				Source:          PlatformCafe24,
				SKU:             item.ProductCode,
				OrderID:         payload.OrderID,
				OrderLineItemID: item.OrderItemCode,
				Quantity:        item.Quantity,
				OccurredAt:      occurredAt,
			}
			if err := ev.Validate(); err != nil {
				return nil, err
			}
			events = append(events, ev)
		}
		return events, nil

	case EventInventoryUpdate:
		var payload cafe24InventoryPayload
		if err := json.Unmarshal(rawBody, &payload); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEventInvalidPayload, err)
		}
		ev := Event{
			Kind:       kind,
			Source:     PlatformCafe24,
			SKU:        payload.ProductCode,
			Quantity:   payload.Quantity,
			OccurredAt: parseEventTime(payload.UpdatedDate),
		}
		if err := ev.Validate(); err != nil {
			return nil, err
		}
		return []Event{ev}, nil

	default: // EventPriceUpdate
		var payload cafe24PricePayload
		if err := json.Unmarshal(rawBody, &payload); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEventInvalidPayload, err)
		}
		ev := Event{
			Kind:       kind,
			Source:     PlatformCafe24,
			SKU:        payload.ProductCode,
			Price:      payload.Price,
			OccurredAt: parseEventTime(payload.UpdatedDate),
		}
		if err := ev.Validate(); err != nil {
			return nil, err
		}
		return []Event{ev}, nil
	}
}

// parseEventTime is lenient: webhooks arrive out of order and some platforms
// omit timestamps on replayed deliveries, so a missing or malformed time falls
// back to the receive time.
func parseEventTime(value string) time.Time {
	if value == "" {
		return time.Now()
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Now()
}
