package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/channelsync/backend/internal/domain/pricing"
	"github.com/channelsync/backend/internal/domain/sync"
)

// LedgerHandler serves the inventory transaction audit trail and the price
// push history
type LedgerHandler struct {
	BaseHandler
	ledger sync.TransactionLedger
	prices pricing.PriceHistoryRepository
}

// NewLedgerHandler creates a LedgerHandler
func NewLedgerHandler(ledger sync.TransactionLedger, prices pricing.PriceHistoryRepository) *LedgerHandler {
	return &LedgerHandler{ledger: ledger, prices: prices}
}

// RegisterRoutes registers audit trail endpoints
func (h *LedgerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/transactions", h.List)
	rg.GET("/transactions/:id", h.Get)
	rg.GET("/price-history/:sku", h.PriceHistory)
}

// TransactionResponse is the API shape of a ledger row
type TransactionResponse struct {
	ID               string     `json:"id"`
	SKU              string     `json:"sku"`
	Platform         string     `json:"platform"`
	Type             string     `json:"type"`
	QuantityDelta    int64      `json:"quantity_delta"`
	PreviousQuantity int64      `json:"previous_quantity"`
	NewQuantity      int64      `json:"new_quantity"`
	OrderID          string     `json:"order_id,omitempty"`
	OrderLineItemID  string     `json:"order_line_item_id,omitempty"`
	SyncStatus       string     `json:"sync_status"`
	SyncedAt         *time.Time `json:"synced_at,omitempty"`
	ErrorMessage     string     `json:"error_message,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

func toTransactionResponse(tx *sync.InventoryTransaction) TransactionResponse {
	return TransactionResponse{
		ID:               tx.ID.String(),
		SKU:              tx.SKU,
		Platform:         string(tx.Platform),
		Type:             string(tx.Type),
		QuantityDelta:    tx.QuantityDelta,
		PreviousQuantity: tx.PreviousQuantity,
		NewQuantity:      tx.NewQuantity,
		OrderID:          tx.OrderID,
		OrderLineItemID:  tx.OrderLineItemID,
		SyncStatus:       string(tx.SyncStatus),
		SyncedAt:         tx.SyncedAt,
		ErrorMessage:     tx.ErrorMessage,
		CreatedAt:        tx.CreatedAt,
	}
}

// List handles GET /transactions
func (h *LedgerHandler) List(c *gin.Context) {
	var req struct {
		SKU      string `form:"sku"`
		Platform string `form:"platform" binding:"omitempty,oneof=cafe24 shopify manual"`
		Type     string `form:"type" binding:"omitempty,oneof=sale restock adjustment sync"`
		Status   string `form:"status" binding:"omitempty,oneof=pending completed failed"`
		Page     int    `form:"page" binding:"omitempty,min=1"`
		PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	}
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 {
		req.PageSize = 20
	}

	filter := sync.TransactionFilter{
		SKU:      req.SKU,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if req.Platform != "" {
		platform := sync.Platform(req.Platform)
		filter.Platform = &platform
	}
	if req.Type != "" {
		txType := sync.TransactionType(req.Type)
		filter.Type = &txType
	}
	if req.Status != "" {
		status := sync.TransactionStatus(req.Status)
		filter.Status = &status
	}

	transactions, total, err := h.ledger.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items := make([]TransactionResponse, 0, len(transactions))
	for i := range transactions {
		items = append(items, toTransactionResponse(&transactions[i]))
	}
	h.SuccessWithMeta(c, items, total, req.Page, req.PageSize)
}

// Get handles GET /transactions/:id
func (h *LedgerHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid transaction ID")
		return
	}

	tx, err := h.ledger.FindByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toTransactionResponse(tx))
}

// PriceHistoryResponse is the API shape of one price push
type PriceHistoryResponse struct {
	ID             string     `json:"id"`
	SKU            string     `json:"sku"`
	SourcePlatform string     `json:"source_platform"`
	SourcePrice    string     `json:"source_price"`
	ExchangeRate   string     `json:"exchange_rate"`
	ComputedPrice  string     `json:"computed_price"`
	SyncStatus     string     `json:"sync_status"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	SyncedAt       *time.Time `json:"synced_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// PriceHistory handles GET /price-history/:sku
func (h *LedgerHandler) PriceHistory(c *gin.Context) {
	var req struct {
		Limit int `form:"limit" binding:"omitempty,min=1,max=200"`
	}
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if req.Limit < 1 {
		req.Limit = 50
	}

	history, err := h.prices.ListBySKU(c.Request.Context(), c.Param("sku"), req.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items := make([]PriceHistoryResponse, 0, len(history))
	for i := range history {
		row := &history[i]
		items = append(items, PriceHistoryResponse{
			ID:             row.ID.String(),
			SKU:            row.SKU,
			SourcePlatform: string(row.SourcePlatform),
			SourcePrice:    row.SourcePrice.String(),
			ExchangeRate:   row.Rate.String(),
			ComputedPrice:  row.ComputedPrice.String(),
			SyncStatus:     string(row.SyncStatus),
			ErrorMessage:   row.ErrorMessage,
			SyncedAt:       row.SyncedAt,
			CreatedAt:      row.CreatedAt,
		})
	}
	h.Success(c, items)
}
