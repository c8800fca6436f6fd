package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/channelsync/backend/internal/domain/sync"
)

// MappingHandler manages the SKU mapping table
type MappingHandler struct {
	BaseHandler
	mappings sync.MappingRepository
}

// NewMappingHandler creates a MappingHandler
func NewMappingHandler(mappings sync.MappingRepository) *MappingHandler {
	return &MappingHandler{mappings: mappings}
}

// RegisterRoutes registers mapping endpoints
func (h *MappingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	mappings := rg.Group("/mappings")
	{
		mappings.POST("", h.Create)
		mappings.GET("", h.List)
		mappings.GET("/:sku", h.Get)
		mappings.PUT("/:sku", h.Update)
		mappings.POST("/:sku/activate", h.Activate)
		mappings.DELETE("/:sku", h.Deactivate)
	}
}

// CreateMappingRequest is the body for creating a mapping
type CreateMappingRequest struct {
	SKU              string `json:"sku" binding:"required"`
	Cafe24ProductNo  string `json:"cafe24_product_no"`
	ShopifyVariantID string `json:"shopify_variant_id"`
	PolicyRequest
}

// PolicyRequest carries the optional policy fields shared by create and update
type PolicyRequest struct {
	MarginMultiplier string `json:"margin_multiplier"`
	ExchangeRateMode string `json:"exchange_rate_mode" binding:"omitempty,oneof=auto manual"`
	ManualRate       string `json:"manual_rate"`
	ConflictPolicy   string `json:"conflict_policy" binding:"omitempty,oneof=cafe24-priority shopify-priority manual"`
}

// UpdateMappingRequest is the body for updating a mapping
type UpdateMappingRequest struct {
	Cafe24ProductNo  *string `json:"cafe24_product_no"`
	ShopifyVariantID *string `json:"shopify_variant_id"`
	PolicyRequest
}

// MappingResponse is the API shape of a product mapping
type MappingResponse struct {
	ID               string     `json:"id"`
	SKU              string     `json:"sku"`
	Cafe24ProductNo  string     `json:"cafe24_product_no"`
	ShopifyVariantID string     `json:"shopify_variant_id"`
	MarginMultiplier string     `json:"margin_multiplier"`
	ExchangeRateMode string     `json:"exchange_rate_mode"`
	ManualRate       *string    `json:"manual_rate,omitempty"`
	ConflictPolicy   string     `json:"conflict_policy"`
	IsActive         bool       `json:"is_active"`
	SyncStatus       string     `json:"sync_status"`
	LastSyncedAt     *time.Time `json:"last_synced_at,omitempty"`
	LastSyncError    string     `json:"last_sync_error,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func toMappingResponse(m *sync.ProductMapping) MappingResponse {
	resp := MappingResponse{
		ID:               m.ID.String(),
		SKU:              m.SKU,
		Cafe24ProductNo:  m.Cafe24ProductNo,
		ShopifyVariantID: m.ShopifyVariantID,
		MarginMultiplier: m.Policy.MarginMultiplier.String(),
		ExchangeRateMode: string(m.Policy.ExchangeRateMode),
		ConflictPolicy:   string(m.ConflictPolicy),
		IsActive:         m.IsActive,
		SyncStatus:       string(m.SyncStatus),
		LastSyncedAt:     m.LastSyncedAt,
		LastSyncError:    m.LastSyncError,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
	if m.Policy.ManualRate != nil {
		rate := m.Policy.ManualRate.String()
		resp.ManualRate = &rate
	}
	return resp
}

// applyPolicy merges the optional policy fields into a mapping
func applyPolicy(mapping *sync.ProductMapping, req PolicyRequest) error {
	if req.MarginMultiplier != "" {
		margin, err := decimal.NewFromString(req.MarginMultiplier)
		if err != nil {
			return sync.ErrPolicyMarginOutOfRange
		}
		mapping.Policy.MarginMultiplier = margin
	}
	if req.ExchangeRateMode != "" {
		mapping.Policy.ExchangeRateMode = sync.RateMode(req.ExchangeRateMode)
	}
	if req.ManualRate != "" {
		rate, err := decimal.NewFromString(req.ManualRate)
		if err != nil {
			return sync.ErrPolicyMissingManualRate
		}
		mapping.Policy.ManualRate = &rate
	}
	if req.ConflictPolicy != "" {
		mapping.ConflictPolicy = sync.ConflictPolicy(req.ConflictPolicy)
	}
	return mapping.Validate()
}

// Create handles POST /mappings
func (h *MappingHandler) Create(c *gin.Context) {
	var req CreateMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	mapping, err := sync.NewProductMapping(req.SKU, req.Cafe24ProductNo, req.ShopifyVariantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if err := applyPolicy(mapping, req.PolicyRequest); err != nil {
		h.HandleError(c, err)
		return
	}

	if existing, err := h.mappings.FindBySKU(c.Request.Context(), req.SKU); err == nil && existing != nil {
		h.Conflict(c, "A mapping for this SKU already exists")
		return
	}

	if err := h.mappings.Save(c.Request.Context(), mapping); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toMappingResponse(mapping))
}

// List handles GET /mappings
func (h *MappingHandler) List(c *gin.Context) {
	var req struct {
		Page     int `form:"page" binding:"omitempty,min=1"`
		PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
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

	mappings, total, err := h.mappings.List(c.Request.Context(), req.Page, req.PageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items := make([]MappingResponse, 0, len(mappings))
	for i := range mappings {
		items = append(items, toMappingResponse(&mappings[i]))
	}
	h.SuccessWithMeta(c, items, total, req.Page, req.PageSize)
}

// Get handles GET /mappings/:sku
func (h *MappingHandler) Get(c *gin.Context) {
	mapping, err := h.mappings.FindBySKU(c.Request.Context(), c.Param("sku"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toMappingResponse(mapping))
}

// Update handles PUT /mappings/:sku
func (h *MappingHandler) Update(c *gin.Context) {
	var req UpdateMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	mapping, err := h.mappings.FindBySKU(c.Request.Context(), c.Param("sku"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if req.Cafe24ProductNo != nil {
		mapping.Cafe24ProductNo = *req.Cafe24ProductNo
	}
	if req.ShopifyVariantID != nil {
		mapping.ShopifyVariantID = *req.ShopifyVariantID
	}
	if err := applyPolicy(mapping, req.PolicyRequest); err != nil {
		h.HandleError(c, err)
		return
	}
	mapping.UpdatedAt = time.Now()

	if err := h.mappings.Save(c.Request.Context(), mapping); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toMappingResponse(mapping))
}

// Activate handles POST /mappings/:sku/activate
func (h *MappingHandler) Activate(c *gin.Context) {
	mapping, err := h.mappings.FindBySKU(c.Request.Context(), c.Param("sku"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if err := mapping.Activate(); err != nil {
		h.HandleError(c, err)
		return
	}

	if err := h.mappings.Save(c.Request.Context(), mapping); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toMappingResponse(mapping))
}

// Deactivate handles DELETE /mappings/:sku. Mappings are soft-deactivated so
// ledger rows keep a valid SKU reference.
func (h *MappingHandler) Deactivate(c *gin.Context) {
	if err := h.mappings.Deactivate(c.Request.Context(), c.Param("sku")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
