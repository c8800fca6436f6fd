package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/channelsync/backend/internal/domain/pricing"
)

// RateHandler manages the exchange rate series
type RateHandler struct {
	BaseHandler
	rates pricing.ExchangeRateRepository
}

// NewRateHandler creates a RateHandler
func NewRateHandler(rates pricing.ExchangeRateRepository) *RateHandler {
	return &RateHandler{rates: rates}
}

// RegisterRoutes registers exchange rate endpoints
func (h *RateHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rates := rg.Group("/exchange-rates")
	{
		rates.GET("/current", h.Current)
		rates.GET("", h.History)
		rates.POST("", h.Create)
	}
}

// RateResponse is the API shape of one rate row
type RateResponse struct {
	ID         string     `json:"id"`
	Rate       string     `json:"rate"`
	Source     string     `json:"source"`
	ValidFrom  time.Time  `json:"valid_from"`
	ValidUntil *time.Time `json:"valid_until,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func toRateResponse(r *pricing.ExchangeRate) RateResponse {
	return RateResponse{
		ID:         r.ID.String(),
		Rate:       r.Rate.String(),
		Source:     string(r.Source),
		ValidFrom:  r.ValidFrom,
		ValidUntil: r.ValidUntil,
		CreatedAt:  r.CreatedAt,
	}
}

// Current handles GET /exchange-rates/current
func (h *RateHandler) Current(c *gin.Context) {
	rate, err := h.rates.CurrentAt(c.Request.Context(), time.Now())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toRateResponse(rate))
}

// History handles GET /exchange-rates
func (h *RateHandler) History(c *gin.Context) {
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

	history, err := h.rates.History(c.Request.Context(), req.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items := make([]RateResponse, 0, len(history))
	for i := range history {
		items = append(items, toRateResponse(&history[i]))
	}
	h.Success(c, items)
}

// CreateRateRequest is the body for setting a new exchange rate
type CreateRateRequest struct {
	Rate string `json:"rate" binding:"required"`
}

// Create handles POST /exchange-rates. The new rate becomes current
// immediately; the previous row's validity window is closed in the same
// transaction.
func (h *RateHandler) Create(c *gin.Context) {
	var req CreateRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	value, err := decimal.NewFromString(req.Rate)
	if err != nil {
		h.BadRequest(c, "Invalid rate value")
		return
	}

	rate, err := pricing.NewExchangeRate(value, pricing.RateSourceManual, time.Now())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if err := h.rates.Insert(c.Request.Context(), rate); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toRateResponse(rate))
}
