package handler

import (
	"context"
	"io"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/channelsync/backend/internal/domain/sync"
	"github.com/channelsync/backend/internal/infrastructure/logger"
	"github.com/channelsync/backend/internal/infrastructure/webhook"
)

// Topic headers per platform
const (
	shopifyTopicHeader = "X-Shopify-Topic"
	cafe24TopicHeader  = "X-Cafe24-Event"
)

// EventEnqueuer hands validated events to the processing queue
type EventEnqueuer interface {
	Enqueue(ctx context.Context, event sync.Event) error
}

// WebhookHandler ingests platform webhooks: verify the signature over the raw
// body, normalize the payload into typed events, enqueue them and return.
// Processing happens asynchronously behind the queue.
type WebhookHandler struct {
	BaseHandler
	verifier *webhook.Verifier
	events   EventEnqueuer
}

// NewWebhookHandler creates a WebhookHandler
func NewWebhookHandler(verifier *webhook.Verifier, events EventEnqueuer) *WebhookHandler {
	return &WebhookHandler{verifier: verifier, events: events}
}

// RegisterRoutes registers webhook endpoints
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/webhooks/:source", h.Receive)
}

// Receive handles POST /webhooks/:source
func (h *WebhookHandler) Receive(c *gin.Context) {
	source := sync.Platform(c.Param("source"))
	if !source.IsChannel() {
		h.NotFound(c, "Unknown webhook source")
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.BadRequest(c, "Cannot read request body")
		return
	}

	signature := c.GetHeader(h.verifier.Header(source))
	if err := h.verifier.Verify(source, body, signature); err != nil {
		logger.GetGinLogger(c).Warn("Webhook signature rejected",
			zap.String("source", source.String()))
		h.Unauthorized(c, "Webhook signature verification failed")
		return
	}

	topic := h.topic(c, source)
	events, err := sync.ParseEvents(source, topic, body)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	for _, event := range events {
		if err := h.events.Enqueue(c.Request.Context(), event); err != nil {
			logger.GetGinLogger(c).Error("Failed to enqueue webhook event",
				zap.String("sku", event.SKU), zap.Error(err))
			h.InternalError(c, "Failed to enqueue event")
			return
		}
	}

	h.Success(c, gin.H{"accepted": len(events)})
}

func (h *WebhookHandler) topic(c *gin.Context, source sync.Platform) string {
	if source == sync.PlatformShopify {
		return c.GetHeader(shopifyTopicHeader)
	}
	return c.GetHeader(cafe24TopicHeader)
}
