package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether a backing service is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a plain function to the Pinger interface
type PingerFunc func(ctx context.Context) error

// Ping implements Pinger
func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// SystemHandler serves health and readiness probes
type SystemHandler struct {
	BaseHandler
	db    Pinger
	cache Pinger
}

// NewSystemHandler creates a SystemHandler
func NewSystemHandler(db, cache Pinger) *SystemHandler {
	return &SystemHandler{db: db, cache: cache}
}

// RegisterRoutes registers system endpoints
func (h *SystemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.Health)
}

// Health handles GET /health. Degraded dependencies flip the status so load
// balancers stop routing webhooks here.
func (h *SystemHandler) Health(c *gin.Context) {
	status := http.StatusOK
	checks := gin.H{"database": "ok", "redis": "ok"}

	if err := h.db.Ping(c.Request.Context()); err != nil {
		checks["database"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	if err := h.cache.Ping(c.Request.Context()); err != nil {
		checks["redis"] = err.Error()
		status = http.StatusServiceUnavailable
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "degraded"
	}
	c.JSON(status, gin.H{"status": overall, "checks": checks})
}
