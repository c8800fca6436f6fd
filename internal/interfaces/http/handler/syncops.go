package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/channelsync/backend/internal/domain/reconcile"
	"github.com/channelsync/backend/internal/domain/sync"
	"github.com/channelsync/backend/internal/infrastructure/scheduler"
)

// Adjuster applies operator stock corrections
type Adjuster interface {
	ApplyAdjustment(ctx context.Context, sku string, delta int64) (*sync.InventoryTransaction, error)
}

// JobSubmitter queues maintenance jobs for the background worker pool and
// reports recent runs
type JobSubmitter interface {
	Submit(jobType scheduler.JobType) error
	Recent() []*scheduler.Job
}

// SyncOpsHandler exposes the operator controls: manual job triggers, stock
// adjustments and the drift report history
type SyncOpsHandler struct {
	BaseHandler
	jobs     JobSubmitter
	adjuster Adjuster
	reports  reconcile.DriftReportRepository
}

// NewSyncOpsHandler creates a SyncOpsHandler
func NewSyncOpsHandler(jobs JobSubmitter, adjuster Adjuster, reports reconcile.DriftReportRepository) *SyncOpsHandler {
	return &SyncOpsHandler{jobs: jobs, adjuster: adjuster, reports: reports}
}

// RegisterRoutes registers operator endpoints
func (h *SyncOpsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	syncGroup := rg.Group("/sync")
	{
		syncGroup.POST("/full", h.trigger(scheduler.JobTypeFullSync))
		syncGroup.POST("/inventory", h.trigger(scheduler.JobTypeInventorySync))
		syncGroup.POST("/price", h.trigger(scheduler.JobTypePriceSync))
		syncGroup.POST("/low-stock", h.trigger(scheduler.JobTypeLowStockScan))
	}

	rg.POST("/drift-checks", h.trigger(scheduler.JobTypeDriftCheck))
	rg.GET("/drift-reports/latest", h.LatestReport)
	rg.GET("/drift-reports", h.ReportHistory)

	rg.GET("/jobs", h.RecentJobs)
	rg.POST("/adjustments", h.Adjust)
}

// JobResponse is the API shape of a finished maintenance job
type JobResponse struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
	StartedAt   string `json:"started_at,omitempty"`
	CompletedAt string `json:"completed_at,omitempty"`
	RetryCount  int    `json:"retry_count"`
}

// RecentJobs handles GET /jobs, newest first
func (h *SyncOpsHandler) RecentJobs(c *gin.Context) {
	jobs := h.jobs.Recent()
	items := make([]JobResponse, 0, len(jobs))
	for _, job := range jobs {
		item := JobResponse{
			ID:         job.ID.String(),
			Type:       string(job.Type),
			Status:     string(job.Status),
			Error:      job.Error,
			RetryCount: job.RetryCount,
		}
		if job.StartedAt != nil {
			item.StartedAt = job.StartedAt.Format(time.RFC3339)
		}
		if job.CompletedAt != nil {
			item.CompletedAt = job.CompletedAt.Format(time.RFC3339)
		}
		items = append(items, item)
	}
	h.Success(c, items)
}

// trigger queues a maintenance job and returns immediately
func (h *SyncOpsHandler) trigger(jobType scheduler.JobType) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.jobs.Submit(jobType); err != nil {
			h.HandleError(c, err)
			return
		}
		h.Accepted(c, gin.H{"job_type": string(jobType)})
	}
}

// AdjustmentRequest is the body for an operator stock correction
type AdjustmentRequest struct {
	SKU   string `json:"sku" binding:"required"`
	Delta int64  `json:"delta" binding:"required"`
}

// Adjust handles POST /adjustments. The correction is applied synchronously:
// both platforms are aligned to the adjusted quantity before the response.
func (h *SyncOpsHandler) Adjust(c *gin.Context) {
	var req AdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	tx, err := h.adjuster.ApplyAdjustment(c.Request.Context(), req.SKU, req.Delta)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toTransactionResponse(tx))
}

// DriftReportResponse is the API shape of a reconciliation report
type DriftReportResponse struct {
	ID            string                 `json:"id"`
	StartedAt     string                 `json:"started_at"`
	FinishedAt    string                 `json:"finished_at"`
	CheckedCount  int                    `json:"checked_count"`
	MismatchCount int                    `json:"mismatch_count"`
	ErrorCount    int                    `json:"error_count"`
	Entries       []reconcile.DriftEntry `json:"entries,omitempty"`
}

func toDriftReportResponse(r *reconcile.DriftReport) DriftReportResponse {
	return DriftReportResponse{
		ID:            r.ID.String(),
		StartedAt:     r.StartedAt.Format(time.RFC3339),
		FinishedAt:    r.FinishedAt.Format(time.RFC3339),
		CheckedCount:  r.CheckedCount,
		MismatchCount: r.MismatchCount,
		ErrorCount:    r.ErrorCount,
		Entries:       r.Entries,
	}
}

// LatestReport handles GET /drift-reports/latest
func (h *SyncOpsHandler) LatestReport(c *gin.Context) {
	report, err := h.reports.Latest(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toDriftReportResponse(report))
}

// ReportHistory handles GET /drift-reports
func (h *SyncOpsHandler) ReportHistory(c *gin.Context) {
	var req struct {
		Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
	}
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if req.Limit < 1 {
		req.Limit = 20
	}

	reports, err := h.reports.History(c.Request.Context(), req.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items := make([]DriftReportResponse, 0, len(reports))
	for i := range reports {
		items = append(items, toDriftReportResponse(&reports[i]))
	}
	h.Success(c, items)
}
