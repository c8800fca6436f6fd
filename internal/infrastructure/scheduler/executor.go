package scheduler

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/channelsync/backend/internal/application/orchestration"
	"github.com/channelsync/backend/internal/domain/reconcile"
)

// BatchRunner runs the scheduled mapping walks
type BatchRunner interface {
	RunFullSync(ctx context.Context) (*orchestration.BatchResult, error)
	RunInventorySync(ctx context.Context) (*orchestration.BatchResult, error)
	RunPriceSync(ctx context.Context) (*orchestration.BatchResult, error)
	RunLowStockScan(ctx context.Context) ([]orchestration.LowStockItem, error)
}

// DriftRunner runs the reconciliation check
type DriftRunner interface {
	Run(ctx context.Context) (*reconcile.DriftReport, error)
}

// Executor dispatches maintenance jobs to the batch syncer and drift checker
type Executor struct {
	batch  BatchRunner
	drift  DriftRunner
	logger *zap.Logger
}

var _ JobExecutor = (*Executor)(nil)

// NewExecutor creates an Executor
func NewExecutor(batch BatchRunner, drift DriftRunner, logger *zap.Logger) *Executor {
	return &Executor{batch: batch, drift: drift, logger: logger.Named("executor")}
}

// Execute runs one maintenance job
func (e *Executor) Execute(ctx context.Context, job *Job) error {
	switch job.Type {
	case JobTypeFullSync:
		result, err := e.batch.RunFullSync(ctx)
		e.logResult(job, result)
		return err
	case JobTypeInventorySync:
		result, err := e.batch.RunInventorySync(ctx)
		e.logResult(job, result)
		return err
	case JobTypePriceSync:
		result, err := e.batch.RunPriceSync(ctx)
		e.logResult(job, result)
		return err
	case JobTypeDriftCheck:
		_, err := e.drift.Run(ctx)
		if errors.Is(err, reconcile.ErrCheckInProgress) {
			// Overlapping cadence, not a failure worth a retry
			e.logger.Info("Drift check skipped, previous run still in flight")
			return nil
		}
		return err
	case JobTypeLowStockScan:
		flagged, err := e.batch.RunLowStockScan(ctx)
		if err == nil {
			e.logger.Info("Low stock scan finished", zap.Int("flagged", len(flagged)))
		}
		return err
	default:
		return ErrInvalidJobType
	}
}

func (e *Executor) logResult(job *Job, result *orchestration.BatchResult) {
	if result == nil {
		return
	}
	e.logger.Info("Batch walk finished",
		zap.String("job_type", string(job.Type)),
		zap.Int("checked", result.Checked),
		zap.Int("pushed", result.Pushed),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed))
}
