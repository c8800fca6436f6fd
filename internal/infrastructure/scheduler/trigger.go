package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/channelsync/backend/internal/infrastructure/config"
)

// IntervalTrigger submits maintenance jobs on fixed cadences. Each enabled
// job type gets its own ticker; the queue consumer keeps handling webhook
// events independently of these runs.
type IntervalTrigger struct {
	cfg       config.SchedulerConfig
	scheduler *Scheduler
	logger    *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewIntervalTrigger creates a new interval trigger
func NewIntervalTrigger(cfg config.SchedulerConfig, scheduler *Scheduler, logger *zap.Logger) *IntervalTrigger {
	return &IntervalTrigger{
		cfg:       cfg,
		scheduler: scheduler,
		logger:    logger.Named("trigger"),
	}
}

// Start launches one ticker loop per enabled job type
func (t *IntervalTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = true
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	type cadence struct {
		jobType  JobType
		enabled  bool
		interval time.Duration
	}
	cadences := []cadence{
		{JobTypeFullSync, t.cfg.FullSyncEnabled, t.cfg.FullSyncInterval},
		{JobTypeInventorySync, t.cfg.InventorySyncEnabled, t.cfg.InventorySyncInterval},
		{JobTypePriceSync, t.cfg.PriceSyncEnabled, t.cfg.PriceSyncInterval},
		{JobTypeDriftCheck, t.cfg.DriftCheckEnabled, t.cfg.DriftCheckInterval},
		{JobTypeLowStockScan, t.cfg.LowStockEnabled, t.cfg.LowStockInterval},
	}

	for _, c := range cadences {
		if !c.enabled || c.interval <= 0 {
			continue
		}
		t.wg.Add(1)
		go t.runLoop(ctx, c.jobType, c.interval)
		t.logger.Info("Job cadence enabled",
			zap.String("job_type", string(c.jobType)),
			zap.Duration("interval", c.interval))
	}

	return nil
}

// Stop stops all ticker loops
func (t *IntervalTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("Trigger stopped gracefully")
		return nil
	case <-ctx.Done():
		t.logger.Warn("Trigger stop timed out")
		return ctx.Err()
	}
}

// runLoop submits one job per tick
func (t *IntervalTrigger) runLoop(ctx context.Context, jobType JobType, interval time.Duration) {
	defer t.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := t.scheduler.Submit(jobType); err != nil {
				t.logger.Warn("Failed to submit scheduled job",
					zap.String("job_type", string(jobType)),
					zap.Error(err))
			}
		}
	}
}
