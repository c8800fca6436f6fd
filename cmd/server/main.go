package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/channelsync/backend/internal/application/orchestration"
	"github.com/channelsync/backend/internal/application/reconciliation"
	"github.com/channelsync/backend/internal/domain/shared"
	"github.com/channelsync/backend/internal/infrastructure/config"
	"github.com/channelsync/backend/internal/infrastructure/logger"
	"github.com/channelsync/backend/internal/infrastructure/persistence"
	"github.com/channelsync/backend/internal/infrastructure/platform"
	"github.com/channelsync/backend/internal/infrastructure/queue"
	"github.com/channelsync/backend/internal/infrastructure/scheduler"
	"github.com/channelsync/backend/internal/infrastructure/webhook"
	"github.com/channelsync/backend/internal/interfaces/http/handler"
	"github.com/channelsync/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting ChannelSync Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database connection with zap-backed GORM logger
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	log.Info("Database connected and migrated")

	// Redis backs the event queue and the drift-check lock
	redisClient, err := queue.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Error closing Redis client", zap.Error(err))
		}
	}()

	// Repositories
	mappingRepo := persistence.NewGormMappingRepository(db.DB)
	ledger := persistence.NewGormTransactionLedger(db.DB)
	priceHistoryRepo := persistence.NewGormPriceHistoryRepository(db.DB)
	rateRepo := persistence.NewGormExchangeRateRepository(db.DB)
	driftReportRepo := persistence.NewGormDriftReportRepository(db.DB)

	// Platform clients
	cafe24Client, err := platform.NewCafe24Client(cfg.Cafe24)
	if err != nil {
		log.Fatal("Failed to create Cafe24 client", zap.Error(err))
	}
	shopifyClient, err := platform.NewShopifyClient(cfg.Shopify)
	if err != nil {
		log.Fatal("Failed to create Shopify client", zap.Error(err))
	}
	registry := platform.NewRegistry(cafe24Client, shopifyClient)

	retryPolicy := shared.RetryPolicy{
		MaxAttempts: cfg.Sync.RetryAttempts,
		BaseDelay:   cfg.Sync.RetryBaseDelay,
		MaxDelay:    cfg.Sync.RetryMaxDelay,
	}

	// Application services
	orchestrator := orchestration.NewOrchestrator(
		mappingRepo, ledger, priceHistoryRepo, rateRepo, registry, retryPolicy, log,
	)
	batchSyncer := orchestration.NewBatchSyncer(orchestrator, mappingRepo, registry, orchestration.BatchConfig{
		ListBatchSize:     cfg.Sync.ListBatchSize,
		LowStockThreshold: cfg.Sync.LowStockThreshold,
		InterCallDelay:    cfg.Sync.InterCallDelay,
	}, log)
	checker := reconciliation.NewChecker(
		mappingRepo, registry, orchestrator, driftReportRepo,
		queue.NewLocker(redisClient), retryPolicy,
		reconciliation.Config{
			PriceThresholdPercent: decimal.NewFromFloat(cfg.Drift.PriceThresholdPercent),
			InterCallDelay:        cfg.Drift.InterCallDelay,
			LockTTL:               cfg.Drift.LockTTL,
			AutoCorrect:           cfg.Drift.AutoCorrect,
			ListBatchSize:         cfg.Sync.ListBatchSize,
		}, log,
	)

	// Event queue: webhooks enqueue, the consumer group processes
	publisher := queue.NewPublisher(redisClient, cfg.Queue.Stream)
	consumer := queue.NewConsumer(redisClient, cfg.Queue, queue.HandlerFunc(orchestrator.HandleEvent), log)
	if err := consumer.Start(context.Background()); err != nil {
		log.Fatal("Failed to start queue consumer", zap.Error(err))
	}
	defer consumer.Stop()

	// Maintenance jobs: worker pool plus interval cadences
	jobScheduler := scheduler.NewScheduler(scheduler.Config{
		MaxConcurrentJobs: 2,
		JobTimeout:        cfg.Scheduler.JobTimeout,
		RetryAttempts:     cfg.Scheduler.RetryAttempts,
		RetryDelay:        cfg.Scheduler.RetryDelay,
	}, scheduler.NewExecutor(batchSyncer, checker, log), log)
	if err := jobScheduler.Start(context.Background()); err != nil {
		log.Fatal("Failed to start scheduler", zap.Error(err))
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := jobScheduler.Stop(stopCtx); err != nil {
			log.Error("Error stopping scheduler", zap.Error(err))
		}
	}()

	if cfg.Scheduler.Enabled {
		trigger := scheduler.NewIntervalTrigger(cfg.Scheduler, jobScheduler, log)
		if err := trigger.Start(context.Background()); err != nil {
			log.Fatal("Failed to start interval trigger", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := trigger.Stop(stopCtx); err != nil {
				log.Error("Error stopping trigger", zap.Error(err))
			}
		}()
	}

	// HTTP surface
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := router.New(log).
		Register(handler.NewWebhookHandler(webhook.NewVerifier(cfg.Webhook), publisher)).
		Register(handler.NewMappingHandler(mappingRepo)).
		Register(handler.NewLedgerHandler(ledger, priceHistoryRepo)).
		Register(handler.NewRateHandler(rateRepo)).
		Register(handler.NewSyncOpsHandler(jobScheduler, orchestrator, driftReportRepo)).
		Register(handler.NewSystemHandler(
			handler.PingerFunc(func(context.Context) error { return db.Ping() }),
			handler.PingerFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }),
		)).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown: stop accepting webhooks first, then drain the
	// consumer and scheduler via the deferred stops above
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
