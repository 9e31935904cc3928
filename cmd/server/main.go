// Package main is the entry point for the pharmaerp API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"pharmaerp/internal/domain/alerts"
	"pharmaerp/internal/domain/audit"
	"pharmaerp/internal/domain/catalog"
	"pharmaerp/internal/domain/compliance"
	"pharmaerp/internal/domain/inventory"
	"pharmaerp/internal/domain/receipt"
	"pharmaerp/internal/domain/sales"
	"pharmaerp/internal/domain/transfer"
	"pharmaerp/internal/infrastructure/config"
	v1 "pharmaerp/internal/infrastructure/http/v1"
	"pharmaerp/internal/infrastructure/http/v1/handlers"
	"pharmaerp/internal/infrastructure/notify"
	"pharmaerp/internal/infrastructure/numerator"
	"pharmaerp/internal/infrastructure/storage/postgres"
	"pharmaerp/internal/infrastructure/storage/postgres/auth_repo"
	"pharmaerp/internal/infrastructure/storage/postgres/catalog_repo"
	"pharmaerp/internal/infrastructure/storage/postgres/document_repo"
	"pharmaerp/internal/infrastructure/storage/postgres/register_repo"
	"pharmaerp/internal/infrastructure/telemetry"
	"pharmaerp/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LoggerConfig())
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx := logger.WithLogger(context.Background(), log)
	log.Infow("starting pharmaerp server", "env", cfg.App.Env)

	// --- Tracing ---
	tracer, err := telemetry.NewTracerProvider(ctx, cfg.TracerConfig(), log)
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}
	defer func() {
		if err := tracer.Shutdown(context.Background()); err != nil {
			log.Errorw("tracer shutdown failed", "error", err)
		}
	}()

	var metrics *telemetry.Metrics
	if cfg.Metrics.Enabled {
		metrics = telemetry.NewMetrics("pharmaerp")
	}

	// --- Database ---
	pool, err := postgres.NewPool(ctx, cfg.PoolConfig())
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")
	if metrics != nil {
		metrics.ObservePool(pool)
	}

	txManager := postgres.NewTxManager(pool, cfg.Database.StatementTimeout)

	// --- Redis (optional) ---
	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = notify.NewRedisClient(ctx, notify.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Warnw("redis unavailable, notification dedupe falls back to the outbox", "error", err)
			redisClient = nil
		} else {
			defer func() { _ = redisClient.Close() }()
		}
	}

	// --- Repositories ---
	catalogRepo := catalog_repo.NewRepo(txManager)
	ledgerRepo := register_repo.NewLedgerRepo(txManager)
	complianceRepo := register_repo.NewComplianceRepo(txManager)
	invoiceRepo := document_repo.NewSalesInvoiceRepo(txManager)
	receiptRepo := document_repo.NewGoodsReceiptRepo(txManager)
	transferRepo := document_repo.NewStockTransferRepo(txManager)
	userRepo := auth_repo.NewUserRepo(txManager)

	auditStore, err := postgres.NewAuditStore(txManager)
	if err != nil {
		log.Fatalw("failed to initialize audit store", "error", err)
	}

	// --- Domain services ---
	// Numbers are issued on the pool, outside any business transaction.
	numeratorService := numerator.New(pool)
	catalogService := catalog.NewService(catalogRepo)
	ledger := inventory.NewLedger(ledgerRepo)
	recorder := audit.NewRecorder(auditStore)

	var guard notify.Guard
	if redisClient != nil {
		guard = notify.NewRedisGuard(redisClient, "")
	}
	queue := notify.NewQueue(guard, postgres.NewOutboxPublisher(txManager), cfg.Redis.DedupeTTL)

	observers := sales.Observers{alerts.NewEvaluator(ledger, queue, cfg.AlertConfig())}
	if metrics != nil {
		observers = append(observers, metrics)
	}

	salesService := sales.NewService(sales.ServiceConfig{
		Repo:       invoiceRepo,
		TxManager:  txManager,
		Catalog:    catalogService,
		Inventory:  ledger,
		Allocator:  inventory.NewAllocator(ledger),
		Numerator:  numeratorService,
		Compliance: compliance.NewService(complianceRepo),
		Observer:   observers,
		Audit:      recorder,
	})
	receiptService := receipt.NewService(receiptRepo, txManager, catalogService, ledger, numeratorService, recorder)
	transferService := transfer.NewService(transferRepo, txManager, ledger, catalogService, numeratorService, recorder)

	// --- Router ---
	routerCfg := v1.RouterConfig{
		AppName:     cfg.App.Name,
		Development: cfg.App.IsDevelopment(),
		Logger:      log,
		HealthChecks: map[string]handlers.Pinger{
			"database": pool,
		},
		Users:       userRepo,
		Tracing:     tracer.Enabled(),
		CORSOrigins: cfg.HTTP.CORSOrigins,
		Catalog:     catalogService,
		Sales:       salesService,
		Receipts:    receiptService,
		Transfers:   transferService,
		Numerator:   numeratorService,
	}
	if metrics != nil {
		routerCfg.Metrics = metrics
		routerCfg.MetricsPath = cfg.Metrics.Path
	}
	if redisClient != nil {
		routerCfg.HealthChecks["redis"] = handlers.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	if cfg.Idempotency.Enabled {
		routerCfg.Idempotency = postgres.NewIdempotencyStore(txManager, cfg.Idempotency.TTL)
	}
	router := v1.NewRouter(routerCfg)

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Infow("server starting", "port", cfg.App.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
