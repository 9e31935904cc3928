// Package main is the entry point for the pharmaerp background worker.
// It delivers queued notifications and cleans up expired idempotency keys.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"pharmaerp/internal/infrastructure/config"
	"pharmaerp/internal/infrastructure/notify"
	"pharmaerp/internal/infrastructure/storage/postgres"
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

	ctx, cancel := context.WithCancel(logger.WithLogger(context.Background(), log))
	defer cancel()

	log.Info("starting pharmaerp worker")

	pool, err := postgres.NewPool(ctx, cfg.PoolConfig())
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool, cfg.Database.StatementTimeout)
	worker := NewWorker(
		postgres.NewOutboxRelay(txManager, cfg.Worker.BatchSize, notify.NewLogSender(log)),
		postgres.NewIdempotencyStore(txManager, cfg.Idempotency.TTL),
		cfg.Worker,
		log,
	)

	if cfg.Redis.Enabled() {
		redisClient, err := notify.NewRedisClient(ctx, notify.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Warnw("redis unavailable, every replica runs cleanup", "error", err)
		} else {
			defer func() { _ = redisClient.Close() }()
			worker.WithLocker(notify.NewRedisLocker(redisClient))
		}
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}

// Relay delivers pending outbox messages.
type Relay interface {
	ProcessBatch(ctx context.Context) (int, error)
	MoveToDLQ(ctx context.Context) (int64, error)
}

// Cleaner drops expired idempotency keys.
type Cleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// Locker serializes a job across worker replicas.
type Locker interface {
	Do(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

const cleanupLockKey = "worker:cleanup"

// Worker polls the notification outbox and runs periodic cleanup.
type Worker struct {
	relay   Relay
	cleaner Cleaner
	locker  Locker
	cfg     config.WorkerConfig
	log     *logger.Logger
}

// NewWorker creates a worker.
func NewWorker(relay Relay, cleaner Cleaner, cfg config.WorkerConfig, log *logger.Logger) *Worker {
	return &Worker{
		relay:   relay,
		cleaner: cleaner,
		cfg:     cfg,
		log:     log.WithComponent("worker"),
	}
}

// WithLocker makes cleanup run on one replica at a time.
func (w *Worker) WithLocker(l Locker) *Worker {
	w.locker = l
	return w
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	cleanupTicker := time.NewTicker(w.cfg.CleanupInterval)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.drain(ctx)
		case <-cleanupTicker.C:
			w.cleanup(ctx)
		}
	}
}

// drain processes full batches until the outbox has no more due messages.
func (w *Worker) drain(ctx context.Context) {
	for ctx.Err() == nil {
		n, err := w.relay.ProcessBatch(ctx)
		if err != nil {
			w.log.Errorw("outbox batch failed", "error", err)
			return
		}
		if n > 0 {
			w.log.Debugw("outbox batch delivered", "count", n)
		}
		if n < w.cfg.BatchSize {
			return
		}
	}
}

// cleanup falls back to running unlocked when the lock store fails;
// both steps are safe to repeat.
func (w *Worker) cleanup(ctx context.Context) {
	if w.locker == nil {
		w.runCleanup(ctx)
		return
	}

	err := w.locker.Do(ctx, cleanupLockKey, w.cfg.CleanupLockTTL, func(ctx context.Context) error {
		w.runCleanup(ctx)
		return nil
	})
	switch {
	case errors.Is(err, notify.ErrLockHeld):
		w.log.Debugw("cleanup skipped, another worker holds the lock")
	case err != nil:
		w.log.Warnw("cleanup lock unavailable, running unlocked", "error", err)
		w.runCleanup(ctx)
	}
}

func (w *Worker) runCleanup(ctx context.Context) {
	moved, err := w.relay.MoveToDLQ(ctx)
	if err != nil {
		w.log.Errorw("move failed notifications to DLQ", "error", err)
	} else if moved > 0 {
		w.log.Warnw("failed notifications moved to DLQ", "count", moved)
	}

	deleted, err := w.cleaner.CleanupExpired(ctx)
	if err != nil {
		w.log.Errorw("cleanup idempotency keys", "error", err)
	} else if deleted > 0 {
		w.log.Infow("cleaned up idempotency keys", "count", deleted)
	}
}
