package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/tindero-pos/tindero/internal/app"
	"github.com/tindero-pos/tindero/internal/catalog"
	"github.com/tindero-pos/tindero/internal/offline"
	"github.com/tindero-pos/tindero/internal/platform/cache"
	"github.com/tindero-pos/tindero/internal/platform/db"
	"github.com/tindero-pos/tindero/internal/sales"
	"github.com/tindero-pos/tindero/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	catalogRepo := catalog.NewRepository(pool)
	catalogService := catalog.NewService(catalogRepo)
	salesRepo := sales.NewRepository(pool)
	queueStore := offline.NewRedisStore(redisClient, "posq")

	lowStockJob := jobs.NewLowStockScanJob(catalogService, logger, nil)
	sweepJob := jobs.NewQueueSweepJob(queueStore, logger, nil)
	keySweepJob := jobs.NewIdempotencySweepJob(salesRepo, logger, nil)

	lowStockTask, err := jobs.NewLowStockScanTask(jobs.LowStockScanPayload{Notify: true})
	if err != nil {
		logger.Error("build low stock task", slog.Any("error", err))
		os.Exit(1)
	}
	sweepTask, err := jobs.NewQueueSweepTask(jobs.QueueSweepPayload{})
	if err != nil {
		logger.Error("build queue sweep task", slog.Any("error", err))
		os.Exit(1)
	}
	keySweepTask, err := jobs.NewIdempotencySweepTask(jobs.IdempotencySweepPayload{})
	if err != nil {
		logger.Error("build idempotency sweep task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskStockLowScan, Handler: lowStockJob.Handle},
			{Type: jobs.TaskQueueSweep, Handler: sweepJob.Handle},
			{Type: jobs.TaskIdempotencySweep, Handler: keySweepJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 6 * * *", Task: lowStockTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 * * * *", Task: sweepTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "15 3 * * *", Task: keySweepTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
