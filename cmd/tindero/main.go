package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/tindero-pos/tindero/internal/app"
	"github.com/tindero-pos/tindero/internal/catalog"
	"github.com/tindero-pos/tindero/internal/observability"
	"github.com/tindero-pos/tindero/internal/offline"
	"github.com/tindero-pos/tindero/internal/sales"
	"github.com/tindero-pos/tindero/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	catalogRepo := catalog.NewRepository(dbpool)
	catalogService := catalog.NewService(catalogRepo)
	catalogHandler := catalog.NewHandler(logger, catalogService)

	policy := sales.ClampToZero
	if cfg.StockPolicy == "reject" {
		policy = sales.RejectOverdraw
	}
	salesRepo := sales.NewRepository(dbpool)
	salesService := sales.NewService(salesRepo, sales.ServiceConfig{Policy: policy})
	salesHandler := sales.NewHandler(logger, salesService)

	queueStore := offline.NewRedisStore(redisClient, "posq")
	deviceID, err := queueStore.LoadOrInitDeviceID(ctx, deviceCandidate(cfg))
	if err != nil {
		logger.Error("load device identity", slog.Any("error", err))
		os.Exit(1)
	}
	submitter := &offline.HTTPSubmitter{BaseURL: cfg.QueueSyncBaseURL, Client: http.DefaultClient}
	syncer := offline.NewSyncer(queueStore, submitter, offline.DeviceIdentity{ID: deviceID}, logger, offline.SyncerConfig{
		Interval:  cfg.QueueSyncInterval,
		Retention: cfg.QueueRetention,
	})

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, jobClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		CatalogHandler: catalogHandler,
		SalesHandler:   salesHandler,
		JobHandler:     jobHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("device", deviceID))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		return syncer.Run(groupCtx)
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("shutdown", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("shut down cleanly")
}

func deviceCandidate(cfg *app.Config) string {
	if cfg.DeviceID != "" {
		return cfg.DeviceID
	}
	return "till-" + uuid.NewString()[:8]
}
