package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/tindero-pos/tindero/internal/catalog"
	jobmetrics "github.com/tindero-pos/tindero/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// LowStockScanJob walks the ingredient list and surfaces anything at or
// below its reorder threshold.
type LowStockScanJob struct {
	Catalog *catalog.Service
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewLowStockScanJob wires dependencies for the scan handler.
func NewLowStockScanJob(catalogSvc *catalog.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *LowStockScanJob {
	return &LowStockScanJob{Catalog: catalogSvc, Logger: logger, Metrics: metrics}
}

// Handle processes low-stock scan tasks.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Catalog == nil {
		return errors.New("low stock scan: handler not configured")
	}
	var payload LowStockScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskStockLowScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	scanCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	logger := j.logger()
	below, err := j.Catalog.BelowPar(scanCtx)
	if err != nil {
		resultErr = err
		logger.Error("list below par", slog.Any("error", err))
		return resultErr
	}

	empty := 0
	for _, ing := range below {
		if ing.Quantity <= 0 {
			empty++
		}
		logger.Warn("ingredient below par",
			slog.Int64("ingredient_id", ing.ID),
			slog.String("name", ing.Name),
			slog.Float64("quantity", ing.Quantity),
			slog.Float64("par_level", ing.ParLevel))
	}
	j.metrics().SetLowStock("below_par", len(below))
	j.metrics().SetLowStock("empty", empty)

	if len(below) == 0 && !payload.Notify {
		return resultErr
	}
	logger.Info("completed low stock scan", slog.Int("below_par", len(below)), slog.Int("empty", empty))
	return resultErr
}

func (j *LowStockScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskStockLowScan))
	}
	return slog.Default().With(slog.String("job", TaskStockLowScan))
}

func (j *LowStockScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
