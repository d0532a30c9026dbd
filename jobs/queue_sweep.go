package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/tindero-pos/tindero/internal/jobs"
	"github.com/tindero-pos/tindero/internal/offline"
)

// QueueSweepJob removes synced offline-queue entries older than the
// retention window so the queue store stays bounded.
type QueueSweepJob struct {
	Store   offline.Store
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewQueueSweepJob wires dependencies for the sweep handler.
func NewQueueSweepJob(store offline.Store, logger *slog.Logger, metrics *jobmetrics.Metrics) *QueueSweepJob {
	return &QueueSweepJob{
		Store:   store,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes queue sweep tasks.
func (j *QueueSweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Store == nil {
		return errors.New("queue sweep: handler not configured")
	}
	var payload QueueSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	retention := offline.DefaultRetention
	if payload.RetentionHours > 0 {
		retention = time.Duration(payload.RetentionHours) * time.Hour
	}

	tracker := j.metrics().Track(TaskQueueSweep)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	cutoff := j.now().Add(-retention)
	removed, err := j.Store.DeleteSyncedBefore(ctx, cutoff)
	if err != nil {
		resultErr = err
		j.logger().Error("sweep offline queue", slog.Any("error", err))
		return resultErr
	}
	j.metrics().AddSwept(removed)
	if removed > 0 {
		j.logger().Info("swept offline queue", slog.Int("removed", removed), slog.Time("cutoff", cutoff))
	}
	return resultErr
}

func (j *QueueSweepJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskQueueSweep))
	}
	return slog.Default().With(slog.String("job", TaskQueueSweep))
}

func (j *QueueSweepJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *QueueSweepJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
