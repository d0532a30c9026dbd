package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/tindero-pos/tindero/internal/jobs"
)

// DefaultKeyRetention is how long committed transactions keep their
// idempotency keys. It must exceed the offline queue's retention so every
// possible replay still finds its original row.
const DefaultKeyRetention = 30 * 24 * time.Hour

// KeyStore clears idempotency keys on transactions older than the cutoff.
type KeyStore interface {
	ClearIdempotencyKeysBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// IdempotencySweepJob bounds the transactions idempotency-key index by
// clearing keys on rows past retention.
type IdempotencySweepJob struct {
	Keys    KeyStore
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewIdempotencySweepJob wires dependencies for the key sweep handler.
func NewIdempotencySweepJob(keys KeyStore, logger *slog.Logger, metrics *jobmetrics.Metrics) *IdempotencySweepJob {
	return &IdempotencySweepJob{
		Keys:    keys,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes idempotency sweep tasks.
func (j *IdempotencySweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Keys == nil {
		return errors.New("idempotency sweep: handler not configured")
	}
	var payload IdempotencySweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	retention := DefaultKeyRetention
	if payload.RetentionDays > 0 {
		retention = time.Duration(payload.RetentionDays) * 24 * time.Hour
	}

	tracker := j.metrics().Track(TaskIdempotencySweep)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	cutoff := j.now().Add(-retention)
	cleared, err := j.Keys.ClearIdempotencyKeysBefore(ctx, cutoff)
	if err != nil {
		resultErr = err
		j.logger().Error("clear idempotency keys", slog.Any("error", err))
		return resultErr
	}
	j.metrics().AddKeysCleared(cleared)
	if cleared > 0 {
		j.logger().Info("cleared idempotency keys", slog.Int64("cleared", cleared), slog.Time("cutoff", cutoff))
	}
	return resultErr
}

func (j *IdempotencySweepJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskIdempotencySweep))
	}
	return slog.Default().With(slog.String("job", TaskIdempotencySweep))
}

func (j *IdempotencySweepJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *IdempotencySweepJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
