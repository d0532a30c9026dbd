package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskStockLowScan scans ingredients for low-stock conditions.
	TaskStockLowScan = "stock:low_scan"
	// TaskQueueSweep removes synced offline-queue entries past retention.
	TaskQueueSweep = "queue:sweep"
	// TaskIdempotencySweep clears idempotency keys on old transactions.
	TaskIdempotencySweep = "idempotency:sweep"
)

// LowStockScanPayload parameterises the low-stock scan.
type LowStockScanPayload struct {
	// Notify controls whether the scan logs a reorder summary even when
	// nothing is below par.
	Notify bool `json:"notify"`
}

// NewLowStockScanTask constructs a low-stock scan task.
func NewLowStockScanTask(payload LowStockScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStockLowScan, data), nil
}

// QueueSweepPayload parameterises the offline-queue retention sweep.
type QueueSweepPayload struct {
	// RetentionHours overrides the default 24h retention when positive.
	RetentionHours int `json:"retentionHours"`
}

// NewQueueSweepTask constructs a queue sweep task.
func NewQueueSweepTask(payload QueueSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskQueueSweep, data), nil
}

// IdempotencySweepPayload parameterises the idempotency-key sweep.
type IdempotencySweepPayload struct {
	// RetentionDays overrides the default 30-day key retention when positive.
	RetentionDays int `json:"retentionDays"`
}

// NewIdempotencySweepTask constructs an idempotency-key sweep task.
func NewIdempotencySweepTask(payload IdempotencySweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencySweep, data), nil
}
