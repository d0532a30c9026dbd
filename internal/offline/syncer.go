package offline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// Submitter delivers one queued payload to the server. Implementations must
// send the idempotency key with the payload so the server-side check stays
// authoritative.
type Submitter interface {
	Submit(ctx context.Context, idempotencyKey string, payload []byte) error
}

// Syncer drains the queue against the server. A single sync runs at a time;
// an attempt in flight is allowed to finish before its entry's status is
// reinterpreted, so a cancellation can never cause double submission.
type Syncer struct {
	store     Store
	submit    Submitter
	device    DeviceIdentity
	logger    *slog.Logger
	interval  time.Duration
	retention time.Duration
	inFlight  atomic.Bool
}

// SyncerConfig groups optional settings.
type SyncerConfig struct {
	Interval  time.Duration
	Retention time.Duration
}

// NewSyncer builds a Syncer.
func NewSyncer(store Store, submit Submitter, device DeviceIdentity, logger *slog.Logger, cfg SyncerConfig) *Syncer {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	return &Syncer{
		store:     store,
		submit:    submit,
		device:    device,
		logger:    logger,
		interval:  cfg.Interval,
		retention: cfg.Retention,
	}
}

// Enqueue buffers a sale for later submission. The idempotency key is
// derived once, here; re-enqueueing the same payload after a crash reuses
// the queued entry via the key index.
func (s *Syncer) Enqueue(ctx context.Context, payload []byte, key string) (Entry, error) {
	if key == "" {
		key = s.device.NewIdempotencyKey(payload)
	}
	return s.store.Enqueue(ctx, Entry{
		IdempotencyKey: key,
		Payload:        payload,
		Status:         StatusPending,
		EnqueuedAt:     time.Now().UTC(),
	})
}

// SyncStats summarises one sync pass.
type SyncStats struct {
	Synced    int
	Failed    int
	Requeued  int
	Collected int
	Exhausted int
}

// SyncOnce runs one pass: recover entries interrupted mid-submit, re-queue
// retryable failures, submit pending entries oldest first, and collect
// expired synced entries.
func (s *Syncer) SyncOnce(ctx context.Context) (SyncStats, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return SyncStats{}, ErrSyncInFlight
	}
	defer s.inFlight.Store(false)

	var stats SyncStats

	// Only one pass runs at a time, so anything still marked syncing was
	// abandoned by a crash mid-submit. Demote it back to pending: the
	// server-side idempotency key makes the re-submission safe.
	interrupted, err := s.store.ListByStatus(ctx, StatusSyncing)
	if err != nil {
		return stats, err
	}
	for _, entry := range interrupted {
		entry.Status = StatusPending
		if err := s.store.Update(ctx, entry); err != nil {
			return stats, err
		}
		stats.Requeued++
	}

	failed, err := s.store.ListByStatus(ctx, StatusFailed)
	if err != nil {
		return stats, err
	}
	for _, entry := range failed {
		if entry.RetryCount >= MaxRetries {
			stats.Exhausted++
			continue
		}
		entry.Status = StatusPending
		if err := s.store.Update(ctx, entry); err != nil {
			return stats, err
		}
		stats.Requeued++
	}

	pending, err := s.store.ListByStatus(ctx, StatusPending)
	if err != nil {
		return stats, err
	}
	for _, entry := range pending {
		entry.Status = StatusSyncing
		if err := s.store.Update(ctx, entry); err != nil {
			return stats, err
		}
		if submitErr := s.submit.Submit(ctx, entry.IdempotencyKey, entry.Payload); submitErr != nil {
			entry.Status = StatusFailed
			entry.RetryCount++
			entry.LastError = submitErr.Error()
			if err := s.store.Update(ctx, entry); err != nil {
				return stats, err
			}
			stats.Failed++
			if entry.RetryCount >= MaxRetries && s.logger != nil {
				s.logger.Error("queue entry exhausted retries",
					slog.String("id", entry.ID),
					slog.String("key", entry.IdempotencyKey),
					slog.String("last_error", entry.LastError))
			}
			continue
		}
		entry.Status = StatusSynced
		entry.SyncedAt = time.Now().UTC()
		entry.LastError = ""
		if err := s.store.Update(ctx, entry); err != nil {
			return stats, err
		}
		stats.Synced++
	}

	collected, err := s.store.DeleteSyncedBefore(ctx, time.Now().UTC().Add(-s.retention))
	if err != nil {
		return stats, err
	}
	stats.Collected = collected
	return stats, nil
}

// Run loops SyncOnce until the context is cancelled.
func (s *Syncer) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			stats, err := s.SyncOnce(ctx)
			if err != nil && s.logger != nil {
				s.logger.Warn("sync pass failed", slog.Any("error", err))
				continue
			}
			if s.logger != nil && (stats.Synced > 0 || stats.Failed > 0) {
				s.logger.Info("sync pass",
					slog.Int("synced", stats.Synced),
					slog.Int("failed", stats.Failed),
					slog.Int("requeued", stats.Requeued))
			}
		}
	}
}

// HTTPSubmitter posts queued payloads to the server's transaction endpoint.
type HTTPSubmitter struct {
	BaseURL string
	Client  *http.Client
}

// Submit implements Submitter.
func (h *HTTPSubmitter) Submit(ctx context.Context, idempotencyKey string, payload []byte) error {
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.BaseURL+"/transactions", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", idempotencyKey)
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("offline: server error %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		// Client-correctable rejections will never succeed on retry; read
		// the body for the operator and still report failure.
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("offline: rejected with %d: %s", resp.StatusCode, body)
	}
	return nil
}
