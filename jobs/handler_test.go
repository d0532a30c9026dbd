package jobs

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type fakeEnqueuer struct {
	payloads []LowStockScanPayload
}

func (f *fakeEnqueuer) EnqueueLowStockScan(ctx context.Context, payload LowStockScanPayload) (*asynq.TaskInfo, error) {
	f.payloads = append(f.payloads, payload)
	return &asynq.TaskInfo{ID: "task-1", Queue: QueueDefault}, nil
}

func newJobsRouter(enqueue ScanEnqueuer) chi.Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	NewHandler(nil, enqueue, logger).MountRoutes(r)
	return r
}

func TestTriggerLowStockScan(t *testing.T) {
	enqueue := &fakeEnqueuer{}
	router := newJobsRouter(enqueue)

	req := httptest.NewRequest(http.MethodPost, "/low-stock-scan", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Contains(t, rec.Body.String(), "task-1")
	require.Len(t, enqueue.payloads, 1)
	require.True(t, enqueue.payloads[0].Notify)
}

func TestTriggerLowStockScanWithoutClient(t *testing.T) {
	router := newJobsRouter(nil)

	req := httptest.NewRequest(http.MethodPost, "/low-stock-scan", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
