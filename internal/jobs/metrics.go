package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for background jobs.
type Metrics struct {
	runs        *prometheus.CounterVec
	failures    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lowStock    *prometheus.GaugeVec
	swept       *prometheus.CounterVec
	keysCleared prometheus.Counter
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the job metrics against the provided registerer. When the
// registerer is nil the default Prometheus registerer is used.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

// Tracker provides lifecycle instrumentation helpers for a single job run.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track spawns a tracker for the given job name.
func (m *Metrics) Track(job string) *Tracker {
	if m == nil {
		return &Tracker{job: job, start: time.Now()}
	}
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// End finalises the tracker, recording duration, success/failure counts and
// returning the provided error untouched.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	status := "success"
	if err != nil {
		status = "failure"
		t.metrics.failures.WithLabelValues(t.job).Inc()
	}
	t.metrics.runs.WithLabelValues(t.job, status).Inc()
	t.metrics.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}

// SetLowStock records the number of ingredients at or below par for a
// status bucket.
func (m *Metrics) SetLowStock(status string, count int) {
	if m == nil {
		return
	}
	m.lowStock.WithLabelValues(status).Set(float64(count))
}

// AddKeysCleared increments the counter of idempotency keys cleared from old
// transactions.
func (m *Metrics) AddKeysCleared(count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.keysCleared.Add(float64(count))
}

// AddSwept increments the counter of offline-queue entries removed by the
// retention sweep.
func (m *Metrics) AddSwept(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.swept.WithLabelValues("synced").Add(float64(count))
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tindero_jobs_total",
		Help: "Total job executions partitioned by job name and status.",
	}, []string{"job", "status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tindero_jobs_failures_total",
		Help: "Total failures observed for background jobs.",
	}, []string{"job"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tindero_job_duration_seconds",
		Help:    "Duration in seconds of background job executions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	lowStock := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tindero_ingredients_below_par",
		Help: "Ingredients at or below their reorder threshold, by stock status.",
	}, []string{"status"})
	swept := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tindero_offline_queue_swept_total",
		Help: "Offline-queue entries removed by the retention sweep.",
	}, []string{"status"})
	keysCleared := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tindero_idempotency_keys_cleared_total",
		Help: "Idempotency keys cleared from transactions past retention.",
	})
	registerer.MustRegister(runs, failures, duration, lowStock, swept, keysCleared)
	return &Metrics{runs: runs, failures: failures, duration: duration, lowStock: lowStock, swept: swept, keysCleared: keysCleared}
}
