package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/shortcourse-api/internal/models"
)

// Source load outcomes.
const (
	SourceOutcomeServed  = "served"
	SourceOutcomeSkipped = "skipped"
	SourceOutcomeFailed  = "failed"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	sourceLoads     *prometheus.CounterVec
	snapshotWrite   prometheus.Observer
	submissions     prometheus.Gauge

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	snapshotCount        uint64
	snapshotDuration     uint64

	mu          sync.Mutex
	sourceCount map[string]uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "view_cache_latency_seconds",
		Help:    "Latency for view cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "view_cache_write_seconds",
		Help:    "Latency for view cache writes",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "view_cache_hit_ratio",
		Help: "Ratio of view cache hits to total lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "view_cache_hits_total",
		Help: "Total view cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "view_cache_misses_total",
		Help: "Total view cache misses",
	})

	sourceLoads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "submission_source_loads_total",
		Help: "Submission provider attempts by source and outcome",
	}, []string{"source", "outcome"})

	snapshotWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "submission_snapshot_write_seconds",
		Help:    "Duration of snapshot persistence",
		Buckets: prometheus.DefBuckets,
	})

	submissions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "submissions_loaded",
		Help: "Number of submissions held in memory",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses, sourceLoads, snapshotWrite, submissions, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		sourceLoads:     sourceLoads,
		snapshotWrite:   snapshotWrite,
		submissions:     submissions,
		sourceCount:     make(map[string]uint64),
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry exposes the collector registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordSourceLoad counts one provider attempt.
func (m *MetricsService) RecordSourceLoad(source, outcome string) {
	if m == nil {
		return
	}
	m.sourceLoads.WithLabelValues(source, outcome).Inc()
	m.mu.Lock()
	m.sourceCount[source+":"+outcome]++
	m.mu.Unlock()
}

// ObserveSnapshotWrite records snapshot persistence timing.
func (m *MetricsService) ObserveSnapshotWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.snapshotWrite.Observe(duration.Seconds())
	atomic.AddUint64(&m.snapshotCount, 1)
	atomic.AddUint64(&m.snapshotDuration, uint64(duration.Nanoseconds()))
}

// SetSubmissionCount publishes the size of the in-memory set.
func (m *MetricsService) SetSubmissionCount(n int) {
	if m == nil {
		return
	}
	m.submissions.Set(float64(n))
}

// Snapshot returns aggregated metrics suitable for the metrics endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)
	snapshots := atomic.LoadUint64(&m.snapshotCount)
	snapDuration := atomic.LoadUint64(&m.snapshotDuration)

	var cacheRatio float64
	if lookups := hits + misses; lookups > 0 {
		cacheRatio = float64(hits) / float64(lookups)
	}
	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}
	var avgSnapshotMs float64
	if snapshots > 0 {
		avgSnapshotMs = float64(snapDuration) / float64(snapshots) / float64(time.Millisecond)
	}

	m.mu.Lock()
	loads := make(map[string]uint64, len(m.sourceCount))
	for k, v := range m.sourceCount {
		loads[k] = v
	}
	m.mu.Unlock()

	return models.SystemMetrics{
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		SnapshotWrites:           snapshots,
		AverageSnapshotWriteMs:   avgSnapshotMs,
		SourceLoads:              loads,
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
