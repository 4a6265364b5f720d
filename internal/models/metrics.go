package models

import "time"

// SystemMetrics is a lightweight snapshot of process instrumentation.
type SystemMetrics struct {
	CacheHitRatio            float64           `json:"cache_hit_ratio"`
	CacheHits                uint64            `json:"cache_hits"`
	CacheMisses              uint64            `json:"cache_misses"`
	RequestsTotal            uint64            `json:"requests_total"`
	AverageRequestDurationMs float64           `json:"average_request_duration_ms"`
	SnapshotWrites           uint64            `json:"snapshot_writes"`
	AverageSnapshotWriteMs   float64           `json:"average_snapshot_write_ms"`
	SourceLoads              map[string]uint64 `json:"source_loads"`
	Goroutines               int               `json:"goroutines"`
	GeneratedAt              time.Time         `json:"generated_at"`
}
