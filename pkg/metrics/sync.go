package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics records per-platform reconciliation outcomes.
type SyncMetrics struct {
	recordsSynced  *prometheus.CounterVec
	sourceFailures *prometheus.CounterVec
}

// NewSyncMetrics registers the sync metrics on the provided registerer.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	synced := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_records_total",
		Help: "Records upserted into the ledger per platform.",
	}, []string{"platform"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_source_failures_total",
		Help: "Source fetch failures per platform.",
	}, []string{"platform"})
	reg.MustRegister(synced, failures)
	return &SyncMetrics{
		recordsSynced:  synced,
		sourceFailures: failures,
	}
}

// AddRecordsSynced adds the count of upserted records for a platform.
func (s *SyncMetrics) AddRecordsSynced(platform string, count int) {
	if s == nil || s.recordsSynced == nil || count <= 0 {
		return
	}
	s.recordsSynced.WithLabelValues(normalizeLabel(platform)).Add(float64(count))
}

// IncSourceFailure increments the failure counter for a platform.
func (s *SyncMetrics) IncSourceFailure(platform string) {
	if s == nil || s.sourceFailures == nil {
		return
	}
	s.sourceFailures.WithLabelValues(normalizeLabel(platform)).Inc()
}
