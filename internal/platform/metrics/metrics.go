package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the reconciliation engine.
type Metrics struct {
	SnapshotsRecorded     *prometheus.CounterVec
	SnapshotsDeduplicated *prometheus.CounterVec
	ProposalsEmitted      *prometheus.CounterVec
	ProposalsApplied      *prometheus.CounterVec
	EnrichFailures        *prometheus.CounterVec
	EnrichDuration        *prometheus.HistogramVec
	FetchCacheHits        *prometheus.CounterVec
	FetchCacheMisses      *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		SnapshotsRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "registrar_snapshots_recorded_total",
			Help: "Registry snapshots persisted, by source registry",
		}, []string{"source"}),
		SnapshotsDeduplicated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "registrar_snapshots_deduplicated_total",
			Help: "Fetches whose payload hash matched the latest stored snapshot",
		}, []string{"source"}),
		ProposalsEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "registrar_proposals_emitted_total",
			Help: "Proposals produced by the diff engine, by kind",
		}, []string{"kind"}),
		ProposalsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "registrar_proposals_applied_total",
			Help: "Proposals committed by the applier, by kind",
		}, []string{"kind"}),
		EnrichFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "registrar_enrich_failures_total",
			Help: "Failed enrichment runs, by failure stage",
		}, []string{"stage"}),
		EnrichDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "registrar_enrich_duration_seconds",
			Help:    "Wall time of a full enrichment run",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
		FetchCacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "registrar_fetch_cache_hits_total",
			Help: "Raw payloads served from the fetch cache",
		}, []string{"source"}),
		FetchCacheMisses: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "registrar_fetch_cache_misses_total",
			Help: "Fetch cache lookups that fell through to the registry",
		}, []string{"source"}),
	}
}

func (m *Metrics) RecordSnapshot(source string, isNew bool) {
	if m == nil {
		return
	}
	if isNew {
		m.SnapshotsRecorded.WithLabelValues(source).Inc()
	} else {
		m.SnapshotsDeduplicated.WithLabelValues(source).Inc()
	}
}

func (m *Metrics) RecordProposals(kinds []string) {
	if m == nil {
		return
	}
	for _, k := range kinds {
		m.ProposalsEmitted.WithLabelValues(k).Inc()
	}
}

func (m *Metrics) RecordApplied(kind string) {
	if m == nil {
		return
	}
	m.ProposalsApplied.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordEnrichFailure(stage string) {
	if m == nil {
		return
	}
	m.EnrichFailures.WithLabelValues(stage).Inc()
}

func (m *Metrics) ObserveEnrichDuration(source string, d time.Duration) {
	if m == nil {
		return
	}
	m.EnrichDuration.WithLabelValues(source).Observe(d.Seconds())
}

func (m *Metrics) RecordCacheHit(source string) {
	if m == nil {
		return
	}
	m.FetchCacheHits.WithLabelValues(source).Inc()
}

func (m *Metrics) RecordCacheMiss(source string) {
	if m == nil {
		return
	}
	m.FetchCacheMisses.WithLabelValues(source).Inc()
}
