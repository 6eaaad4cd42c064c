package metrics

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "voiceprint"

// Cache lookup results.
const (
	CacheHit     = "hit"
	CacheMiss    = "miss"
	CacheExpired = "expired"
	CacheCorrupt = "corrupt"
)

// Metrics holds the pipeline's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	CacheLookups  *prometheus.CounterVec
	Outcomes      *prometheus.CounterVec
	Rejections    *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by entry kind and result.",
		}, []string{"kind", "result"}),

		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Style and generation requests by outcome.",
		}, []string{"operation", "outcome"}),

		Rejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidate_rejections_total",
			Help:      "Comment candidates rejected by the authenticity filter, by reason code.",
		}, []string{"code"}),

		// Model calls dominate; buckets run up to two minutes.
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage latency in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"stage"}),
	}
}

// RecordCache counts one cache lookup.
func (m *Metrics) RecordCache(kind, result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(kind, result).Inc()
}

// RecordOutcome counts a finished request.
func (m *Metrics) RecordOutcome(operation, outcome string) {
	if m == nil {
		return
	}
	m.Outcomes.WithLabelValues(operation, outcome).Inc()
}

// RecordRejection counts a rejected candidate.
func (m *Metrics) RecordRejection(code string) {
	if m == nil {
		return
	}
	m.Rejections.WithLabelValues(code).Inc()
}

// ObserveStage records the time since start against stage.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// LogSummary writes every gathered series to the default logger at debug
// level. Histograms are reduced to count and sum.
func LogSummary(g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			attrs := []any{"metric", mf.GetName()}
			for _, lp := range m.GetLabel() {
				attrs = append(attrs, lp.GetName(), lp.GetValue())
			}
			switch {
			case m.GetCounter() != nil:
				attrs = append(attrs, "value", m.GetCounter().GetValue())
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				attrs = append(attrs, "count", h.GetSampleCount(), "sum_seconds", h.GetSampleSum())
			case m.GetGauge() != nil:
				attrs = append(attrs, "value", m.GetGauge().GetValue())
			}
			slog.Debug("metric", attrs...)
		}
	}
	return nil
}
