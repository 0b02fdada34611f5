package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"qrnglab/internal/report"
)

// Metrics holds the collectors the API updates after each analysis
type Metrics struct {
	registry   *prometheus.Registry
	duration   *prometheus.HistogramVec
	analyses   *prometheus.CounterVec
	exclusions *prometheus.CounterVec
	sessions   prometheus.Histogram
	rejections prometheus.Counter
}

// NewMetrics registers the collectors on a fresh registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "qrnglab",
			Name:      "analysis_duration_seconds",
			Help:      "Wall time of a full analysis, by endpoint.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"endpoint"}),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qrnglab",
			Name:      "analyses_total",
			Help:      "Analyses run, by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		exclusions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qrnglab",
			Name:      "session_exclusions_total",
			Help:      "Sessions excluded from analyses, by reason.",
		}, []string{"reason"}),
		sessions: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "qrnglab",
			Name:      "analysis_selected_sessions",
			Help:      "Sessions selected per analysis.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		rejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "qrnglab",
			Name:      "confirmatory_rejections_total",
			Help:      "Confirmatory comparisons significant after Holm correction.",
		}),
	}
	m.registry.MustRegister(m.duration, m.analyses, m.exclusions, m.sessions, m.rejections,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the registry for the /metrics handler
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Observe records a finished analysis. rep is nil when the analysis failed.
func (m *Metrics) Observe(endpoint string, seconds float64, rep *report.Report) {
	m.duration.WithLabelValues(endpoint).Observe(seconds)
	if rep == nil {
		m.analyses.WithLabelValues(endpoint, "error").Inc()
		return
	}
	m.analyses.WithLabelValues(endpoint, "ok").Inc()

	summary := rep.Results.Summary
	m.sessions.Observe(float64(len(summary.Sessions)))
	ex := summary.Exclusions
	for reason, n := range map[string]int{
		"malformed_session":   ex.MalformedSessions,
		"malformed_block":     ex.MalformedBlocks,
		"missing_completion":  ex.MissingCompletion,
		"missing_condition":   ex.MissingCondition,
		"missing_created_at":  ex.MissingCreatedAt,
		"missing_data_source": ex.MissingDataSource,
		"missing_participant": ex.MissingParticipant,
		"filtered_out":        ex.FilteredOut,
		"repeat_session":      ex.RepeatSessions,
		"empty_session":       ex.EmptySessions,
	} {
		if n > 0 {
			m.exclusions.WithLabelValues(reason).Add(float64(n))
		}
	}
	if c := rep.Results.Confirmatory; c != nil {
		m.rejections.Add(float64(c.Rejections()))
	}
}
