// Package metrics holds the Prometheus collectors of the analysis pipeline.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "juriscite"

// Generation outcomes
const (
	OutcomeGenerated = "generated"
	OutcomeFallback  = "fallback"
	OutcomeMalformed = "malformed"
	OutcomeFailed    = "failed"
)

type Metrics struct {
	// retrievalLatency labels: source (keyword-index, vector-index)
	retrievalLatency *prometheus.HistogramVec
	// retrievedResults labels: source
	retrievedResults *prometheus.CounterVec
	// abstentions labels: reason (no_confident_candidates, low_evidence)
	abstentions *prometheus.CounterVec
	// generations labels: outcome
	generations         *prometheus.CounterVec
	integrityViolations prometheus.Counter
	analyses            *prometheus.CounterVec
	stageLatency        *prometheus.HistogramVec
}

// New registers the collectors with reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		retrievalLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "latency_seconds",
			Help:      "Retrieval latency by source",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"source"}),
		retrievedResults: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "results_total",
			Help:      "Candidates returned by each retrieval source",
		}, []string{"source"}),
		abstentions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "confidence",
			Name:      "abstentions_total",
			Help:      "Requests that abstained from generation, by reason",
		}, []string{"reason"}),
		generations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "justifications_total",
			Help:      "Per-candidate generation outcomes",
		}, []string{"outcome"}),
		integrityViolations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "integrity",
			Name:      "violations_total",
			Help:      "Unanchored case numbers found in generated text",
		}),
		analyses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "requests_total",
			Help:      "Analysis requests by final status",
		}, []string{"status"}),
		stageLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "stage_seconds",
			Help:      "Time spent in each pipeline stage",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
	}
}

func (m *Metrics) ObserveRetrieval(source string, elapsed time.Duration, results int) {
	if m == nil {
		return
	}
	m.retrievalLatency.WithLabelValues(source).Observe(elapsed.Seconds())
	m.retrievedResults.WithLabelValues(source).Add(float64(results))
}

func (m *Metrics) Abstained(reason string) {
	if m == nil {
		return
	}
	m.abstentions.WithLabelValues(reason).Inc()
}

func (m *Metrics) Generation(outcome string) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IntegrityViolations(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.integrityViolations.Add(float64(n))
}

func (m *Metrics) Analysis(status string) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveStage(stage string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.stageLatency.WithLabelValues(stage).Observe(elapsed.Seconds())
}
