package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveRetrieval("vector-index", 120*time.Millisecond, 4)
	m.ObserveRetrieval("vector-index", 80*time.Millisecond, 2)
	m.Abstained("low_evidence")
	m.Generation(OutcomeFallback)
	m.Generation(OutcomeFallback)
	m.IntegrityViolations(3)
	m.IntegrityViolations(0)

	assert.Equal(t, 6.0, testutil.ToFloat64(m.retrievedResults.WithLabelValues("vector-index")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.abstentions.WithLabelValues("low_evidence")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.generations.WithLabelValues(OutcomeFallback)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.integrityViolations))

	err := testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP juriscite_integrity_violations_total Unanchored case numbers found in generated text
# TYPE juriscite_integrity_violations_total counter
juriscite_integrity_violations_total 3
`), "juriscite_integrity_violations_total")
	assert.NoError(t, err)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRetrieval("keyword-index", time.Second, 1)
		m.Abstained("x")
		m.Generation(OutcomeGenerated)
		m.IntegrityViolations(1)
		m.Analysis("completed")
		m.ObserveStage("RETRIEVING", time.Second)
	})
}
