// Package confidence scores how well a set of retrieved precedents supports a
// query and decides when the pipeline should abstain from generating.
package confidence

import (
	"encoding/json"
	"fmt"
	"strings"

	"juriscite-backend/lexicon"
	"juriscite-backend/models"
)

const (
	retrievalWeight = 0.6
	coverageWeight  = 0.4
)

// Metrics is the per-request aggregate. Risk is always derived from the
// other two values, so the fields are only reachable through NewMetrics.
type Metrics struct {
	retrievalConfidence float64
	evidenceCoverage    float64
	generationRisk      float64
}

// NewMetrics clamps both inputs to [0,1] and derives the generation risk
func NewMetrics(retrievalConfidence, evidenceCoverage float64) Metrics {
	rc := models.Clamp01(retrievalConfidence)
	ec := models.Clamp01(evidenceCoverage)
	return Metrics{
		retrievalConfidence: rc,
		evidenceCoverage:    ec,
		generationRisk:      models.Clamp01(1 - (retrievalWeight*rc + coverageWeight*ec)),
	}
}

func (m Metrics) RetrievalConfidence() float64 { return m.retrievalConfidence }
func (m Metrics) EvidenceCoverage() float64    { return m.evidenceCoverage }
func (m Metrics) GenerationRisk() float64      { return m.generationRisk }

// Summary converts the metrics to their stream representation
func (m Metrics) Summary(abstained bool) *models.ConfidenceSummary {
	return &models.ConfidenceSummary{
		RetrievalConfidence: m.retrievalConfidence,
		EvidenceCoverage:    m.evidenceCoverage,
		GenerationRisk:      m.generationRisk,
		Abstained:           abstained,
	}
}

func (m Metrics) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Summary(false))
}

// Evaluate computes the metrics for the candidates that will actually be used
func Evaluate(query string, top []models.CandidateResult) Metrics {
	return NewMetrics(RetrievalConfidence(top), EvidenceCoverage(query, top))
}

// RetrievalConfidence is the mean effective score; 0 without candidates
func RetrievalConfidence(top []models.CandidateResult) float64 {
	if len(top) == 0 {
		return 0
	}
	var sum float64
	for _, c := range top {
		sum += c.EffectiveScore()
	}
	return models.Clamp01(sum / float64(len(top)))
}

// EvidenceCoverage is the fraction of salient query terms found anywhere in
// the concatenated candidate summaries; 0 without terms.
func EvidenceCoverage(query string, top []models.CandidateResult) float64 {
	terms := lexicon.CoverageTerms(query)
	if len(terms) == 0 || len(top) == 0 {
		return 0
	}
	summaries := make([]string, len(top))
	for i, c := range top {
		summaries[i] = c.SummaryText
	}
	corpus := lexicon.Fold(strings.Join(summaries, " "))

	found := 0
	for _, t := range terms {
		if t.Contained(corpus) {
			found++
		}
	}
	return float64(found) / float64(len(terms))
}

// Thresholds configures the two abstention tiers
type Thresholds struct {
	// MinConfidence filters individual candidates by effective score
	MinConfidence float64 `yaml:"min_confidence"`
	// MinRetrievalConfidence and MinEvidenceCoverage gate generation
	MinRetrievalConfidence float64 `yaml:"min_retrieval_confidence"`
	MinEvidenceCoverage    float64 `yaml:"min_evidence_coverage"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		MinConfidence:          0.3,
		MinRetrievalConfidence: 0.55,
		MinEvidenceCoverage:    0.35,
	}
}

// Decision is the outcome of the confidence check
type Decision int

const (
	Proceed Decision = iota
	AbstainNoCandidates
	AbstainLowEvidence
)

func (d Decision) String() string {
	switch d {
	case AbstainNoCandidates:
		return "no_confident_candidates"
	case AbstainLowEvidence:
		return "low_evidence"
	default:
		return "proceed"
	}
}

// Confident keeps candidates whose effective score reaches floor, preserving order
func Confident(results []models.CandidateResult, floor float64) []models.CandidateResult {
	out := make([]models.CandidateResult, 0, len(results))
	for _, c := range results {
		if c.EffectiveScore() >= floor {
			out = append(out, c)
		}
	}
	return out
}

// Decide applies the abstention policy to the confident candidates
func (t Thresholds) Decide(confident []models.CandidateResult, m Metrics) Decision {
	if len(confident) == 0 {
		return AbstainNoCandidates
	}
	if m.retrievalConfidence < t.MinRetrievalConfidence || m.evidenceCoverage < t.MinEvidenceCoverage {
		return AbstainLowEvidence
	}
	return Proceed
}

// NoConfidentMatchesMessage is sent when no candidate clears MinConfidence
const NoConfidentMatchesMessage = "Nenhum precedente relevante atingiu o nível mínimo de confiança para esta consulta. " +
	"Tente ampliar o escopo (outros tribunais ou período maior) ou reduzir o limiar de confiança."

// AbstentionMessage explains a low-evidence abstention with both percentages
func AbstentionMessage(m Metrics) string {
	return fmt.Sprintf(
		"Justificativa não gerada: a confiança da recuperação (%.0f%%) e a cobertura de evidências (%.0f%%) "+
			"estão abaixo do mínimo necessário para uma fundamentação segura. "+
			"Os precedentes encontrados são exibidos para revisão manual. "+
			"Recomenda-se ampliar o escopo da pesquisa ou detalhar melhor os fatos do caso.",
		m.retrievalConfidence*100, m.evidenceCoverage*100,
	)
}
