package models

// SourceKind identifies which retrieval path produced a candidate
type SourceKind string

const (
	SourceKeywordIndex SourceKind = "keyword-index"
	SourceVectorIndex  SourceKind = "vector-index"
	SourceMock         SourceKind = "mock"
)

// Valid reports whether k is one of the known source kinds
func (k SourceKind) Valid() bool {
	switch k {
	case SourceKeywordIndex, SourceVectorIndex, SourceMock:
		return true
	}
	return false
}

// ConfidenceTier buckets a normalized score
type ConfidenceTier string

const (
	TierHigh   ConfidenceTier = "high"
	TierMedium ConfidenceTier = "medium"
	TierLow    ConfidenceTier = "low"
)

const (
	highTierThreshold   = 0.8
	mediumTierThreshold = 0.6
)

// TierForScore maps a score in [0,1] to its confidence tier
func TierForScore(score float64) ConfidenceTier {
	switch {
	case score >= highTierThreshold:
		return TierHigh
	case score >= mediumTierThreshold:
		return TierMedium
	default:
		return TierLow
	}
}

// CandidateResult represents a single retrieved precedent
type CandidateResult struct {
	ID              string         `json:"id"`
	CaseNumber      string         `json:"case_number"`
	Court           string         `json:"court"`
	Rapporteur      string         `json:"rapporteur,omitempty"`
	DecisionDate    string         `json:"decision_date,omitempty"` // ISO-8601 or empty
	SummaryText     string         `json:"summary_text"`
	FullText        string         `json:"full_text,omitempty"`
	SimilarityScore float64        `json:"similarity_score"`
	RerankScore     *float64       `json:"rerank_score,omitempty"`
	ConfidenceTier  ConfidenceTier `json:"confidence_tier"`
	SourceKind      SourceKind     `json:"source_kind"`
}

// EffectiveScore returns the rerank score when present, else the native score
func (c CandidateResult) EffectiveScore() float64 {
	if c.RerankScore != nil {
		return *c.RerankScore
	}
	return c.SimilarityScore
}

// Anchorable reports whether the candidate carries the fields required downstream
func (c CandidateResult) Anchorable() bool {
	return hasText(c.CaseNumber) && hasText(c.SummaryText)
}

func hasText(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return true
		}
	}
	return false
}

// Clamp01 bounds v to [0,1]
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
