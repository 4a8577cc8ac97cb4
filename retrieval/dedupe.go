package retrieval

import (
	"strings"

	"juriscite-backend/lexicon"
	"juriscite-backend/models"
)

// Dedupe removes later results sharing a trimmed case number or a
// normalized summary with an earlier one. Order is preserved and results
// without a case number or summary are dropped.
func Dedupe(results []models.CandidateResult) []models.CandidateResult {
	seenCase := make(map[string]bool, len(results))
	seenSummary := make(map[string]bool, len(results))
	out := make([]models.CandidateResult, 0, len(results))

	for _, r := range results {
		if !r.Anchorable() {
			continue
		}
		caseNumber := strings.TrimSpace(r.CaseNumber)
		summary := lexicon.NormalizeSummary(r.SummaryText)
		if seenCase[caseNumber] || seenSummary[summary] {
			continue
		}
		seenCase[caseNumber] = true
		seenSummary[summary] = true
		out = append(out, r)
	}
	return out
}
