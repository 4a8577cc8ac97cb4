package retrieval

import (
	"sort"
	"strings"
	"unicode"

	"juriscite-backend/lexicon"
	"juriscite-backend/models"
)

const (
	// DefaultRRFK is the rank offset of Reciprocal Rank Fusion
	DefaultRRFK = 60

	fusionSummaryPrefix = 100
)

// FusedRankEntry is a candidate with its normalized fused score
type FusedRankEntry struct {
	Candidate  models.CandidateResult `json:"candidate"`
	FusedScore float64                `json:"fused_score"`
	Tier       models.ConfidenceTier  `json:"tier"`
}

// Fuse merges two ranked lists with Reciprocal Rank Fusion. Each list adds
// 1/(k+rank+1) per candidate; sums are divided by the best achievable score
// 2/(k+1) and clamped to 1. When only one list has results it is passed
// through with its native scores. Candidates without a case number or
// summary are dropped.
func Fuse(listA, listB []models.CandidateResult, k int) []FusedRankEntry {
	if k <= 0 {
		k = DefaultRRFK
	}
	listA = anchorableOnly(listA)
	listB = anchorableOnly(listB)

	switch {
	case len(listA) == 0 && len(listB) == 0:
		return nil
	case len(listB) == 0:
		return passthrough(listA)
	case len(listA) == 0:
		return passthrough(listB)
	}

	type agg struct {
		candidate models.CandidateResult
		score     float64
	}
	scores := make(map[string]*agg)
	var firstSeen []*agg

	for _, list := range [][]models.CandidateResult{listA, listB} {
		for rank, c := range list {
			key := FusionKey(c)
			a, ok := scores[key]
			if !ok {
				a = &agg{candidate: c}
				scores[key] = a
				firstSeen = append(firstSeen, a)
			}
			a.score += 1.0 / float64(k+rank+1)
		}
	}

	maxScore := 2.0 / float64(k+1)
	out := make([]FusedRankEntry, 0, len(firstSeen))
	for _, a := range firstSeen {
		fused := models.Clamp01(a.score / maxScore)
		c := a.candidate
		c.SimilarityScore = fused
		c.ConfidenceTier = models.TierForScore(fused)
		out = append(out, FusedRankEntry{Candidate: c, FusedScore: fused, Tier: c.ConfidenceTier})
	}

	// Stable sort keeps first appearance as the tie-breaker.
	sort.SliceStable(out, func(i, j int) bool { return out[i].FusedScore > out[j].FusedScore })
	return out
}

// FusionKey identifies a precedent across sources: the normalized case
// number plus the start of the normalized summary.
func FusionKey(c models.CandidateResult) string {
	summary := lexicon.Truncate(lexicon.NormalizeSummary(c.SummaryText), fusionSummaryPrefix)
	return normalizeCaseNumber(c.CaseNumber) + "|" + summary
}

// normalizeCaseNumber keeps letters and digits, lowercased
func normalizeCaseNumber(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Candidates unwraps fused entries
func Candidates(entries []FusedRankEntry) []models.CandidateResult {
	out := make([]models.CandidateResult, len(entries))
	for i, e := range entries {
		out[i] = e.Candidate
	}
	return out
}

func passthrough(list []models.CandidateResult) []FusedRankEntry {
	out := make([]FusedRankEntry, len(list))
	for i, c := range list {
		score := models.Clamp01(c.SimilarityScore)
		c.SimilarityScore = score
		c.ConfidenceTier = models.TierForScore(score)
		out[i] = FusedRankEntry{Candidate: c, FusedScore: score, Tier: c.ConfidenceTier}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].FusedScore > out[j].FusedScore })
	return out
}

func anchorableOnly(list []models.CandidateResult) []models.CandidateResult {
	out := make([]models.CandidateResult, 0, len(list))
	for _, c := range list {
		if c.Anchorable() {
			out = append(out, c)
		}
	}
	return out
}
