package retrieval

import (
	"context"
	"sort"
	"strings"

	"juriscite-backend/embedding"
	"juriscite-backend/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// VectorQuery is one nearest-neighbour lookup in a namespace
type VectorQuery struct {
	Namespace string
	Vector    []float32
	TopK      int
	Court     string // empty means no court filter
}

// VectorIndex is the dense search backend
type VectorIndex interface {
	Query(ctx context.Context, q VectorQuery) ([]models.PrecedentVector, error)
}

// DenseRetriever embeds the query and searches several namespaces
type DenseRetriever struct {
	embedder embedding.Embedder
	index    VectorIndex
	logger   *zap.Logger
}

// NewDenseRetriever creates a retriever; a nil index disables it
func NewDenseRetriever(embedder embedding.Embedder, index VectorIndex, logger *zap.Logger) *DenseRetriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DenseRetriever{embedder: embedder, index: index, logger: logger}
}

// Enabled reports whether both the embedder and the index are configured
func (d *DenseRetriever) Enabled() bool {
	return d != nil && d.embedder != nil && d.index != nil
}

// Namespaces returns the partitions searched for a user: private, public
// and legal reference.
func Namespaces(userID string) []string {
	ns := make([]string, 0, 3)
	if strings.TrimSpace(userID) != "" {
		ns = append(ns, models.UserNamespace(userID))
	}
	return append(ns, models.NamespacePublic, models.NamespaceLegalReference)
}

// Search returns merged matches sorted by similarity. Embedding failures are
// returned to the caller; a failing namespace is logged and skipped.
func (d *DenseRetriever) Search(
	ctx context.Context,
	text string,
	topK int,
	court string,
	namespaces []string,
) ([]models.CandidateResult, error) {
	if !d.Enabled() || topK <= 0 || len(namespaces) == 0 {
		return nil, nil
	}

	vector, err := d.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	perNamespace := make([][]models.PrecedentVector, len(namespaces))
	var g errgroup.Group
	for i, ns := range namespaces {
		g.Go(func() error {
			rows, err := d.index.Query(ctx, VectorQuery{
				Namespace: ns,
				Vector:    vector,
				TopK:      topK,
				Court:     court,
			})
			if err != nil {
				d.logger.Warn("vector namespace query failed", zap.String("namespace", ns), zap.Error(err))
				return nil
			}
			perNamespace[i] = rows
			return nil
		})
	}
	_ = g.Wait()

	best := make(map[string]models.CandidateResult)
	for _, rows := range perNamespace {
		for _, row := range rows {
			c := vectorToCandidate(row)
			if prev, ok := best[c.ID]; ok && prev.SimilarityScore >= c.SimilarityScore {
				continue
			}
			best[c.ID] = c
		}
	}

	results := make([]models.CandidateResult, 0, len(best))
	for _, c := range best {
		results = append(results, c)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].SimilarityScore != results[j].SimilarityScore {
			return results[i].SimilarityScore > results[j].SimilarityScore
		}
		return results[i].ID < results[j].ID
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func vectorToCandidate(row models.PrecedentVector) models.CandidateResult {
	score := models.Clamp01(1 - row.Distance)
	return models.CandidateResult{
		ID:              row.ID,
		CaseNumber:      strings.TrimSpace(row.CaseNumber),
		Court:           row.Court,
		Rapporteur:      row.Rapporteur,
		DecisionDate:    row.DecisionDate,
		SummaryText:     row.SummaryText,
		FullText:        row.FullText,
		SimilarityScore: score,
		ConfidenceTier:  models.TierForScore(score),
		SourceKind:      models.SourceVectorIndex,
	}
}

// SplitReferences separates precedents from reference material (legislation
// and other matches without a case number).
func SplitReferences(results []models.CandidateResult) (precedents, references []models.CandidateResult) {
	for _, r := range results {
		if r.Anchorable() {
			precedents = append(precedents, r)
		} else if strings.TrimSpace(r.SummaryText) != "" {
			references = append(references, r)
		}
	}
	return precedents, references
}
