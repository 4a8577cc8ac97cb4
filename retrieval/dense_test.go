package retrieval

import (
	"context"
	"errors"
	"sync"
	"testing"

	"juriscite-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEmbedder struct {
	err error
}

func (s stubEmbedder) Embed(context.Context, string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []float32{1, 0, 0}, nil
}

type stubIndex struct {
	mu      sync.Mutex
	rows    map[string][]models.PrecedentVector
	fail    map[string]error
	queries []VectorQuery
}

func (s *stubIndex) Query(_ context.Context, q VectorQuery) ([]models.PrecedentVector, error) {
	s.mu.Lock()
	s.queries = append(s.queries, q)
	s.mu.Unlock()
	if err := s.fail[q.Namespace]; err != nil {
		return nil, err
	}
	return s.rows[q.Namespace], nil
}

func row(id, ns, caseNumber string, distance float64) models.PrecedentVector {
	return models.PrecedentVector{
		ID:          id,
		Namespace:   ns,
		CaseNumber:  caseNumber,
		Court:       "TJSP",
		SummaryText: "ementa " + id,
		Distance:    distance,
	}
}

func TestDenseSearchMergesNamespaces(t *testing.T) {
	index := &stubIndex{rows: map[string][]models.PrecedentVector{
		"user:u1": {row("p1", "user:u1", precedentX, 0.30), row("p2", "user:u1", precedentY, 0.10)},
		"public":  {row("p2", "public", precedentY, 0.20), row("p3", "public", precedentZ, 0.05)},
		"legal-reference": {
			{ID: "lei-8078", Namespace: "legal-reference", SummaryText: "CDC art. 14", Distance: 0.15},
		},
	}}
	d := NewDenseRetriever(stubEmbedder{}, index, nil)

	results, err := d.Search(t.Context(), "dano moral", 3, "TJSP", Namespaces("u1"))
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "p3", results[0].ID)
	assert.InDelta(t, 0.95, results[0].SimilarityScore, 1e-9)
	assert.Equal(t, "p2", results[1].ID)
	assert.InDelta(t, 0.90, results[1].SimilarityScore, 1e-9, "highest similarity wins on duplicate ids")
	assert.Equal(t, "lei-8078", results[2].ID)
	for _, r := range results {
		assert.Equal(t, models.SourceVectorIndex, r.SourceKind)
	}

	require.Len(t, index.queries, 3)
	for _, q := range index.queries {
		assert.Equal(t, "TJSP", q.Court)
		assert.Equal(t, 3, q.TopK)
	}
}

func TestDenseSearchSkipsFailingNamespace(t *testing.T) {
	index := &stubIndex{
		rows: map[string][]models.PrecedentVector{"public": {row("p1", "public", precedentX, 0.2)}},
		fail: map[string]error{"user:u1": errors.New("timeout")},
	}
	d := NewDenseRetriever(stubEmbedder{}, index, nil)

	results, err := d.Search(t.Context(), "q", 5, "", Namespaces("u1"))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "p1", results[0].ID)
}

func TestDenseSearchPropagatesEmbeddingErrors(t *testing.T) {
	boom := errors.New("embedding backend down")
	d := NewDenseRetriever(stubEmbedder{err: boom}, &stubIndex{}, nil)

	_, err := d.Search(t.Context(), "q", 5, "", Namespaces(""))
	assert.ErrorIs(t, err, boom)
}

func TestDenseSearchDisabledWithoutIndex(t *testing.T) {
	d := NewDenseRetriever(stubEmbedder{}, nil, nil)
	results, err := d.Search(t.Context(), "q", 5, "", Namespaces("u1"))
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestNamespaces(t *testing.T) {
	assert.Equal(t, []string{"user:u1", "public", "legal-reference"}, Namespaces("u1"))
	assert.Equal(t, []string{"public", "legal-reference"}, Namespaces(" "))
}

func TestSplitReferences(t *testing.T) {
	in := []models.CandidateResult{
		{ID: "p1", CaseNumber: precedentX, SummaryText: "ementa"},
		{ID: "lei", SummaryText: "Lei 8.078/90, art. 14"},
		{ID: "empty"},
	}
	precedents, references := SplitReferences(in)
	require.Len(t, precedents, 1)
	require.Len(t, references, 1)
	assert.Equal(t, "lei", references[0].ID)
}
