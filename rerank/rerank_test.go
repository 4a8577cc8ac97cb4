package rerank

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"juriscite-backend/cache"
	"juriscite-backend/lexicon"
	"juriscite-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() []models.CandidateResult {
	return []models.CandidateResult{
		{ID: "b", CaseNumber: "2", Court: "TJSP", SummaryText: "Prescrição trienal", SimilarityScore: 0.9},
		{ID: "a", CaseNumber: "1", Court: "STJ", SummaryText: "Dano moral configurado", SimilarityScore: 0.5},
		{ID: "c", CaseNumber: "3", Court: "TJRJ", SummaryText: "Despejo por falta de pagamento", SimilarityScore: 0.1},
	}
}

func ids(results []models.CandidateResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.ID
	}
	return out
}

func TestLexicalRerank(t *testing.T) {
	r := New()
	require.Equal(t, ModeLexical, r.Mode())

	in := sample()
	out := r.Rerank(t.Context(), "dano moral STJ", in)
	require.Len(t, out, 3)
	assert.Equal(t, []string{"a", "b", "c"}, ids(out))

	assert.InDelta(t, 0.65*0.5+0.35, *out[0].RerankScore, 1e-9)
	assert.InDelta(t, 0.65*0.9, *out[1].RerankScore, 1e-9)
	assert.InDelta(t, 0.3, *out[2].RerankScore, 1e-9, "floor applies")
	assert.Equal(t, models.TierMedium, out[0].ConfidenceTier)
	assert.Equal(t, models.TierLow, out[2].ConfidenceTier)

	assert.Nil(t, in[0].RerankScore, "input is not mutated")
}

func TestLexicalRerankWithoutTermsUsesNativeScore(t *testing.T) {
	out := New().Rerank(t.Context(), "de a o", sample())
	assert.Equal(t, []string{"b", "a", "c"}, ids(out))
	assert.InDelta(t, 0.65*0.9, *out[0].RerankScore, 1e-9)
}

func TestOverlapRatio(t *testing.T) {
	terms := lexicon.RerankTerms("art. 14 do CDC, dano moral no STJ")
	assert.InDelta(t, 1.0, OverlapRatio(terms, "STJ: Art. 14 do CDC. Dano moral."), 1e-9)
	assert.Zero(t, OverlapRatio(nil, "qualquer texto"))
}

func crossEncoderServer(t *testing.T, handler func(req serviceRequest) (int, any)) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		var req serviceRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		status, body := handler(req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestCrossEncoderIndexedResults(t *testing.T) {
	srv, _ := crossEncoderServer(t, func(req serviceRequest) (int, any) {
		assert.Equal(t, "dano moral", req.Query)
		assert.Equal(t, "bge-reranker", req.Model)
		require.Len(t, req.Documents, 3)
		assert.Contains(t, req.Documents[1], "Dano moral configurado STJ")
		return http.StatusOK, map[string]any{"results": []map[string]any{
			{"index": 1, "relevance_score": 0.98},
			{"index": 2, "relevance_score": 0.40},
			{"index": 0, "relevance_score": 0.10},
		}}
	})

	r := New(WithEndpoint(srv.URL, "key", "bge-reranker"))
	require.Equal(t, ModeCrossEncoder, r.Mode())

	out := r.Rerank(t.Context(), "dano moral", sample())
	assert.Equal(t, []string{"a", "b", "c"}, ids(out))
	assert.InDelta(t, 0.35*0.5+0.65*0.98, *out[0].RerankScore, 1e-9)
	assert.InDelta(t, 0.35*0.9+0.65*0.10, *out[1].RerankScore, 1e-9)
	assert.InDelta(t, 0.35*0.1+0.65*0.40, *out[2].RerankScore, 1e-9)
}

func TestCrossEncoderPlainScores(t *testing.T) {
	srv, _ := crossEncoderServer(t, func(serviceRequest) (int, any) {
		return http.StatusOK, map[string]any{"scores": []float64{0.2, 0.3, 1.5}}
	})

	out := New(WithEndpoint(srv.URL, "key", "")).Rerank(t.Context(), "q", sample())
	assert.Equal(t, "c", out[0].ID)
	assert.InDelta(t, 0.35*0.1+0.65*1.0, *out[0].RerankScore, 1e-9, "relevance is clamped")
}

func TestCrossEncoderFailureFallsBackAndIsNotCached(t *testing.T) {
	srv, calls := crossEncoderServer(t, func(serviceRequest) (int, any) {
		return http.StatusInternalServerError, map[string]string{"error": "boom"}
	})

	r := New(WithEndpoint(srv.URL, "key", ""), WithCache(cache.NewMemory(10, time.Minute)))
	out := r.Rerank(t.Context(), "dano moral STJ", sample())
	assert.Equal(t, []string{"a", "b", "c"}, ids(out))
	assert.InDelta(t, 0.65*0.5+0.35, *out[0].RerankScore, 1e-9)

	r.Rerank(t.Context(), "dano moral STJ", sample())
	assert.EqualValues(t, 2, calls.Load())
}

func TestCrossEncoderMismatchedScoresFallBack(t *testing.T) {
	srv, _ := crossEncoderServer(t, func(serviceRequest) (int, any) {
		return http.StatusOK, map[string]any{"scores": []float64{0.9}}
	})

	out := New(WithEndpoint(srv.URL, "key", "")).Rerank(t.Context(), "dano moral STJ", sample())
	assert.Equal(t, "a", out[0].ID)
	assert.InDelta(t, 0.65*0.5+0.35, *out[0].RerankScore, 1e-9)
}

func TestRerankUsesCache(t *testing.T) {
	srv, calls := crossEncoderServer(t, func(serviceRequest) (int, any) {
		return http.StatusOK, map[string]any{"scores": []float64{0.5, 0.5, 0.5}}
	})

	r := New(WithEndpoint(srv.URL, "key", ""), WithCache(cache.NewMemory(10, time.Minute)))
	first := r.Rerank(t.Context(), "Dano  Moral", sample())
	second := r.Rerank(t.Context(), "dano moral", sample())

	assert.EqualValues(t, 1, calls.Load())
	assert.Equal(t, first, second)

	reordered := sample()
	reordered[0], reordered[1] = reordered[1], reordered[0]
	r.Rerank(t.Context(), "dano moral", reordered)
	assert.EqualValues(t, 2, calls.Load(), "candidate order is part of the key")
}

func TestRerankEmpty(t *testing.T) {
	assert.Empty(t, New().Rerank(t.Context(), "q", nil))
}
