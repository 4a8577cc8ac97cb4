// Package rerank rescores fused candidates against the query, either with an
// external cross-encoder service or with a local lexical-overlap fallback.
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"juriscite-backend/cache"
	"juriscite-backend/lexicon"
	"juriscite-backend/models"

	"go.uber.org/zap"
)

// Mode names the active scoring path
type Mode string

const (
	ModeCrossEncoder Mode = "cross-encoder"
	ModeLexical      Mode = "lexical"
)

const (
	DefaultCacheTTL = 5 * time.Minute

	crossNativeWeight    = 0.35
	crossRelevanceWeight = 0.65
	lexicalNativeWeight  = 0.65
	lexicalOverlapWeight = 0.35
	lexicalFloor         = 0.3
)

var ErrRerankService = errors.New("rerank service failed")

// Reranker rescores candidates. The zero value is not usable; call New.
type Reranker struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
	cache    cache.Cache
	ttl      time.Duration
	logger   *zap.Logger
}

// Option configures a Reranker
type Option func(*Reranker)

// WithEndpoint enables the cross-encoder path
func WithEndpoint(endpoint, apiKey, model string) Option {
	return func(r *Reranker) {
		r.endpoint = endpoint
		r.apiKey = apiKey
		r.model = model
	}
}

// WithHTTPClient overrides the HTTP client used for the service
func WithHTTPClient(c *http.Client) Option {
	return func(r *Reranker) {
		r.client = c
	}
}

// WithCache sets the result cache
func WithCache(c cache.Cache) Option {
	return func(r *Reranker) {
		r.cache = c
	}
}

// WithTTL sets the lifetime of cached rankings
func WithTTL(ttl time.Duration) Option {
	return func(r *Reranker) {
		r.ttl = ttl
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(r *Reranker) {
		r.logger = l
	}
}

// New creates a reranker
func New(opts ...Option) *Reranker {
	r := &Reranker{
		client: &http.Client{Timeout: 10 * time.Second},
		ttl:    DefaultCacheTTL,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Mode reports the path Rerank will try first
func (r *Reranker) Mode() Mode {
	if r.endpoint != "" {
		return ModeCrossEncoder
	}
	return ModeLexical
}

// Rerank returns a copy of results with RerankScore and ConfidenceTier set,
// sorted by RerankScore descending.
func (r *Reranker) Rerank(ctx context.Context, query string, results []models.CandidateResult) []models.CandidateResult {
	if len(results) == 0 {
		return results
	}

	mode := r.Mode()
	key := cacheKey(mode, query, results)
	var cached []models.CandidateResult
	if cache.GetJSON(ctx, r.cache, key, &cached) && len(cached) == len(results) {
		return cached
	}

	out := make([]models.CandidateResult, len(results))
	copy(out, results)

	cacheable := true
	if mode == ModeCrossEncoder {
		relevance, err := r.crossEncoderScores(ctx, query, out)
		if err == nil {
			for i := range out {
				setScore(&out[i], crossNativeWeight*out[i].SimilarityScore+crossRelevanceWeight*models.Clamp01(relevance[i]))
			}
		} else {
			r.logger.Warn("cross-encoder rerank failed, using lexical fallback", zap.Error(err))
			mode = ModeLexical
			cacheable = false
		}
	}
	if mode == ModeLexical {
		lexicalScores(query, out)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return *out[i].RerankScore > *out[j].RerankScore
	})

	if cacheable {
		cache.SetJSON(ctx, r.cache, key, out, r.ttl)
	}
	return out
}

func setScore(c *models.CandidateResult, score float64) {
	score = models.Clamp01(score)
	c.RerankScore = &score
	c.ConfidenceTier = models.TierForScore(score)
}

// lexicalScores applies max(floor, 0.65*native + 0.35*overlap)
func lexicalScores(query string, out []models.CandidateResult) {
	terms := lexicon.RerankTerms(query)
	for i := range out {
		overlap := OverlapRatio(terms, candidateText(out[i]))
		score := lexicalNativeWeight*out[i].SimilarityScore + lexicalOverlapWeight*overlap
		if score < lexicalFloor {
			score = lexicalFloor
		}
		setScore(&out[i], score)
	}
}

// OverlapRatio is the fraction of terms found in text; 0 without terms
func OverlapRatio(terms []lexicon.Term, text string) float64 {
	if len(terms) == 0 {
		return 0
	}
	folded := lexicon.Fold(text)
	matched := 0
	for _, t := range terms {
		if t.MatchIn(folded) {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}

func candidateText(c models.CandidateResult) string {
	return strings.Join([]string{c.SummaryText, c.Court, c.Rapporteur}, " ")
}

func cacheKey(mode Mode, query string, results []models.CandidateResult) string {
	ids := make([]string, len(results))
	for i, c := range results {
		ids[i] = c.ID
	}
	return cache.Key("rerank", string(mode), lexicon.Fold(query), strings.Join(ids, ","))
}

type serviceRequest struct {
	Model     string   `json:"model,omitempty"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n,omitempty"`
}

// serviceResponse accepts both the plain scores array and the indexed
// results shape used by hosted rerank APIs.
type serviceResponse struct {
	Scores  []float64 `json:"scores"`
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

func (r *Reranker) crossEncoderScores(ctx context.Context, query string, in []models.CandidateResult) ([]float64, error) {
	docs := make([]string, len(in))
	for i, c := range in {
		docs[i] = candidateText(c)
	}
	body, err := json.Marshal(serviceRequest{Model: r.model, Query: query, Documents: docs, TopN: len(docs)})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRerankService, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRerankService, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrRerankService, resp.StatusCode)
	}

	var parsed serviceResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRerankService, err)
	}

	if len(parsed.Scores) > 0 {
		if len(parsed.Scores) != len(in) {
			return nil, fmt.Errorf("%w: got %d scores for %d documents", ErrRerankService, len(parsed.Scores), len(in))
		}
		return parsed.Scores, nil
	}

	scores := make([]float64, len(in))
	seen := make([]bool, len(in))
	for _, res := range parsed.Results {
		if res.Index < 0 || res.Index >= len(in) {
			return nil, fmt.Errorf("%w: index %d out of range", ErrRerankService, res.Index)
		}
		scores[res.Index] = res.RelevanceScore
		seen[res.Index] = true
	}
	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("%w: missing score for document %d", ErrRerankService, i)
		}
	}
	return scores, nil
}
