package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"juriscite-backend/cache"
	"juriscite-backend/lexicon"
	"juriscite-backend/models"

	"github.com/elastic/go-elasticsearch/v8"
	"go.uber.org/zap"
)

const (
	DefaultDataJudURL = "https://api-publica.datajud.cnj.jus.br"

	sparseBaseScore = 0.85
	sparseScoreStep = 0.03
	sparseMinScore  = 0.3
	maxQueryChars   = 1000

	// DefaultSparseCacheTTL keeps keyword hits briefly; the public indices
	// change daily at most.
	DefaultSparseCacheTTL = 5 * time.Minute
)

// SparseConfig configures the keyword backend
type SparseConfig struct {
	BaseURL   string
	APIKey    string
	Transport http.RoundTripper
}

// SparseQuery is one keyword search
type SparseQuery struct {
	Text       string
	CourtScope string
	Size       int
	DateFrom   string
	DateTo     string
}

// SparseRetriever searches the per-court public judicial indices. It is
// best-effort: every failure yields an empty list.
type SparseRetriever struct {
	client *elasticsearch.Client
	logger *zap.Logger
	cache  cache.Cache
	ttl    time.Duration
}

// SparseOption configures a SparseRetriever
type SparseOption func(*SparseRetriever)

// WithSparseCache memoizes non-empty search results in c
func WithSparseCache(c cache.Cache) SparseOption {
	return func(r *SparseRetriever) {
		r.cache = c
	}
}

// WithSparseCacheTTL sets how long cached results live
func WithSparseCacheTTL(ttl time.Duration) SparseOption {
	return func(r *SparseRetriever) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// NewSparseRetriever returns a disabled retriever when no API key is configured
func NewSparseRetriever(cfg SparseConfig, logger *zap.Logger, opts ...SparseOption) (*SparseRetriever, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &SparseRetriever{logger: logger, ttl: DefaultSparseCacheTTL}
	for _, opt := range opts {
		opt(r)
	}
	if cfg.APIKey == "" {
		logger.Info("sparse retrieval disabled: no API key configured")
		return r, nil
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultDataJudURL
	}

	header := http.Header{}
	header.Set("Authorization", "APIKey "+cfg.APIKey)

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:  []string{cfg.BaseURL},
		Header:     header,
		Transport:  &gatewayTransport{next: cfg.Transport},
		MaxRetries: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create search client: %w", err)
	}
	r.client = client
	return r, nil
}

// Enabled reports whether the retriever has a configured backend
func (r *SparseRetriever) Enabled() bool {
	return r != nil && r.client != nil
}

// IsWildcardScope reports whether scope means "no specific court"
func IsWildcardScope(scope string) bool {
	switch strings.ToLower(strings.TrimSpace(scope)) {
	case "", "*", "all", "todos", "todas":
		return true
	}
	return false
}

// Search runs a keyword query against one court index
func (r *SparseRetriever) Search(ctx context.Context, q SparseQuery) []models.CandidateResult {
	if !r.Enabled() || IsWildcardScope(q.CourtScope) || strings.TrimSpace(q.Text) == "" {
		return nil
	}
	if q.Size <= 0 {
		q.Size = 10
	}

	court := strings.ToUpper(strings.TrimSpace(q.CourtScope))
	key := sparseCacheKey(court, q)

	var cached []models.CandidateResult
	if cache.GetJSON(ctx, r.cache, key, &cached) && len(cached) > 0 {
		return cached
	}

	results := r.search(ctx, court, q)
	if len(results) > 0 {
		cache.SetJSON(ctx, r.cache, key, results, r.ttl)
	}
	return results
}

func sparseCacheKey(court string, q SparseQuery) string {
	return cache.Key("sparse", court, lexicon.Fold(q.Text), strconv.Itoa(q.Size), q.DateFrom, q.DateTo)
}

func (r *SparseRetriever) search(ctx context.Context, court string, q SparseQuery) []models.CandidateResult {
	index := "api_publica_" + strings.ToLower(court)

	body, err := json.Marshal(buildSparseQuery(q))
	if err != nil {
		r.logger.Warn("failed to encode sparse query", zap.Error(err))
		return nil
	}

	res, err := r.client.Search(
		r.client.Search.WithContext(ctx),
		r.client.Search.WithIndex(index),
		r.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		r.logger.Warn("sparse search failed", zap.String("court", court), zap.Error(err))
		return nil
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		r.logger.Warn("failed to read sparse response", zap.String("court", court), zap.Error(err))
		return nil
	}
	if res.IsError() {
		r.logger.Warn("sparse search returned error",
			zap.String("court", court),
			zap.Int("status", res.StatusCode),
			zap.String("body", lexicon.Truncate(string(raw), 500)),
		)
		return nil
	}

	var parsed searchResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		r.logger.Warn("failed to decode sparse response", zap.String("court", court), zap.Error(err))
		return nil
	}

	results := make([]models.CandidateResult, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		c := hit.Source.toCandidate(hit.ID, court)
		if !c.Anchorable() {
			continue
		}
		c.SimilarityScore = pseudoScore(len(results))
		c.ConfidenceTier = models.TierForScore(c.SimilarityScore)
		results = append(results, c)
	}
	return results
}

func buildSparseQuery(q SparseQuery) map[string]any {
	boolQuery := map[string]any{
		"must": []any{
			map[string]any{
				"multi_match": map[string]any{
					"query":  lexicon.Truncate(q.Text, maxQueryChars),
					"fields": []string{"ementa^3", "assuntos.nome^2", "classe.nome"},
				},
			},
		},
	}
	if q.DateFrom != "" || q.DateTo != "" {
		rng := map[string]any{}
		if q.DateFrom != "" {
			rng["gte"] = q.DateFrom
		}
		if q.DateTo != "" {
			rng["lte"] = q.DateTo
		}
		boolQuery["filter"] = []any{
			map[string]any{"range": map[string]any{"dataAjuizamento": rng}},
		}
	}
	return map[string]any{
		"size":  q.Size,
		"query": map[string]any{"bool": boolQuery},
	}
}

// pseudoScore ranks keyword hits on the same scale as vector similarity
func pseudoScore(rank int) float64 {
	s := sparseBaseScore - sparseScoreStep*float64(rank)
	if s < sparseMinScore {
		return sparseMinScore
	}
	return s
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string       `json:"_id"`
			Source judicialCase `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type namedField struct {
	Nome string `json:"nome"`
}

type judicialCase struct {
	NumeroProcesso string       `json:"numeroProcesso"`
	Tribunal       string       `json:"tribunal"`
	Classe         namedField   `json:"classe"`
	OrgaoJulgador  namedField   `json:"orgaoJulgador"`
	Assuntos       []namedField `json:"assuntos"`
	Relator        string       `json:"relator"`
	DataJulgamento string       `json:"dataJulgamento"`
	Ementa         string       `json:"ementa"`
	InteiroTeor    string       `json:"inteiroTeor"`
}

func (j judicialCase) toCandidate(id, court string) models.CandidateResult {
	if j.Tribunal != "" {
		court = j.Tribunal
	}
	if id == "" {
		id = j.NumeroProcesso
	}
	return models.CandidateResult{
		ID:           "datajud:" + id,
		CaseNumber:   FormatCaseNumber(j.NumeroProcesso),
		Court:        court,
		Rapporteur:   strings.TrimSpace(j.Relator),
		DecisionDate: isoDate(j.DataJulgamento),
		SummaryText:  j.summary(),
		FullText:     j.InteiroTeor,
		SourceKind:   models.SourceKeywordIndex,
	}
}

// summary prefers the ementa; without one it is assembled from metadata
func (j judicialCase) summary() string {
	if s := strings.TrimSpace(j.Ementa); s != "" {
		return s
	}
	var parts []string
	if j.Classe.Nome != "" {
		parts = append(parts, "Classe: "+j.Classe.Nome+".")
	}
	if len(j.Assuntos) > 0 {
		names := make([]string, 0, len(j.Assuntos))
		for _, a := range j.Assuntos {
			if a.Nome != "" {
				names = append(names, a.Nome)
			}
		}
		if len(names) > 0 {
			parts = append(parts, "Assuntos: "+strings.Join(names, "; ")+".")
		}
	}
	if j.OrgaoJulgador.Nome != "" {
		parts = append(parts, "Órgão julgador: "+j.OrgaoJulgador.Nome+".")
	}
	return strings.Join(parts, " ")
}

// FormatCaseNumber renders a 20-digit unified number as NNNNNNN-DD.AAAA.J.TR.OOOO.
// Anything else is returned trimmed.
func FormatCaseNumber(raw string) string {
	raw = strings.TrimSpace(raw)
	digits := make([]byte, 0, 20)
	for i := 0; i < len(raw); i++ {
		if raw[i] >= '0' && raw[i] <= '9' {
			digits = append(digits, raw[i])
		}
	}
	if len(digits) != 20 {
		return raw
	}
	d := string(digits)
	return fmt.Sprintf("%s-%s.%s.%s.%s.%s", d[0:7], d[7:9], d[9:13], d[13:14], d[14:16], d[16:20])
}

func isoDate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 10 && s[4] == '-' && s[7] == '-' {
		return s[:10]
	}
	return ""
}

// gatewayTransport lets the client talk to API gateways in front of
// Elasticsearch that strip the product header.
type gatewayTransport struct {
	next http.RoundTripper
}

func (t *gatewayTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	next := t.next
	if next == nil {
		next = http.DefaultTransport
	}
	res, err := next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if res.Header == nil {
		res.Header = http.Header{}
	}
	if res.Header.Get("X-Elastic-Product") == "" {
		res.Header.Set("X-Elastic-Product", "Elasticsearch")
	}
	return res, nil
}
