// Package embedding converts text to dense vectors for the vector index.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"juriscite-backend/cache"
	"juriscite-backend/lexicon"

	"github.com/google/generative-ai-go/genai"
)

var (
	ErrEmbeddingFailed   = errors.New("failed to generate embedding")
	ErrEmptyInput        = errors.New("embedding input is empty")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

const (
	DefaultMaxChars = 8000
	DefaultCacheTTL = 30 * time.Minute
)

// Embedder turns text into a fixed-length vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// GeminiEmbedder calls the Gemini embedding model
type GeminiEmbedder struct {
	model *genai.EmbeddingModel
	dims  int
}

// NewGeminiEmbedder creates an embedder; dims <= 0 disables the dimension check
func NewGeminiEmbedder(client *genai.Client, modelName string, dims int, taskType genai.TaskType) *GeminiEmbedder {
	model := client.EmbeddingModel(modelName)
	model.TaskType = taskType
	return &GeminiEmbedder{model: model, dims: dims}
}

// Embed returns the unit-normalized embedding of text
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	res, err := e.model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailed, err)
	}
	if res == nil || res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrEmbeddingFailed)
	}

	values := res.Embedding.Values
	if e.dims > 0 && len(values) != e.dims {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, e.dims, len(values))
	}

	return normalize(values), nil
}

// normalize scales v to unit length
func normalize(v []float32) []float32 {
	norm := 0.0
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// CachedEmbedder truncates input and memoizes vectors by normalized content.
// Provider errors are returned as-is and never cached.
type CachedEmbedder struct {
	next     Embedder
	cache    cache.Cache
	ttl      time.Duration
	maxChars int
}

// CachedOption configures a CachedEmbedder
type CachedOption func(*CachedEmbedder)

// WithCache sets the cache backend
func WithCache(c cache.Cache) CachedOption {
	return func(e *CachedEmbedder) {
		e.cache = c
	}
}

// WithTTL sets the entry lifetime
func WithTTL(ttl time.Duration) CachedOption {
	return func(e *CachedEmbedder) {
		e.ttl = ttl
	}
}

// WithMaxChars sets the truncation limit in runes
func WithMaxChars(n int) CachedOption {
	return func(e *CachedEmbedder) {
		e.maxChars = n
	}
}

// NewCachedEmbedder wraps next
func NewCachedEmbedder(next Embedder, opts ...CachedOption) *CachedEmbedder {
	e := &CachedEmbedder{
		next:     next,
		ttl:      DefaultCacheTTL,
		maxChars: DefaultMaxChars,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	text = lexicon.Truncate(strings.TrimSpace(text), e.maxChars)
	if text == "" {
		return nil, ErrEmptyInput
	}

	key := cache.Key("embedding", strings.ToLower(lexicon.CollapseWhitespace(text)))
	var cached []float32
	if cache.GetJSON(ctx, e.cache, key, &cached) && len(cached) > 0 {
		return cached, nil
	}

	vec, err := e.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	cache.SetJSON(ctx, e.cache, key, vec, e.ttl)
	return vec, nil
}
