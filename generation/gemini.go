package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Generator produces raw JSON output for a prompt
type Generator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}

const defaultTemperature = 0.2

var justificationSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"conclusion":    {Type: genai.TypeString},
		"legalBasis":    {Type: genai.TypeString},
		"applicability": {Type: genai.TypeString},
		"citations": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"caseNumber": {Type: genai.TypeString},
					"court":      {Type: genai.TypeString},
					"rapporteur": {Type: genai.TypeString},
					"date":       {Type: genai.TypeString},
					"excerpt":    {Type: genai.TypeString},
				},
				Required: []string{"caseNumber", "court", "excerpt"},
			},
		},
	},
	Required: []string{"conclusion", "legalBasis", "applicability", "citations"},
}

// GeminiGenerator calls a Gemini model in JSON mode
type GeminiGenerator struct {
	client      *genai.Client
	modelName   string
	temperature float32
	limiter     *rate.Limiter
	logger      *zap.Logger
}

// GeminiOption configures a GeminiGenerator
type GeminiOption func(*GeminiGenerator)

// WithTemperature sets the sampling temperature
func WithTemperature(t float32) GeminiOption {
	return func(g *GeminiGenerator) {
		g.temperature = t
	}
}

// WithRateLimit paces outgoing calls to rps requests per second
func WithRateLimit(rps float64, burst int) GeminiOption {
	return func(g *GeminiGenerator) {
		if rps > 0 {
			g.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
		}
	}
}

// WithGeneratorLogger sets the logger
func WithGeneratorLogger(l *zap.Logger) GeminiOption {
	return func(g *GeminiGenerator) {
		g.logger = l
	}
}

func NewGeminiGenerator(client *genai.Client, modelName string, opts ...GeminiOption) *GeminiGenerator {
	g := &GeminiGenerator{
		client:      client,
		modelName:   modelName,
		temperature: defaultTemperature,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *GeminiGenerator) Generate(ctx context.Context, p Prompt) (string, error) {
	if g.client == nil {
		return "", ErrNotConfigured
	}
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	model := g.client.GenerativeModel(g.modelName)
	model.SetTemperature(g.temperature)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = justificationSchema
	if p.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(p.System)}}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(p.User))
	if err != nil {
		return "", Classify(fmt.Errorf("generate content: %w", err))
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return "", fmt.Errorf("%w: %s", ErrBlocked, resp.PromptFeedback.BlockReason)
	}

	if len(resp.Candidates) == 0 {
		return "", ErrEmptyResponse
	}
	cand := resp.Candidates[0]
	if cand.FinishReason != genai.FinishReasonStop && cand.FinishReason != genai.FinishReasonUnspecified {
		g.logger.Warn("generation finished early", zap.String("finish_reason", cand.FinishReason.String()))
	}

	var out strings.Builder
	if cand.Content != nil {
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				out.WriteString(string(text))
			}
		}
	}

	if out.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return out.String(), nil
}
