package generation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"juriscite-backend/anchor"
	"juriscite-backend/models"

	"github.com/googleapis/gax-go/v2/apierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const validOutput = `{
  "conclusion": "O precedente se aplica.",
  "legalBasis": "Art. 14 do CDC.",
  "applicability": "Mesma situação fática.",
  "citations": [{"caseNumber": "1001234-56.2023.8.26.0100", "court": "TJSP", "rapporteur": "Des. Maria", "date": "2023-05-10", "excerpt": "Dano moral in re ipsa."}]
}`

func TestParseJustification(t *testing.T) {
	j, err := ParseJustification(validOutput)
	require.NoError(t, err)
	assert.Equal(t, "O precedente se aplica.", j.Conclusion)
	assert.Equal(t, []string{"1001234-56.2023.8.26.0100"}, j.CitedCaseNumbers())
	assert.Contains(t, j.Text(), "1001234-56.2023.8.26.0100 (TJSP), Rel. Des. Maria, j. 2023-05-10")
}

func TestParseJustificationStripsFences(t *testing.T) {
	j, err := ParseJustification("```json\n" + validOutput + "\n```")
	require.NoError(t, err)
	assert.Len(t, j.Citations, 1)
}

func TestParseJustificationSchemaErrors(t *testing.T) {
	cases := map[string]string{
		"not json":         `O precedente se aplica porque...`,
		"empty":            "   ",
		"missing field":    `{"conclusion": "x", "legalBasis": "y", "citations": [{"caseNumber": "1", "court": "c", "excerpt": "e"}]}`,
		"no citations":     `{"conclusion": "x", "legalBasis": "y", "applicability": "z", "citations": []}`,
		"citation missing": `{"conclusion": "x", "legalBasis": "y", "applicability": "z", "citations": [{"court": "c", "excerpt": "e"}]}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseJustification(raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedOutput)
			var schemaErr *SchemaError
			assert.ErrorAs(t, err, &schemaErr)
		})
	}

	_, err := ParseJustification(`{"conclusion": "x", "legalBasis": "y", "citations": [{"caseNumber": "1", "court": "c", "excerpt": "e"}]}`)
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	require.Len(t, schemaErr.Fields, 1)
	assert.Contains(t, schemaErr.Fields[0], "Applicability")
}

func TestClassify(t *testing.T) {
	assert.ErrorIs(t, Classify(&googleapi.Error{Code: 429}), ErrRateLimited)
	assert.ErrorIs(t, Classify(fmt.Errorf("wrapped: %w", &googleapi.Error{Code: 503})), ErrServerUnavailable)

	apiErr, ok := apierror.FromError(status.Error(codes.ResourceExhausted, "quota exceeded"))
	require.True(t, ok)
	assert.ErrorIs(t, Classify(apiErr), ErrRateLimited)

	apiErr, ok = apierror.FromError(status.Error(codes.Unavailable, "try later"))
	require.True(t, ok)
	assert.ErrorIs(t, Classify(apiErr), ErrServerUnavailable)

	plain := errors.New("bad request")
	assert.Equal(t, plain, Classify(plain))
	assert.NoError(t, Classify(nil))

	assert.True(t, IsTransient(Classify(&googleapi.Error{Code: 500})))
	assert.False(t, IsTransient(&googleapi.Error{Code: 400}))
}

func fastPolicy(attempts uint) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxJitter: time.Millisecond, Retryable: IsTransient}
}

func TestRetryPolicyRetriesTransientErrors(t *testing.T) {
	calls := 0
	err := fastPolicy(3).Do(t.Context(), func(context.Context) error {
		calls++
		return ErrRateLimited
	})
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 3, calls)

	calls = 0
	err = fastPolicy(3).Do(t.Context(), func(context.Context) error {
		calls++
		if calls < 2 {
			return ErrServerUnavailable
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetryPolicyStopsOnPermanentErrors(t *testing.T) {
	calls := 0
	err := fastPolicy(3).Do(t.Context(), func(context.Context) error {
		calls++
		return ErrMalformedOutput
	})
	assert.ErrorIs(t, err, ErrMalformedOutput)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicyZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_ = RetryPolicy{}.Do(t.Context(), func(context.Context) error {
		calls++
		return ErrRateLimited
	})
	assert.Equal(t, 1, calls)
}

func anchored() anchor.FactAnchor {
	return anchor.Build(models.CandidateResult{
		ID:           "p1",
		CaseNumber:   "1001234-56.2023.8.26.0100",
		Court:        "TJSP",
		Rapporteur:   "Des. Maria Souza",
		DecisionDate: "2023-05-10",
		SummaryText:  "Apelação. Responsabilidade civil.   Dano moral configurado.",
	})
}

func TestFallbackJustificationUsesOnlyAnchorFields(t *testing.T) {
	a := anchored()
	j := FallbackJustification(a)

	assert.Equal(t, j, FallbackJustification(anchored()))
	require.Len(t, j.Citations, 1)
	c := j.Citations[0]
	assert.Equal(t, a.CaseNumber(), c.CaseNumber)
	assert.Equal(t, a.Court(), c.Court)
	assert.Equal(t, a.Rapporteur(), c.Rapporteur)
	assert.Equal(t, a.DecisionDate(), c.Date)
	assert.Equal(t, "Apelação. Responsabilidade civil. Dano moral configurado.", c.Excerpt)
	assert.Contains(t, j.Conclusion, a.CaseNumber())

	report := anchor.Validate(j.Text(), []anchor.FactAnchor{a}, j.CitedCaseNumbers()...)
	assert.True(t, report.Valid)
}

func TestBuildPromptEmbedsAnchor(t *testing.T) {
	p := BuildPrompt("Cliente negativado indevidamente.", anchored())
	assert.Contains(t, p.System, "CRÍTICO")
	assert.Contains(t, p.User, "Cliente negativado indevidamente.")
	assert.Contains(t, p.User, "numero_processo: 1001234-56.2023.8.26.0100")
}

func TestGeminiGeneratorWithoutClient(t *testing.T) {
	_, err := NewGeminiGenerator(nil, "gemini-2.5-flash").Generate(t.Context(), Prompt{User: "x"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
