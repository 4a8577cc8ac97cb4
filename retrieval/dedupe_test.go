package retrieval

import (
	"testing"

	"juriscite-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedupeSameCaseNumberDifferentWhitespace(t *testing.T) {
	in := []models.CandidateResult{
		candidate("a", precedentX, "Responsabilidade civil.  Dano moral configurado.", 0.9, models.SourceKeywordIndex),
		candidate("b", " "+precedentX+" ", "Responsabilidade civil.\nDano moral   configurado.", 0.8, models.SourceVectorIndex),
	}

	out := Dedupe(in)
	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].ID)
}

func TestDedupeSameSummaryDifferentCaseNumber(t *testing.T) {
	in := []models.CandidateResult{
		candidate("a", precedentX, "Mesma ementa", 0.9, models.SourceKeywordIndex),
		candidate("b", precedentY, "  MESMA   ementa ", 0.8, models.SourceVectorIndex),
		candidate("c", precedentZ, "Outra ementa", 0.7, models.SourceVectorIndex),
	}

	out := Dedupe(in)
	require.Len(t, out, 2)
	assert.Equal(t, []string{"a", "c"}, []string{out[0].ID, out[1].ID})
}

func TestDedupeIdempotentAndOrderPreserving(t *testing.T) {
	in := []models.CandidateResult{
		candidate("1", precedentZ, "z", 0.9, models.SourceKeywordIndex),
		candidate("2", precedentX, "x", 0.8, models.SourceKeywordIndex),
		candidate("3", precedentZ, "z other", 0.7, models.SourceVectorIndex),
		candidate("4", precedentY, "y", 0.6, models.SourceVectorIndex),
		candidate("5", "", "no case", 0.5, models.SourceMock),
		candidate("6", "9999", "x", 0.4, models.SourceMock),
	}

	once := Dedupe(in)
	assert.Equal(t, once, Dedupe(once))

	ids := make([]string, len(once))
	for i, r := range once {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"1", "2", "4"}, ids)
}

func TestDedupeEmpty(t *testing.T) {
	assert.Empty(t, Dedupe(nil))
}
