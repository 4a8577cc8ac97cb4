package lexicon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripDiacritics(t *testing.T) {
	assert.Equal(t, "acao de indenizacao por dano moral", StripDiacritics("ação de indenização por dano moral"))
	assert.Equal(t, "Sao Paulo", StripDiacritics("São Paulo"))
}

func TestFoldAndNormalizeSummary(t *testing.T) {
	assert.Equal(t, "responsabilidade civil do estado", Fold("  Responsabilidade\n\tCivil  do ESTADO "))
	assert.Equal(t, "ação x", NormalizeSummary("  AÇÃO \n X "))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "açã", Truncate("ação", 3))
	assert.Equal(t, "ação", Truncate("ação", 10))
	assert.Equal(t, "", Truncate("ação", 0))
}

func TestRerankTerms(t *testing.T) {
	terms := RerankTerms("Responsabilidade civil do fornecedor, art. 14 do CDC e § 3º, precedentes do STJ sobre o tribunal")

	assert.Contains(t, terms, Term{Kind: TermArticle, Value: "14"})
	assert.Contains(t, terms, Term{Kind: TermArticle, Value: "3"})
	assert.Contains(t, terms, Term{Kind: TermCourt, Value: "STJ"})
	assert.Contains(t, terms, Term{Kind: TermToken, Value: "responsabilidade"})
	assert.Contains(t, terms, Term{Kind: TermToken, Value: "fornecedor"})
	assert.NotContains(t, terms, Term{Kind: TermToken, Value: "sobre"})
	assert.NotContains(t, terms, Term{Kind: TermToken, Value: "tribunal"})
}

func TestRerankTermsIgnoresLongArticleNumbers(t *testing.T) {
	terms := RerankTerms("art. 12345")
	for _, term := range terms {
		assert.NotEqual(t, TermArticle, term.Kind)
	}
}

func TestCoverageTermsKeepsLegalWords(t *testing.T) {
	terms := CoverageTerms("recurso sobre prescrição")
	assert.Equal(t, []Term{
		{Kind: TermToken, Value: "recurso"},
		{Kind: TermToken, Value: "prescricao"},
	}, terms)
}

func TestTermMatchIn(t *testing.T) {
	text := Fold("Aplicação do art. 186 do Código Civil pelo STJ")

	assert.True(t, Term{Kind: TermArticle, Value: "186"}.MatchIn(text))
	assert.False(t, Term{Kind: TermArticle, Value: "18"}.MatchIn(text))
	assert.True(t, Term{Kind: TermCourt, Value: "STJ"}.MatchIn(text))
	assert.False(t, Term{Kind: TermCourt, Value: "STF"}.MatchIn(text))
	assert.True(t, Term{Kind: TermToken, Value: "aplicacao"}.MatchIn(text))
}

func TestLookupCourt(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"TJSP - 3ª Câmara de Direito Privado", "TJSP", true},
		{"stj", "STJ", true},
		{"TRF-4", "TRF4", true},
		{"Superior Tribunal de Justiça", "STJ", true},
		{"Juizado Especial", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c, ok := LookupCourt(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, c.Acronym)
		})
	}
}

func TestLooksLegal(t *testing.T) {
	assert.True(t, LooksLegal("O autor ajuizou ação de indenização contra a ré alegando dano moral."))
	assert.False(t, LooksLegal("curto"))
	assert.False(t, LooksLegal("Receita de bolo de cenoura com cobertura de chocolate e granulado."))
}
