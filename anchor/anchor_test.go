package anchor

import (
	"encoding/json"
	"strings"
	"testing"

	"juriscite-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	caseA = "1001234-56.2023.8.26.0100"
	caseB = "0009999-88.2022.8.26.0001"
	fake  = "7777777-77.2021.8.26.0100"
)

func precedent() models.CandidateResult {
	return models.CandidateResult{
		ID:           "p1",
		CaseNumber:   caseA,
		Court:        "TJSP - 3ª Câmara de Direito Privado",
		Rapporteur:   "Des. Maria Souza",
		DecisionDate: "2023-05-10",
		SummaryText: "APELAÇÃO CÍVEL. Responsabilidade civil. Código de Defesa do Consumidor. " +
			"Negativação indevida em cadastro de inadimplentes. Dano moral in re ipsa. Juros de mora.",
		SimilarityScore: 0.9,
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	a := Build(precedent())
	b := Build(precedent())

	assert.Equal(t, a, b)
	assert.Equal(t, a.SummaryHash(), b.SummaryHash())
	assert.Len(t, a.SummaryHash(), 64)
	assert.Equal(t, caseA, a.CaseNumber())
	assert.Equal(t, "Des. Maria Souza", a.Rapporteur())
	assert.Equal(t, "2023-05-10", a.DecisionDate())
	assert.Equal(t, "p1", a.CandidateID())
}

func TestBuildInfersMetadata(t *testing.T) {
	a := Build(precedent())

	assert.Equal(t, "Apelação", a.CaseClass())
	assert.Equal(t, "Tribunal de Justiça de São Paulo", a.DecidingBody())
	assert.Equal(t, []string{"responsabilidade civil", "dano moral", "direito do consumidor", "negativação indevida", "juros"}, a.Tags())
}

func TestCaseClassPriority(t *testing.T) {
	cases := []struct {
		summary string
		want    string
	}{
		{"Habeas corpus. Apelação criminal.", "Habeas Corpus"},
		{"Agravo de instrumento contra decisão interlocutória.", "Agravo de Instrumento"},
		{"AGRAVO INTERNO no Recurso Especial.", "Agravo"},
		{"Recurso Extraordinário com repercussão geral.", "Recurso Extraordinário"},
		{"Mandado de Segurança. Ato coator.", "Mandado de Segurança"},
		{"Ação de cobrança julgada procedente.", "Processo Genérico"},
	}
	for _, tc := range cases {
		c := precedent()
		c.SummaryText = tc.summary
		assert.Equal(t, tc.want, Build(c).CaseClass(), tc.summary)
	}
}

func TestUnknownCourt(t *testing.T) {
	c := precedent()
	c.Court = "Vara Única de Xique-Xique"
	assert.Equal(t, "Órgão julgador não identificado", Build(c).DecidingBody())
}

func TestTagsCappedAndCopied(t *testing.T) {
	c := precedent()
	c.SummaryText = "dano moral, dano material, prescrição, decadência, contrato, seguro, alimentos, juros"
	a := Build(c)
	tags := a.Tags()
	require.Len(t, tags, 5)

	tags[0] = "changed"
	assert.Equal(t, "dano moral", a.Tags()[0])
}

func TestVerifyAndDigest(t *testing.T) {
	p := precedent()
	a := Build(p)
	assert.True(t, Verify(a, p.SummaryText))
	assert.False(t, Verify(a, p.SummaryText+" "))

	other := precedent()
	other.CaseNumber = caseB
	b := Build(other)
	assert.Equal(t, SetDigest([]FactAnchor{a, b}), SetDigest([]FactAnchor{Build(p), Build(other)}))
	assert.NotEqual(t, SetDigest([]FactAnchor{a, b}), SetDigest([]FactAnchor{b, a}))
}

func TestRenderSeparatesImmutableFacts(t *testing.T) {
	c := precedent()
	c.Rapporteur = ""
	out := Build(c).Render()

	facts := "numero_processo: " + caseA
	assert.Contains(t, out, "[FATOS IMUTÁVEIS")
	assert.Contains(t, out, facts)
	assert.Contains(t, out, "relator: não informado")
	assert.Contains(t, out, "hash_integridade: "+Build(c).SummaryHash())
	assert.Contains(t, out, "[CONTEÚDO DESCRITIVO]")
	assert.Contains(t, out, "CRÍTICO")
	assert.Less(t, strings.Index(out, facts), strings.Index(out, "[CONTEÚDO DESCRITIVO]"))
	assert.Less(t, strings.Index(out, "[CONTEÚDO DESCRITIVO]"), strings.Index(out, "ementa: "))
}

func TestMarshalJSON(t *testing.T) {
	raw, err := json.Marshal(Build(precedent()))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, caseA, decoded["case_number"])
	assert.Equal(t, "Apelação", decoded["case_class"])
}

func TestValidateFlagsUnknownCaseNumber(t *testing.T) {
	anchors := []FactAnchor{Build(precedent())}
	text := "Conforme o processo " + caseA + ", e também o " + fake + " e novamente " + fake + "."

	report := Validate(text, anchors)
	assert.False(t, report.Valid)
	require.Len(t, report.Violations, 1)
	assert.Contains(t, report.Violations[0], fake)
	assert.Equal(t, SetDigest(anchors), report.AnchorDigest)
}

func TestValidateAcceptsAnchoredNumbers(t *testing.T) {
	anchors := []FactAnchor{Build(precedent())}
	report := Validate("Precedente "+caseA+" aplicável.", anchors, caseA)
	assert.True(t, report.Valid)
	assert.Empty(t, report.Violations)
}

func TestValidateChecksStructuredCitations(t *testing.T) {
	anchors := []FactAnchor{Build(precedent())}

	report := Validate("Sem números no texto.", anchors, " "+caseA+" ", "REsp 1.234.567/SP", "")
	require.Len(t, report.Violations, 1)
	assert.Contains(t, report.Violations[0], "REsp 1.234.567/SP")

	report = Validate("Cita "+fake, anchors, fake)
	assert.Len(t, report.Violations, 1, "same literal is reported once")
}

func TestValidateQuotingAcceptsNumbersFromOwnSummary(t *testing.T) {
	const quoted = "0007777-11.2015.8.26.0001"
	quoting := precedent()
	quoting.SummaryText += " Entendimento firmado no processo " + quoted + "."
	source := Build(quoting)

	other := precedent()
	other.ID, other.CaseNumber = "p2", caseB
	sibling := Build(other)
	anchors := []FactAnchor{source, sibling}

	text := "Conforme " + caseA + ", que segue o processo " + quoted + "."
	report := ValidateQuoting(text, source, anchors, caseA)
	assert.True(t, report.Valid)
	assert.Empty(t, report.Violations)

	report = ValidateQuoting(text, sibling, anchors)
	require.Len(t, report.Violations, 1, "only the justified precedent's summary counts")
	assert.Contains(t, report.Violations[0], quoted)

	report = ValidateQuoting("Sem números.", source, anchors, quoted)
	require.Len(t, report.Violations, 1, "structured citations must name an anchor")

	report = Validate(text, anchors)
	assert.False(t, report.Valid)
}

func TestTrustedReport(t *testing.T) {
	anchors := []FactAnchor{Build(precedent())}
	r := Trusted(anchors)
	assert.True(t, r.Valid)
	assert.Empty(t, r.Violations)
	assert.Equal(t, SetDigest(anchors), r.AnchorDigest)
}

func TestReportInfo(t *testing.T) {
	r := Validate("nada", nil)
	info := r.Info()
	assert.True(t, info.Valid)
	assert.NotEmpty(t, info.AnchorDigest)
}
