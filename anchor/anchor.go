// Package anchor builds immutable fact anchors from retrieved precedents and
// validates generated text against them.
package anchor

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"juriscite-backend/lexicon"
	"juriscite-backend/models"
)

const (
	maxTags = 5

	genericCaseClass    = "Processo Genérico"
	unknownDecidingBody = "Órgão julgador não identificado"
)

// caseClassMarkers are checked in order against the folded summary
var caseClassMarkers = []struct {
	marker string
	class  string
}{
	{"habeas corpus", "Habeas Corpus"},
	{"mandado de seguranca", "Mandado de Segurança"},
	{"agravo de instrumento", "Agravo de Instrumento"},
	{"agravo", "Agravo"},
	{"recurso extraordinario", "Recurso Extraordinário"},
	{"recurso especial", "Recurso Especial"},
	{"apelacao", "Apelação"},
}

// domainTags are matched against the folded summary; the label is emitted
var domainTags = []struct {
	marker string
	label  string
}{
	{"responsabilidade civil", "responsabilidade civil"},
	{"dano moral", "dano moral"},
	{"danos morais", "dano moral"},
	{"dano material", "dano material"},
	{"consumidor", "direito do consumidor"},
	{"prescricao", "prescrição"},
	{"decadencia", "decadência"},
	{"contrato", "contratos"},
	{"inadimplemento", "inadimplemento"},
	{"negativacao", "negativação indevida"},
	{"cadastro de inadimplentes", "negativação indevida"},
	{"plano de saude", "plano de saúde"},
	{"seguro", "seguro"},
	{"alimentos", "alimentos"},
	{"tributario", "direito tributário"},
	{"trabalhista", "direito do trabalho"},
	{"previdenciario", "direito previdenciário"},
	{"usucapiao", "usucapião"},
	{"despejo", "locação"},
	{"locacao", "locação"},
	{"juros", "juros"},
	{"honorarios", "honorários"},
}

// FactAnchor is an immutable snapshot of one candidate. Fields are only
// readable through accessors.
type FactAnchor struct {
	candidateID  string
	caseNumber   string
	court        string
	rapporteur   string
	decisionDate string
	summaryHash  string
	summary      string
	caseClass    string
	decidingBody string
	tags         []string
}

// Build derives an anchor from c. It is a pure function of c.
func Build(c models.CandidateResult) FactAnchor {
	folded := lexicon.Fold(c.SummaryText)
	return FactAnchor{
		candidateID:  c.ID,
		caseNumber:   c.CaseNumber,
		court:        c.Court,
		rapporteur:   c.Rapporteur,
		decisionDate: c.DecisionDate,
		summaryHash:  HashSummary(c.SummaryText),
		summary:      c.SummaryText,
		caseClass:    inferCaseClass(folded),
		decidingBody: inferDecidingBody(c.Court),
		tags:         extractTags(folded),
	}
}

// BuildAll anchors candidates in order
func BuildAll(candidates []models.CandidateResult) []FactAnchor {
	anchors := make([]FactAnchor, len(candidates))
	for i, c := range candidates {
		anchors[i] = Build(c)
	}
	return anchors
}

// HashSummary is the hex SHA-256 of the summary text
func HashSummary(summary string) string {
	sum := sha256.Sum256([]byte(summary))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether summary still matches the anchor's hash
func Verify(a FactAnchor, summary string) bool {
	return HashSummary(summary) == a.summaryHash
}

// SetDigest hashes the anchors' summary hashes and case numbers in order
func SetDigest(anchors []FactAnchor) string {
	h := sha256.New()
	for _, a := range anchors {
		h.Write([]byte(a.caseNumber))
		h.Write([]byte{0})
		h.Write([]byte(a.summaryHash))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func inferCaseClass(folded string) string {
	for _, m := range caseClassMarkers {
		if strings.Contains(folded, m.marker) {
			return m.class
		}
	}
	return genericCaseClass
}

func inferDecidingBody(court string) string {
	if c, ok := lexicon.LookupCourt(court); ok {
		return c.Name
	}
	return unknownDecidingBody
}

func extractTags(folded string) []string {
	tags := make([]string, 0, maxTags)
	seen := make(map[string]bool)
	for _, t := range domainTags {
		if len(tags) == maxTags {
			break
		}
		if seen[t.label] || !strings.Contains(folded, t.marker) {
			continue
		}
		seen[t.label] = true
		tags = append(tags, t.label)
	}
	return tags
}

func (a FactAnchor) CandidateID() string  { return a.candidateID }
func (a FactAnchor) CaseNumber() string   { return a.caseNumber }
func (a FactAnchor) Court() string        { return a.court }
func (a FactAnchor) Rapporteur() string   { return a.rapporteur }
func (a FactAnchor) DecisionDate() string { return a.decisionDate }
func (a FactAnchor) SummaryHash() string  { return a.summaryHash }
func (a FactAnchor) Summary() string      { return a.summary }
func (a FactAnchor) CaseClass() string    { return a.caseClass }
func (a FactAnchor) DecidingBody() string { return a.decidingBody }

// Tags returns a copy of the matched domain keywords
func (a FactAnchor) Tags() []string {
	out := make([]string, len(a.tags))
	copy(out, a.tags)
	return out
}

// UsedPrecedent is the short form streamed in metadata
func (a FactAnchor) UsedPrecedent() models.UsedPrecedent {
	return models.UsedPrecedent{
		CandidateID: a.candidateID,
		CaseNumber:  a.caseNumber,
		Court:       a.court,
		SummaryHash: a.summaryHash,
	}
}

func (a FactAnchor) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		CandidateID  string   `json:"candidate_id"`
		CaseNumber   string   `json:"case_number"`
		Court        string   `json:"court"`
		Rapporteur   string   `json:"rapporteur"`
		DecisionDate string   `json:"decision_date"`
		SummaryHash  string   `json:"summary_hash"`
		Summary      string   `json:"summary"`
		CaseClass    string   `json:"case_class"`
		DecidingBody string   `json:"deciding_body"`
		Tags         []string `json:"tags"`
	}{
		a.candidateID, a.caseNumber, a.court, a.rapporteur, a.decisionDate,
		a.summaryHash, a.summary, a.caseClass, a.decidingBody, a.Tags(),
	})
}
