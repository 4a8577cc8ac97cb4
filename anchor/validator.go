package anchor

import (
	"fmt"
	"regexp"
	"strings"

	"juriscite-backend/models"
)

// caseNumberPattern matches the CNJ unified format NNNNNNN-DD.AAAA.J.TR.OOOO
var caseNumberPattern = regexp.MustCompile(`\b\d{7}-\d{2}\.\d{4}\.\d\.\d{2}\.\d{4}\b`)

// Report is the outcome of one validation. Only case-number literals are
// checked; invented names, dates or narrative pass unnoticed. A number the
// justified precedent's own summary quotes verbatim is not a violation when it
// appears in the text (see ValidateQuoting), and text built only from anchor
// fields is not scanned at all (see Trusted).
type Report struct {
	Valid        bool     `json:"valid"`
	Violations   []string `json:"violations"`
	AnchorDigest string   `json:"anchor_digest"`
}

// Info converts the report to its stream representation
func (r Report) Info() *models.IntegrityInfo {
	return &models.IntegrityInfo{
		Valid:        r.Valid,
		Violations:   r.Violations,
		AnchorDigest: r.AnchorDigest,
	}
}

// ExtractCaseNumbers returns every CNJ-formatted number in text, in order
func ExtractCaseNumbers(text string) []string {
	return caseNumberPattern.FindAllString(text, -1)
}

// Validate flags case numbers in text, and in the structured citations if
// any, that are not the verbatim case number of some anchor. Violations are
// distinct and keep the order of first appearance.
func Validate(text string, anchors []FactAnchor, citedCaseNumbers ...string) Report {
	return validate(text, nil, anchors, citedCaseNumbers)
}

// ValidateQuoting is Validate for text justifying source: case numbers that
// source's summary itself quotes may appear in the text, since excerpts are
// literal quotes of the summary. Structured citations are still checked
// against the anchors only.
func ValidateQuoting(text string, source FactAnchor, anchors []FactAnchor, citedCaseNumbers ...string) Report {
	quoted := make(map[string]bool)
	for _, n := range ExtractCaseNumbers(source.summary) {
		quoted[n] = true
	}
	return validate(text, quoted, anchors, citedCaseNumbers)
}

// Trusted is the report of text assembled from anchor fields only
func Trusted(anchors []FactAnchor) Report {
	return Report{Valid: true, AnchorDigest: SetDigest(anchors)}
}

func validate(text string, quoted map[string]bool, anchors []FactAnchor, citedCaseNumbers []string) Report {
	known := make(map[string]bool, len(anchors))
	for _, a := range anchors {
		known[a.caseNumber] = true
	}

	var violations []string
	flagged := make(map[string]bool)
	for _, n := range ExtractCaseNumbers(text) {
		if known[n] || quoted[n] || flagged[n] {
			continue
		}
		flagged[n] = true
		violations = append(violations, fmt.Sprintf("número de processo não ancorado no texto: %s", n))
	}
	for _, n := range citedCaseNumbers {
		n = strings.TrimSpace(n)
		if n == "" || known[n] || flagged[n] {
			continue
		}
		flagged[n] = true
		violations = append(violations, fmt.Sprintf("citação com número de processo não ancorado: %s", n))
	}

	return Report{
		Valid:        len(violations) == 0,
		Violations:   violations,
		AnchorDigest: SetDigest(anchors),
	}
}
