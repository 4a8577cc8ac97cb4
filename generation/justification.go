// Package generation turns anchored precedents into structured legal
// justifications using a generative model.
package generation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Citation is one precedent quoted by a justification
type Citation struct {
	CaseNumber string `json:"caseNumber" validate:"required"`
	Court      string `json:"court" validate:"required"`
	Rapporteur string `json:"rapporteur"`
	Date       string `json:"date"`
	Excerpt    string `json:"excerpt" validate:"required"`
}

// Justification is the fixed output schema of the generation backend
type Justification struct {
	Conclusion    string     `json:"conclusion" validate:"required"`
	LegalBasis    string     `json:"legalBasis" validate:"required"`
	Applicability string     `json:"applicability" validate:"required"`
	Citations     []Citation `json:"citations" validate:"required,min=1,dive"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ParseJustification decodes and validates raw model output. Markdown code
// fences around the JSON are tolerated. Failures are *SchemaError.
func ParseJustification(raw string) (*Justification, error) {
	body := stripFences(raw)
	if body == "" {
		return nil, &SchemaError{Err: ErrEmptyResponse}
	}

	dec := json.NewDecoder(strings.NewReader(body))
	var j Justification
	if err := dec.Decode(&j); err != nil {
		return nil, &SchemaError{Err: err}
	}

	if err := validate.Struct(j); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			fields := make([]string, len(fieldErrs))
			for i, fe := range fieldErrs {
				fields[i] = fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag())
			}
			return nil, &SchemaError{Fields: fields, Err: err}
		}
		return nil, &SchemaError{Err: err}
	}
	return &j, nil
}

func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// CitedCaseNumbers lists the citations' case numbers in order
func (j *Justification) CitedCaseNumbers() []string {
	out := make([]string, len(j.Citations))
	for i, c := range j.Citations {
		out[i] = c.CaseNumber
	}
	return out
}

// Text renders the justification as the plain text streamed to the client
func (j *Justification) Text() string {
	var b strings.Builder
	b.WriteString(j.Conclusion)
	b.WriteString("\n\nFundamentação: ")
	b.WriteString(j.LegalBasis)
	b.WriteString("\n\nAplicabilidade: ")
	b.WriteString(j.Applicability)
	for _, c := range j.Citations {
		b.WriteString("\n\n- ")
		b.WriteString(c.CaseNumber)
		if c.Court != "" {
			b.WriteString(" (" + c.Court + ")")
		}
		if c.Rapporteur != "" {
			b.WriteString(", Rel. " + c.Rapporteur)
		}
		if c.Date != "" {
			b.WriteString(", j. " + c.Date)
		}
		if c.Excerpt != "" {
			b.WriteString(": \"" + c.Excerpt + "\"")
		}
	}
	return b.String()
}
