package generation

import (
	"fmt"

	"juriscite-backend/anchor"
	"juriscite-backend/lexicon"
)

const fallbackExcerptRunes = 400

// FallbackJustification builds a non-generative justification from anchor
// fields only. The same anchor always yields the same output.
func FallbackJustification(a anchor.FactAnchor) *Justification {
	summary := lexicon.CollapseWhitespace(a.Summary())
	excerpt := lexicon.Truncate(summary, fallbackExcerptRunes)
	if excerpt != summary {
		excerpt += "..."
	}

	court := a.Court()
	if court == "" {
		court = a.DecidingBody()
	}

	conclusion := fmt.Sprintf("O precedente %s (%s) foi identificado como relevante para o caso analisado.", a.CaseNumber(), court)
	if a.Rapporteur() != "" {
		conclusion += fmt.Sprintf(" Relator: %s.", a.Rapporteur())
	}
	if a.DecisionDate() != "" {
		conclusion += fmt.Sprintf(" Data de julgamento: %s.", a.DecisionDate())
	}

	return &Justification{
		Conclusion:    conclusion,
		LegalBasis:    fmt.Sprintf("Ementa do precedente (%s): %s", a.CaseClass(), excerpt),
		Applicability: "Justificativa gerada automaticamente a partir dos dados do precedente, sem análise generativa. Revise a aplicabilidade ao caso concreto.",
		Citations: []Citation{{
			CaseNumber: a.CaseNumber(),
			Court:      a.Court(),
			Rapporteur: a.Rapporteur(),
			Date:       a.DecisionDate(),
			Excerpt:    excerpt,
		}},
	}
}
