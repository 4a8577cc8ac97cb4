package generation

import (
	"fmt"

	"juriscite-backend/anchor"
	"juriscite-backend/lexicon"
)

const maxCaseTextRunes = 6000

// Prompt is a system/user pair for a chat-style backend
type Prompt struct {
	System string
	User   string
}

const systemInstruction = `Você é um assistente de pesquisa jurídica que explica por que um precedente se aplica a um caso concreto.

REGRAS:
- Use SOMENTE os fatos do bloco PRECEDENTE ANCORADO. Não utilize conhecimento externo sobre o processo.
- CRÍTICO: reproduza número do processo, tribunal, relator e data EXATAMENTE como aparecem em FATOS IMUTÁVEIS. Não invente, não arredonde e não complete dados ausentes.
- Não cite nenhum outro número de processo além do informado.
- Responda apenas com JSON no formato {"conclusion","legalBasis","applicability","citations":[{"caseNumber","court","rapporteur","date","excerpt"}]}.
- O campo "excerpt" deve ser um trecho literal da ementa.
- Escreva em português, em tom técnico e objetivo.`

// BuildPrompt asks for the justification of one anchored precedent against
// the submitted case text.
func BuildPrompt(caseText string, a anchor.FactAnchor) Prompt {
	user := fmt.Sprintf(`CASO SUBMETIDO:
%s

%s
Explique a aplicabilidade do precedente acima ao caso submetido.`,
		lexicon.Truncate(caseText, maxCaseTextRunes), a.Render())

	return Prompt{System: systemInstruction, User: user}
}
