package anchor

import (
	"fmt"
	"strings"
)

const notInformed = "não informado"

// Render formats the anchor as a prompt block. Immutable facts are kept in
// their own section, followed by descriptive content and the instruction
// forbidding any change to the facts.
func (a FactAnchor) Render() string {
	var b strings.Builder

	b.WriteString("=== PRECEDENTE ANCORADO ===\n")
	b.WriteString("[FATOS IMUTÁVEIS - copiar literalmente]\n")
	fmt.Fprintf(&b, "numero_processo: %s\n", a.caseNumber)
	fmt.Fprintf(&b, "tribunal: %s\n", orNotInformed(a.court))
	fmt.Fprintf(&b, "relator: %s\n", orNotInformed(a.rapporteur))
	fmt.Fprintf(&b, "data_julgamento: %s\n", orNotInformed(a.decisionDate))
	fmt.Fprintf(&b, "hash_integridade: %s\n", a.summaryHash)

	b.WriteString("[CONTEÚDO DESCRITIVO]\n")
	fmt.Fprintf(&b, "classe_inferida: %s\n", a.caseClass)
	fmt.Fprintf(&b, "orgao_julgador: %s\n", a.decidingBody)
	if len(a.tags) > 0 {
		fmt.Fprintf(&b, "temas: %s\n", strings.Join(a.tags, ", "))
	}
	fmt.Fprintf(&b, "ementa: %s\n", a.summary)

	b.WriteString("[INSTRUÇÃO]\n")
	b.WriteString("CRÍTICO: os FATOS IMUTÁVEIS acima devem ser reproduzidos EXATAMENTE como estão. ")
	b.WriteString("Não parafraseie, não abrevie, não corrija e não invente número de processo, tribunal, relator ou data. ")
	b.WriteString("Se uma informação constar como \"" + notInformed + "\", não a preencha.\n")
	b.WriteString("=== FIM DO PRECEDENTE ===\n")

	return b.String()
}

// RenderAll joins the rendered anchors in order
func RenderAll(anchors []FactAnchor) string {
	blocks := make([]string, len(anchors))
	for i, a := range anchors {
		blocks[i] = a.Render()
	}
	return strings.Join(blocks, "\n")
}

func orNotInformed(s string) string {
	if strings.TrimSpace(s) == "" {
		return notInformed
	}
	return s
}
