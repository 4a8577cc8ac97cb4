package lexicon

import "strings"

// Court is an entry of the known tribunal table
type Court struct {
	Acronym string
	Name    string
}

// Courts is the tribunal table used for acronym matching and deciding bodies.
var Courts = []Court{
	{"TJDFT", "Tribunal de Justiça do Distrito Federal e dos Territórios"},
	{"STF", "Supremo Tribunal Federal"},
	{"STJ", "Superior Tribunal de Justiça"},
	{"TST", "Tribunal Superior do Trabalho"},
	{"TSE", "Tribunal Superior Eleitoral"},
	{"STM", "Superior Tribunal Militar"},
	{"TNU", "Turma Nacional de Uniformização"},
	{"TRF1", "Tribunal Regional Federal da 1ª Região"},
	{"TRF2", "Tribunal Regional Federal da 2ª Região"},
	{"TRF3", "Tribunal Regional Federal da 3ª Região"},
	{"TRF4", "Tribunal Regional Federal da 4ª Região"},
	{"TRF5", "Tribunal Regional Federal da 5ª Região"},
	{"TRF6", "Tribunal Regional Federal da 6ª Região"},
	{"TJSP", "Tribunal de Justiça de São Paulo"},
	{"TJRJ", "Tribunal de Justiça do Rio de Janeiro"},
	{"TJMG", "Tribunal de Justiça de Minas Gerais"},
	{"TJRS", "Tribunal de Justiça do Rio Grande do Sul"},
	{"TJPR", "Tribunal de Justiça do Paraná"},
	{"TJSC", "Tribunal de Justiça de Santa Catarina"},
	{"TJBA", "Tribunal de Justiça da Bahia"},
	{"TJPE", "Tribunal de Justiça de Pernambuco"},
	{"TJCE", "Tribunal de Justiça do Ceará"},
	{"TJGO", "Tribunal de Justiça de Goiás"},
	{"TJES", "Tribunal de Justiça do Espírito Santo"},
	{"TJPA", "Tribunal de Justiça do Pará"},
	{"TJMA", "Tribunal de Justiça do Maranhão"},
	{"TJMT", "Tribunal de Justiça de Mato Grosso"},
	{"TJMS", "Tribunal de Justiça de Mato Grosso do Sul"},
	{"TJAM", "Tribunal de Justiça do Amazonas"},
	{"TJPB", "Tribunal de Justiça da Paraíba"},
	{"TJRN", "Tribunal de Justiça do Rio Grande do Norte"},
	{"TJAL", "Tribunal de Justiça de Alagoas"},
	{"TJSE", "Tribunal de Justiça de Sergipe"},
	{"TJPI", "Tribunal de Justiça do Piauí"},
	{"TJRO", "Tribunal de Justiça de Rondônia"},
	{"TJTO", "Tribunal de Justiça do Tocantins"},
	{"TJAC", "Tribunal de Justiça do Acre"},
	{"TJAP", "Tribunal de Justiça do Amapá"},
	{"TJRR", "Tribunal de Justiça de Roraima"},
}

var courtByAcronym = func() map[string]Court {
	m := make(map[string]Court, len(Courts))
	for _, c := range Courts {
		m[c.Acronym] = c
	}
	return m
}()

// IsCourtAcronym reports whether tok (any case) is a known tribunal abbreviation
func IsCourtAcronym(tok string) bool {
	_, ok := courtByAcronym[strings.ToUpper(tok)]
	return ok
}

var regionalSeparator = strings.NewReplacer("TRF-", "TRF", "TRF ", "TRF")

// LookupCourt resolves a free-form court string ("TJSP - 3ª Câmara",
// "STJ", "Superior Tribunal de Justiça") against the table.
func LookupCourt(court string) (Court, bool) {
	upper := regionalSeparator.Replace(strings.ToUpper(StripDiacritics(court)))
	for _, tok := range Tokens(upper) {
		if c, ok := courtByAcronym[tok]; ok {
			return c, true
		}
	}
	folded := Fold(court)
	if folded == "" {
		return Court{}, false
	}
	for _, c := range Courts {
		if strings.Contains(folded, Fold(c.Name)) {
			return c, true
		}
	}
	return Court{}, false
}
