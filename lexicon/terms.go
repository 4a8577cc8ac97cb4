package lexicon

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// TermKind classifies a salient query term
type TermKind int

const (
	TermToken TermKind = iota
	TermArticle
	TermCourt
)

func (k TermKind) String() string {
	switch k {
	case TermArticle:
		return "article"
	case TermCourt:
		return "court"
	default:
		return "token"
	}
}

// Term is a salient query term. Value is folded (lowercase, no diacritics)
// except for courts, which keep the canonical acronym.
type Term struct {
	Kind  TermKind
	Value string
}

// MatchIn reports whether the term occurs in folded text
func (t Term) MatchIn(folded string) bool {
	switch t.Kind {
	case TermArticle:
		return containsNumber(folded, t.Value)
	case TermCourt:
		needle := strings.ToLower(t.Value)
		for _, tok := range Tokens(folded) {
			if tok == needle {
				return true
			}
		}
		return false
	default:
		return strings.Contains(folded, t.Value)
	}
}

// Contained reports whether the term appears as a plain substring of folded text
func (t Term) Contained(folded string) bool {
	return strings.Contains(folded, strings.ToLower(t.Value))
}

func containsNumber(folded, number string) bool {
	for _, tok := range Tokens(folded) {
		if tok == number {
			return true
		}
	}
	return false
}

const minTokenLength = 4

var (
	articlePattern = regexp.MustCompile(`\bart(?:igo|s)?\.?\s*(\d{1,4})\b`)
	sectionPattern = regexp.MustCompile(`§+\s*(\d{1,4})\b`)
)

// grammaticalStopwords are Portuguese function words of four or more letters
var grammaticalStopwords = wordSet(
	"para", "pela", "pelo", "pelas", "pelos", "como", "mais", "muito", "muita",
	"sobre", "entre", "quando", "onde", "qual", "quais", "quem", "isso", "isto",
	"esse", "essa", "esses", "essas", "este", "esta", "estes", "estas", "aquele",
	"aquela", "ainda", "tambem", "apenas", "assim", "porque", "pois", "cujo",
	"cuja", "desde", "ate", "seus", "suas", "dele", "dela", "deles", "delas",
	"nosso", "nossa", "numa", "num", "foram", "sera", "seria", "sido", "sendo",
	"esta", "estao", "estava", "havia", "teve", "tendo", "pode", "podem", "deve",
	"devem", "fazer", "feito", "outro", "outra", "outros", "outras", "mesmo",
	"mesma", "todo", "toda", "todos", "todas", "cada", "qualquer", "contra",
	"apos", "antes", "depois", "durante", "conforme", "segundo", "caso", "nao",
	"sem", "sim", "tem", "tinha", "entao", "portanto", "contudo", "todavia",
)

// legalBoilerplate are domain words too common in case law to discriminate
var legalBoilerplate = wordSet(
	"tribunal", "processo", "autos", "parte", "partes", "decisao", "acordao",
	"relator", "relatora", "recurso", "julgamento", "julgado", "ementa",
	"direito", "juizo", "feito", "pedido", "sentenca", "turma", "camara",
	"vara", "comarca", "requerente", "requerido", "autor", "autora", "artigo",
	"documento", "fundamento", "termos", "presente", "referido", "referida",
)

func wordSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// RerankTerms extracts article/section numbers, court acronyms and lexical
// tokens from a query, removing grammatical and legal boilerplate words.
func RerankTerms(query string) []Term {
	return extractTerms(query, func(tok string) bool {
		return grammaticalStopwords[tok] || legalBoilerplate[tok]
	})
}

// CoverageTerms is the evidence-coverage flavour: same extraction with only
// grammatical stopwords removed.
func CoverageTerms(query string) []Term {
	return extractTerms(query, func(tok string) bool {
		return grammaticalStopwords[tok]
	})
}

func extractTerms(query string, stop func(string) bool) []Term {
	folded := Fold(query)
	seen := make(map[Term]bool)
	var terms []Term
	add := func(t Term) {
		if !seen[t] {
			seen[t] = true
			terms = append(terms, t)
		}
	}

	for _, re := range []*regexp.Regexp{articlePattern, sectionPattern} {
		for _, m := range re.FindAllStringSubmatch(folded, -1) {
			add(Term{Kind: TermArticle, Value: m[1]})
		}
	}

	for _, tok := range Tokens(folded) {
		if IsCourtAcronym(tok) {
			add(Term{Kind: TermCourt, Value: strings.ToUpper(tok)})
			continue
		}
		if utf8.RuneCountInString(tok) < minTokenLength || stop(tok) || isDigits(tok) {
			continue
		}
		add(Term{Kind: TermToken, Value: tok})
	}
	return terms
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
