// Package lexicon holds the Portuguese legal-text normalization shared by
// fusion, reranking, confidence scoring and anchoring.
package lexicon

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// StripDiacritics removes combining marks ("ação" -> "acao")
func StripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// CollapseWhitespace trims s and replaces every whitespace run with one space
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeSummary lowercases and collapses whitespace. Diacritics are kept.
func NormalizeSummary(s string) string {
	return strings.ToLower(CollapseWhitespace(s))
}

// Fold lowercases, strips diacritics and collapses whitespace
func Fold(s string) string {
	return NormalizeSummary(StripDiacritics(s))
}

// Truncate returns at most n runes of s
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// Tokens splits folded text on anything that is not a letter or digit
func Tokens(folded string) []string {
	return strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

var legalMarkers = []string{
	"processo", "tribunal", "recurso", "sentenc", "acordao", "lei", "artigo",
	"contrat", "acao", "reu", "autor", "juiz", "juiza", "direito", "dano",
	"indeniza", "codigo", "petica", "juridic", "jurisprud", "decisao", "apelac",
	"agravo", "habeas", "mandado", "execuc", "tutela", "prescric", "clausula",
	"requerent", "requerid", "sumula", "consumidor", "responsabilidade",
}

const minLegalTextLength = 40

// LooksLegal is a coarse scope check for submitted documents
func LooksLegal(text string) bool {
	if len([]rune(strings.TrimSpace(text))) < minLegalTextLength {
		return false
	}
	folded := Fold(text)
	if strings.Contains(folded, "art.") || strings.Contains(folded, "§") {
		return true
	}
	for _, tok := range Tokens(folded) {
		for _, marker := range legalMarkers {
			if strings.HasPrefix(tok, marker) {
				return true
			}
		}
	}
	return false
}
