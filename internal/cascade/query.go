package cascade

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stopWords are Portuguese connectives and filler terms that carry no
// selectivity in catalog descriptions. Removing them loosens a query
// without changing its object.
var stopWords = map[string]struct{}{
	"a": {}, "o": {}, "as": {}, "os": {}, "de": {}, "da": {}, "do": {},
	"das": {}, "dos": {}, "em": {}, "no": {}, "na": {}, "nos": {}, "nas": {},
	"para": {}, "por": {}, "com": {}, "sem": {}, "e": {}, "ou": {},
	"um": {}, "uma": {}, "tipo": {}, "modelo": {}, "marca": {},
	"aquisicao": {}, "aquisição": {}, "compra": {}, "fornecimento": {},
	"contratacao": {}, "contratação": {},
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lower-cases s and strips diacritics, so "Memória" matches
// "memoria". Catalog descriptions mix both spellings freely.
func Fold(s string) string {
	folded, _, err := transform.String(foldTransformer, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return folded
}

// Terms splits a query into its significant lower-cased, accent-folded
// terms, dropping stop-words.
func Terms(query string) []string {
	var terms []string
	for _, t := range strings.Fields(Fold(query)) {
		if _, skip := stopWords[t]; skip {
			continue
		}
		terms = append(terms, t)
	}
	return terms
}

// StripStopWords removes stop-words from the query while preserving the
// remaining terms' original casing and order.
func StripStopWords(query string) string {
	var kept []string
	for _, t := range strings.Fields(query) {
		if _, skip := stopWords[Fold(t)]; skip {
			continue
		}
		kept = append(kept, t)
	}
	return strings.Join(kept, " ")
}

// stripQuotes removes quoting characters the search index does not
// interpret as phrase operators.
func stripQuotes(query string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '"', '\'', '“', '”':
			return -1
		}
		return r
	}, query)
}
