package domain

import (
	"strings"
	"unicode"
)

// Query term extraction limits.
const (
	MinTermLength = 3
	MaxQueryTerms = 12
)

// stopWords are dropped from lexical queries. The list includes words that
// name the corpus itself ("document", "doc") since every chunk matches them.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "but": {},
	"by": {}, "can": {}, "could": {}, "did": {}, "do": {}, "does": {}, "for": {},
	"from": {}, "get": {}, "give": {}, "how": {}, "i": {}, "if": {}, "in": {}, "is": {},
	"it": {}, "its": {}, "me": {}, "my": {}, "of": {}, "on": {}, "or": {}, "our": {},
	"please": {}, "show": {}, "tell": {}, "that": {}, "the": {}, "their": {}, "them": {},
	"this": {}, "to": {}, "us": {}, "was": {}, "we": {}, "what": {}, "when": {},
	"where": {}, "which": {}, "who": {}, "why": {}, "with": {}, "you": {}, "your": {},
	"doc": {}, "docs": {}, "document": {}, "documents": {},
}

// IsStopWord reports whether w is ignored by lexical search.
func IsStopWord(w string) bool {
	_, ok := stopWords[strings.ToLower(w)]
	return ok
}

// QueryTerms splits a query into lower-case search terms, dropping stop
// words and short words. Order of first appearance is kept and duplicates
// are removed. At most MaxQueryTerms terms are returned.
func QueryTerms(query string) []string {
	words := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})

	seen := make(map[string]struct{}, len(words))
	terms := make([]string, 0, len(words))
	for _, w := range words {
		if len([]rune(w)) < MinTermLength || IsStopWord(w) {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		terms = append(terms, w)
		if len(terms) == MaxQueryTerms {
			break
		}
	}
	return terms
}

// NormaliseQuery trims and case-folds a query for phrase matching.
func NormaliseQuery(query string) string {
	return FoldCase(strings.TrimSpace(query))
}

// FoldCase is the full-Unicode lower-casing applied to both a query phrase
// and the chunk content it is matched against. Stores must use it on the
// content side too; SQLite's lower() folds ASCII only.
func FoldCase(s string) string {
	return strings.ToLower(s)
}
