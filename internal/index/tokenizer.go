package index

import "strings"

// stopWords is the fixed list referenced by spec.md §4.4: "a small stop-word
// list (common English articles/conjunctions; exact list fixed at
// implementation time and treated as part of the on-disk version if the
// index is serialized)". This module keeps the index in-memory only
// (spec.md §6), but the list is still frozen here rather than made
// configurable, matching that note.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true,
	"and": true, "or": true, "but": true, "nor": true,
	"of": true, "in": true, "on": true, "at": true, "to": true, "for": true,
	"is": true, "it": true, "as": true, "by": true, "with": true, "from": true,
}

// Tokenize lowercases s, splits on any run of non [a-z0-9] characters,
// drops tokens shorter than 2 characters, and drops stop words (spec.md
// §4.4). Used identically by the index's ingest path and the query
// engine's parse step, so tokens always line up between the two.
func Tokenize(s string) []string {
	s = strings.ToLower(s)
	var tokens []string
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		tok := s[start:end]
		if len(tok) >= 2 && !stopWords[tok] {
			tokens = append(tokens, tok)
		}
		start = -1
	}
	for i, r := range s {
		if isTokenRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(len(s))
	return tokens
}

func isTokenRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}
