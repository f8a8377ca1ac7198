package index

import (
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
)

// SuggestionIndex answers autocomplete queries over document titles and
// path segments (spec.md §4.5, C5). It is character-n-gram based so a
// partial, mid-word prefix still surfaces candidates, grounded on the
// teacher's internal/semantic/fuzzy_matcher.go which builds a similar
// n-gram structure before falling back to edlib similarity scoring.
type SuggestionIndex struct {
	ngramMin, ngramMax int
	ngrams             map[string]map[string]bool // ngram -> set of candidate terms
	terms              map[string]bool             // every distinct candidate term seen
	docTerms           map[string][]string         // docKey -> terms contributed, for Remove
}

// NewSuggestionIndex builds an empty index with n-grams of length
// [ngramMin, ngramMax] (spec.md §4.5 default [2,4]).
func NewSuggestionIndex(ngramMin, ngramMax int) *SuggestionIndex {
	return &SuggestionIndex{
		ngramMin: ngramMin,
		ngramMax: ngramMax,
		ngrams:   make(map[string]map[string]bool),
		terms:    make(map[string]bool),
		docTerms: make(map[string][]string),
	}
}

// clone deep-copies s for the same mutate-then-swap discipline used by
// generation, so a caller iterating Suggest() results never observes a
// torn update.
func (s *SuggestionIndex) clone() *SuggestionIndex {
	ns := NewSuggestionIndex(s.ngramMin, s.ngramMax)
	for ng, set := range s.ngrams {
		cp := make(map[string]bool, len(set))
		for t := range set {
			cp[t] = true
		}
		ns.ngrams[ng] = cp
	}
	for t := range s.terms {
		ns.terms[t] = true
	}
	for k, v := range s.docTerms {
		cp := make([]string, len(v))
		copy(cp, v)
		ns.docTerms[k] = cp
	}
	return ns
}

// candidateTerms extracts the distinct lowercase words from title and path
// that are worth suggesting: the whole title, plus each path segment with
// its extension stripped.
func candidateTerms(title, path string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(term string) {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" || seen[term] {
			return
		}
		seen[term] = true
		out = append(out, term)
	}

	add(title)
	for _, seg := range strings.Split(path, "/") {
		seg = strings.TrimSuffix(seg, segExt(seg))
		add(seg)
	}
	return out
}

func segExt(seg string) string {
	if i := strings.LastIndex(seg, "."); i > 0 {
		return seg[i:]
	}
	return ""
}

// Add registers docKey's contribution of suggestible terms drawn from
// title and path.
func (s *SuggestionIndex) Add(docKey, title, path string) {
	terms := candidateTerms(title, path)
	s.docTerms[docKey] = terms
	for _, term := range terms {
		s.terms[term] = true
		for _, ng := range ngramsOf(term, s.ngramMin, s.ngramMax) {
			set := s.ngrams[ng]
			if set == nil {
				set = make(map[string]bool)
				s.ngrams[ng] = set
			}
			set[term] = true
		}
	}
}

// Remove drops docKey's contributed terms. A term contributed by another
// doc as well remains suggestible.
func (s *SuggestionIndex) Remove(docKey string) {
	terms, ok := s.docTerms[docKey]
	if !ok {
		return
	}
	delete(s.docTerms, docKey)

	stillUsed := make(map[string]bool)
	for _, ts := range s.docTerms {
		for _, t := range ts {
			stillUsed[t] = true
		}
	}
	for _, term := range terms {
		if stillUsed[term] {
			continue
		}
		delete(s.terms, term)
		for _, ng := range ngramsOf(term, s.ngramMin, s.ngramMax) {
			if set := s.ngrams[ng]; set != nil {
				delete(set, term)
				if len(set) == 0 {
					delete(s.ngrams, ng)
				}
			}
		}
	}
}

func ngramsOf(term string, min, max int) []string {
	padded := "^" + term + "$"
	var out []string
	for n := min; n <= max; n++ {
		if len(padded) < n {
			continue
		}
		for i := 0; i+n <= len(padded); i++ {
			out = append(out, padded[i:i+n])
		}
	}
	return out
}

type suggestion struct {
	term  string
	score float64
}

// Suggest returns up to limit candidate terms for prefix, ranked per
// spec.md §4.5: exact prefix matches first (shortest, then lexicographic),
// then the remaining n-gram candidates, shortest first, with equal lengths
// ordered by Jaro-Winkler similarity to prefix and then lexicographically
// (via go-edlib, grounded on the teacher's fuzzy_matcher.go use of the
// same library for ranked approximate matches).
func (s *SuggestionIndex) Suggest(prefix string, limit int) []string {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if limit <= 0 {
		limit = 10
	}
	if len(prefix) < 2 {
		return []string{}
	}

	candidates := s.intersectNgramCandidates(prefix)

	// N-gram overlap alone doesn't guarantee prefix is a contiguous
	// substring of the candidate (e.g. "abcdXbcde" shares every n-gram of
	// "abcde" without ever containing it) once prefix is longer
	// than ngramMax, so every candidate must also pass a literal
	// strings.Contains check before being admitted (spec.md §8: "every
	// returned string contains p as a substring").
	var prefixMatches, others []string
	for term := range candidates {
		if !strings.Contains(term, prefix) {
			continue
		}
		if strings.HasPrefix(term, prefix) {
			prefixMatches = append(prefixMatches, term)
		} else {
			others = append(others, term)
		}
	}

	// (a) prefix match preferred, (b) length ascending, (c) lexicographic
	// (spec.md §4.5). Within the non-prefix-match tier, Jaro-Winkler
	// similarity to prefix (via go-edlib, grounded on the teacher's
	// internal/semantic/fuzzy_matcher.go) breaks the otherwise-unspecified
	// ties before falling back to lexicographic order.
	sort.Slice(prefixMatches, func(i, j int) bool {
		if len(prefixMatches[i]) != len(prefixMatches[j]) {
			return len(prefixMatches[i]) < len(prefixMatches[j])
		}
		return prefixMatches[i] < prefixMatches[j]
	})

	otherScores := make(map[string]float64, len(others))
	for _, term := range others {
		sim, err := edlib.StringsSimilarity(prefix, term, edlib.JaroWinkler)
		if err == nil {
			otherScores[term] = float64(sim)
		}
	}
	sort.Slice(others, func(i, j int) bool {
		if len(others[i]) != len(others[j]) {
			return len(others[i]) < len(others[j])
		}
		if otherScores[others[i]] != otherScores[others[j]] {
			return otherScores[others[i]] > otherScores[others[j]]
		}
		return others[i] < others[j]
	})

	out := append(prefixMatches, others...)
	if len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []string{}
	}
	return out
}

// intersectNgramCandidates returns the terms that share every n-gram of
// prefix (spec.md §4.5: "Form n-grams from the prefix; intersect candidate
// sets"). The prefix is not padded: its "^"/"$" n-grams would admit only
// terms that start and end with it, while a candidate may contain it
// anywhere.
func (s *SuggestionIndex) intersectNgramCandidates(prefix string) map[string]bool {
	var ngrams []string
	for n := s.ngramMin; n <= s.ngramMax && n <= len(prefix); n++ {
		for i := 0; i+n <= len(prefix); i++ {
			ngrams = append(ngrams, prefix[i:i+n])
		}
	}
	if len(ngrams) == 0 {
		return nil
	}

	result := make(map[string]bool, len(s.ngrams[ngrams[0]]))
	for term := range s.ngrams[ngrams[0]] {
		result[term] = true
	}
	for _, ng := range ngrams[1:] {
		set := s.ngrams[ng]
		for term := range result {
			if !set[term] {
				delete(result, term)
			}
		}
		if len(result) == 0 {
			break
		}
	}
	return result
}
