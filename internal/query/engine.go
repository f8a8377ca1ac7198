// Package query implements C6, the query engine: tokenize, retrieve
// postings, score, and fall back to a substring scan on zero results.
// Grounded on the teacher's internal/search/engine.go shape — a
// coordinator that tokenizes a query, fans out to the index for postings,
// scores candidates, and returns a ranked slice — generalized here from
// the teacher's symbol-aware ranking to the field-weighted average formula
// in spec.md §4.6.
package query

import (
	"context"
	"sort"
	"strings"

	"github.com/nooblyjs/wiki-index-core/internal/debug"
	"github.com/nooblyjs/wiki-index-core/internal/index"
	"github.com/nooblyjs/wiki-index-core/internal/types"
)

// Filters narrows a query to a subset of spaces/categories, and controls
// whether full body content is returned (spec.md §4.6 Input).
type Filters struct {
	FileTypes      map[types.FileCategory]bool
	SpaceNames     map[string]bool
	IncludeContent bool
	MaxResults     int
}

const defaultMaxResults = 20
const excerptLen = 200
const fallbackRelevance = 0.5

// Engine answers queries against an *index.Index snapshot.
type Engine struct {
	idx *index.Index
}

// New builds a query engine over idx.
func New(idx *index.Index) *Engine {
	return &Engine{idx: idx}
}

// Search runs one query end to end (spec.md §4.6). An empty query string
// returns an empty, non-nil result list.
func (e *Engine) Search(ctx context.Context, q string, f Filters) ([]types.SearchResult, error) {
	tokens := index.Tokenize(q)
	if len(tokens) == 0 {
		return []types.SearchResult{}, nil
	}

	maxResults := f.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	gen := e.idx.Snapshot()
	debug.LogSearch("query tokens=%v filters=%+v", tokens, f)

	scores := make(map[string]float64)
	candidates := make(map[string]bool)
	for _, tok := range tokens {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, p := range gen.PostingsFor(tok) {
			candidates[p.DocKey] = true
			scores[p.DocKey] += p.ScoreContribution()
		}
	}

	results := make([]types.SearchResult, 0, len(candidates))
	qLen := float64(len(tokens))
	for docKey := range candidates {
		doc, ok := gen.DocByKey(docKey)
		if !ok {
			continue
		}
		if !matchesFilters(doc, f) {
			continue
		}
		relevance := scores[docKey] / qLen
		results = append(results, toSearchResult(doc, relevance, f.IncludeContent))
	}

	if len(results) == 0 {
		results = e.fallbackScan(gen, tokens, f, maxResults)
	}

	sortResults(results)
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}

// fallbackScan is spec.md §4.6's degraded path: an O(N) substring scan over
// every indexed document's title/excerpt/tags, used only when posting
// retrieval finds nothing (e.g. a token too short/common to have been
// indexed, or a query the tokenizer splits differently than any indexed
// field did).
func (e *Engine) fallbackScan(gen *index.Generation, tokens []string, f Filters, maxResults int) []types.SearchResult {
	var results []types.SearchResult
	for _, doc := range gen.AllDocs() {
		if !matchesFilters(doc, f) {
			continue
		}
		if !anyTokenMatches(doc, tokens) {
			continue
		}
		results = append(results, toSearchResult(doc, fallbackRelevance, f.IncludeContent))
		if len(results) >= maxResults*4 {
			// bounded scan: stop accumulating well past the cap, final
			// truncation still applies after sort.
			break
		}
	}
	return results
}

func anyTokenMatches(doc types.IndexedDocument, tokens []string) bool {
	haystack := strings.ToLower(doc.Title + " " + doc.Excerpt(excerptLen) + " " + strings.Join(doc.Tags, " "))
	for _, tok := range tokens {
		if strings.Contains(haystack, tok) {
			return true
		}
	}
	return false
}

func matchesFilters(doc types.IndexedDocument, f Filters) bool {
	if len(f.FileTypes) > 0 && !f.FileTypes[doc.Category] {
		return false
	}
	if len(f.SpaceNames) > 0 && !f.SpaceNames[doc.SpaceName] {
		return false
	}
	return true
}

func toSearchResult(doc types.IndexedDocument, relevance float64, includeContent bool) types.SearchResult {
	r := types.SearchResult{
		DocKey:     doc.DocKey,
		Title:      doc.Title,
		Excerpt:    doc.Excerpt(excerptLen),
		Path:       doc.Path,
		SpaceName:  doc.SpaceName,
		ModifiedAt: doc.ModifiedAt,
		Tags:       doc.Tags,
		Type:       doc.Category,
		Size:       doc.SizeBytes,
		Relevance:  relevance,
	}
	if includeContent {
		r.Content = doc.Body
	}
	return r
}

// sortResults applies spec.md §4.6's stable tiebreakers: relevance
// descending, then modifiedAt descending, then docKey ascending.
func sortResults(results []types.SearchResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Relevance != results[j].Relevance {
			return results[i].Relevance > results[j].Relevance
		}
		if results[i].ModifiedAt != results[j].ModifiedAt {
			return results[i].ModifiedAt > results[j].ModifiedAt
		}
		return results[i].DocKey < results[j].DocKey
	})
}

// Suggest answers C5 autocomplete (spec.md §4.5).
func (e *Engine) Suggest(prefix string, limit int) []string {
	if limit <= 0 {
		limit = 10
	}
	return e.idx.Suggestions().Suggest(prefix, limit)
}

// Stats backs GET /search/stats.
func (e *Engine) Stats() index.Stats {
	return e.idx.Stats()
}
