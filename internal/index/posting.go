package index

import "github.com/nooblyjs/wiki-index-core/internal/types"

// Field identifies which part of a document a token occurrence came from.
// Stored as a bitmask per posting so one posting can represent a token that
// appears in several fields of the same document.
type Field uint8

const (
	FieldTitle Field = 1 << iota
	FieldTags
	FieldPath
	FieldBody
)

// Weight returns the per-field scoring weight from spec.md §4.4.
func (f Field) Weight() float64 {
	var total float64
	if f&FieldTitle != 0 {
		total += 3.0
	}
	if f&FieldTags != 0 {
		total += 2.0
	}
	if f&FieldPath != 0 {
		total += 2.0
	}
	if f&FieldBody != 0 {
		total += 1.0
	}
	return total
}

// Count returns the per-field occurrence count carried alongside the mask.
type fieldCount struct {
	field Field
	count int
}

// Posting is one (token, docKey) entry: spec.md §3 "field bitmask ... and
// an integer weight used by scoring". We keep per-field counts rather than
// a single collapsed weight so the query engine can apply spec.md §4.6's
// "Σ_fields weight(field) × count(field, token)" formula exactly.
type Posting struct {
	DocKey string
	Fields []fieldCount
}

// ScoreContribution returns Σ_fields weight(field) × count(field, token)
// for this posting — the per-token, per-document term inside the spec.md
// §4.6 scoring sum. Exported for the query engine (internal/query).
func (p Posting) ScoreContribution() float64 {
	var total float64
	for _, fc := range p.Fields {
		total += fc.field.Weight() * float64(fc.count)
	}
	return total
}

// buildPostings tokenizes each field of doc and returns, per distinct
// token, the field/count pairs to merge into that token's posting list.
func buildPostings(doc types.IndexedDocument) map[string][]fieldCount {
	perToken := make(map[string][]fieldCount)

	add := func(field Field, text string) {
		counts := make(map[string]int)
		for _, tok := range Tokenize(text) {
			counts[tok]++
		}
		for tok, n := range counts {
			perToken[tok] = append(perToken[tok], fieldCount{field: field, count: n})
		}
	}

	add(FieldTitle, doc.Title)
	add(FieldTags, joinTags(doc.Tags))
	add(FieldPath, doc.Path)
	add(FieldBody, doc.Body)

	return perToken
}

func joinTags(tags []string) string {
	out := ""
	for i, t := range tags {
		if i > 0 {
			out += " "
		}
		out += t
	}
	return out
}
