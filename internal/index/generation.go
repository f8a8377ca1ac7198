package index

import "github.com/nooblyjs/wiki-index-core/internal/types"

// generation is one fully-built, immutable index snapshot (spec.md
// GLOSSARY: "Generation"). Queries hold a *generation for the duration of
// one query; a rebuild constructs a new generation off to the side and
// swaps it in with a single atomic pointer store, so concurrent readers
// never observe a partially-built index (spec.md §4.4 Rebuild discipline).
type generation = Generation

// Generation is one fully-built, immutable index snapshot. Exported so the
// query engine (internal/query) can hold a reference returned by
// Index.Snapshot for the duration of one query; its fields stay
// unexported, so callers outside this package can only read it through
// the accessor methods below.
type Generation struct {
	shards     []shard
	shardCount uint64
	docs       map[string]types.IndexedDocument // docKey -> metadata
	docTokens  map[string]map[string]bool       // docKey -> tokens present, for O(tokens) removal
	spaceDocs  map[types.SpaceID]map[string]bool
}

// shard holds one bucket of the token -> postings map. Sharding by
// xxhash(token) (grounded on the teacher's use of
// github.com/cespare/xxhash/v2 for fast keying in
// internal/core/file_content_store.go) splits the token map into buckets;
// shards carry no locks of their own, and writers are still serialized by
// Index.mu.
type shard struct {
	tokens map[string][]Posting
}

func newGeneration(shardCount int) *generation {
	if shardCount <= 0 {
		shardCount = 1
	}
	shards := make([]shard, shardCount)
	for i := range shards {
		shards[i] = shard{tokens: make(map[string][]Posting)}
	}
	return &generation{
		shards:     shards,
		shardCount: uint64(shardCount),
		docs:       make(map[string]types.IndexedDocument),
		docTokens:  make(map[string]map[string]bool),
		spaceDocs:  make(map[types.SpaceID]map[string]bool),
	}
}

// clone returns a deep-enough copy of g for a mutate-then-swap update: all
// maps are copied so the original generation (visible to in-flight
// readers) is untouched.
func (g *generation) clone() *generation {
	ng := newGeneration(int(g.shardCount))
	for i := range g.shards {
		for tok, postings := range g.shards[i].tokens {
			cp := make([]Posting, len(postings))
			copy(cp, postings)
			ng.shards[i].tokens[tok] = cp
		}
	}
	for k, v := range g.docs {
		ng.docs[k] = v
	}
	for k, v := range g.docTokens {
		cp := make(map[string]bool, len(v))
		for t := range v {
			cp[t] = true
		}
		ng.docTokens[k] = cp
	}
	for sid, docs := range g.spaceDocs {
		cp := make(map[string]bool, len(docs))
		for k := range docs {
			cp[k] = true
		}
		ng.spaceDocs[sid] = cp
	}
	return ng
}

func (g *generation) shardFor(token string) *shard {
	return &g.shards[tokenHash(token)%g.shardCount]
}

// removeDocLocked removes every posting for docKey from g. Caller owns g
// exclusively (either building a fresh generation, or under the Index's
// write lock on the active generation).
func (g *generation) removeDocLocked(docKey string) {
	tokens, ok := g.docTokens[docKey]
	if !ok {
		return
	}
	for tok := range tokens {
		s := g.shardFor(tok)
		postings := s.tokens[tok]
		filtered := postings[:0]
		for _, p := range postings {
			if p.DocKey != docKey {
				filtered = append(filtered, p)
			}
		}
		if len(filtered) == 0 {
			delete(s.tokens, tok)
		} else {
			s.tokens[tok] = filtered
		}
	}
	delete(g.docTokens, docKey)

	if doc, ok := g.docs[docKey]; ok {
		if set := g.spaceDocs[doc.SpaceID]; set != nil {
			delete(set, docKey)
		}
	}
	delete(g.docs, docKey)
}

// indexDocLocked replaces any existing postings for doc.DocKey with freshly
// computed ones (spec.md §4.4 Incremental update: "index(doc) with a
// pre-existing docKey first removes all prior postings for that key ...
// then inserts the new postings").
func (g *generation) indexDocLocked(doc types.IndexedDocument) {
	g.removeDocLocked(doc.DocKey)

	perToken := buildPostings(doc)
	present := make(map[string]bool, len(perToken))
	for tok, fields := range perToken {
		s := g.shardFor(tok)
		s.tokens[tok] = append(s.tokens[tok], Posting{DocKey: doc.DocKey, Fields: fields})
		present[tok] = true
	}

	g.docTokens[doc.DocKey] = present
	g.docs[doc.DocKey] = doc

	if g.spaceDocs[doc.SpaceID] == nil {
		g.spaceDocs[doc.SpaceID] = make(map[string]bool)
	}
	g.spaceDocs[doc.SpaceID][doc.DocKey] = true
}

func (g *generation) postingsFor(token string) []Posting {
	return g.shardFor(token).tokens[token]
}

// PostingsFor returns the posting list for token in this generation. Part
// of the read-only query-engine contract (internal/query).
func (g *Generation) PostingsFor(token string) []Posting {
	return g.postingsFor(token)
}

// DocByKey returns the indexed metadata for docKey, if present in this
// generation.
func (g *Generation) DocByKey(docKey string) (types.IndexedDocument, bool) {
	doc, ok := g.docs[docKey]
	return doc, ok
}

// AllDocs returns every document in this generation, for the query
// engine's substring-scan fallback path (spec.md §4.6).
func (g *Generation) AllDocs() []types.IndexedDocument {
	out := make([]types.IndexedDocument, 0, len(g.docs))
	for _, d := range g.docs {
		out = append(out, d)
	}
	return out
}

// DocKeysInSpace returns every docKey belonging to spaceID.
func (g *Generation) DocKeysInSpace(spaceID types.SpaceID) []string {
	set := g.spaceDocs[spaceID]
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
