// Package index implements C4 (the inverted index) and C5 (the suggestion
// index). The generational swap discipline is grounded on the teacher's
// internal/indexing/master_index.go, which holds its file mapping behind an
// atomic.Pointer[FileSnapshot] for lock-free reads while single-document
// mutations take a lightweight lock and bulk rebuilds build off-thread and
// swap in with one atomic store.
package index

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/nooblyjs/wiki-index-core/internal/types"
)

// Index is the concurrency-safe inverted index over IndexedDocuments.
// Many concurrent readers; single-document index()/remove() calls are
// serialized among themselves via mu, and always mutate a cloned
// generation that is swapped in atomically, so a query that has already
// captured gen.Load() never observes a half-applied write (spec.md §4.4
// Concurrency contract).
type Index struct {
	gen        atomic.Pointer[generation]
	mu         sync.Mutex // serializes index()/remove()/rebuild-swap amongst writers
	shardCount int

	suggestions atomic.Pointer[SuggestionIndex]

	lastBuildAt     atomic.Int64 // unix nanos
	buildDurationMs atomic.Int64
}

// New creates an empty Index with shardCount token-map shards.
func New(shardCount int) *Index {
	idx := &Index{shardCount: shardCount}
	idx.gen.Store(newGeneration(shardCount))
	idx.suggestions.Store(NewSuggestionIndex(2, 4))
	idx.lastBuildAt.Store(time.Now().UnixNano())
	return idx
}

// Snapshot returns the currently active generation for a single query's
// use. Holding onto it for the query's duration is the query engine's
// entire concurrency contract with the index.
func (idx *Index) Snapshot() *generation {
	return idx.gen.Load()
}

// IndexDoc inserts or replaces doc (spec.md §4.4 index(doc)). Idempotent:
// indexing the same doc value twice in a row produces the same state,
// since indexDocLocked always removes-then-reinserts.
func (idx *Index) IndexDoc(doc types.IndexedDocument) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	cur := idx.gen.Load()
	next := cur.clone()
	next.indexDocLocked(doc)
	idx.gen.Store(next)

	idx.mutateSuggestions(func(s *SuggestionIndex) {
		s.Remove(doc.DocKey)
		s.Add(doc.DocKey, doc.Title, doc.Path)
	})
}

// RemoveDoc removes docKey from the index (spec.md §4.4 remove(docKey)). A
// query for any token previously indexed under docKey yields no posting
// for it after this returns.
func (idx *Index) RemoveDoc(docKey string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	cur := idx.gen.Load()
	next := cur.clone()
	next.removeDocLocked(docKey)
	idx.gen.Store(next)

	idx.mutateSuggestions(func(s *SuggestionIndex) {
		s.Remove(docKey)
	})
}

func (idx *Index) mutateSuggestions(fn func(*SuggestionIndex)) {
	cur := idx.suggestions.Load()
	next := cur.clone()
	fn(next)
	idx.suggestions.Store(next)
}

// Suggestions returns the active suggestion-index generation.
func (idx *Index) Suggestions() *SuggestionIndex {
	return idx.suggestions.Load()
}

// Builder accumulates documents for an off-thread rebuild (spec.md §4.4:
// "A rebuild materializes a new index structure in the background; on
// completion it replaces the active one with a single reference swap").
type Builder struct {
	gen         *generation
	suggestions *SuggestionIndex
}

// NewBuilder starts a fresh, empty generation for a rebuild.
func (idx *Index) NewBuilder() *Builder {
	return &Builder{
		gen:         newGeneration(idx.shardCount),
		suggestions: NewSuggestionIndex(2, 4),
	}
}

// Add stages doc into the builder's in-progress generation. The builder
// does not lock and Add is not safe for concurrent use, even with disjoint
// docKeys (the generation's maps are shared); callers feeding one Builder
// from several goroutines serialize their Add calls (see
// internal/service.Service.doRebuild).
func (b *Builder) Add(doc types.IndexedDocument) {
	b.gen.indexDocLocked(doc)
	b.suggestions.Add(doc.DocKey, doc.Title, doc.Path)
}

// Commit atomically swaps the builder's generation in as the active one.
// Concurrent queries in flight at the moment of the swap keep the
// generation they already captured via Snapshot(); no reader ever observes
// a torn mix of old and new state.
func (idx *Index) Commit(b *Builder, buildDuration time.Duration) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.gen.Store(b.gen)
	idx.suggestions.Store(b.suggestions)
	idx.lastBuildAt.Store(time.Now().UnixNano())
	idx.buildDurationMs.Store(buildDuration.Milliseconds())
}

// EvictSpace removes every document belonging to spaceID, used when a
// space is deleted (spec.md §3: "deleting a space cascades their
// removal").
func (idx *Index) EvictSpace(spaceID types.SpaceID) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	cur := idx.gen.Load()
	next := cur.clone()
	docKeys := make([]string, 0, len(next.spaceDocs[spaceID]))
	for k := range next.spaceDocs[spaceID] {
		docKeys = append(docKeys, k)
	}
	for _, k := range docKeys {
		next.removeDocLocked(k)
	}
	idx.gen.Store(next)

	idx.mutateSuggestions(func(s *SuggestionIndex) {
		for _, k := range docKeys {
			s.Remove(k)
		}
	})
}

// Stats backs GET /search/stats (spec.md §6).
type Stats struct {
	DocumentCount   int
	TokenCount      int
	SpaceCount      int
	LastBuildAt     time.Time
	BuildDurationMs int64
}

// Stats computes the current document/token/space counts against a single
// snapshot, so the counts are mutually consistent even under concurrent
// writers.
func (idx *Index) Stats() Stats {
	g := idx.gen.Load()
	tokenCount := 0
	for i := range g.shards {
		tokenCount += len(g.shards[i].tokens)
	}
	return Stats{
		DocumentCount:   len(g.docs),
		TokenCount:      tokenCount,
		SpaceCount:      len(g.spaceDocs),
		LastBuildAt:     time.Unix(0, idx.lastBuildAt.Load()),
		BuildDurationMs: idx.buildDurationMs.Load(),
	}
}
