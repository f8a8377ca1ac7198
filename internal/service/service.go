// Package service wires C1-C8 into the single long-lived core the
// cmd/wikiindex binary and internal/httpapi both depend on.
//
// The rebuild pipeline (walk -> extract -> index, fanned out across a
// worker pool and committed with one atomic swap) is grounded on the
// teacher's internal/indexing/pipeline.go discoverer/worker-pool shape,
// generalized from AST-symbol extraction to C3's content extraction.
package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nooblyjs/wiki-index-core/internal/activity"
	"github.com/nooblyjs/wiki-index-core/internal/aicontext"
	"github.com/nooblyjs/wiki-index-core/internal/aicontext/llm"
	"github.com/nooblyjs/wiki-index-core/internal/config"
	"github.com/nooblyjs/wiki-index-core/internal/datastore"
	"github.com/nooblyjs/wiki-index-core/internal/debug"
	"github.com/nooblyjs/wiki-index-core/internal/errs"
	"github.com/nooblyjs/wiki-index-core/internal/extractor"
	"github.com/nooblyjs/wiki-index-core/internal/index"
	"github.com/nooblyjs/wiki-index-core/internal/query"
	"github.com/nooblyjs/wiki-index-core/internal/spaces"
	"github.com/nooblyjs/wiki-index-core/internal/types"
	"github.com/nooblyjs/wiki-index-core/internal/walker"
)

// Service is the composition root: every HTTP handler and CLI command
// calls into one of these fields rather than constructing its own
// component graph.
type Service struct {
	Cfg       *config.Config
	Store     datastore.Store
	Spaces    *spaces.Registry
	Index     *index.Index
	Query     *query.Engine
	Activity  *activity.Store
	Walker    *walker.Walker
	AIContext *aicontext.Generator

	rebuilding rebuildGuard
}

// Open builds the full component graph (spec.md §6 Exit semantics: any
// failure here is an unrecoverable startup error, exit code 1).
func Open(cfg *config.Config, dbPath string) (*Service, error) {
	store, err := datastore.Open(dbPath)
	if err != nil {
		return nil, err
	}

	reg, err := spaces.New(store)
	if err != nil {
		store.Close()
		return nil, err
	}

	idx := index.New(cfg.Performance.IndexShardCount)
	w := walker.New(cfg)

	var provider llm.Provider = llm.NoopProvider{}

	svc := &Service{
		Cfg:       cfg,
		Store:     store,
		Spaces:    reg,
		Index:     idx,
		Query:     query.New(idx),
		Activity:  activity.New(store),
		Walker:    w,
		AIContext: aicontext.New(w, provider, time.Duration(cfg.AI.CallTimeoutSec)*time.Second),
	}
	return svc, nil
}

// Close implements the shutdown ordering from SPEC_FULL.md §5: no
// in-flight rebuild is forced to completion (it is simply abandoned and
// redone from scratch on next start), matching the teacher's
// eventDebouncer.run "don't flush on shutdown" lesson.
func (s *Service) Close() error {
	return s.Store.Close()
}

// RebuildAll re-walks and re-extracts every registered space and commits one
// new index generation (spec.md §6 POST /search/rebuild). Returns
// errs.Busy if a rebuild is already running.
func (s *Service) RebuildAll(ctx context.Context) error {
	if !s.rebuilding.start() {
		return errs.Busy("Service.RebuildAll")
	}
	defer s.rebuilding.finish()
	return s.doRebuild(ctx)
}

// StartRebuildAsync acquires the rebuild single-flight guard synchronously
// and, if acquired, runs the rebuild itself in the background, returning
// immediately. It returns errs.Busy synchronously (never inside the
// background goroutine) when a rebuild is already in flight, so a caller
// such as the HTTP boundary's POST /search/rebuild can translate that into
// a 409 response instead of discarding it (spec.md §7 "Busy (rebuild
// already in progress...)").
func (s *Service) StartRebuildAsync(ctx context.Context) error {
	if !s.rebuilding.start() {
		return errs.Busy("Service.StartRebuildAsync")
	}
	go func() {
		defer s.rebuilding.finish()
		if err := s.doRebuild(ctx); err != nil {
			debug.LogIndexing("async rebuild failed: %v", err)
		}
	}()
	return nil
}

func (s *Service) doRebuild(ctx context.Context) error {
	start := time.Now()
	builder := s.Index.NewBuilder()
	ext := extractor.New(s.Cfg)
	// visit runs on the walker's worker pool; extraction stays parallel and
	// builder.Add, which does not lock, is serialized here.
	var addMu sync.Mutex

	allSpaces := s.Spaces.ListAll()
	for _, sp := range allSpaces {
		wsp := walker.Space{ID: sp.ID, Name: sp.Name, Root: sp.Root}
		err := s.Walker.Walk(ctx, wsp, func(rec types.FileRecord) error {
			extracted := ext.Extract(rec)
			addMu.Lock()
			defer addMu.Unlock()
			builder.Add(types.IndexedDocument{
				DocKey:     rec.DocKey,
				SpaceID:    rec.SpaceID,
				SpaceName:  sp.Name,
				Title:      extracted.Title,
				Path:       rec.RelativePath,
				Tags:       extracted.Tags,
				Body:       extracted.Body,
				SizeBytes:  rec.SizeBytes,
				ModifiedAt: rec.ModifiedAt,
				Category:   rec.Category,
				Viewer:     extracted.Viewer,
			})
			return nil
		})
		if err != nil {
			debug.LogIndexing("rebuild: space %s walk failed: %v", sp.Name, err)
		}
	}

	s.Index.Commit(builder, time.Since(start))
	return nil
}

// IndexOne incrementally re-indexes a single file (used by callers that
// observe a targeted change rather than wanting a full rebuild).
func (s *Service) IndexOne(sp types.Space, rec types.FileRecord) {
	ext := extractor.New(s.Cfg)
	extracted := ext.Extract(rec)
	s.Index.IndexDoc(types.IndexedDocument{
		DocKey:     rec.DocKey,
		SpaceID:    rec.SpaceID,
		SpaceName:  sp.Name,
		Title:      extracted.Title,
		Path:       rec.RelativePath,
		Tags:       extracted.Tags,
		Body:       extracted.Body,
		SizeBytes:  rec.SizeBytes,
		ModifiedAt: rec.ModifiedAt,
		Category:   rec.Category,
		Viewer:     extracted.Viewer,
	})
}

// DeleteSpace removes a space and evicts its documents from the index
// (spec.md §3: deleting a space cascades their removal).
func (s *Service) DeleteSpace(id types.SpaceID) error {
	if err := s.Spaces.Delete(id); err != nil {
		return err
	}
	s.Index.EvictSpace(id)
	return nil
}

// RunAIContextOnce runs one C8 generation pass over every registered space
// (spec.md §4.8: "Traverses spaces at rest"). It is the trigger endpoint's
// synchronous entry point: Generator.Run's own single-flight guard means a
// second concurrent call observes errs.Busy on the very first space and
// returns immediately, rather than queuing behind the in-flight run.
func (s *Service) RunAIContextOnce(ctx context.Context) error {
	var failures []error
	for _, sp := range s.Spaces.ListAll() {
		wsp := walker.Space{ID: sp.ID, Name: sp.Name, Root: sp.Root}
		if err := s.AIContext.Run(ctx, wsp); err != nil {
			if errs.Is(err, errs.KindBusy) {
				return err
			}
			debug.LogAI("space %s generation failed: %v", sp.Name, err)
			failures = append(failures, fmt.Errorf("space %s: %w", sp.Name, err))
		}
	}
	return errs.NewMultiError(failures)
}

// RunAIContextScheduler is C8's "scheduled" half (spec.md §2 "AI-Context
// Generator (scheduled)"): it calls RunAIContextOnce on a fixed interval
// until ctx is cancelled, grounded on the teacher's
// internal/cache/metrics_cache.go startAutoCleanup ticker loop. A run that
// returns Busy (overlapping a manual trigger) is logged and skipped, not
// treated as a scheduler failure.
func (s *Service) RunAIContextScheduler(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.RunAIContextOnce(ctx); err != nil {
				debug.LogAI("scheduled run: %v", err)
			}
		}
	}
}

// StartAIContextAsync is the HTTP trigger endpoint's entry point: it
// returns errs.Busy synchronously when a generation pass (scheduled or
// manually triggered) is already in flight, otherwise runs
// RunAIContextOnce in the background and returns immediately, mirroring
// StartRebuildAsync. The IsProcessing check and the background call race
// narrowly against a scheduler tick landing in between; Generator.Run's own
// CompareAndSwap is the actual source of truth and will itself return Busy
// from inside the background goroutine in that rare case, where it is
// logged rather than surfaced (the caller has already received its
// response by then).
func (s *Service) StartAIContextAsync(ctx context.Context) error {
	if s.AIContext.IsProcessing() {
		return errs.Busy("Service.StartAIContextAsync")
	}
	go func() {
		if err := s.RunAIContextOnce(ctx); err != nil {
			debug.LogAI("triggered run: %v", err)
		}
	}()
	return nil
}

// rebuildGuard is a minimal CAS-based single-flight lock, the same
// atomic-flag idiom as aicontext.Generator's processing guard.
type rebuildGuard struct {
	inFlight atomic.Bool
}

func (g *rebuildGuard) start() bool {
	return g.inFlight.CompareAndSwap(false, true)
}

func (g *rebuildGuard) finish() {
	g.inFlight.Store(false)
}
