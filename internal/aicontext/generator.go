// Package aicontext implements C8, the AI-context generator: per-folder
// change-tracked summarization written to `.aicontext/folder-context.md`.
//
// The single-flight "is processing" guard is grounded on the teacher's
// MasterIndex isIndexing int32 atomic flag (internal/indexing/master_index.go),
// generalized here to an atomic.Bool. Per-folder failure isolation uses
// internal/errs.MultiError so one folder's LLM call failing does not abort
// the run (spec.md §4.8: "Failures per folder are logged and do not abort
// the run").
package aicontext

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nooblyjs/wiki-index-core/internal/aicontext/llm"
	"github.com/nooblyjs/wiki-index-core/internal/debug"
	"github.com/nooblyjs/wiki-index-core/internal/errs"
	"github.com/nooblyjs/wiki-index-core/internal/types"
	"github.com/nooblyjs/wiki-index-core/internal/walker"
)

const contextFileName = "folder-context.md"

// Generator runs C8 generation passes over a space.
type Generator struct {
	w        *walker.Walker
	provider llm.Provider
	timeout  time.Duration

	processing atomic.Bool

	mu        sync.Mutex
	lastRunAt map[string]time.Time // "spaceID/folder" -> last processed mtime high-water mark
}

// New builds a Generator. provider is the LLM adapter to call per folder;
// timeout bounds each individual call (spec.md §5 default 60s).
func New(w *walker.Walker, provider llm.Provider, timeout time.Duration) *Generator {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Generator{w: w, provider: provider, timeout: timeout, lastRunAt: make(map[string]time.Time)}
}

// folderGroup accumulates the files discovered directly under one folder.
type folderGroup struct {
	folder     string
	files      []types.FileRecord
	maxModTime int64
}

// Run executes one generation pass over space (spec.md §4.8). It returns
// errs.Busy immediately if another run is already in flight, otherwise
// returns an errs.MultiError aggregating any per-folder failures (nil if
// none).
func (g *Generator) Run(ctx context.Context, space walker.Space) error {
	if !g.processing.CompareAndSwap(false, true) {
		return errs.Busy("Generator.Run")
	}
	defer g.processing.Store(false)

	groups := make(map[string]*folderGroup)
	var groupsMu sync.Mutex // visit runs on the walker's worker pool
	err := g.w.Walk(ctx, space, func(rec types.FileRecord) error {
		folder := filepath.Dir(rec.RelativePath)
		if folder == "." {
			folder = ""
		}
		groupsMu.Lock()
		defer groupsMu.Unlock()
		grp, ok := groups[folder]
		if !ok {
			grp = &folderGroup{folder: folder}
			groups[folder] = grp
		}
		grp.files = append(grp.files, rec)
		if rec.ModifiedAt > grp.maxModTime {
			grp.maxModTime = rec.ModifiedAt
		}
		return nil
	})
	if err != nil {
		return errs.Internal("Generator.Run.walk", err)
	}

	folders := make([]string, 0, len(groups))
	for f := range groups {
		folders = append(folders, f)
	}
	sort.Strings(folders)

	var failures []error
	for _, folder := range folders {
		grp := groups[folder]
		key := fmt.Sprintf("%d/%s", space.ID, folder)

		g.mu.Lock()
		last, seen := g.lastRunAt[key]
		g.mu.Unlock()
		if seen && grp.maxModTime <= last.Unix() {
			continue
		}

		if err := g.generateFolder(ctx, space, grp); err != nil {
			debug.LogAI("folder %s failed: %v", key, err)
			failures = append(failures, fmt.Errorf("%s: %w", key, err))
			continue
		}

		g.mu.Lock()
		g.lastRunAt[key] = time.Unix(grp.maxModTime, 0)
		g.mu.Unlock()
	}

	return errs.NewMultiError(failures)
}

func (g *Generator) generateFolder(ctx context.Context, space walker.Space, grp *folderGroup) error {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	prompt := buildPrompt(space.Name, grp)
	summary, err := g.currentProvider().GenerateSummary(callCtx, prompt)
	if err != nil {
		return err
	}

	dir, err := g.w.WalkAICtxDirs(space, grp.folder)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, contextFileName), []byte(summary), 0644)
}

func buildPrompt(spaceName string, grp *folderGroup) string {
	prompt := fmt.Sprintf("Summarize the contents of folder %q in space %q. Files:\n", grp.folder, spaceName)
	for _, f := range grp.files {
		prompt += fmt.Sprintf("- %s (%s)\n", f.RelativePath, f.Category)
	}
	return prompt
}

// IsProcessing reports whether a generation run is currently in flight,
// for the HTTP trigger endpoint's Busy response (spec.md §4.8).
func (g *Generator) IsProcessing() bool {
	return g.processing.Load()
}

// TestProvider probes the configured LLM provider (spec.md §6 POST
// /settings/ai/test) without running a full generation pass.
func (g *Generator) TestProvider(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return g.currentProvider().GenerateSummary(callCtx, prompt)
}

// SetProvider swaps the active LLM provider, used when a user updates
// AISettings (spec.md §4.7 setAISettings: "selectable via AISettings.Provider").
func (g *Generator) SetProvider(p llm.Provider) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.provider = p
}

// currentProvider reads the active provider under the same mutex SetProvider
// writes through, since a settings update can race a concurrent scheduled
// run once SetProvider is reachable from a live HTTP request.
func (g *Generator) currentProvider() llm.Provider {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.provider
}
