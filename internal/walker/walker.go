// Package walker implements C2, the bounded-concurrency recursive
// filesystem walker. It discovers files under a space root, classifies
// them by extension (spec.md §4.2), and streams FileRecords to callers.
//
// The traversal shape is grounded on the teacher's
// internal/indexing/watcher.go (symlink-cycle tracking via visited real
// paths, exclude-glob matching via doublestar) and
// internal/indexing/pipeline.go (discoverer feeding a bounded worker pool).
// Here the "worker pool" fans out content extraction (left to the caller,
// via the visit callback) rather than AST parsing.
package walker

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/nooblyjs/wiki-index-core/internal/config"
	"github.com/nooblyjs/wiki-index-core/internal/debug"
	"github.com/nooblyjs/wiki-index-core/internal/types"
)

// categoryByExtension is the static extension -> category table from
// spec.md §4.2.
var categoryByExtension = map[string]types.FileCategory{
	"md": types.CategoryDocument, "txt": types.CategoryDocument, "log": types.CategoryDocument, "rst": types.CategoryDocument,

	"js": types.CategoryCode, "ts": types.CategoryCode, "py": types.CategoryCode, "java": types.CategoryCode,
	"c": types.CategoryCode, "cpp": types.CategoryCode, "go": types.CategoryCode, "rs": types.CategoryCode,
	"rb": types.CategoryCode, "php": types.CategoryCode, "sh": types.CategoryCode, "json": types.CategoryCode,
	"xml": types.CategoryCode, "yml": types.CategoryCode, "yaml": types.CategoryCode, "html": types.CategoryCode,
	"css": types.CategoryCode,

	"png": types.CategoryImage, "jpg": types.CategoryImage, "jpeg": types.CategoryImage, "gif": types.CategoryImage,
	"svg": types.CategoryImage, "webp": types.CategoryImage,

	"pdf": types.CategoryPDF,

	"zip": types.CategoryArchive, "rar": types.CategoryArchive, "7z": types.CategoryArchive,
	"tar": types.CategoryArchive, "gz": types.CategoryArchive,

	"mp3": types.CategoryAudio, "wav": types.CategoryAudio, "flac": types.CategoryAudio,

	"mp4": types.CategoryVideo, "mov": types.CategoryVideo, "webm": types.CategoryVideo,
}

// Categorize returns the file category for an extension (without the
// leading dot, already lowercased).
func Categorize(ext string) types.FileCategory {
	if cat, ok := categoryByExtension[ext]; ok {
		return cat
	}
	return types.CategoryOther
}

// Space is the minimal view of a C1 space the walker needs.
type Space struct {
	ID   types.SpaceID
	Name string
	Root string
}

// Walker performs bounded-concurrency recursive traversal of space roots.
type Walker struct {
	cfg *config.Config
}

// New creates a Walker using cfg for worker pool sizing and exclude globs.
func New(cfg *config.Config) *Walker {
	return &Walker{cfg: cfg}
}

// Walk recursively traverses space.Root and invokes visit once per regular
// file discovered. Per-subtree discovery is lexicographic and serial;
// visit calls for different subtrees are fanned out across a bounded
// worker pool (default config.Performance.ParallelFileWorkers, 0 = NumCPU)
// so that expensive per-file work (extraction) does not serialize the
// directory walk itself.
//
// Unreadable directories are skipped with a debug.LogWalk line, never
// fatal (spec.md §4.2 Failure).
func (w *Walker) Walk(ctx context.Context, space Space, visit func(types.FileRecord) error) error {
	gitignore := &gitignoreMatcher{}
	if w.cfg.Index.RespectGitignore {
		gitignore = loadGitignore(space.Root)
	}

	workers := w.cfg.Performance.ParallelFileWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	visited := map[string]bool{}
	err := w.walkDir(gctx, space, space.Root, visited, gitignore, func(rec types.FileRecord) {
		g.Go(func() error {
			return visit(rec)
		})
	})
	if err != nil {
		return err
	}
	return g.Wait()
}

// walkDir recursively discovers files under dir, calling emit for each
// regular file found. Discovery itself stays single-threaded and
// depth-first in lexicographic order; emit is expected to hand off to a
// bounded pool (the errgroup in Walk).
func (w *Walker) walkDir(ctx context.Context, space Space, dir string, visitedDirs map[string]bool, gitignore *gitignoreMatcher, emit func(types.FileRecord)) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	realDir, err := filepath.EvalSymlinks(dir)
	if err == nil {
		if visitedDirs[realDir] {
			return nil // symlink cycle
		}
		visitedDirs[realDir] = true
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		debug.LogWalk("skipping unreadable directory %s: %v", dir, err)
		return nil
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		name := entry.Name()
		full := filepath.Join(dir, name)
		rel, relErr := filepath.Rel(space.Root, full)
		if relErr != nil {
			continue
		}
		rel = filepath.ToSlash(rel)

		isSymlink := entry.Type()&os.ModeSymlink != 0
		isDir := entry.IsDir()

		if isSymlink {
			// entry.IsDir() reflects the Lstat of the link itself, never the
			// target, so a symlinked directory must be resolved and stat'd
			// before deciding which branch to take (spec.md §4.2: "follow
			// [symlinks] when the target remains within the space root").
			target, err := filepath.EvalSymlinks(full)
			if err != nil || !withinRoot(space.Root, target) {
				continue // broken symlink, or escapes the space root
			}
			targetInfo, err := os.Stat(target)
			if err != nil {
				continue
			}
			isDir = targetInfo.IsDir()
		}

		if isDir {
			if w.skipDirectory(name, rel) {
				continue
			}
			if gitignore.shouldIgnore(rel, true) {
				continue
			}
			if err := w.walkDir(ctx, space, full, visitedDirs, gitignore, emit); err != nil {
				return err
			}
			continue
		}

		info, err := entry.Info()
		if err != nil {
			debug.LogWalk("skipping unstatable file %s: %v", full, err)
			continue
		}

		if !isSymlink && !info.Mode().IsRegular() {
			continue // sockets, devices, etc.
		}

		if w.isExcluded(rel) || gitignore.shouldIgnore(rel, false) {
			continue
		}

		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
		rec := types.FileRecord{
			SpaceID:      space.ID,
			RelativePath: rel,
			AbsolutePath: full,
			SizeBytes:    info.Size(),
			ModifiedAt:   info.ModTime().Unix(),
			Extension:    ext,
			Category:     Categorize(ext),
			DocKey:       types.DocKey(space.ID, rel),
		}
		emit(rec)
	}

	return nil
}

// skipDirectory implements the hidden-directory skip rule: dot-directories
// are skipped except ".templates" (first-class content) and ".aicontext"
// (walked only by the AI-context generator, never by the search walker).
func (w *Walker) skipDirectory(name, rel string) bool {
	if !strings.HasPrefix(name, ".") {
		return false
	}
	if name == ".templates" {
		return false
	}
	return true // includes ".aicontext" and every other dot-directory
}

func (w *Walker) isExcluded(rel string) bool {
	for _, pattern := range w.cfg.Exclude {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return true
		}
	}
	if len(w.cfg.Include) == 0 {
		return false
	}
	for _, pattern := range w.cfg.Include {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return false
		}
	}
	return true
}

func withinRoot(root, target string) bool {
	root = filepath.Clean(root)
	target = filepath.Clean(target)
	if target == root {
		return true
	}
	return strings.HasPrefix(target, root+string(filepath.Separator))
}

// WalkAICtxDirs is the C8-only helper for the ".aicontext" directories that
// Walk skips: it creates (if missing) and returns the ".aicontext" directory
// of one folder, where the AI-context generator writes its artifacts. It
// does not walk or read the directory.
func (w *Walker) WalkAICtxDirs(space Space, folder string) (string, error) {
	dir := filepath.Join(space.Root, folder, ".aicontext")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}
