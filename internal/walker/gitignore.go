package walker

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// gitignoreMatcher matches space-relative paths against a .gitignore file's
// patterns. Grounded on the teacher's internal/config/gitignore.go, trimmed
// to the subset of gitignore syntax the walker actually needs: comments,
// negation, directory-only patterns, and leading-slash anchors. Complex
// character classes fall back to filepath.Match.
type gitignoreMatcher struct {
	patterns []gitignorePattern
}

type gitignorePattern struct {
	glob      string
	negate    bool
	directory bool
	anchored  bool
}

// loadGitignore reads root/.gitignore, returning an empty matcher (never
// nil) when the file does not exist.
func loadGitignore(root string) *gitignoreMatcher {
	m := &gitignoreMatcher{}
	f, err := os.Open(filepath.Join(root, ".gitignore"))
	if err != nil {
		return m
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m.patterns = append(m.patterns, parseGitignoreLine(line))
	}
	return m
}

func parseGitignoreLine(line string) gitignorePattern {
	p := gitignorePattern{}
	if strings.HasPrefix(line, "!") {
		p.negate = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		p.directory = true
		line = strings.TrimSuffix(line, "/")
	}
	if strings.HasPrefix(line, "/") {
		p.anchored = true
		line = line[1:]
	}
	p.glob = line
	return p
}

// shouldIgnore reports whether relPath (space-relative, forward-slash
// separated) is ignored, given whether it names a directory.
func (m *gitignoreMatcher) shouldIgnore(relPath string, isDir bool) bool {
	relPath = filepath.ToSlash(relPath)
	ignored := false
	for _, p := range m.patterns {
		if matchGitignorePattern(p, relPath, isDir) {
			ignored = !p.negate
		}
	}
	return ignored
}

func matchGitignorePattern(p gitignorePattern, path string, isDir bool) bool {
	if p.directory && !isDir {
		// A directory-only pattern still excludes files nested under it.
		return strings.HasPrefix(path, p.glob+"/")
	}

	if p.anchored {
		return globMatch(p.glob, path)
	}

	if globMatch(p.glob, path) {
		return true
	}
	parts := strings.Split(path, "/")
	for i := 1; i < len(parts); i++ {
		if globMatch(p.glob, strings.Join(parts[i:], "/")) {
			return true
		}
	}
	return false
}

func globMatch(glob, path string) bool {
	if !strings.ContainsAny(glob, "*?[") {
		return glob == path
	}
	matched, err := filepath.Match(glob, path)
	return err == nil && matched
}
