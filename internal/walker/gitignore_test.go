package walker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadGitignoreMissingFileReturnsEmptyMatcher(t *testing.T) {
	m := loadGitignore(t.TempDir())
	assert.NotNil(t, m)
	assert.Empty(t, m.patterns)
}

func TestLoadGitignoreParsesPatterns(t *testing.T) {
	root := t.TempDir()
	content := "# comment\nbuild/\n!build/keep.md\n/rootonly.txt\n*.log\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte(content), 0644))

	m := loadGitignore(root)
	require.Len(t, m.patterns, 4)
	assert.True(t, m.patterns[0].directory)
	assert.True(t, m.patterns[1].negate)
	assert.True(t, m.patterns[2].anchored)
}

func TestShouldIgnoreDirectoryPattern(t *testing.T) {
	m := &gitignoreMatcher{patterns: []gitignorePattern{{glob: "build", directory: true}}}
	assert.True(t, m.shouldIgnore("build", true))
	assert.True(t, m.shouldIgnore("build/out.log", false))
	assert.False(t, m.shouldIgnore("builder", true))
}

func TestShouldIgnoreNegationReincludesFile(t *testing.T) {
	m := &gitignoreMatcher{patterns: []gitignorePattern{
		{glob: "*.log"},
		{glob: "keep.log", negate: true},
	}}
	assert.True(t, m.shouldIgnore("debug.log", false))
	assert.False(t, m.shouldIgnore("keep.log", false))
}

func TestShouldIgnoreAnchoredOnlyMatchesRoot(t *testing.T) {
	m := &gitignoreMatcher{patterns: []gitignorePattern{{glob: "rootonly.txt", anchored: true}}}
	assert.True(t, m.shouldIgnore("rootonly.txt", false))
	assert.False(t, m.shouldIgnore("sub/rootonly.txt", false))
}

func TestShouldIgnoreUnanchoredMatchesNestedPaths(t *testing.T) {
	m := &gitignoreMatcher{patterns: []gitignorePattern{{glob: "*.tmp"}}}
	assert.True(t, m.shouldIgnore("a.tmp", false))
	assert.True(t, m.shouldIgnore("sub/dir/b.tmp", false))
}

func TestGlobMatchLiteralVsWildcard(t *testing.T) {
	assert.True(t, globMatch("exact.txt", "exact.txt"))
	assert.False(t, globMatch("exact.txt", "other.txt"))
	assert.True(t, globMatch("*.md", "readme.md"))
	assert.False(t, globMatch("*.md", "sub/readme.md"))
}
