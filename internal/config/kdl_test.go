package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKDLOverridesDefaults(t *testing.T) {
	content := `
project {
    name "team-wiki"
}
index {
    max_file_size 1048576
    respect_gitignore false
}
search {
    default_max_results 50
    ranking {
        enabled true
        document_boost 1.5
    }
}
exclude "**/dist/**" "**/.cache/**"
`
	cfg, err := parseKDL(content)
	require.NoError(t, err)

	assert.Equal(t, "team-wiki", cfg.Project.Name)
	assert.Equal(t, int64(1048576), cfg.Index.MaxFileSize)
	assert.False(t, cfg.Index.RespectGitignore)
	assert.Equal(t, 50, cfg.Search.DefaultMaxResults)
	assert.True(t, cfg.Search.Ranking.Enabled)
	assert.Equal(t, 1.5, cfg.Search.Ranking.DocumentBoost)
	assert.Equal(t, []string{"**/dist/**", "**/.cache/**"}, cfg.Exclude)
}

func TestParseKDLUnsetFieldsKeepDefaults(t *testing.T) {
	cfg, err := parseKDL(`project { name "x" }`)
	require.NoError(t, err)
	assert.Equal(t, Default().Search.DefaultMaxResults, cfg.Search.DefaultMaxResults)
}

func TestLoadKDLReturnsNilWhenAbsent(t *testing.T) {
	cfg, err := LoadKDL(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, cfg)
}
