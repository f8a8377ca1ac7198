package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nooblyjs/wiki-index-core/internal/config"
	"github.com/nooblyjs/wiki-index-core/internal/errs"
	"github.com/nooblyjs/wiki-index-core/internal/query"
	"github.com/nooblyjs/wiki-index-core/internal/spaces"
)

// blockingProvider is a test double that blocks GenerateSummary until
// release is closed, used to hold the AIContext generator's single-flight
// guard open long enough to observe a concurrent caller's Busy response.
type blockingProvider struct {
	release chan struct{}
}

func (blockingProvider) Name() string { return "blocking" }

func (p *blockingProvider) GenerateSummary(ctx context.Context, prompt string) (string, error) {
	<-p.release
	return "summary", nil
}

func openTestService(t *testing.T) *Service {
	t.Helper()
	cfg := config.Default()
	svc, err := Open(cfg, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestOpenWiresEveryComponent(t *testing.T) {
	svc := openTestService(t)
	assert.NotNil(t, svc.Spaces)
	assert.NotNil(t, svc.Index)
	assert.NotNil(t, svc.Query)
	assert.NotNil(t, svc.Activity)
	assert.NotNil(t, svc.Walker)
	assert.NotNil(t, svc.AIContext)
}

func TestRebuildAllIndexesFilesFromEveryRegisteredSpace(t *testing.T) {
	svc := openTestService(t)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.md"), []byte("# Notes\nhello"), 0644))

	_, err := svc.Spaces.Create(spaces.CreateParams{OwnerID: "alice", Name: "docs", Root: root})
	require.NoError(t, err)

	require.NoError(t, svc.RebuildAll(context.Background()))

	stats := svc.Query.Stats()
	assert.GreaterOrEqual(t, stats.DocumentCount, 1)

	results, err := svc.Query.Search(context.Background(), "notes", query.Filters{})
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}

func TestRebuildAllReturnsBusyWhileAlreadyRunning(t *testing.T) {
	svc := openTestService(t)
	require.True(t, svc.rebuilding.start())
	defer svc.rebuilding.finish()

	err := svc.RebuildAll(context.Background())
	assert.True(t, errs.Is(err, errs.KindBusy))
}

func TestStartRebuildAsyncReturnsBusySynchronouslyWhileAlreadyRunning(t *testing.T) {
	svc := openTestService(t)
	require.True(t, svc.rebuilding.start())
	defer svc.rebuilding.finish()

	err := svc.StartRebuildAsync(context.Background())
	assert.True(t, errs.Is(err, errs.KindBusy))
}

func TestStartRebuildAsyncRunsInBackgroundAndSucceeds(t *testing.T) {
	svc := openTestService(t)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.md"), []byte("# Notes\nhello"), 0644))
	_, err := svc.Spaces.Create(spaces.CreateParams{OwnerID: "alice", Name: "docs", Root: root})
	require.NoError(t, err)

	require.NoError(t, svc.StartRebuildAsync(context.Background()))

	require.Eventually(t, func() bool {
		return svc.Query.Stats().DocumentCount > 0
	}, time.Second, time.Millisecond)
}

func TestRunAIContextOnceGeneratesForEveryRegisteredSpace(t *testing.T) {
	svc := openTestService(t)
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "notes"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes", "a.md"), []byte("note"), 0644))

	_, err := svc.Spaces.Create(spaces.CreateParams{OwnerID: "alice", Name: "docs", Root: root})
	require.NoError(t, err)

	require.NoError(t, svc.RunAIContextOnce(context.Background()))

	_, statErr := os.Stat(filepath.Join(root, "notes", ".aicontext", "folder-context.md"))
	assert.NoError(t, statErr)
}

func TestStartAIContextAsyncReturnsBusySynchronouslyWhileAlreadyProcessing(t *testing.T) {
	svc := openTestService(t)

	blocker := &blockingProvider{release: make(chan struct{})}
	svc.AIContext.SetProvider(blocker)

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "notes"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes", "a.md"), []byte("note"), 0644))
	_, err := svc.Spaces.Create(spaces.CreateParams{OwnerID: "alice", Name: "docs", Root: root})
	require.NoError(t, err)

	go func() { _ = svc.RunAIContextOnce(context.Background()) }()

	require.Eventually(t, func() bool { return svc.AIContext.IsProcessing() }, time.Second, time.Millisecond)

	err = svc.StartAIContextAsync(context.Background())
	assert.True(t, errs.Is(err, errs.KindBusy))

	close(blocker.release)
}

func TestDeleteSpaceEvictsItsDocumentsFromIndex(t *testing.T) {
	svc := openTestService(t)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.md"), []byte("# Notes\nhello"), 0644))

	sp, err := svc.Spaces.Create(spaces.CreateParams{OwnerID: "alice", Name: "docs", Root: root})
	require.NoError(t, err)
	require.NoError(t, svc.RebuildAll(context.Background()))
	require.Greater(t, svc.Query.Stats().DocumentCount, 0)

	require.NoError(t, svc.DeleteSpace(sp.ID))
	assert.Equal(t, 0, svc.Query.Stats().DocumentCount)
}
