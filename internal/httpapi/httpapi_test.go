package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nooblyjs/wiki-index-core/internal/config"
	"github.com/nooblyjs/wiki-index-core/internal/service"
	"github.com/nooblyjs/wiki-index-core/internal/spaces"
)

func newTestHandler(t *testing.T) (*Handler, *service.Service) {
	t.Helper()
	cfg := config.Default()
	svc, err := service.Open(cfg, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return New(svc), svc
}

func TestHandleSpacesCreateAndList(t *testing.T) {
	h, _ := newTestHandler(t)
	root := t.TempDir()

	body, _ := json.Marshal(map[string]string{"name": "docs", "root": root})
	req := httptest.NewRequest(http.MethodPost, "/spaces", bytes.NewReader(body))
	req.Header.Set("X-User-Id", "alice")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	listReq := httptest.NewRequest(http.MethodGet, "/spaces", nil)
	listReq.Header.Set("X-User-Id", "alice")
	listRec := httptest.NewRecorder()
	h.ServeHTTP(listRec, listReq)
	assert.Equal(t, http.StatusOK, listRec.Code)
	assert.Contains(t, listRec.Body.String(), "docs")
}

func TestHandleSpacesCreateDuplicateNameReturnsConflict(t *testing.T) {
	h, _ := newTestHandler(t)

	body1, _ := json.Marshal(map[string]string{"name": "docs", "root": t.TempDir()})
	req1 := httptest.NewRequest(http.MethodPost, "/spaces", bytes.NewReader(body1))
	req1.Header.Set("X-User-Id", "alice")
	rec1 := httptest.NewRecorder()
	h.ServeHTTP(rec1, req1)
	require.Equal(t, http.StatusCreated, rec1.Code)

	body2, _ := json.Marshal(map[string]string{"name": "docs", "root": t.TempDir()})
	req2 := httptest.NewRequest(http.MethodPost, "/spaces", bytes.NewReader(body2))
	req2.Header.Set("X-User-Id", "alice")
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req2)
	assert.Equal(t, http.StatusConflict, rec2.Code)
}

func TestHandleSearchEmptyQueryReturnsEmptyArray(t *testing.T) {
	h, _ := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestHandleSearchReturnsMatches(t *testing.T) {
	h, svc := newTestHandler(t)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.md"), []byte("# Notes\nhello widget"), 0644))

	createBody, _ := json.Marshal(map[string]string{"name": "docs", "root": root})
	createReq := httptest.NewRequest(http.MethodPost, "/spaces", bytes.NewReader(createBody))
	createReq.Header.Set("X-User-Id", "alice")
	createRec := httptest.NewRecorder()
	h.ServeHTTP(createRec, createReq)
	require.Equal(t, http.StatusCreated, createRec.Code)

	require.NoError(t, svc.RebuildAll(context.Background()))

	req := httptest.NewRequest(http.MethodGet, "/search?q=widget", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "notes.md")
}

func TestHandleRebuildRequiresPost(t *testing.T) {
	h, _ := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/search/rebuild", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleStatsReportsZeroDocumentsInitially(t *testing.T) {
	h, _ := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/search/stats", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(0), body["documentCount"])
}

func TestHandleUserVisitAndActivity(t *testing.T) {
	h, _ := newTestHandler(t)

	visitBody, _ := json.Marshal(map[string]string{"spaceName": "docs", "path": "a.md", "title": "A"})
	visitReq := httptest.NewRequest(http.MethodPost, "/user/visit", bytes.NewReader(visitBody))
	visitReq.Header.Set("X-User-Id", "alice")
	visitRec := httptest.NewRecorder()
	h.ServeHTTP(visitRec, visitReq)
	require.Equal(t, http.StatusOK, visitRec.Code)

	activityReq := httptest.NewRequest(http.MethodGet, "/user/activity", nil)
	activityReq.Header.Set("X-User-Id", "alice")
	activityRec := httptest.NewRecorder()
	h.ServeHTTP(activityRec, activityReq)
	assert.Equal(t, http.StatusOK, activityRec.Code)
	assert.Contains(t, activityRec.Body.String(), "a.md")
}

func TestHandleSettingsAIGetReturnsMaskedKey(t *testing.T) {
	h, _ := newTestHandler(t)

	setBody, _ := json.Marshal(map[string]string{"apiKey": "sk-ant-realsecret123"})
	setReq := httptest.NewRequest(http.MethodPost, "/settings/ai", bytes.NewReader(setBody))
	setReq.Header.Set("X-User-Id", "alice")
	setRec := httptest.NewRecorder()
	h.ServeHTTP(setRec, setReq)
	require.Equal(t, http.StatusOK, setRec.Code)

	getReq := httptest.NewRequest(http.MethodGet, "/settings/ai", nil)
	getReq.Header.Set("X-User-Id", "alice")
	getRec := httptest.NewRecorder()
	h.ServeHTTP(getRec, getReq)
	assert.Equal(t, http.StatusOK, getRec.Code)
	assert.NotContains(t, getRec.Body.String(), "sk-ant-realsecret123")
}

func TestServeHTTPAssignsRequestIDWhenAbsent(t *testing.T) {
	h, _ := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/search/stats", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestServeHTTPEchoesCallerSuppliedRequestID(t *testing.T) {
	h, _ := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/search/stats", nil)
	req.Header.Set("X-Request-Id", "caller-supplied-id")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "caller-supplied-id", rec.Header().Get("X-Request-Id"))
}

func TestHandleSpaceSubroutesUnknownIDReturnsError(t *testing.T) {
	h, _ := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/spaces/999/folders", nil)
	req.Header.Set("X-User-Id", "alice")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.NotEqual(t, http.StatusOK, rec.Code)
}

// TestHandleRebuildReturnsConflictWhileAlreadyRunning exercises the fix for
// handleRebuild silently discarding errs.Busy inside a fire-and-forget
// goroutine: enough files are indexed that RebuildAll's real work window is
// wide enough for concurrent POST /search/rebuild callers to race the
// single-flight guard, so at least one must observe 409 rather than every
// caller getting 200 regardless of whether its rebuild actually ran.
func TestHandleRebuildReturnsConflictWhileAlreadyRunning(t *testing.T) {
	h, svc := newTestHandler(t)
	root := t.TempDir()
	content := bytes.Repeat([]byte("indexable content line\n"), 2000)
	for i := 0; i < 40; i++ {
		name := filepath.Join(root, fmt.Sprintf("doc%d.md", i))
		require.NoError(t, os.WriteFile(name, content, 0644))
	}
	_, err := svc.Spaces.Create(spaces.CreateParams{OwnerID: "alice", Name: "docs", Root: root})
	require.NoError(t, err)

	const callers = 8
	var wg sync.WaitGroup
	start := make(chan struct{})
	codes := make([]int, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/search/rebuild", nil)
			rec := httptest.NewRecorder()
			<-start
			h.ServeHTTP(rec, req)
			codes[idx] = rec.Code
		}(i)
	}
	close(start)
	wg.Wait()

	var ok, conflict int
	for _, c := range codes {
		switch c {
		case http.StatusOK:
			ok++
		case http.StatusConflict:
			conflict++
		default:
			t.Fatalf("unexpected status %d", c)
		}
	}
	assert.GreaterOrEqual(t, ok, 1)
	assert.GreaterOrEqual(t, conflict, 1)
}

func TestHandleAIContextRebuildRequiresPost(t *testing.T) {
	h, _ := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/aicontext/rebuild", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleAIContextRebuildSucceeds(t *testing.T) {
	h, svc := newTestHandler(t)
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "notes"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes", "a.md"), []byte("note"), 0644))
	_, err := svc.Spaces.Create(spaces.CreateParams{OwnerID: "alice", Name: "docs", Root: root})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/aicontext/rebuild", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	require.Eventually(t, func() bool {
		_, statErr := os.Stat(filepath.Join(root, "notes", ".aicontext", "folder-context.md"))
		return statErr == nil
	}, time.Second, time.Millisecond)
}

// blockingLLMProvider is an llm.Provider test double that blocks
// GenerateSummary until release is closed, used to hold AIContext's
// single-flight guard open long enough to observe a concurrent HTTP
// caller's 409 response (spec.md §4.8: "callers observing [the
// is-processing flag] get a Busy response from the trigger endpoint").
type blockingLLMProvider struct {
	release chan struct{}
}

func (blockingLLMProvider) Name() string { return "blocking" }

func (p *blockingLLMProvider) GenerateSummary(ctx context.Context, prompt string) (string, error) {
	<-p.release
	return "summary", nil
}

func TestHandleAIContextRebuildReturnsConflictWhileAlreadyProcessing(t *testing.T) {
	h, svc := newTestHandler(t)

	blocker := &blockingLLMProvider{release: make(chan struct{})}
	svc.AIContext.SetProvider(blocker)

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "notes"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes", "a.md"), []byte("note"), 0644))
	_, err := svc.Spaces.Create(spaces.CreateParams{OwnerID: "alice", Name: "docs", Root: root})
	require.NoError(t, err)

	firstReq := httptest.NewRequest(http.MethodPost, "/aicontext/rebuild", nil)
	firstRec := httptest.NewRecorder()
	h.ServeHTTP(firstRec, firstReq)
	require.Equal(t, http.StatusOK, firstRec.Code)

	require.Eventually(t, func() bool {
		return svc.AIContext.IsProcessing()
	}, time.Second, time.Millisecond)

	secondReq := httptest.NewRequest(http.MethodPost, "/aicontext/rebuild", nil)
	secondRec := httptest.NewRecorder()
	h.ServeHTTP(secondRec, secondReq)
	assert.Equal(t, http.StatusConflict, secondRec.Code)

	close(blocker.release)
}
