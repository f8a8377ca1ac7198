package activity

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nooblyjs/wiki-index-core/internal/datastore"
	"github.com/nooblyjs/wiki-index-core/internal/types"
)

func newStore() *Store {
	return New(datastore.NewMemStore())
}

func TestRecordVisitDedupesAndOrdersMostRecentFirst(t *testing.T) {
	s := newStore()
	require.NoError(t, s.RecordVisit("alice", "docs", "a.md", "A"))
	require.NoError(t, s.RecordVisit("alice", "docs", "b.md", "B"))
	require.NoError(t, s.RecordVisit("alice", "docs", "a.md", "A updated"))

	a := s.GetActivity("alice")
	require.Len(t, a.Recent, 2)
	assert.Equal(t, "a.md", a.Recent[0].Path)
	assert.Equal(t, "A updated", a.Recent[0].Title)
	assert.Equal(t, "b.md", a.Recent[1].Path)
}

func TestRecordVisitTruncatesToRecentLimit(t *testing.T) {
	s := newStore()
	for i := 0; i < recentLimit+5; i++ {
		require.NoError(t, s.RecordVisit("alice", "docs", string(rune('a'+i)), "x"))
	}
	a := s.GetActivity("alice")
	assert.Len(t, a.Recent, recentLimit)
}

func TestToggleStarIsIdempotent(t *testing.T) {
	s := newStore()
	require.NoError(t, s.ToggleStar("alice", "docs", "a.md", "A", types.StarActionStar))
	require.NoError(t, s.ToggleStar("alice", "docs", "a.md", "A", types.StarActionStar))

	a := s.GetActivity("alice")
	assert.Len(t, a.Starred, 1)
}

func TestToggleStarUnstarRemovesEntry(t *testing.T) {
	s := newStore()
	require.NoError(t, s.ToggleStar("alice", "docs", "a.md", "A", types.StarActionStar))
	require.NoError(t, s.ToggleStar("alice", "docs", "a.md", "A", types.StarActionUnstar))

	a := s.GetActivity("alice")
	assert.Empty(t, a.Starred)
}

func TestToggleStarRejectsUnknownAction(t *testing.T) {
	s := newStore()
	err := s.ToggleStar("alice", "docs", "a.md", "A", types.StarAction("sideways"))
	assert.Error(t, err)
}

func TestGetActivityDefaultsToEmptyRecord(t *testing.T) {
	s := newStore()
	a := s.GetActivity("brand-new-user")
	assert.Equal(t, types.UserID("brand-new-user"), a.UserID)
	assert.NotNil(t, a.Recent)
	assert.NotNil(t, a.Starred)
	assert.Empty(t, a.Recent)
	assert.Empty(t, a.Starred)
}

func TestSetAndGetFolderViews(t *testing.T) {
	s := newStore()
	require.NoError(t, s.SetFolderView("alice", types.SpaceID(1), "notes", types.ViewModeGrid))
	require.NoError(t, s.SetFolderView("alice", types.SpaceID(1), "", types.ViewModeCards))

	views := s.GetFolderViews("alice")
	require.Contains(t, views, types.SpaceID(1))
	assert.Equal(t, types.ViewModeGrid, views[types.SpaceID(1)]["notes"])
	assert.Equal(t, types.ViewModeCards, views[types.SpaceID(1)][""])
}

func TestSetFolderViewRejectsInvalidMode(t *testing.T) {
	s := newStore()
	err := s.SetFolderView("alice", types.SpaceID(1), "notes", types.ViewMode("sideways"))
	assert.Error(t, err)
}

func TestSetAISettingsPreservesKeyWhenMaskedValuePresented(t *testing.T) {
	s := newStore()
	_, err := s.SetAISettings("alice", types.AISettings{APIKey: "sk-ant-realkey1234"})
	require.NoError(t, err)

	first := s.GetAISettings("alice")
	assert.True(t, types.IsMasked(first.APIKey))

	resolved, err := s.SetAISettings("alice", types.AISettings{APIKey: first.APIKey})
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-realkey1234", resolved.APIKey, "resolved settings must carry the real, unmasked key")

	second := s.GetAISettings("alice")
	assert.Equal(t, first.APIKey, second.APIKey, "re-saving a masked key must not lose the original")
}

func TestSetAISettingsOverwritesWithNewUnmaskedKey(t *testing.T) {
	s := newStore()
	_, err := s.SetAISettings("alice", types.AISettings{APIKey: "sk-ant-firstkey0000"})
	require.NoError(t, err)
	resolved, err := s.SetAISettings("alice", types.AISettings{APIKey: "sk-ant-secondkey1111"})
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-secondkey1111", resolved.APIKey)

	got := s.GetAISettings("alice")
	assert.True(t, types.IsMasked(got.APIKey))
}

func TestGetAISettingsDefaultsWhenAbsent(t *testing.T) {
	s := newStore()
	got := s.GetAISettings("never-set")
	assert.Equal(t, types.UserID("never-set"), got.UserID)
}

func TestPerUserLockStripingAllowsConcurrentDifferentUsers(t *testing.T) {
	s := newStore()
	var wg sync.WaitGroup
	users := []types.UserID{"alice", "bob", "carol", "dave"}
	for _, u := range users {
		wg.Add(1)
		go func(u types.UserID) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				_ = s.RecordVisit(u, "docs", "f.md", "F")
			}
		}(u)
	}
	wg.Wait()

	for _, u := range users {
		a := s.GetActivity(u)
		assert.Len(t, a.Recent, 1)
	}
}
