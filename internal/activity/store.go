// Package activity implements C7, the activity and preference store:
// recent/starred visit tracking, folder view preferences, and AI settings
// with API-key masking.
//
// Per-user lock striping is grounded on the "cross-user writes proceed in
// parallel" requirement (spec.md §5): a sync.Map of per-user mutexes, the
// same shape as a connection-pool-per-key idiom, rather than one global
// lock that would serialize unrelated users' writes.
package activity

import (
	"fmt"
	"sync"
	"time"

	"github.com/nooblyjs/wiki-index-core/internal/datastore"
	"github.com/nooblyjs/wiki-index-core/internal/errs"
	"github.com/nooblyjs/wiki-index-core/internal/types"
)

const (
	activityCollectionPrefix = "userActivity_"
	prefsCollectionPrefix    = "userPreferences_"
	aiCollectionPrefix       = "aiSettings_"
	recentLimit              = 20
)

// Store is the C7 implementation.
type Store struct {
	store datastore.Store
	locks sync.Map // types.UserID -> *sync.Mutex
}

// New wraps a datastore for per-user activity/preference/AI-settings
// records.
func New(store datastore.Store) *Store {
	return &Store{store: store}
}

func (s *Store) lockFor(userID types.UserID) *sync.Mutex {
	l, _ := s.locks.LoadOrStore(userID, &sync.Mutex{})
	return l.(*sync.Mutex)
}

func activityKey(userID types.UserID) string { return activityCollectionPrefix + string(userID) }
func prefsKey(userID types.UserID) string    { return prefsCollectionPrefix + string(userID) }
func aiKey(userID types.UserID) string       { return aiCollectionPrefix + string(userID) }

func (s *Store) loadActivity(userID types.UserID) types.UserActivity {
	var a types.UserActivity
	if err := s.store.LoadOne(activityKey(userID), "record", &a); err != nil {
		return types.UserActivity{UserID: userID}
	}
	return a
}

func (s *Store) saveActivity(a types.UserActivity) error {
	a.UpdatedAt = time.Now().Unix()
	if err := s.store.SaveOne(activityKey(a.UserID), "record", a); err != nil {
		return errs.Internal("Store.saveActivity", err)
	}
	return nil
}

// RecordVisit implements spec.md §4.7 recordVisit: removes any existing
// entry matching (spaceName, path), prepends the new entry, truncates to
// recentLimit.
func (s *Store) RecordVisit(userID types.UserID, spaceName, path, title string) error {
	lock := s.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	a := s.loadActivity(userID)
	a.UserID = userID

	filtered := a.Recent[:0:0]
	for _, e := range a.Recent {
		if e.SpaceName == spaceName && e.Path == path {
			continue
		}
		filtered = append(filtered, e)
	}
	entry := types.ActivityEntry{SpaceName: spaceName, Path: path, Title: title, VisitedAt: time.Now().Unix()}
	a.Recent = append([]types.ActivityEntry{entry}, filtered...)
	if len(a.Recent) > recentLimit {
		a.Recent = a.Recent[:recentLimit]
	}

	return s.saveActivity(a)
}

// ToggleStar implements spec.md §4.7 toggleStar: star is idempotent,
// unstar removes the matching entry.
func (s *Store) ToggleStar(userID types.UserID, spaceName, path, title string, action types.StarAction) error {
	lock := s.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	a := s.loadActivity(userID)
	a.UserID = userID

	idx := -1
	for i, e := range a.Starred {
		if e.SpaceName == spaceName && e.Path == path {
			idx = i
			break
		}
	}

	switch action {
	case types.StarActionStar:
		if idx == -1 {
			a.Starred = append(a.Starred, types.ActivityEntry{
				SpaceName: spaceName, Path: path, Title: title, VisitedAt: time.Now().Unix(),
			})
		}
	case types.StarActionUnstar:
		if idx != -1 {
			a.Starred = append(a.Starred[:idx], a.Starred[idx+1:]...)
		}
	default:
		return errs.ValidationFailed("Store.ToggleStar", fmt.Errorf("unknown action %q", action))
	}

	return s.saveActivity(a)
}

// GetActivity implements spec.md §4.7 getActivity, synthesizing a default
// empty record on first read.
func (s *Store) GetActivity(userID types.UserID) types.UserActivity {
	lock := s.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	a := s.loadActivity(userID)
	a.UserID = userID
	if a.Recent == nil {
		a.Recent = []types.ActivityEntry{}
	}
	if a.Starred == nil {
		a.Starred = []types.ActivityEntry{}
	}
	return a
}

// SetFolderView implements spec.md §4.7 setFolderView. An empty folderPath
// represents the space root.
func (s *Store) SetFolderView(userID types.UserID, spaceID types.SpaceID, folderPath string, mode types.ViewMode) error {
	if !types.ValidViewMode(mode) {
		return errs.ValidationFailed("Store.SetFolderView", fmt.Errorf("invalid view mode %q", mode))
	}

	lock := s.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	prefs := s.loadPrefs(userID)
	if prefs.FolderViewPreferences == nil {
		prefs.FolderViewPreferences = make(map[types.SpaceID]map[string]types.ViewMode)
	}
	if prefs.FolderViewPreferences[spaceID] == nil {
		prefs.FolderViewPreferences[spaceID] = make(map[string]types.ViewMode)
	}
	prefs.FolderViewPreferences[spaceID][folderPath] = mode

	return s.savePrefs(prefs)
}

// GetFolderViews implements spec.md §4.7 getFolderViews.
func (s *Store) GetFolderViews(userID types.UserID) map[types.SpaceID]map[string]types.ViewMode {
	lock := s.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	prefs := s.loadPrefs(userID)
	if prefs.FolderViewPreferences == nil {
		return map[types.SpaceID]map[string]types.ViewMode{}
	}
	return prefs.FolderViewPreferences
}

func (s *Store) loadPrefs(userID types.UserID) types.UserPreferences {
	var p types.UserPreferences
	if err := s.store.LoadOne(prefsKey(userID), "record", &p); err != nil {
		return types.UserPreferences{UserID: userID}
	}
	return p
}

func (s *Store) savePrefs(p types.UserPreferences) error {
	if err := s.store.SaveOne(prefsKey(p.UserID), "record", p); err != nil {
		return errs.Internal("Store.savePrefs", err)
	}
	return nil
}

// GetAISettings implements spec.md §4.7 getAISettings: the stored API key
// is masked on read.
func (s *Store) GetAISettings(userID types.UserID) types.AISettings {
	lock := s.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	var a types.AISettings
	if err := s.store.LoadOne(aiKey(userID), "record", &a); err != nil {
		a = types.AISettings{UserID: userID}
	}
	return a.Masked()
}

// SetAISettings implements spec.md §4.7 setAISettings: a write that
// presents an already-masked key (types.IsMasked) preserves the previously
// stored key instead of overwriting it with bullets. It returns the
// resolved, unmasked settings actually persisted, so a caller that needs
// the real key (e.g. to reconfigure an LLM provider) doesn't have to issue
// a second, racy read through GetAISettings's masking.
func (s *Store) SetAISettings(userID types.UserID, settings types.AISettings) (types.AISettings, error) {
	lock := s.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	settings.UserID = userID
	if types.IsMasked(settings.APIKey) {
		var existing types.AISettings
		if err := s.store.LoadOne(aiKey(userID), "record", &existing); err == nil {
			settings.APIKey = existing.APIKey
		} else {
			settings.APIKey = ""
		}
	}

	if err := s.store.SaveOne(aiKey(userID), "record", settings); err != nil {
		return types.AISettings{}, errs.Internal("Store.SetAISettings", err)
	}
	return settings, nil
}
