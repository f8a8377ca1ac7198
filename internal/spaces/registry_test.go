package spaces

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nooblyjs/wiki-index-core/internal/datastore"
	"github.com/nooblyjs/wiki-index-core/internal/errs"
	"github.com/nooblyjs/wiki-index-core/internal/types"
)

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := New(datastore.NewMemStore())
	require.NoError(t, err)
	return r
}

func TestCreateSeedsTemplateOnEmptyDir(t *testing.T) {
	r := newRegistry(t)
	root := t.TempDir()

	space, err := r.Create(CreateParams{OwnerID: "alice", Name: "docs", Root: root})
	require.NoError(t, err)
	assert.Equal(t, "docs", space.Name)
	assert.Equal(t, types.VisibilityPrivate, space.Visibility)

	_, statErr := os.Stat(filepath.Join(root, ".templates", "sample.md"))
	assert.NoError(t, statErr)
}

func TestCreateSkipsSeedingOnNonEmptyDir(t *testing.T) {
	r := newRegistry(t)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "existing.md"), []byte("already here"), 0644))

	_, err := r.Create(CreateParams{OwnerID: "alice", Name: "docs", Root: root})
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(root, ".templates"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestCreateRejectsEmptyName(t *testing.T) {
	r := newRegistry(t)
	_, err := r.Create(CreateParams{OwnerID: "alice", Root: t.TempDir()})
	assert.True(t, errs.Is(err, errs.KindValidationFailed))
}

func TestCreateRejectsDuplicateNameWithinOwnerScope(t *testing.T) {
	r := newRegistry(t)
	root1, root2 := t.TempDir(), t.TempDir()

	_, err := r.Create(CreateParams{OwnerID: "alice", Name: "docs", Root: root1})
	require.NoError(t, err)

	_, err = r.Create(CreateParams{OwnerID: "alice", Name: "docs", Root: root2})
	assert.True(t, errs.Is(err, errs.KindConflict))
}

func TestCreateAllowsSameNameForDifferentOwners(t *testing.T) {
	r := newRegistry(t)
	_, err := r.Create(CreateParams{OwnerID: "alice", Name: "docs", Root: t.TempDir()})
	require.NoError(t, err)

	_, err = r.Create(CreateParams{OwnerID: "bob", Name: "docs", Root: t.TempDir()})
	assert.NoError(t, err)
}

func TestCreateMakesMissingRootDirectory(t *testing.T) {
	r := newRegistry(t)
	root := filepath.Join(t.TempDir(), "nested", "space-root")

	_, err := r.Create(CreateParams{OwnerID: "alice", Name: "docs", Root: root})
	require.NoError(t, err)

	info, statErr := os.Stat(root)
	require.NoError(t, statErr)
	assert.True(t, info.IsDir())
}

func TestListVisibleFiltersByOwnerAndVisibility(t *testing.T) {
	r := newRegistry(t)
	_, err := r.Create(CreateParams{OwnerID: "alice", Name: "private-docs", Root: t.TempDir(), Visibility: types.VisibilityPrivate})
	require.NoError(t, err)
	_, err = r.Create(CreateParams{OwnerID: "bob", Name: "public-docs", Root: t.TempDir(), Visibility: types.VisibilityPublic})
	require.NoError(t, err)

	visible := r.ListVisible("alice")
	var names []string
	for _, s := range visible {
		names = append(names, s.Name)
	}
	assert.Contains(t, names, "private-docs")
	assert.Contains(t, names, "public-docs")

	visibleOther := r.ListVisible("carol")
	names = nil
	for _, s := range visibleOther {
		names = append(names, s.Name)
	}
	assert.NotContains(t, names, "private-docs")
	assert.Contains(t, names, "public-docs")
}

func TestListAllIgnoresVisibility(t *testing.T) {
	r := newRegistry(t)
	_, err := r.Create(CreateParams{OwnerID: "alice", Name: "private-docs", Root: t.TempDir(), Visibility: types.VisibilityPrivate})
	require.NoError(t, err)

	all := r.ListAll()
	require.Len(t, all, 1)
	assert.Equal(t, "private-docs", all[0].Name)
}

func TestUpdateRenamesAndRejectsConflicts(t *testing.T) {
	r := newRegistry(t)
	a, err := r.Create(CreateParams{OwnerID: "alice", Name: "docs-a", Root: t.TempDir()})
	require.NoError(t, err)
	_, err = r.Create(CreateParams{OwnerID: "alice", Name: "docs-b", Root: t.TempDir()})
	require.NoError(t, err)

	newName := "docs-b"
	_, err = r.Update(a.ID, UpdateParams{Name: &newName})
	assert.True(t, errs.Is(err, errs.KindConflict))

	renamed := "docs-renamed"
	updated, err := r.Update(a.ID, UpdateParams{Name: &renamed})
	require.NoError(t, err)
	assert.Equal(t, "docs-renamed", updated.Name)
}

func TestUpdateUnknownSpaceReturnsNotFound(t *testing.T) {
	r := newRegistry(t)
	name := "x"
	_, err := r.Update(types.SpaceID(999), UpdateParams{Name: &name})
	assert.True(t, errs.Is(err, errs.KindNotFound))
}

func TestDeleteRemovesSpace(t *testing.T) {
	r := newRegistry(t)
	s, err := r.Create(CreateParams{OwnerID: "alice", Name: "docs", Root: t.TempDir()})
	require.NoError(t, err)

	require.NoError(t, r.Delete(s.ID))
	_, err = r.Get(s.ID)
	assert.True(t, errs.Is(err, errs.KindNotFound))
}

func TestDeleteUnknownSpaceReturnsNotFound(t *testing.T) {
	r := newRegistry(t)
	assert.True(t, errs.Is(r.Delete(types.SpaceID(42)), errs.KindNotFound))
}

func TestGetByNameFindsOwnedSpace(t *testing.T) {
	r := newRegistry(t)
	_, err := r.Create(CreateParams{OwnerID: "alice", Name: "docs", Root: t.TempDir()})
	require.NoError(t, err)

	found, err := r.GetByName("alice", "docs")
	require.NoError(t, err)
	assert.Equal(t, "docs", found.Name)

	_, err = r.GetByName("bob", "docs")
	assert.True(t, errs.Is(err, errs.KindNotFound))
}

func TestNewLoadsExistingSpacesFromStore(t *testing.T) {
	store := datastore.NewMemStore()
	r1, err := New(store)
	require.NoError(t, err)
	_, err = r1.Create(CreateParams{OwnerID: "alice", Name: "docs", Root: t.TempDir()})
	require.NoError(t, err)

	r2, err := New(store)
	require.NoError(t, err)
	all := r2.ListAll()
	require.Len(t, all, 1)
	assert.Equal(t, "docs", all[0].Name)
}
