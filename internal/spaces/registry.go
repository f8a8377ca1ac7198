// Package spaces implements C1, the space registry: list/get/create/
// update/delete over named filesystem roots, with per-user name
// uniqueness and template-bundle seeding on create.
package spaces

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/nooblyjs/wiki-index-core/internal/datastore"
	"github.com/nooblyjs/wiki-index-core/internal/errs"
	"github.com/nooblyjs/wiki-index-core/internal/types"
)

const collection = "spaces"

// Registry is the in-memory, datastore-backed C1 implementation. Grounded
// on the teacher's MasterIndex pattern of holding the authoritative state
// in memory behind a mutex while mirroring every mutation to durable
// storage before returning success.
type Registry struct {
	store datastore.Store

	mu     sync.RWMutex
	spaces map[types.SpaceID]types.Space
	nextID int64
}

// New loads the registry's state from store (spec.md §6: the `spaces`
// named collection).
func New(store datastore.Store) (*Registry, error) {
	r := &Registry{store: store, spaces: make(map[types.SpaceID]types.Space)}

	var rows []types.Space
	if err := store.LoadAll(collection, &rows); err != nil {
		return nil, errs.Internal("Registry.New", err)
	}
	for _, s := range rows {
		r.spaces[s.ID] = s
		if int64(s.ID) >= r.nextID {
			r.nextID = int64(s.ID) + 1
		}
	}
	return r, nil
}

// ListVisible returns every space visible to userID (spec.md §6 visibility
// rule), sorted by name for stable output.
func (r *Registry) ListVisible(userID types.UserID) []types.Space {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.Space, 0, len(r.spaces))
	for _, s := range r.spaces {
		if s.VisibleTo(userID) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ListAll returns every registered space regardless of visibility, for
// internal callers like a full rebuild that must walk every space root.
func (r *Registry) ListAll() []types.Space {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.Space, 0, len(r.spaces))
	for _, s := range r.spaces {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns the space with the given id.
func (r *Registry) Get(id types.SpaceID) (types.Space, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.spaces[id]
	if !ok {
		return types.Space{}, errs.NotFound("Registry.Get", fmt.Sprintf("space:%d", id), nil)
	}
	return s, nil
}

// GetByName returns the space owned by userID with the given name.
func (r *Registry) GetByName(userID types.UserID, name string) (types.Space, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.spaces {
		if s.OwnerID == userID && s.Name == name {
			return s, nil
		}
	}
	return types.Space{}, errs.NotFound("Registry.GetByName", fmt.Sprintf("space:%s/%s", userID, name), nil)
}

// CreateParams are the inputs to Create (spec.md §4.1/§6).
type CreateParams struct {
	OwnerID     types.UserID
	Name        string
	Description string
	Visibility  types.Visibility
	Root        string
}

// Create registers a new space (spec.md §4.1): the root is created if
// missing, validated to be a directory, and seeded from a template bundle
// only when it has no visible entries. Names must be unique within the
// owner's scope.
func (r *Registry) Create(p CreateParams) (types.Space, error) {
	if p.Name == "" {
		return types.Space{}, errs.ValidationFailed("Registry.Create", fmt.Errorf("name is required"))
	}
	if p.Visibility == "" {
		p.Visibility = types.VisibilityPrivate
	}
	root, err := filepath.Abs(p.Root)
	if err != nil {
		return types.Space{}, errs.New(errs.KindValidationFailed, "Registry.Create", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.spaces {
		if s.OwnerID == p.OwnerID && s.Name == p.Name {
			return types.Space{}, errs.Conflict("Registry.Create", fmt.Sprintf("space:%s/%s", p.OwnerID, p.Name), nil)
		}
	}

	if err := ensureDir(root); err != nil {
		return types.Space{}, errs.New(errs.KindValidationFailed, "Registry.Create", err).WithResource(root)
	}
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}

	empty, err := dirIsEmpty(root)
	if err != nil {
		return types.Space{}, errs.Internal("Registry.Create", err)
	}

	space := types.Space{
		ID:         types.SpaceID(r.nextID),
		Name:       p.Name,
		Root:       root,
		Visibility: p.Visibility,
		OwnerID:    p.OwnerID,
	}
	r.nextID++

	if empty {
		if err := seedTemplate(root); err != nil {
			return types.Space{}, errs.Internal("Registry.Create.seedTemplate", err)
		}
	}

	r.spaces[space.ID] = space
	if err := r.persistLocked(); err != nil {
		delete(r.spaces, space.ID)
		return types.Space{}, err
	}
	return space, nil
}

// UpdateParams are the mutable fields of a space (spec.md §4.1 "update
// metadata"); a nil field leaves the existing value unchanged. Description
// is accepted but not stored, since types.Space has no description field.
type UpdateParams struct {
	Name        *string
	Description *string
	Visibility  *types.Visibility
}

// Update mutates a space's metadata in place. The root path is immutable
// once registered (spec.md is silent on root changes; treating it as
// immutable avoids orphaning the index's docKeys, which embed the space
// id, not the root).
func (r *Registry) Update(id types.SpaceID, p UpdateParams) (types.Space, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.spaces[id]
	if !ok {
		return types.Space{}, errs.NotFound("Registry.Update", fmt.Sprintf("space:%d", id), nil)
	}

	if p.Name != nil && *p.Name != s.Name {
		for _, other := range r.spaces {
			if other.ID != id && other.OwnerID == s.OwnerID && other.Name == *p.Name {
				return types.Space{}, errs.Conflict("Registry.Update", fmt.Sprintf("space:%s/%s", s.OwnerID, *p.Name), nil)
			}
		}
		s.Name = *p.Name
	}
	if p.Visibility != nil {
		s.Visibility = *p.Visibility
	}

	r.spaces[id] = s
	if err := r.persistLocked(); err != nil {
		return types.Space{}, err
	}
	return s, nil
}

// Delete removes a space from the registry. Callers are responsible for
// cascading the index eviction (internal/index.Index.EvictSpace) since
// this package has no dependency on C4.
func (r *Registry) Delete(id types.SpaceID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.spaces[id]; !ok {
		return errs.NotFound("Registry.Delete", fmt.Sprintf("space:%d", id), nil)
	}
	delete(r.spaces, id)
	return r.persistLocked()
}

func (r *Registry) persistLocked() error {
	rows := make([]types.Space, 0, len(r.spaces))
	for _, s := range r.spaces {
		rows = append(rows, s)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	if err := r.store.SaveAll(collection, rows); err != nil {
		return errs.Internal("Registry.persist", err)
	}
	return nil
}

func ensureDir(root string) error {
	info, err := os.Stat(root)
	if os.IsNotExist(err) {
		return os.MkdirAll(root, 0755)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", root)
	}
	return nil
}

// dirIsEmpty reports whether root has no visible (non-dotfile) entries,
// matching spec.md §4.1's "no visible entries" seeding condition.
func dirIsEmpty(root string) (bool, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if len(e.Name()) == 0 || e.Name()[0] != '.' {
			return false, nil
		}
	}
	return true, nil
}
